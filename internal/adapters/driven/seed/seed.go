// Package seed loads bootstrap scene documents from YAML.
//
// A seed file is a list of documents written in their reserved-key form:
//
//	- "@name": /root
//	  "@type": a-scene
//	  "@version": 1
//	  "@children": {ground: -1}
//	- "@name": /root/ground
//	  "@type": a-plane
//	  "@version": 1
//	  color: "#7BC8A4"
package seed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/scenesync/internal/core/domain"
)

// Load reads the seed file at path.
func Load(path string) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	docs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return docs, nil
}

// Parse decodes a seed list from r. Every document must validate.
func Parse(r io.Reader) ([]domain.Document, error) {
	var raw []any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}

	docs := make([]domain.Document, 0, len(raw))
	for i, item := range raw {
		normalised, err := normalise(item)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		data, err := json.Marshal(normalised)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w: %v", i, domain.ErrDecode, err)
		}

		var doc domain.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if doc.ID == "" {
			doc.ID = domain.Basename(doc.Name)
		}
		if err := doc.Validate(); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Write encodes docs as a seed list.
func Write(w io.Writer, docs []domain.Document) error {
	raw := make([]any, 0, len(docs))
	for _, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", doc.Name, err)
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			return fmt.Errorf("encoding %s: %w", doc.Name, err)
		}
		raw = append(raw, m)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(raw); err != nil {
		return fmt.Errorf("writing seed: %w", err)
	}
	return enc.Close()
}

// normalise converts YAML mappings with non-string keys into
// string-keyed maps so the tree can be re-encoded as JSON.
func normalise(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			n, err := normalise(item)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			n, err := normalise(item)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(k)] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			n, err := normalise(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case nil, bool, string, int, int64, uint64, float64:
		return t, nil
	default:
		return nil, fmt.Errorf("%w: unsupported seed value %T", domain.ErrInvalidDocument, v)
	}
}
