package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// LatestVersion is the version reference meaning "the newest stored version".
// Any negative version reference is treated the same way.
const LatestVersion int64 = -1

// Reserved keys of the JSON object form of a Document.
const (
	KeyName     = "@name"
	KeyID       = "@id"
	KeyType     = "@type"
	KeyClass    = "@class"
	KeyVersion  = "@version"
	KeyChildren = "@children"
	KeyPrev     = "@prev"

	// ReservedPrefix marks metadata keys. Keys with this prefix are never
	// rendered as element attributes.
	ReservedPrefix = "@"
)

// IsReserved reports whether key is a metadata key.
func IsReserved(key string) bool {
	return strings.HasPrefix(key, ReservedPrefix)
}

// IsLatest reports whether a version reference means "latest".
func IsLatest(version int64) bool {
	return version < 0
}

// Document is one immutable version of a scene node.
// A (Name, Version) pair identifies exactly one stored Document.
type Document struct {
	// Name is the path of the node, e.g. "/root/ground".
	Name string

	// ID is the node's identifier, the last component of Name.
	ID string

	// Type is the element type the node renders as. Empty means the node
	// does not render.
	Type string

	// Class is the optional element class.
	Class string

	// Version is this version's number. Non-negative once stored.
	Version int64

	// Children maps child id to a version reference. A negative reference
	// means "latest". The child's path is Name + "/" + id.
	Children map[string]int64

	// Props holds the remaining payload properties.
	Props map[string]Value
}

// Validate checks that d is storable.
func (d *Document) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidDocument, KeyName)
	}
	if !strings.HasPrefix(d.Name, "/") {
		return fmt.Errorf("%w: %s %q must start with /", ErrInvalidDocument, KeyName, d.Name)
	}
	if d.Version < 0 {
		return fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidDocument, KeyVersion)
	}
	for id := range d.Children {
		if id == "" || strings.Contains(id, "/") {
			return fmt.Errorf("%w: invalid child id %q", ErrInvalidDocument, id)
		}
	}
	for key := range d.Props {
		if IsReserved(key) {
			continue
		}
		if key == "" {
			return fmt.Errorf("%w: empty property name", ErrInvalidDocument)
		}
	}
	return nil
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	cp := d
	if d.Children != nil {
		cp.Children = make(map[string]int64, len(d.Children))
		for id, ref := range d.Children {
			cp.Children[id] = ref
		}
	}
	if d.Props != nil {
		cp.Props = make(map[string]Value, len(d.Props))
		for k, v := range d.Props {
			cp.Props[k] = v
		}
	}
	return cp
}

// ChildIDs returns the ids of d's children in sorted order.
func (d Document) ChildIDs() []string {
	ids := make([]string, 0, len(d.Children))
	for id := range d.Children {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ChildName returns the path of the child with the given id.
func (d Document) ChildName(id string) string {
	return JoinName(d.Name, id)
}

// MarshalJSON encodes d as a flat JSON object with "@"-prefixed metadata.
// "@children" is always present.
func (d Document) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(d.Props)+6)
	for k, v := range d.Props {
		m[k] = v
	}
	if d.Name != "" {
		m[KeyName] = d.Name
	}
	if d.ID != "" {
		m[KeyID] = d.ID
	}
	if d.Type != "" {
		m[KeyType] = d.Type
	}
	if d.Class != "" {
		m[KeyClass] = d.Class
	}
	m[KeyVersion] = d.Version
	children := d.Children
	if children == nil {
		children = map[string]int64{}
	}
	m[KeyChildren] = children
	return json.Marshal(m)
}

// UnmarshalJSON decodes a flat JSON object. A missing "@version" decodes
// as LatestVersion.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: document must be an object", ErrInvalidDocument)
	}

	out := Document{Version: LatestVersion, Props: make(map[string]Value)}
	for key, msg := range raw {
		switch key {
		case KeyName, KeyID, KeyType, KeyClass:
			var s string
			if err := json.Unmarshal(msg, &s); err != nil {
				return fmt.Errorf("%w: %s must be a string", ErrInvalidDocument, key)
			}
			switch key {
			case KeyName:
				out.Name = s
			case KeyID:
				out.ID = s
			case KeyType:
				out.Type = s
			case KeyClass:
				out.Class = s
			}
		case KeyVersion:
			v, ok := decodeInt(msg)
			if !ok {
				return fmt.Errorf("%w: %s must be an integer", ErrInvalidDocument, key)
			}
			out.Version = v
		case KeyChildren:
			children, err := decodeChildren(msg)
			if err != nil {
				return err
			}
			out.Children = children
		default:
			var v Value
			if err := json.Unmarshal(msg, &v); err != nil {
				return fmt.Errorf("%w: property %q: %v", ErrInvalidDocument, key, err)
			}
			out.Props[key] = v
		}
	}
	*d = out
	return nil
}

func decodeChildren(msg json.RawMessage) (map[string]int64, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(msg, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s must be an object", ErrInvalidDocument, KeyChildren)
	}
	children := make(map[string]int64, len(raw))
	for id, ref := range raw {
		v, ok := decodeInt(ref)
		if !ok {
			return nil, fmt.Errorf("%w: child %q must reference an integer version", ErrInvalidDocument, id)
		}
		children[id] = v
	}
	return children, nil
}

// decodeInt accepts JSON integer literals only. Quoted numbers, fractions
// and exponents are rejected.
func decodeInt(msg json.RawMessage) (int64, bool) {
	s := strings.TrimSpace(string(msg))
	if s == "" || s[0] == '"' {
		return 0, false
	}
	v, err := json.Number(s).Int64()
	if err != nil {
		return 0, false
	}
	return v, true
}
