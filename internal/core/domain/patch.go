package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Op is the edit operation carried by a Patch.
type Op string

// Patch operations. OpAdd, OpRemove and OpReplace follow JSON Patch
// (RFC 6902) semantics against the latest version.
const (
	OpNew     Op = "new"
	OpAdd     Op = "add"
	OpRemove  Op = "remove"
	OpReplace Op = "replace"
	OpNoop    Op = "nop"
)

// opNoopAlias is accepted on input and normalised to OpNoop.
const opNoopAlias = "no-op"

// Patch field names besides the reserved document keys.
const (
	keyOp    = "op"
	keyPath  = "path"
	keyValue = "value"
)

// IsValid reports whether o is a known operation.
func (o Op) IsValid() bool {
	switch o {
	case OpNew, OpAdd, OpRemove, OpReplace, OpNoop:
		return true
	}
	return false
}

// IsJSONPatch reports whether o is applied as a JSON Patch operation.
func (o Op) IsJSONPatch() bool {
	return o == OpAdd || o == OpRemove || o == OpReplace
}

// Patch is an edit record. Applying it produces version Version of the
// document at Name.
type Patch struct {
	// Name is the path of the target document.
	Name string

	// Version is the version this patch produces.
	Version int64

	// Prev is the version the author last saw. Informational unless the
	// store is configured to check it. Negative means unknown or new.
	Prev int64

	// Op is the operation.
	Op Op

	// Path is the JSON pointer for add, remove and replace.
	Path string

	// Value is the operand: the full document for new, the inserted value
	// for add and replace.
	Value json.RawMessage
}

// DecodePatch parses a patch payload. Malformed JSON is reported as
// ErrDecode; missing or mistyped version fields decode as -1 and are left
// for Validate.
func DecodePatch(data []byte) (*Patch, error) {
	var p Patch
	if err := json.Unmarshal(data, &p); err != nil {
		if errors.Is(err, ErrDecode) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &p, nil
}

// Encode serializes p.
func (p *Patch) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// Validate checks that p can be applied.
func (p *Patch) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidPatch, KeyName)
	}
	if !strings.HasPrefix(p.Name, "/") {
		return fmt.Errorf("%w: %s %q must start with /", ErrInvalidPatch, KeyName, p.Name)
	}
	if p.Version < 0 {
		return fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidPatch, KeyVersion)
	}
	if !p.Op.IsValid() {
		return fmt.Errorf("%w: unknown op %q", ErrInvalidPatch, p.Op)
	}
	if p.Op == OpNew && !isNonEmptyObject(p.Value) {
		return fmt.Errorf("%w: new requires a non-empty object value", ErrInvalidPatch)
	}
	return nil
}

// Operation returns p as a single-element JSON Patch document.
func (p *Patch) Operation() ([]byte, error) {
	if !p.Op.IsJSONPatch() {
		return nil, fmt.Errorf("%w: %q is not a JSON Patch operation", ErrInvalidPatch, p.Op)
	}
	op := map[string]any{keyOp: string(p.Op), keyPath: p.Path}
	if p.Op != OpRemove {
		value := p.Value
		if len(value) == 0 {
			value = json.RawMessage("null")
		}
		op[keyValue] = value
	}
	return json.Marshal([]any{op})
}

// MarshalJSON encodes p as a flat JSON object.
func (p Patch) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		KeyName:    p.Name,
		KeyVersion: p.Version,
		KeyPrev:    p.Prev,
		keyOp:      string(p.Op),
	}
	if p.Op.IsJSONPatch() || p.Path != "" {
		m[keyPath] = p.Path
	}
	if len(p.Value) > 0 {
		m[keyValue] = p.Value
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes a flat JSON object.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: patch must be an object", ErrDecode)
	}

	out := Patch{Version: -1, Prev: -1}
	if msg, ok := raw[KeyName]; ok {
		if err := json.Unmarshal(msg, &out.Name); err != nil {
			return fmt.Errorf("%w: %s must be a string", ErrDecode, KeyName)
		}
	}
	if msg, ok := raw[KeyVersion]; ok {
		if v, ok := decodeInt(msg); ok {
			out.Version = v
		}
	}
	if msg, ok := raw[KeyPrev]; ok {
		if v, ok := decodeInt(msg); ok {
			out.Prev = v
		}
	}
	if msg, ok := raw[keyOp]; ok {
		var op string
		if err := json.Unmarshal(msg, &op); err != nil {
			return fmt.Errorf("%w: %s must be a string", ErrDecode, keyOp)
		}
		if op == opNoopAlias {
			op = string(OpNoop)
		}
		out.Op = Op(op)
	}
	if msg, ok := raw[keyPath]; ok {
		if err := json.Unmarshal(msg, &out.Path); err != nil {
			return fmt.Errorf("%w: %s must be a string", ErrDecode, keyPath)
		}
	}
	if msg, ok := raw[keyValue]; ok {
		out.Value = append(json.RawMessage(nil), msg...)
	}
	*p = out
	return nil
}

func isNonEmptyObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return false
	}
	return len(m) > 0
}
