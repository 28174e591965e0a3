package domain

import "encoding/json"

// ResolvedDocument is a Document whose children have been replaced by their
// resolved content. A nil entry in Nodes marks a child that could not be
// found; it encodes as an empty object.
type ResolvedDocument struct {
	Document

	// Nodes maps child id to the resolved child.
	Nodes map[string]*ResolvedDocument
}

// Child returns the resolved child with the given id.
func (r *ResolvedDocument) Child(id string) (*ResolvedDocument, bool) {
	n, ok := r.Nodes[id]
	return n, ok
}

// MarshalJSON encodes r like its Document, with "@children" holding the
// nested resolved objects.
func (r ResolvedDocument) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(r.Document)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	children := make(map[string]json.RawMessage, len(r.Nodes))
	for id, node := range r.Nodes {
		if node == nil {
			children[id] = json.RawMessage("{}")
			continue
		}
		encoded, err := json.Marshal(node)
		if err != nil {
			return nil, err
		}
		children[id] = encoded
	}
	encodedChildren, err := json.Marshal(children)
	if err != nil {
		return nil, err
	}
	m[KeyChildren] = encodedChildren
	return json.Marshal(m)
}
