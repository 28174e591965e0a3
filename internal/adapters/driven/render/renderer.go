// Package render turns resolved scene trees into nested markup.
//
// Each document becomes one element named after its @type. The element
// carries id and class first, then the payload properties sorted by key,
// then its children in child-id order. Children of void elements such as
// img are written after the element instead of inside it. Documents
// without a type, and children that could not be resolved, render as
// nothing.
package render

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/scenesync/internal/core/domain"
	"github.com/custodia-labs/scenesync/internal/core/ports/driven"
)

var _ driven.Renderer = (*Renderer)(nil)

// Renderer implements driven.Renderer using x/net/html nodes.
type Renderer struct{}

// NewRenderer creates a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render serializes doc. A nil document renders as an empty string.
func (r *Renderer) Render(doc *domain.ResolvedDocument) (string, error) {
	var buf bytes.Buffer
	for _, node := range BuildNodes(doc) {
		if err := html.Render(&buf, node); err != nil {
			return "", fmt.Errorf("rendering %s: %w", doc.Name, err)
		}
	}
	return buf.String(), nil
}

// BuildNodes converts doc into element trees. It returns nil when doc is
// nil or has no type. Void elements such as img cannot hold content, so
// their children follow them as siblings.
func BuildNodes(doc *domain.ResolvedDocument) []*html.Node {
	if doc == nil || doc.Type == "" {
		return nil
	}

	node := &html.Node{
		Type:     html.ElementNode,
		Data:     doc.Type,
		DataAtom: atom.Lookup([]byte(doc.Type)),
		Attr:     attributes(doc.Document),
	}

	var children []*html.Node
	for _, id := range doc.ChildIDs() {
		child, ok := doc.Child(id)
		if !ok {
			continue
		}
		children = append(children, BuildNodes(child)...)
	}

	if voidElements[node.DataAtom] {
		return append([]*html.Node{node}, children...)
	}
	for _, c := range children {
		node.AppendChild(c)
	}
	return []*html.Node{node}
}

var voidElements = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true,
	atom.Embed: true, atom.Hr: true, atom.Img: true, atom.Input: true,
	atom.Keygen: true, atom.Link: true, atom.Meta: true, atom.Param: true,
	atom.Source: true, atom.Track: true, atom.Wbr: true,
}

func attributes(doc domain.Document) []html.Attribute {
	var attrs []html.Attribute
	if doc.ID != "" {
		attrs = append(attrs, html.Attribute{Key: "id", Val: doc.ID})
	}
	if doc.Class != "" {
		attrs = append(attrs, html.Attribute{Key: "class", Val: doc.Class})
	}

	keys := make([]string, 0, len(doc.Props))
	for k := range doc.Props {
		if k == "" || domain.IsReserved(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		attrs = append(attrs, html.Attribute{Key: k, Val: FormatValue(doc.Props[k])})
	}
	return attrs
}

// FormatValue converts a property value to its attribute text.
// Lists are comma-joined, maps become "key: value;" pairs joined by a
// space, booleans are lowercase and null is empty.
func FormatValue(v domain.Value) string {
	switch v.Kind() {
	case domain.KindNull:
		return ""
	case domain.KindBool:
		b, _ := v.AsBool()
		if b {
			return "true"
		}
		return "false"
	case domain.KindNumber:
		lit, _ := v.Literal()
		return lit
	case domain.KindString:
		s, _ := v.AsString()
		return s
	case domain.KindList:
		items := v.Items()
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = FormatValue(item)
		}
		return strings.Join(parts, ",")
	case domain.KindMap:
		keys := v.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			field, _ := v.Field(k)
			parts[i] = k + ": " + FormatValue(field) + ";"
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}
