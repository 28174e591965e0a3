package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scenesync/internal/core/domain"
)

func resolved(name, typ string, props map[string]domain.Value, nodes map[string]*domain.ResolvedDocument) *domain.ResolvedDocument {
	children := make(map[string]int64, len(nodes))
	for id := range nodes {
		children[id] = domain.LatestVersion
	}
	if props == nil {
		props = map[string]domain.Value{}
	}
	return &domain.ResolvedDocument{
		Document: domain.Document{
			Name:     name,
			ID:       domain.Basename(name),
			Type:     typ,
			Version:  1,
			Children: children,
			Props:    props,
		},
		Nodes: nodes,
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value domain.Value
		want  string
	}{
		{"null", domain.Null(), ""},
		{"true", domain.Bool(true), "true"},
		{"false", domain.Bool(false), "false"},
		{"integer", domain.Int(32), "32"},
		{"float", domain.Float(0.1), "0.1"},
		{"string", domain.String("#sky"), "#sky"},
		{"list", domain.List(domain.Int(1), domain.Int(2), domain.Int(3)), "1,2,3"},
		{"map sorted", domain.Map(map[string]domain.Value{
			"width":     domain.Float(0.5),
			"primitive": domain.String("box"),
		}), "primitive: box; width: 0.5;"},
		{"nested list in map", domain.Map(map[string]domain.Value{
			"pos": domain.List(domain.Int(0), domain.Int(1)),
		}), "pos: 0,1;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.value))
		})
	}
}

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer()

	t.Run("nil document renders empty", func(t *testing.T) {
		out, err := r.Render(nil)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("missing type renders empty", func(t *testing.T) {
		out, err := r.Render(resolved("/root", "", nil, nil))
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("attributes ordered id class then sorted props", func(t *testing.T) {
		doc := resolved("/root/box", "a-box", map[string]domain.Value{
			"position": domain.List(domain.Int(0), domain.Int(1), domain.Int(2)),
			"color":    domain.String("red"),
			"@meta":    domain.String("hidden"),
		}, nil)
		doc.Class = "solid"

		out, err := r.Render(doc)
		require.NoError(t, err)
		assert.Equal(t, `<a-box id="box" class="solid" color="red" position="0,1,2"></a-box>`, out)
	})

	t.Run("children in id order and unresolved skipped", func(t *testing.T) {
		doc := resolved("/root", "a-scene", nil, map[string]*domain.ResolvedDocument{
			"b":       resolved("/root/b", "a-sphere", nil, nil),
			"a":       resolved("/root/a", "a-box", nil, nil),
			"missing": nil,
		})

		out, err := r.Render(doc)
		require.NoError(t, err)
		assert.Equal(t, `<a-scene id="root"><a-box id="a"></a-box><a-sphere id="b"></a-sphere></a-scene>`, out)
	})

	t.Run("attribute values are escaped", func(t *testing.T) {
		doc := resolved("/root/t", "a-text", map[string]domain.Value{
			"value": domain.String(`say "hi"`),
		}, nil)

		out, err := r.Render(doc)
		require.NoError(t, err)
		assert.Equal(t, `<a-text id="t" value="say &#34;hi&#34;"></a-text>`, out)
	})

	t.Run("children of void elements follow them", func(t *testing.T) {
		doc := resolved("/root", "a-scene", nil, map[string]*domain.ResolvedDocument{
			"tex": resolved("/root/tex", "img", map[string]domain.Value{
				"src": domain.String("/static/floor.jpg"),
			}, map[string]*domain.ResolvedDocument{
				"note": resolved("/root/tex/note", "a-text", nil, nil),
			}),
		})

		out, err := r.Render(doc)
		require.NoError(t, err)
		assert.Equal(t, `<a-scene id="root"><img id="tex" src="/static/floor.jpg"/><a-text id="note"></a-text></a-scene>`, out)
	})

	t.Run("void root with children", func(t *testing.T) {
		doc := resolved("/img", "img", nil, map[string]*domain.ResolvedDocument{
			"b": resolved("/img/b", "br", nil, nil),
		})

		out, err := r.Render(doc)
		require.NoError(t, err)
		assert.Equal(t, `<img id="img"/><br id="b"/>`, out)
	})
}

func TestRenderer_DefaultScene(t *testing.T) {
	docs := domain.DefaultScene()
	byName := make(map[string]domain.Document, len(docs))
	for _, d := range docs {
		byName[d.Name] = d
	}

	var build func(name string) *domain.ResolvedDocument
	build = func(name string) *domain.ResolvedDocument {
		d := byName[name]
		nodes := make(map[string]*domain.ResolvedDocument, len(d.Children))
		for id := range d.Children {
			nodes[id] = build(d.ChildName(id))
		}
		return &domain.ResolvedDocument{Document: d, Nodes: nodes}
	}

	out, err := NewRenderer().Render(build("/root"))
	require.NoError(t, err)

	assert.Contains(t, out, `<a-scene id="root">`)
	assert.Contains(t, out, `<img id="groundTexture" alt="" src="/static/floor.jpg"/>`)
	assert.Contains(t, out, `<a-cylinder id="voxel" height="0.1" radius="32" src="#groundTexture"></a-cylinder>`)
	assert.Contains(t, out, `<a-camera id="camera"><a-cursor id="cursor"`)
}
