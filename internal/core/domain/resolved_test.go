package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvedDocument_MarshalJSON(t *testing.T) {
	r := ResolvedDocument{
		Document: Document{
			Name:     "/root",
			ID:       "root",
			Type:     "a-scene",
			Version:  1,
			Children: map[string]int64{"sky": -1, "gone": 3},
		},
		Nodes: map[string]*ResolvedDocument{
			"sky": {Document: Document{
				Name:    "/root/sky",
				ID:      "sky",
				Type:    "a-sky",
				Version: 2,
				Props:   map[string]Value{"radius": Int(30)},
			}},
			"gone": nil,
		},
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"@name": "/root", "@id": "root", "@type": "a-scene", "@version": 1,
		"@children": {
			"sky": {"@name": "/root/sky", "@id": "sky", "@type": "a-sky", "@version": 2, "@children": {}, "radius": 30},
			"gone": {}
		}
	}`, string(data))
}

func TestResolvedDocument_Child(t *testing.T) {
	r := &ResolvedDocument{Nodes: map[string]*ResolvedDocument{"a": nil}}
	n, ok := r.Child("a")
	assert.True(t, ok)
	assert.Nil(t, n)
	_, ok = r.Child("b")
	assert.False(t, ok)
}
