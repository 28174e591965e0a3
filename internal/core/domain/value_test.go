package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		data string
		kind Kind
	}{
		{"null", `null`, KindNull},
		{"bool", `true`, KindBool},
		{"integer", `32`, KindNumber},
		{"float", `0.1`, KindNumber},
		{"string", `"#sky"`, KindString},
		{"list", `[1, "a"]`, KindList},
		{"map", `{"a": 1}`, KindMap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Value
			require.NoError(t, json.Unmarshal([]byte(tt.data), &v))
			assert.Equal(t, tt.kind, v.Kind())

			out, err := json.Marshal(v)
			require.NoError(t, err)
			assert.JSONEq(t, tt.data, string(out))
		})
	}
}

func TestValue_NumberLiteralPreserved(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`1.50`), &v))

	lit, ok := v.Literal()
	require.True(t, ok)
	assert.Equal(t, "1.50", lit)

	_, ok = v.AsInt()
	assert.False(t, ok)
	f, ok := v.AsFloat()
	require.True(t, ok)
	assert.InDelta(t, 1.5, f, 1e-9)
}

func TestValue_Number(t *testing.T) {
	v, err := Number("42")
	require.NoError(t, err)
	i, ok := v.AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(42), i)

	_, err = Number("forty")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestValue_Containers(t *testing.T) {
	list := List(Int(1), String("a"))
	items := list.Items()
	require.Len(t, items, 2)
	items[0] = Null()
	assert.Equal(t, KindNumber, list.Items()[0].Kind())

	m := Map(map[string]Value{"b": Int(2), "a": Int(1)})
	assert.Equal(t, []string{"a", "b"}, m.Keys())
	assert.Equal(t, 2, m.Len())
	f, ok := m.Field("a")
	require.True(t, ok)
	assert.True(t, f.Equal(Int(1)))

	assert.Nil(t, String("x").Keys())
	assert.Nil(t, String("x").Items())
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, Null().Equal(Value{}))
	assert.True(t, List(Int(1)).Equal(List(Int(1))))
	assert.False(t, List(Int(1)).Equal(List(Int(2))))
	assert.False(t, Map(map[string]Value{"a": Bool(true)}).Equal(Map(map[string]Value{"a": Bool(false)})))
	assert.False(t, String("1").Equal(Int(1)))
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(map[string]any{
		"n":    3,
		"f":    2.5,
		"list": []any{"x", true, nil},
	})
	require.NoError(t, err)
	assert.Equal(t, KindMap, v.Kind())

	list, ok := v.Field("list")
	require.True(t, ok)
	assert.Equal(t, 3, list.Len())

	_, err = FromAny(struct{}{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "null", KindNull.String())
	assert.Equal(t, "map", KindMap.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
