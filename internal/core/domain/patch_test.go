package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePatch(t *testing.T) {
	p, err := DecodePatch([]byte(`{"@name": "/root/ground", "@version": 5, "@prev": 4, "op": "replace", "path": "/radius", "value": 40}`))
	require.NoError(t, err)

	assert.Equal(t, "/root/ground", p.Name)
	assert.Equal(t, int64(5), p.Version)
	assert.Equal(t, int64(4), p.Prev)
	assert.Equal(t, OpReplace, p.Op)
	assert.Equal(t, "/radius", p.Path)
	assert.JSONEq(t, `40`, string(p.Value))
	assert.NoError(t, p.Validate())
}

func TestDecodePatch_Defaults(t *testing.T) {
	p, err := DecodePatch([]byte(`{"@name": "/x", "op": "nop"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(-1), p.Version)
	assert.Equal(t, int64(-1), p.Prev)
	assert.ErrorIs(t, p.Validate(), ErrInvalidPatch)
}

func TestDecodePatch_NoopAlias(t *testing.T) {
	p, err := DecodePatch([]byte(`{"@name": "/x", "@version": 2, "op": "no-op"}`))
	require.NoError(t, err)
	assert.Equal(t, OpNoop, p.Op)
	assert.NoError(t, p.Validate())
}

func TestDecodePatch_DecodeFailure(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{not json`},
		{"array", `[1]`},
		{"null", `null`},
		{"name not string", `{"@name": 1}`},
		{"op not string", `{"@name": "/x", "op": 3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePatch([]byte(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestPatch_Validate(t *testing.T) {
	tests := []struct {
		name    string
		patch   Patch
		wantErr bool
	}{
		{"new with value", Patch{Name: "/x", Version: 1, Op: OpNew, Value: json.RawMessage(`{"@type": "a-box"}`)}, false},
		{"new without value", Patch{Name: "/x", Version: 1, Op: OpNew}, true},
		{"new with empty object", Patch{Name: "/x", Version: 1, Op: OpNew, Value: json.RawMessage(`{}`)}, true},
		{"new with non-object", Patch{Name: "/x", Version: 1, Op: OpNew, Value: json.RawMessage(`[1]`)}, true},
		{"add", Patch{Name: "/x", Version: 2, Op: OpAdd, Path: "/a", Value: json.RawMessage(`1`)}, false},
		{"missing name", Patch{Version: 1, Op: OpNoop}, true},
		{"relative name", Patch{Name: "x", Version: 1, Op: OpNoop}, true},
		{"negative version", Patch{Name: "/x", Version: -1, Op: OpNoop}, true},
		{"unknown op", Patch{Name: "/x", Version: 1, Op: "move"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPatch)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPatch_EncodeRoundTrip(t *testing.T) {
	p := &Patch{Name: "/root/sky", Version: 3, Prev: 2, Op: OpAdd, Path: "/color", Value: json.RawMessage(`"#fff"`)}

	data, err := p.Encode()
	require.NoError(t, err)

	decoded, err := DecodePatch(data)
	require.NoError(t, err)
	assert.Equal(t, p.Name, decoded.Name)
	assert.Equal(t, p.Version, decoded.Version)
	assert.Equal(t, p.Prev, decoded.Prev)
	assert.Equal(t, p.Op, decoded.Op)
	assert.Equal(t, p.Path, decoded.Path)
	assert.JSONEq(t, string(p.Value), string(decoded.Value))
}

func TestPatch_Operation(t *testing.T) {
	add := &Patch{Op: OpAdd, Path: "/a", Value: json.RawMessage(`{"b": 1}`)}
	data, err := add.Operation()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"op": "add", "path": "/a", "value": {"b": 1}}]`, string(data))

	remove := &Patch{Op: OpRemove, Path: "/a"}
	data, err = remove.Operation()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"op": "remove", "path": "/a"}]`, string(data))

	_, err = (&Patch{Op: OpNew}).Operation()
	assert.ErrorIs(t, err, ErrInvalidPatch)
}
