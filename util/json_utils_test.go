package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	var v struct {
		Id string `json:"id"`
	}
	require.NoError(t, Decode([]byte(`{"id":"a","extra":1}`), &v, nil))
	require.Equal(t, "a", v.Id)

	strict := &JSONConfig{DisallowUnknownFields: true}
	require.Error(t, Decode([]byte(`{"id":"a","extra":1}`), &v, strict))
	require.Error(t, Decode([]byte(`{"id":"a"} {}`), &v, nil))
}

func TestDecode_EmptyIsNull(t *testing.T) {
	var p *struct{}
	require.NoError(t, Decode([]byte("  "), &p, nil))
	require.Nil(t, p)
}

func TestDecode_UseNumber(t *testing.T) {
	var v map[string]any
	require.NoError(t, Decode([]byte(`{"n":12345678901234567890}`), &v, &JSONConfig{UseNumber: true}))
	require.Equal(t, "12345678901234567890", v["n"].(interface{ String() string }).String())
}
