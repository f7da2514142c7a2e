// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize_MasksNestedSecretKeys(t *testing.T) {
	payload := map[string]any{
		"token": "abc123",
		"nested": map[string]any{
			"api_key":     "should-hide",
			"credentials": map[string]any{"password": "p@ss"},
			"host":        "example.com",
		},
	}

	got, ok := Sanitize(payload, "").(map[string]any)
	require.True(t, ok)
	assert.Equal(t, Redacted, got["token"])

	nested := got["nested"].(map[string]any)
	assert.Equal(t, Redacted, nested["api_key"])
	assert.Equal(t, Redacted, nested["credentials"], "secret-keyed objects are replaced wholesale")
	assert.Equal(t, "example.com", nested["host"])
}

func TestSanitize_SecretKeyReplacesCompositeValues(t *testing.T) {
	got := Sanitize(map[string]any{
		"Secrets": []any{"a", "b"},
		"MyTOKEN": 42,
	}, "").(map[string]any)
	assert.Equal(t, Redacted, got["Secrets"])
	assert.Equal(t, Redacted, got["MyTOKEN"])
}

func TestSanitize_StringThresholds(t *testing.T) {
	short := strings.Repeat("a", maxStringRunes)
	assert.Equal(t, short, Sanitize(short, ""))

	long := strings.Repeat("é", maxStringRunes+1)
	got, ok := Sanitize(long, "").(map[string]any)
	require.True(t, ok)
	sum := sha256.Sum256([]byte(long))
	assert.Equal(t, "large_string", got["type"])
	assert.Equal(t, strings.Repeat("é", previewRunes), got["preview"])
	assert.Equal(t, maxStringRunes+1, got["length"])
	assert.Equal(t, hex.EncodeToString(sum[:]), got["sha256"])
}

func TestSanitize_Bytes(t *testing.T) {
	data := []byte("hello")
	got := Sanitize(data, "").(map[string]any)
	sum := sha256.Sum256(data)
	assert.Equal(t, map[string]any{
		"type":       "bytes",
		"size_bytes": 5,
		"sha256":     hex.EncodeToString(sum[:]),
	}, got)
}

func TestSanitize_SequenceTruncation(t *testing.T) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i
	}

	got, ok := Sanitize(items, "").([]any)
	require.True(t, ok)
	require.Len(t, got, maxItems+1)
	assert.Equal(t, 0, got[0])
	assert.Equal(t, map[string]any{truncatedMarker: 5}, got[maxItems])

	short := Sanitize([]string{"a", "b"}, "")
	assert.Equal(t, []any{"a", "b"}, short)
}

func TestSanitize_PathDescriptor(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(file, []byte("line\n"), 0o600))

	got := Sanitize(Path(file), "").(map[string]any)
	assert.Equal(t, map[string]any{
		"path":       file,
		"exists":     true,
		"is_file":    true,
		"is_dir":     false,
		"size_bytes": int64(5),
	}, got)

	gotDir := Sanitize(Path(dir), "").(map[string]any)
	assert.Equal(t, true, gotDir["is_dir"])
	assert.NotContains(t, gotDir, "size_bytes")

	missing := Sanitize(Path(filepath.Join(dir, "nope")), "").(map[string]any)
	assert.Equal(t, map[string]any{"path": filepath.Join(dir, "nope"), "exists": false}, missing)
}

func TestSanitize_PrimitivesAndOthers(t *testing.T) {
	assert.Nil(t, Sanitize(nil, ""))
	assert.Equal(t, 3, Sanitize(3, ""))
	assert.Equal(t, 2.5, Sanitize(2.5, ""))
	assert.Equal(t, true, Sanitize(true, ""))
	assert.Equal(t, "boom", Sanitize(errors.New("boom"), ""))
	assert.Equal(t, "1s", Sanitize(time.Second, ""))

	type level string
	assert.Equal(t, "debug", Sanitize(level("debug"), ""))

	var nilPtr *int
	assert.Nil(t, Sanitize(nilPtr, ""))
	fn, ok := Sanitize(func() {}, "").(string)
	assert.True(t, ok)
	assert.NotEmpty(t, fn)
}

func TestSanitize_TypedNilMethodReceivers(t *testing.T) {
	type schedule struct {
		At *time.Time
	}
	in := map[string]any{
		"when":     (*time.Time)(nil),
		"last_err": (*fs.PathError)(nil),
		"nested":   schedule{},
		"list":     []any{(*time.Time)(nil)},
	}

	var got any
	require.NotPanics(t, func() { got = Sanitize(in, "") })
	assert.Equal(t, map[string]any{
		"when":     nil,
		"last_err": nil,
		"nested":   map[string]any{"At": nil},
		"list":     []any{nil},
	}, got)

	var err error = (*fs.PathError)(nil)
	assert.Nil(t, Sanitize(err, ""))
}

func TestSanitize_StructFieldsAreMasked(t *testing.T) {
	type creds struct {
		User     string `json:"user"`
		Password string `json:"password"`
		Skip     string `json:"-"`
		APIKey   string
		private  string
	}
	got := Sanitize(&creds{User: "u", Password: "p", Skip: "s", APIKey: "k", private: "x"}, "").(map[string]any)
	assert.Equal(t, map[string]any{"user": "u", "password": Redacted, "APIKey": Redacted}, got)
}

func TestSanitize_MapWithNonStringKeys(t *testing.T) {
	got := Sanitize(map[int]string{1: "one"}, "").(map[string]any)
	assert.Equal(t, map[string]any{"1": "one"}, got)
}

func TestSanitize_Idempotent(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("abc"), 0o600))

	many := make([]any, 40)
	for i := range many {
		many[i] = strings.Repeat("x", i*10)
	}

	inputs := []any{
		"plain",
		strings.Repeat("z", 1000),
		[]byte{1, 2, 3},
		Path(file),
		many,
		map[string]any{
			"password": "x",
			"nested":   map[string]any{"items": many, "blob": []byte("b"), "path": Path(dir)},
		},
		[]string{"a"},
		nil,
		int8(4),
	}
	for i, in := range inputs {
		once := Sanitize(in, "")
		twice := Sanitize(once, "")
		assert.Equal(t, once, twice, "input %d", i)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	for _, k := range []string{"token", "PASSWORD", "client_secret", "api_key", "Credential", "keyring"} {
		assert.True(t, IsSensitiveKey(k), k)
	}
	for _, k := range []string{"host", "steps", "path", "workflow_id"} {
		assert.False(t, IsSensitiveKey(k), k)
	}
}
