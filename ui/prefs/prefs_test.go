package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", prefsFile)
	p := LoadFrom(path)
	assert.Equal(t, "", p.String(KeyAlgorithm))
	assert.Equal(t, 5, p.Int(KeyBrushSize, 5))
	assert.False(t, p.Changed())

	p.SetString(KeyAlgorithm, "slic")
	p.SetInt(KeyBrushSize, 17)
	p.SetParams("slic", map[string]float64{"n_segments": 400, "sigma": 0.5})
	assert.True(t, p.Changed())
	require.NoError(t, p.Save())
	assert.False(t, p.Changed())

	q := LoadFrom(path)
	assert.Equal(t, "slic", q.String(KeyAlgorithm))
	assert.Equal(t, 17, q.Int(KeyBrushSize, 5))
	assert.Equal(t, map[string]float64{"n_segments": 400, "sigma": 0.5}, q.Params("slic"))
	assert.Empty(t, q.Params("watershed"))
}

func TestCorruptFileIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), prefsFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	p := LoadFrom(path)
	assert.Equal(t, 2.5, p.FloatWithFallback("x", 2.5))
	assert.Equal(t, path, p.Path())
}
