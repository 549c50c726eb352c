package config

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestResolveDefaults(t *testing.T) {
	cfg, err := Resolve(Flags{Image: "/data/cat.jpg", Metadata: "/data/labels.csv"})
	require.NoError(t, err)

	assert.Equal(t, "/data/cat_labels.png", cfg.Session.OutputPath)
	assert.Equal(t, 0.2, cfg.View.MinZoom)
	assert.Equal(t, 5.0, cfg.View.MaxZoom)
	assert.Equal(t, 5, cfg.Brush.Size)
	assert.Equal(t, 5, cfg.Labeler.Opacity)
	assert.Equal(t, 16*time.Millisecond, cfg.Labeler.FrameInterval.Duration)
	assert.Zero(t, cfg.Labeler.AutosaveInterval.Duration)
}

func TestResolveRequiresPaths(t *testing.T) {
	_, err := Resolve(Flags{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image path is required")
	assert.Contains(t, err.Error(), "metadata path is required")

	_, err = Resolve(Flags{Image: "a.png", Metadata: "m.csv", Output: "out.jpg"})
	assert.Error(t, err)
}

func TestResolveFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "session.toml", `
[view]
min_zoom = 0.5
max_zoom = 8.0

[brush]
size = 100
min = 2
max = 40

[labeler]
opacity = 7
autosave_interval = "2m"

[logging]
logfile = "labeler.log"
max_log_size = 10
`)
	cfg, err := Resolve(Flags{Image: "img.png", Metadata: "m.csv", Output: "mask.tiff", ConfigPath: path})
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.View.MinZoom)
	assert.Equal(t, 8.0, cfg.View.MaxZoom)
	assert.Equal(t, 40, cfg.Brush.Size, "size is clamped into the slider range")
	assert.Equal(t, 7, cfg.Labeler.Opacity)
	assert.Equal(t, 2*time.Minute, cfg.Labeler.AutosaveInterval.Duration)
	assert.Equal(t, 16*time.Millisecond, cfg.Labeler.FrameInterval.Duration)
	assert.Equal(t, filepath.Join(dir, "labeler.log"), cfg.Logging.Logfile)
	assert.Equal(t, 10, cfg.Logging.MaxSize)
	assert.Equal(t, "mask.tiff", cfg.Session.OutputPath)
}

func TestLoadRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.toml", "[labeler]\nautosave_interval = \"soon\"\n")
	_, err = Load(bad)
	assert.Error(t, err)

	zoom := writeFile(t, dir, "zoom.toml", "[view]\nmin_zoom = 3.0\nmax_zoom = 2.0\n")
	_, err = Resolve(Flags{Image: "a.png", Metadata: "m.csv", ConfigPath: zoom})
	assert.ErrorContains(t, err, "zoom range")
}

func TestLoadWarnsOnUnknownKeys(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	path := writeFile(t, t.TempDir(), "extra.toml", "[view]\nspin = true\n")
	_, err := Load(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(buf.String(), "view.spin"))
}

func TestSetLogger(t *testing.T) {
	var none *LogConfig
	assert.Nil(t, none.SetLogger())
	assert.Nil(t, (&LogConfig{}).SetLogger())

	path := filepath.Join(t.TempDir(), "out.log")
	l := (&LogConfig{Logfile: path, MaxSize: 1}).SetLogger()
	require.NotNil(t, l)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		l.Close()
	})

	log.Print("hello")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
