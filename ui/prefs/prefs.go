// Package prefs provides JSON-based user preferences for the palette.
package prefs

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

const (
	appDir    = "pixel-labeler"
	prefsFile = "preferences.json"
)

// Keys used by the palette.
const (
	KeyAlgorithm = "algorithm"
	KeyBrushSize = "brush_size"
	KeyPaintMode = "paint_mode"
	KeyLabel     = "label"
)

// Prefs stores preferences as a key-value map.
type Prefs struct {
	mu      sync.RWMutex
	values  map[string]interface{}
	path    string
	changed bool
}

// Load reads preferences from <user config dir>/pixel-labeler/preferences.json.
// Returns empty preferences if the file doesn't exist.
func Load() *Prefs {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return LoadFrom(filepath.Join(configDir, appDir, prefsFile))
}

// LoadFrom reads preferences from path. A missing or unreadable file yields
// empty preferences that will be written to path on Save.
func LoadFrom(path string) *Prefs {
	p := &Prefs{
		values: make(map[string]interface{}),
		path:   path,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p
	}
	if err := json.Unmarshal(data, &p.values); err != nil {
		log.Printf("prefs: ignoring %s: %v", path, err)
		p.values = make(map[string]interface{})
	}
	return p
}

// Path returns the preferences file path.
func (p *Prefs) Path() string { return p.path }

// Changed reports whether any value was set since the last Save.
func (p *Prefs) Changed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.changed
}

// Save writes preferences to disk.
func (p *Prefs) Save() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, err := json.MarshalIndent(p.values, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(p.path, data, 0o644); err != nil {
		return err
	}
	p.changed = false
	return nil
}

func (p *Prefs) set(key string, val interface{}) {
	p.mu.Lock()
	p.values[key] = val
	p.changed = true
	p.mu.Unlock()
}

// FloatWithFallback returns a float64 preference, or fallback if not set.
func (p *Prefs) FloatWithFallback(key string, fallback float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.values[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return fallback
}

// SetFloat stores a float64 preference.
func (p *Prefs) SetFloat(key string, val float64) {
	p.set(key, val)
}

// Int returns an integer preference, or fallback if not set.
func (p *Prefs) Int(key string, fallback int) int {
	return int(p.FloatWithFallback(key, float64(fallback)))
}

// SetInt stores an integer preference.
func (p *Prefs) SetInt(key string, val int) {
	p.set(key, float64(val))
}

// String returns a string preference, or "" if not set.
func (p *Prefs) String(key string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// SetString stores a string preference.
func (p *Prefs) SetString(key string, val string) {
	p.set(key, val)
}

// Params returns the remembered parameter values of an algorithm.
func (p *Prefs) Params(algorithm string) map[string]float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]float64)
	raw, ok := p.values[paramsKey(algorithm)].(map[string]interface{})
	if !ok {
		return out
	}
	for k, v := range raw {
		if f, ok := v.(float64); ok {
			out[k] = f
		}
	}
	return out
}

// SetParams remembers the parameter values of an algorithm.
func (p *Prefs) SetParams(algorithm string, values map[string]float64) {
	m := make(map[string]interface{}, len(values))
	for k, v := range values {
		m[k] = v
	}
	p.set(paramsKey(algorithm), m)
}

func paramsKey(algorithm string) string {
	return fmt.Sprintf("params.%s", algorithm)
}
