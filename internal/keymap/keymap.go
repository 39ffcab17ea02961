package keymap

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

//go:embed keymap.yaml
var defaultFiles embed.FS

// Actions the dashboard may bind a key to. "clear" maps to jump(-1),
// dropping the selection. Suppression of bindings while a text-entry
// field has focus is handled on the client; the server only publishes
// the map.
var knownActions = map[string]struct{}{
	"first":       {},
	"previous":    {},
	"next":        {},
	"last":        {},
	"toggle-play": {},
	"clear":       {},
}

type keymapFile struct {
	Bindings map[string]string `yaml:"bindings"`
}

// Keymap holds the key → action bindings served to the dashboard,
// loaded from the embedded default and an optional override directory.
type Keymap struct {
	bindings map[string]string
}

// Load reads the embedded defaults and then applies overrides from dir
// if provided. Override files replace individual bindings, not the map.
func Load(overrideDir string) (*Keymap, error) {
	km := &Keymap{bindings: make(map[string]string)}
	raw, err := fs.ReadFile(defaultFiles, "keymap.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded keymap: %w", err)
	}
	if err := km.apply(raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(overrideDir) != "" {
		if err := km.applyDir(overrideDir); err != nil {
			return nil, err
		}
	}
	return km, nil
}

func (k *Keymap) applyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read keymap dir: %w", err)
	}
	// Sort for deterministic order
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := k.apply(b); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return nil
}

func (k *Keymap) apply(raw []byte) error {
	var f keymapFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return err
	}
	for key, action := range f.Bindings {
		key = strings.TrimSpace(key)
		action = strings.TrimSpace(action)
		if key == "" {
			return fmt.Errorf("empty key in keymap")
		}
		if _, ok := knownActions[action]; !ok {
			return fmt.Errorf("unknown action %q for key %q", action, key)
		}
		k.bindings[key] = action
	}
	return nil
}

// Bindings returns a copy of the key → action map.
func (k *Keymap) Bindings() map[string]string {
	out := make(map[string]string, len(k.bindings))
	for key, action := range k.bindings {
		out[key] = action
	}
	return out
}

// Action returns the action bound to key, or "" when unbound.
func (k *Keymap) Action(key string) string {
	return k.bindings[strings.TrimSpace(key)]
}
