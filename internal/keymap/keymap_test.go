package keymap

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	km, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cases := map[string]string{
		"ArrowLeft":  "previous",
		"ArrowRight": "next",
		"Home":       "first",
		"End":        "last",
		"Space":      "toggle-play",
		"Escape":     "clear",
	}
	for key, want := range cases {
		if got := km.Action(key); got != want {
			t.Fatalf("Action(%q) = %q, want %q", key, got, want)
		}
	}
	if got := km.Action("F13"); got != "" {
		t.Fatalf("unbound key returned %q", got)
	}
}

func TestOverrideReplacesSingleBinding(t *testing.T) {
	dir := t.TempDir()
	override := []byte("bindings:\n  ArrowLeft: first\n")
	if err := os.WriteFile(filepath.Join(dir, "10-custom.yaml"), override, 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	km, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := km.Action("ArrowLeft"); got != "first" {
		t.Fatalf("override not applied: %q", got)
	}
	// Remaining defaults untouched.
	if got := km.Action("ArrowRight"); got != "next" {
		t.Fatalf("default lost: %q", got)
	}
}

func TestOverrideRejectsUnknownAction(t *testing.T) {
	dir := t.TempDir()
	bad := []byte("bindings:\n  ArrowLeft: teleport\n")
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), bad, 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}

func TestBindingsReturnsCopy(t *testing.T) {
	km, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b := km.Bindings()
	b["ArrowLeft"] = "mutated"
	if got := km.Action("ArrowLeft"); got != "previous" {
		t.Fatalf("internal map mutated: %q", got)
	}
}
