package dbtrigger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOptionsFromFile(t *testing.T) {
	t.Run("loads yaml options", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "trigger.yaml")
		doc := []byte("ref: users/{uid}\ninstance: prod-db\nregion: us-central1\nmaxInstances: 3\n")
		if err := os.WriteFile(path, doc, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}

		opts, err := OptionsFromFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if opts["ref"] != "users/{uid}" {
			t.Errorf("ref = %v", opts["ref"])
		}
		if opts["instance"] != "prod-db" {
			t.Errorf("instance = %v", opts["instance"])
		}
	})

	t.Run("loads json options", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "trigger.json")
		doc := []byte(`{"ref": "orders/{id}", "region": ["us-east1"]}`)
		if err := os.WriteFile(path, doc, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}

		opts, err := OptionsFromFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if opts["ref"] != "orders/{id}" {
			t.Errorf("ref = %v", opts["ref"])
		}
	})

	t.Run("loaded options declare a working trigger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "trigger.yaml")
		doc := []byte("ref: users/{uid}\ninstance: '{inst}'\n")
		if err := os.WriteFile(path, doc, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}

		opts, err := OptionsFromFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		fn, err := OnValueWritten(opts, func(ctx context.Context, e *Event[post]) error {
			return nil
		})
		if err != nil {
			t.Fatalf("OnValueWritten: %v", err)
		}
		if got := fn.Endpoint().EventTrigger.EventFilterPathPatterns["instance"]; got != "{inst}" {
			t.Errorf("instance filter = %q", got)
		}
	})

	t.Run("rejects unsupported extensions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "trigger.toml")
		if err := os.WriteFile(path, []byte("ref = 'a/b'"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := OptionsFromFile(path); err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("rejects malformed documents", func(t *testing.T) {
		if _, err := OptionsFromYAML([]byte(":\n :")); err == nil {
			t.Error("expected yaml error, got nil")
		}
		if _, err := OptionsFromJSON([]byte(`{broken`)); err == nil {
			t.Error("expected json error, got nil")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := OptionsFromFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("expected error, got nil")
		}
	})
}
