package dbtrigger

import (
	"errors"
	"reflect"
	"testing"

	json "github.com/goccy/go-json"
)

func TestIsChangeEvent(t *testing.T) {
	t.Run("matches change envelopes", func(t *testing.T) {
		raw := []byte(`{"ref": "users/alice", "instance": "prod-db", "data": {}}`)
		if !isChangeEvent(raw) {
			t.Error("expected match")
		}
	})

	t.Run("rejects other event shapes", func(t *testing.T) {
		for _, raw := range []string{
			`{"type": "http", "url": "/ping"}`,
			`{"ref": "users/alice"}`,
			`not json`,
		} {
			if isChangeEvent([]byte(raw)) {
				t.Errorf("unexpected match for %s", raw)
			}
		}
	})
}

func TestParseEnvelope(t *testing.T) {
	t.Run("decodes envelope fields", func(t *testing.T) {
		raw := []byte(`{
			"id": "evt-1",
			"source": "//db/projects/p/instances/prod-db",
			"specversion": "1.0",
			"type": "google.firebase.database.ref.v1.updated",
			"time": "2024-03-01T12:00:00Z",
			"ref": "users/alice",
			"instance": "prod-db",
			"location": "us-central1",
			"data": {"data": {"name": "Alice"}, "delta": {"name": "Alicia"}}
		}`)

		env, err := parseEnvelope(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if env.ID != "evt-1" {
			t.Errorf("ID = %q", env.ID)
		}
		if env.Ref != "users/alice" {
			t.Errorf("Ref = %q", env.Ref)
		}
		if env.Instance != "prod-db" {
			t.Errorf("Instance = %q", env.Instance)
		}
		if string(env.Data) != `{"name": "Alice"}` {
			t.Errorf("Data = %s", env.Data)
		}
		if string(env.Delta) != `{"name": "Alicia"}` {
			t.Errorf("Delta = %s", env.Delta)
		}
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		_, err := parseEnvelope([]byte(`{broken`))
		if !errors.Is(err, ErrInvalidJSON) {
			t.Errorf("error = %v, want ErrInvalidJSON", err)
		}
	})
}

func TestMakeParams(t *testing.T) {
	env := &envelope{Ref: "users/alice/posts/42", Instance: "prod-db"}

	t.Run("extracts ref captures", func(t *testing.T) {
		params, err := makeParams(env,
			mustCompile(t, "users/{uid}/posts/{postId}"),
			mustCompile(t, "*"),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := Params{"uid": "alice", "postId": "42"}
		if !reflect.DeepEqual(params, want) {
			t.Errorf("params = %v, want %v", params, want)
		}
	})

	t.Run("merges instance captures", func(t *testing.T) {
		params, err := makeParams(env,
			mustCompile(t, "users/{uid}/posts/{postId}"),
			mustCompile(t, "{inst}"),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if params["inst"] != "prod-db" {
			t.Errorf("params = %v", params)
		}
	})

	t.Run("instance value wins on name collision", func(t *testing.T) {
		params, err := makeParams(env,
			mustCompile(t, "users/{name}/posts/*"),
			mustCompile(t, "{name}"),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if params["name"] != "prod-db" {
			t.Errorf("params[name] = %q, want instance value", params["name"])
		}
	})

	t.Run("ref mismatch is a defensive error", func(t *testing.T) {
		_, err := makeParams(env, mustCompile(t, "orders/{id}"), mustCompile(t, "*"))
		if !errors.Is(err, ErrRefMismatch) {
			t.Errorf("error = %v, want ErrRefMismatch", err)
		}
	})

	t.Run("instance mismatch does not fail", func(t *testing.T) {
		params, err := makeParams(env,
			mustCompile(t, "users/{uid}/posts/*"),
			mustCompile(t, "staging-db"),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if params["uid"] != "alice" {
			t.Errorf("params = %v", params)
		}
	})
}

func TestApplyChange(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		delta string
		want  string
	}{
		{
			name:  "scalar delta replaces wholesale",
			base:  `{"a": 1}`,
			delta: `42`,
			want:  `42`,
		},
		{
			name:  "object delta merges key by key",
			base:  `{"a": 1, "b": 2}`,
			delta: `{"b": 3, "c": 4}`,
			want:  `{"a": 1, "b": 3, "c": 4}`,
		},
		{
			name:  "null entry deletes the key",
			base:  `{"a": 1, "b": 2}`,
			delta: `{"b": null}`,
			want:  `{"a": 1}`,
		},
		{
			name:  "nested objects merge recursively",
			base:  `{"user": {"name": "Alice", "age": 30}}`,
			delta: `{"user": {"age": 31}}`,
			want:  `{"user": {"name": "Alice", "age": 31}}`,
		},
		{
			name:  "object delta over missing base keeps non-null entries",
			base:  `null`,
			delta: `{"a": 1, "b": null}`,
			want:  `{"a": 1}`,
		},
		{
			name:  "null delta deletes the value",
			base:  `{"a": 1}`,
			delta: `null`,
			want:  `null`,
		},
		{
			name:  "deleting every key yields null",
			base:  `{"a": 1}`,
			delta: `{"a": null}`,
			want:  `null`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyChange(json.RawMessage(tt.base), json.RawMessage(tt.delta))

			var gotVal, wantVal any
			if err := json.Unmarshal(got, &gotVal); err != nil {
				t.Fatalf("result %s is not valid JSON: %v", got, err)
			}
			if err := json.Unmarshal([]byte(tt.want), &wantVal); err != nil {
				t.Fatalf("bad want: %v", err)
			}
			if !reflect.DeepEqual(gotVal, wantVal) {
				t.Errorf("applyChange = %s, want %s", got, tt.want)
			}
		})
	}
}
