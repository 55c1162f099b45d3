package statedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// newStateDB creates a throwaway state database seeded with the given
// key/value pairs, mimicking the host application's ItemTable layout.
func newStateDB(t *testing.T, seed map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "state.vscdb")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("opening seed database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(`CREATE TABLE ItemTable (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
		t.Fatalf("creating ItemTable: %v", err)
	}
	for key, value := range seed {
		if _, err := db.Exec(`INSERT INTO ItemTable (key, value) VALUES (?, ?)`, key, value); err != nil {
			t.Fatalf("seeding %q: %v", key, err)
		}
	}
	return path
}

func readValue(t *testing.T, path, key string) string {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer func() { _ = db.Close() }()

	var value string
	if err := db.QueryRow(`SELECT value FROM ItemTable WHERE key = ?`, key).Scan(&value); err != nil {
		t.Fatalf("reading %q: %v", key, err)
	}
	return value
}

func TestReadAuthEntriesFiltersAndDecodes(t *testing.T) {
	path := newStateDB(t, map[string]string{
		"cursorAuth/tokens":     `{"accessToken":"A1","refreshToken":"R1","expiresAt":1700000000000}`,
		"aiAuth/session":        `plain-opaque-string`,
		"workbench.colorTheme":  `"Default Dark"`,
		"extensions.tokenCache": `{"kind":"cache"}`,
	})
	store, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	entries, err := store.ReadAuthEntries(context.Background())
	if err != nil {
		t.Fatalf("ReadAuthEntries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 matching entries, got %d", len(entries))
	}

	byKey := make(map[string]Value, len(entries))
	for _, e := range entries {
		byKey[e.Key] = e.Value
	}
	if _, ok := byKey["workbench.colorTheme"]; ok {
		t.Error("non-auth key should not match the heuristic")
	}

	obj, ok := byKey["cursorAuth/tokens"].Object()
	if !ok {
		t.Fatal("cursorAuth/tokens should decode as structured")
	}
	if obj["accessToken"] != "A1" {
		t.Errorf("accessToken = %v, want A1", obj["accessToken"])
	}
	// Numbers must survive as json.Number, not float64.
	num, ok := obj["expiresAt"].(json.Number)
	if !ok || num.String() != "1700000000000" {
		t.Errorf("expiresAt = %v (%T), want json.Number 1700000000000", obj["expiresAt"], obj["expiresAt"])
	}

	if byKey["aiAuth/session"].IsStructured() {
		t.Error("plain string value should stay raw")
	}
	if got := byKey["aiAuth/session"].Raw(); got != "plain-opaque-string" {
		t.Errorf("raw value = %q", got)
	}
}

func TestReadAuthEntriesStoreUnavailable(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "missing.vscdb"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := store.ReadAuthEntries(context.Background()); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}

	// The failed open must not have conjured a database into existence.
	if _, err := os.Stat(store.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("store file should still be absent, stat err = %v", err)
	}
}

func TestApplyUpdates(t *testing.T) {
	path := newStateDB(t, map[string]string{
		"cursorAuth/tokens": `{"accessToken":"A1","refreshToken":"R1"}`,
		"aiAuth/tokens":     `{"accessToken":"A1"}`,
		"authConfig":        `{"endpoint":"https://example.com"}`,
		"authNote":          `not json at all`,
	})
	store, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	updates := map[string]map[string]any{
		"cursorAuth/tokens": {"accessToken": "A2", "refreshToken": "R1"},
		"aiAuth/tokens":     {"accessToken": "A2"},
		"authConfig":        {"accessToken": "A2"}, // no accessToken currently: skipped
		"authNote":          {"accessToken": "A2"}, // raw value: skipped
		"ghostKey":          {"accessToken": "A2"}, // absent: skipped
	}
	updated, err := store.ApplyUpdates(context.Background(), updates)
	if err != nil {
		t.Fatalf("ApplyUpdates: %v", err)
	}
	if updated != 2 {
		t.Fatalf("updated = %d, want 2", updated)
	}

	got := Decode(readValue(t, path, "cursorAuth/tokens"))
	obj, ok := got.Object()
	if !ok || obj["accessToken"] != "A2" {
		t.Errorf("cursorAuth/tokens not rewritten: %v", obj)
	}
	if obj["refreshToken"] != "R1" {
		t.Errorf("refreshToken = %v, want R1", obj["refreshToken"])
	}

	if readValue(t, path, "authConfig") != `{"endpoint":"https://example.com"}` {
		t.Error("entry without accessToken must be left untouched")
	}
	if readValue(t, path, "authNote") != "not json at all" {
		t.Error("raw entry must be left untouched")
	}
}

func TestApplyUpdatesEmptyInput(t *testing.T) {
	store, err := New(newStateDB(t, nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	updated, err := store.ApplyUpdates(context.Background(), nil)
	if err != nil {
		t.Fatalf("ApplyUpdates: %v", err)
	}
	if updated != 0 {
		t.Errorf("updated = %d, want 0", updated)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		structured bool
	}{
		{"json object", `{"a":1}`, true},
		{"json object with padding", "  {\"a\": 1}\n", true},
		{"plain string", "opaque", false},
		{"empty", "", false},
		{"json array", `[1,2,3]`, false},
		{"json string", `"quoted"`, false},
		{"truncated object", `{"a":`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Decode(tt.text)
			if v.IsStructured() != tt.structured {
				t.Errorf("IsStructured() = %v, want %v", v.IsStructured(), tt.structured)
			}
			if !tt.structured && v.Raw() != tt.text {
				t.Errorf("Raw() = %q, want original text", v.Raw())
			}
		})
	}
}
