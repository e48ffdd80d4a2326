package settings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/readaloud/internal/tts"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.Provider != "openai" || d.Model != "gpt-4o-mini-tts" || d.Voice != "alloy" || d.APIKey != "" {
		t.Errorf("Defaults() = %+v", d)
	}
}

func TestFieldRoundTrip(t *testing.T) {
	var s Settings
	for i, key := range Keys {
		value := string(rune('a' + i))
		if err := s.SetField(key, value); err != nil {
			t.Fatalf("SetField(%s): %v", key, err)
		}
		got, err := s.Field(key)
		if err != nil || got != value {
			t.Errorf("Field(%s) = %q, %v", key, got, err)
		}
	}

	if err := s.SetField("speed", "2"); err == nil {
		t.Error("SetField accepted an unknown key")
	}
	if _, err := s.Field("speed"); err == nil {
		t.Error("Field accepted an unknown key")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		provider string
		wantErr  bool
	}{
		{"", false},
		{"openai", false},
		{"webspeech", false},
		{"local", false},
		{"polly", true},
	}
	for _, tt := range tests {
		err := Settings{Provider: tt.provider}.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%q) = %v, wantErr %v", tt.provider, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, tts.ErrInvalidProvider) {
			t.Errorf("Validate(%q) = %v, want ErrInvalidProvider", tt.provider, err)
		}
	}
}

func TestMasked(t *testing.T) {
	tests := []struct {
		key, want string
	}{
		{"", ""},
		{"short", "*****"},
		{"sk-abcdefgh1234", "sk-********1234"},
	}
	for _, tt := range tests {
		if got := (Settings{APIKey: tt.key}).Masked().APIKey; got != tt.want {
			t.Errorf("Masked(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestWithAPIKeyFallback(t *testing.T) {
	if got := (Settings{}).WithAPIKeyFallback("env"); got.APIKey != "env" {
		t.Errorf("empty key not filled: %q", got.APIKey)
	}
	if got := (Settings{APIKey: "stored"}).WithAPIKeyFallback("env"); got.APIKey != "stored" {
		t.Errorf("stored key replaced: %q", got.APIKey)
	}
}

func TestSuggestVoice(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"alloy", "", false},
		{"", "", false},
		{"shimer", "shimmer", true},
		{"nov", "nova", true},
		{"alloyy", "alloy", true},
		{"Coral", "", false},
	}
	for _, tt := range tests {
		got, ok := SuggestVoice(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("SuggestVoice(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return map[string]Store{
		"memory": NewMemory(Settings{}),
		"sqlite": db,
	}
}

func TestStoreGetSet(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := store.Get(ctx, Defaults())
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got != Defaults() {
				t.Errorf("empty store Get = %+v, want defaults", got)
			}

			if err := store.Set(ctx, Settings{Voice: "nova", APIKey: "sk-test"}); err != nil {
				t.Fatalf("Set: %v", err)
			}
			// empty fields leave stored values alone
			if err := store.Set(ctx, Settings{Provider: "local"}); err != nil {
				t.Fatalf("Set provider: %v", err)
			}

			got, err = store.Get(ctx, Defaults())
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			want := Settings{Provider: "webspeech", APIKey: "sk-test", Model: "gpt-4o-mini-tts", Voice: "nova"}
			if got != want {
				t.Errorf("Get = %+v, want %+v", got, want)
			}

			if err := store.Set(ctx, Settings{Provider: "polly"}); err == nil {
				t.Error("Set accepted an invalid provider")
			}
		})
	}
}

func TestSQLitePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "settings.db")

	db, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := db.Set(ctx, Settings{Model: "tts-1"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close() //nolint:errcheck

	got, err := db.Get(ctx, Defaults())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Model != "tts-1" || db.Path() != path {
		t.Errorf("Get = %+v, path %s", got, db.Path())
	}
}
