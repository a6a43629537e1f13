package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddAndRecent(t *testing.T) {
	s := openTemp(t)

	id, err := s.Add(Record{
		Provider:         "gemini",
		Model:            "gemini-2.0-flash",
		Text:             "hello world",
		AudioSeconds:     2.5,
		ElapsedMs:        840,
		PromptTokens:     120,
		CompletionTokens: 4,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id == "" {
		t.Fatal("empty id returned")
	}

	records, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	r := records[0]
	if r.ID != id || r.Text != "hello world" || r.Provider != "gemini" {
		t.Errorf("record = %+v", r)
	}
	if r.AudioSeconds != 2.5 || r.ElapsedMs != 840 {
		t.Errorf("metrics = %v/%v", r.AudioSeconds, r.ElapsedMs)
	}
	if r.CreatedAt.IsZero() {
		t.Error("CreatedAt not filled")
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	s := openTemp(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		_, err := s.Add(Record{
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Provider:  "openai",
			Model:     "gpt-4o-audio-preview",
			Text:      string(rune('a' + i)),
		})
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	records, err := s.Recent(3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0].Text != "e" || records[2].Text != "c" {
		t.Errorf("wrong order: %q %q %q", records[0].Text, records[1].Text, records[2].Text)
	}
}

func TestFallbackRoundTrip(t *testing.T) {
	s := openTemp(t)
	if _, err := s.Add(Record{Provider: "mistral", Model: "voxtral", Text: "x", Fallback: true}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	records, err := s.Recent(1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if !records[0].Fallback {
		t.Error("fallback flag lost")
	}
}
