package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeVocabulary(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vocabulary.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCatalogFiltersEntries(t *testing.T) {
	path := writeVocabulary(t, `[
		{"word": "easy", "difficulty": 1, "options": ["a", "b", "c", "d"]},
		{"word": "lucid", "difficulty": 3, "options": ["clear", "opaque", "dense", "loud"]},
		{"word": "sparse", "difficulty": 4, "options": ["thin", "thick"]}
	]`)

	cat, err := loadCatalog(path, 1)
	if err != nil {
		t.Fatal(err)
	}

	if cat.size() != 1 {
		t.Fatalf("size = %d, want 1", cat.size())
	}
	if cat.entries[0].Word != "lucid" {
		t.Errorf("kept %q, want lucid", cat.entries[0].Word)
	}
}

func TestLoadCatalogErrors(t *testing.T) {
	if _, err := loadCatalog(filepath.Join(t.TempDir(), "missing.json"), 1); err == nil {
		t.Error("expected error for missing file")
	}

	malformed := writeVocabulary(t, `{"not": "a list"}`)
	if _, err := loadCatalog(malformed, 1); err == nil {
		t.Error("expected error for malformed file")
	}

	tooEasy := writeVocabulary(t, `[{"word": "easy", "difficulty": 1, "options": ["a", "b", "c", "d"]}]`)
	if _, err := loadCatalog(tooEasy, 1); err == nil {
		t.Error("expected error when no entry passes the difficulty filter")
	}
}

func TestDraw(t *testing.T) {
	path := writeVocabulary(t, `[
		{"word": "lucid", "difficulty": 3, "options": ["clear", "opaque", "dense", "loud", "quiet"]}
	]`)

	cat, err := loadCatalog(path, 1)
	if err != nil {
		t.Fatal(err)
	}

	allowed := map[string]bool{"clear": true, "opaque": true, "dense": true, "loud": true, "quiet": true}

	for i := 0; i < 50; i++ {
		q := cat.draw()

		if q.word != "lucid" {
			t.Fatalf("word = %q, want lucid", q.word)
		}
		if q.correct != "clear" {
			t.Fatalf("correct = %q, want clear", q.correct)
		}
		if len(q.options) != 4 {
			t.Fatalf("got %d options, want 4", len(q.options))
		}

		found := false
		for _, opt := range q.options {
			if !allowed[opt] {
				t.Fatalf("unexpected option %q", opt)
			}
			if opt == q.correct {
				found = true
			}
		}
		if !found {
			t.Fatal("correct answer missing from options")
		}
	}
}
