package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"StemShare/config"
)

func TestCollectFilesExpandsDirectories(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Song_Vocals.wav", "Song_Drums.flac", "cover.jpg", ".Song_Bass.wav"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	single := filepath.Join(t.TempDir(), "notes.txt")
	os.WriteFile(single, []byte("x"), 0o644)

	files, err := collectFiles([]string{dir, single})
	if err != nil {
		t.Fatalf("collectFiles() error = %v", err)
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	want := []string{"Song_Drums.flac", "Song_Vocals.wav", "notes.txt"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestCollectFilesMissingPath(t *testing.T) {
	if _, err := collectFiles([]string{filepath.Join(t.TempDir(), "nope")}); err == nil {
		t.Error("collectFiles() error = nil, want error")
	}
}

func TestCLIOrigin(t *testing.T) {
	cfg := &config.Config{HTTPAddr: ":8080"}
	if got := cliOrigin(cfg, ""); got != "http://localhost:8080" {
		t.Errorf("cliOrigin() = %q", got)
	}
	cfg.PublicOrigin = "https://stems.example.com"
	if got := cliOrigin(cfg, ""); got != "https://stems.example.com" {
		t.Errorf("cliOrigin() = %q", got)
	}
	if got := cliOrigin(cfg, "http://lan:9000"); got != "http://lan:9000" {
		t.Errorf("cliOrigin(flag) = %q", got)
	}
}
