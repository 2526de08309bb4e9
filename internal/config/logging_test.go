package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetupLogFilePrunesOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := []string{
		"server-2026-01-01T00-00-00.log",
		"server-2026-01-02T00-00-00.log",
		"server-2026-01-03T00-00-00.log",
	}
	for _, name := range old {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("old"), 0o644); err != nil {
			t.Fatalf("seed log file: %v", err)
		}
	}

	f, err := SetupLogFile(dir, 2)
	if err != nil {
		t.Fatalf("setup log file: %v", err)
	}
	defer f.Close()

	files, err := filepath.Glob(filepath.Join(dir, "server-*.log"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("surviving logs = %d (%v), want 2", len(files), files)
	}
	survivors := map[string]bool{}
	for _, path := range files {
		survivors[filepath.Base(path)] = true
	}
	if !survivors[filepath.Base(f.Name())] {
		t.Error("the file just created was pruned")
	}
	if survivors[old[0]] || survivors[old[1]] {
		t.Errorf("oldest logs should be pruned first, kept %v", files)
	}
}
