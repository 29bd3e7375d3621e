package migrate

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBackupRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "app.db")
	backupDir := filepath.Join(dir, "backups")

	payload := bytes.Repeat([]byte("procheff analysis data "), 4096)
	if err := os.WriteFile(dbPath, payload, 0o644); err != nil {
		t.Fatalf("failed to write source file: %v", err)
	}

	backupPath, err := BackupFile(dbPath, backupDir)
	if err != nil {
		t.Fatalf("failed to back up: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(backupPath), "app.db.") ||
		!strings.HasSuffix(backupPath, ".bak.zst") {
		t.Errorf("unexpected backup name %q", backupPath)
	}

	info, err := os.Stat(backupPath)
	if err != nil {
		t.Fatalf("backup file missing: %v", err)
	}
	if info.Size() >= int64(len(payload)) {
		t.Errorf("backup not compressed: %d >= %d", info.Size(), len(payload))
	}

	restored := filepath.Join(dir, "restored.db")
	if err := RestoreFile(backupPath, restored); err != nil {
		t.Fatalf("failed to restore: %v", err)
	}

	got, err := os.ReadFile(restored)
	if err != nil {
		t.Fatalf("failed to read restored file: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("restored content differs from original")
	}
}

func TestBackupFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	if _, err := BackupFile(filepath.Join(dir, "nope.db"), dir); err == nil {
		t.Error("expected error for missing source file")
	}
}
