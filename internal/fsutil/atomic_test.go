package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monitors.xml")

	if err := AtomicWrite(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("AtomicWrite: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("content = %q, want hello", got)
	}

	// Verify no tmp file remains
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("tmp file should not exist after successful write")
	}
}

func TestAtomicWrite_CreatesParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config", "monitors.xml")
	if err := AtomicWrite(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("AtomicWrite: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file in created directory: %v", err)
	}
}

func TestAtomicWrite_Overwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monitors.xml")

	if err := AtomicWrite(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := AtomicWrite(path, []byte("v2"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "v2" {
		t.Errorf("content = %q, want v2", got)
	}
}

func TestAtomicWrite_ParentIsFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("create blocker: %v", err)
	}
	if err := AtomicWrite(filepath.Join(blocker, "file.txt"), []byte("data"), 0o644); err == nil {
		t.Error("expected error when parent is a regular file")
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "monitors.xml")
	dst := filepath.Join(dir, "backup", "monitors-v1-backup.xml")
	if err := os.WriteFile(src, []byte("<monitors version=\"1\"/>"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read copy: %v", err)
	}
	if string(got) != "<monitors version=\"1\"/>" {
		t.Fatalf("unexpected copy content %q", got)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat copy: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected source permissions to carry over, got %v", info.Mode().Perm())
	}
}

func TestCopyFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFile(filepath.Join(dir, "missing.xml"), filepath.Join(dir, "out.xml")); err == nil {
		t.Fatal("expected error for missing source")
	}
}
