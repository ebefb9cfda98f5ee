package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_RoundTrip(t *testing.T) {
	var fsys FileSystem = OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "nested", "out")
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	path := filepath.Join(dir, "a.txt")
	w, err := fsys.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("abc")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	data, err := fsys.ReadFile(path)
	if err != nil || string(data) != "abc" {
		t.Errorf("ReadFile = %q, %v", data, err)
	}
	if !fsys.Exists(path) || fsys.Exists(filepath.Join(dir, "missing")) {
		t.Error("Exists reported the wrong state")
	}
}

func TestMemoryFileSystem_CreateVisibleOnClose(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/out/cloud.ply")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("ply\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if data, _ := mfs.ReadFile("/out/cloud.ply"); len(data) != 0 {
		t.Errorf("content visible before Close: %q", data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	data, err := mfs.ReadFile("/out/../out/cloud.ply")
	if err != nil || string(data) != "ply\n" {
		t.Errorf("ReadFile = %q, %v", data, err)
	}
	if _, err := w.Write([]byte("x")); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("write after close: %v", err)
	}
}

func TestMemoryFileSystem_WriteFileAndDirs(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.MkdirAll("/plots/run", 0755); err != nil {
		t.Fatal(err)
	}
	if !mfs.Exists("/plots") || !mfs.Exists("/plots/run") {
		t.Error("MkdirAll should record parents")
	}

	buf := []byte("png")
	if err := mfs.WriteFile("/plots/run/b.png", buf, 0644); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'x'
	data, _ := mfs.ReadFile("/plots/run/b.png")
	if string(data) != "png" {
		t.Errorf("WriteFile must copy its input, got %q", data)
	}
	_ = mfs.WriteFile("/plots/run/a.png", nil, 0644)
	if got := mfs.Files(); len(got) != 2 || got[0] != "/plots/run/a.png" {
		t.Errorf("Files() = %v", got)
	}

	if _, err := mfs.ReadFile("/nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile missing = %v, want ErrNotExist", err)
	}
}
