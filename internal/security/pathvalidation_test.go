package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	safeDir := filepath.Join(tmpDir, "safe")
	unsafeDir := filepath.Join(tmpDir, "unsafe")
	for _, d := range []string{safeDir, unsafeDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", d, err)
		}
	}
	link := filepath.Join(safeDir, "evil-symlink")
	if err := os.Symlink(unsafeDir, link); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	tests := []struct {
		name      string
		filePath  string
		safeDir   string
		wantError bool
	}{
		{"file in directory", filepath.Join(safeDir, "cloud.ply"), safeDir, false},
		{"nested file not yet created", filepath.Join(safeDir, "plots", "run1", "h.png"), safeDir, false},
		{"dot-dot escape", filepath.Join(safeDir, "..", "unsafe", "x"), safeDir, true},
		{"relative escape", "../../../etc/passwd", safeDir, true},
		{"absolute outside", "/etc/passwd", safeDir, true},
		{"through symlink to new file", filepath.Join(link, "new.ply"), safeDir, true},
		{"symlink itself", link, safeDir, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, tt.safeDir)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePathWithinDirectory(%q) error = %v, wantError %v", tt.filePath, err, tt.wantError)
			}
		})
	}
}

func TestValidateExportPath(t *testing.T) {
	if err := ValidateExportPath(filepath.Join(os.TempDir(), "closedform", "cloud.ply")); err != nil {
		t.Errorf("temp path rejected: %v", err)
	}
	if err := ValidateExportPath("cloud.ply"); err != nil {
		t.Errorf("working directory path rejected: %v", err)
	}
	if err := ValidateExportPath("/etc/closedform.ply"); err == nil {
		t.Error("expected /etc path to be rejected")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"scene-01.ply", "scene-01.ply"},
		{"a b/c", "a_b_c"},
		{"../../etc", "etc"},
		{"  ", "unknown"},
		{"", "unknown"},
		{"héllo", "h_llo"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := SanitizeFilename(strings.Repeat("x", 300)); len(got) != 128 {
		t.Errorf("long name length = %d, want 128", len(got))
	}
}
