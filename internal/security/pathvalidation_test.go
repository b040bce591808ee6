package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	safeDir := filepath.Join(tmpDir, "safe")
	unsafeDir := filepath.Join(tmpDir, "unsafe")
	if err := os.MkdirAll(safeDir, 0755); err != nil {
		t.Fatalf("mkdir safe: %v", err)
	}
	if err := os.MkdirAll(unsafeDir, 0755); err != nil {
		t.Fatalf("mkdir unsafe: %v", err)
	}
	if err := os.WriteFile(filepath.Join(unsafeDir, "secret.txt"), []byte("secret"), 0644); err != nil {
		t.Fatalf("write unsafe file: %v", err)
	}

	// A symlink inside the safe directory pointing out of it.
	symlinkPath := filepath.Join(safeDir, "escape")
	if err := os.Symlink(unsafeDir, symlinkPath); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	tests := []struct {
		name      string
		path      string
		safeDir   string
		wantError bool
	}{
		{"path within directory", filepath.Join(tmpDir, "run-outputs"), tmpDir, false},
		{"nested nonexistent path", filepath.Join(tmpDir, "runs", "abc", "clusters_raw.tif"), tmpDir, false},
		{"traversal with ..", filepath.Join(tmpDir, "..", "out"), tmpDir, true},
		{"relative traversal", "../../../etc/passwd", tmpDir, true},
		{"absolute path outside", "/etc/passwd", tmpDir, true},
		{"through escaping symlink", filepath.Join(symlinkPath, "secret.txt"), safeDir, true},
		{"symlink itself", symlinkPath, safeDir, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, tt.safeDir)
			if (err != nil) != tt.wantError {
				t.Errorf("error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidatePathWithinAllowedDirs(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()

	if err := ValidatePathWithinAllowedDirs(filepath.Join(dir2, "out"), []string{dir1, dir2}); err != nil {
		t.Errorf("path in second allowed dir rejected: %v", err)
	}
	if err := ValidatePathWithinAllowedDirs("/etc/passwd", []string{dir1, dir2}); err == nil {
		t.Error("path outside all dirs accepted")
	}
	if err := ValidatePathWithinAllowedDirs(filepath.Join(dir1, "out"), nil); err == nil {
		t.Error("empty allow list accepted")
	}
}

func TestValidateOutputDir(t *testing.T) {
	root := t.TempDir()

	if err := ValidateOutputDir(filepath.Join(root, "run-1"), root); err != nil {
		t.Errorf("output dir under allowed root rejected: %v", err)
	}
	if err := ValidateOutputDir("/etc", root); err == nil {
		t.Error("output dir outside allowed root accepted")
	}

	// Defaults allow the temp directory.
	if err := ValidateOutputDir(filepath.Join(os.TempDir(), "landcover-run")); err != nil {
		t.Errorf("temp output dir rejected: %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Sentinel-2_L2A.tif", "Sentinel-2_L2A.tif"},
		{"scene 2024/07*final", "scene_2024_07_final"},
		{"", "unknown"},
		{"///", "unknown"},
		{"..hidden..", "hidden"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
