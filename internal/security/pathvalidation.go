// Package security validates filesystem paths before the pipeline
// writes artifacts through them. Run output directories can come from
// user configuration or host-application calls, so every write target
// is checked against an allowed root first.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory rejects paths that resolve outside
// safeDir, including escapes through .. components and through
// symlinked parents. Nonexistent paths are validated against their
// nearest existing ancestor, so a target may be checked before its
// directory is created.
func ValidatePathWithinDirectory(path, safeDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	absSafeDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("resolve safe directory: %w", err)
	}

	canonical := absPath
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		canonical = resolved
	} else {
		// The target does not exist yet. Walk up to the nearest existing
		// ancestor and resolve its symlinks, so a symlinked intermediate
		// directory cannot redirect the write.
		probe := absPath
		for {
			parent := filepath.Dir(probe)
			if parent == probe {
				break
			}
			if resolved, err := filepath.EvalSymlinks(parent); err == nil {
				rel, _ := filepath.Rel(parent, absPath)
				canonical = filepath.Join(resolved, rel)
				break
			}
			probe = parent
		}
	}

	canonicalSafeDir, err := filepath.EvalSymlinks(absSafeDir)
	if err != nil {
		return fmt.Errorf("resolve safe directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(canonicalSafeDir, canonical)
	if err != nil {
		return fmt.Errorf("path is outside safe directory: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s attempts to escape %s", path, safeDir)
	}
	return nil
}

// ValidatePathWithinAllowedDirs accepts a path contained in any of the
// allowed directories.
func ValidatePathWithinAllowedDirs(path string, allowedDirs []string) error {
	if len(allowedDirs) == 0 {
		return fmt.Errorf("no allowed directories specified")
	}
	for _, dir := range allowedDirs {
		if err := ValidatePathWithinDirectory(path, dir); err == nil {
			return nil
		}
	}
	return fmt.Errorf("path must be within one of the allowed directories: %v", allowedDirs)
}

// ValidateOutputDir checks a run's artifact directory. With no explicit
// roots it allows the temp directory and the working directory, the two
// places the CLI writes by default.
func ValidateOutputDir(dir string, allowedRoots ...string) error {
	if len(allowedRoots) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		allowedRoots = []string{os.TempDir(), cwd}
	}
	return ValidatePathWithinAllowedDirs(dir, allowedRoots)
}

// SanitizeFilename makes a safe filename component from an arbitrary
// identifier such as a layer name. Characters outside ASCII letters,
// digits, dot, underscore and dash become single underscores; the
// result is length-capped and never empty.
func SanitizeFilename(s string) string {
	if s == "" {
		return "unknown"
	}
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
