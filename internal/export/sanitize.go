package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// CleanName strips control characters from s, replaces characters that are
// unsafe in EDL comments and file names with '_', and truncates to maxLen
// runes when maxLen > 0.
func CleanName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsControl(r):
		case safeRune(r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	out := strings.TrimSpace(b.String())
	if maxLen > 0 {
		if runes := []rune(out); len(runes) > maxLen {
			out = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return out
}

func safeRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	return strings.ContainsRune(" -_.,()", r)
}

// Filename returns a file name for an export of title with extension ext.
func Filename(title, ext string) string {
	name := strings.ReplaceAll(CleanName(title, 100), " ", "_")
	if name == "" || strings.Trim(name, ".") == "" {
		name = "export"
	}
	return name + "." + strings.TrimPrefix(ext, ".")
}

// PrepareOutputDir checks that dir is a clean path without traversal and
// creates it when missing.
func PrepareOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("output directory is required")
	}
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == ".." {
			return fmt.Errorf("output directory cannot contain path traversal")
		}
	}
	if filepath.Clean(dir) != dir {
		return fmt.Errorf("output directory must be a clean path")
	}

	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("invalid output directory: %w", err)
	case !info.IsDir():
		return fmt.Errorf("output path is not a directory")
	}
	return nil
}
