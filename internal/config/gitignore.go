package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureGitignore makes sure pattern is listed in dir's .gitignore so the
// registry with its encryption keys never gets committed. It reports
// whether the file was changed.
func EnsureGitignore(dir, pattern string) (bool, error) {
	path := filepath.Join(dir, ".gitignore")
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == pattern {
			return false, nil
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	entry := "# envault\n" + pattern + "\n"
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		entry = "\n" + entry
	}
	if _, err := f.WriteString(entry); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
