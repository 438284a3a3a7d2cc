package store

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LoadChangedFiles reads a changed-file manifest. The file is either a
// JSON array of paths or a newline-separated list; blank lines are
// dropped and non-string array entries are ignored.
func LoadChangedFiles(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading changed files: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return []string{}, nil
	}

	if strings.HasPrefix(content, "[") {
		var parsed []interface{}
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			return nil, fmt.Errorf("parsing changed files %s: %w", path, err)
		}
		files := []string{}
		for _, item := range parsed {
			if s, ok := item.(string); ok {
				files = append(files, s)
			}
		}
		return files, nil
	}

	files := []string{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}
