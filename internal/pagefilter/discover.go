package pagefilter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// OriginalDir is the project subdirectory holding the original page images.
const OriginalDir = "original"

// DiscoverPages lists the page ids of a project: the base names of the PNG
// images in its original directory, sorted.
func DiscoverPages(projectDir string) ([]string, error) {
	dir := filepath.Join(projectDir, OriginalDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read page directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ".png") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, filepath.Ext(name)))
	}
	sort.Strings(ids)
	return ids, nil
}
