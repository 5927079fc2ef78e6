package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/processflow/internal/config"
)

func TestPrintStages(t *testing.T) {
	t.Parallel()

	t.Run("lists stages in canonical order with defaults", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := printStages(&buf, nil); err != nil {
			t.Fatalf("printStages() error = %v", err)
		}
		out := buf.String()

		order := []string{
			"1. preprocessing",
			"2. despeckling",
			"3. segmentation",
			"4. regionExtraction",
			"5. lineSegmentation",
			"6. recognition",
		}
		last := -1
		for _, want := range order {
			idx := strings.Index(out, want)
			if idx < 0 {
				t.Fatalf("output lacks %q:\n%s", want, out)
			}
			if idx < last {
				t.Errorf("%q is out of order", want)
			}
			last = idx
		}

		for _, want := range []string{
			"gated on: -",
			"gated on: segmentation",
			"command:  processflow-recognition",
			"output:   processing/{page}.xml",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output lacks %q", want)
			}
		}
	})

	t.Run("uses configured commands and layout", func(t *testing.T) {
		t.Parallel()

		file := &config.File{
			Workers: map[string][]string{"recognition": {"/opt/ocr/recognize", "--fast"}},
			Layout:  map[string][]string{"segmentation": {"pages/{page}.json"}},
		}
		var buf bytes.Buffer
		if err := printStages(&buf, file); err != nil {
			t.Fatalf("printStages() error = %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "command:  /opt/ocr/recognize --fast") {
			t.Errorf("output lacks configured command:\n%s", out)
		}
		if !strings.Contains(out, "output:   pages/{page}.json") {
			t.Errorf("output lacks configured layout:\n%s", out)
		}
	})

	t.Run("rejects an invalid layout", func(t *testing.T) {
		t.Parallel()

		file := &config.File{Layout: map[string][]string{"ocr": {"x/{page}"}}}
		if err := printStages(&bytes.Buffer{}, file); err == nil {
			t.Error("printStages() error = nil, want error")
		}
	})
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit missing file is an error", func(t *testing.T) {
		t.Parallel()

		_, err := loadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Errorf("loadConfigFile() error = %v, want not found", err)
		}
	})

	t.Run("explicit file is loaded", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		data := "workers:\n  preprocessing: [\"nlbin\"]\n"
		if err := os.WriteFile(path, []byte(data), 0600); err != nil {
			t.Fatal(err)
		}

		file, err := loadConfigFile(path)
		if err != nil {
			t.Fatalf("loadConfigFile() error = %v", err)
		}
		if got := file.Workers["preprocessing"]; len(got) != 1 || got[0] != "nlbin" {
			t.Errorf("workers = %v, want [nlbin]", got)
		}
	})

	t.Run("invalid file is an error", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("settings:\n  ocr: {}\n"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := loadConfigFile(path); err == nil {
			t.Error("loadConfigFile() error = nil, want error")
		}
	})
}
