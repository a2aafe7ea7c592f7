package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/debemdeboas/blockpress/internal/model"
)

// FSDraft is a saved editor document found on disk.
type FSDraft struct {
	Name    string
	Path    string
	Draft   model.Draft
	ModTime time.Time
}

// FSDraftSource reads editor save files (*.json) from a directory.
type FSDraftSource struct {
	draftsPath string
}

func NewFSDraftSource(draftsPath string) *FSDraftSource {
	return &FSDraftSource{draftsPath: draftsPath}
}

// Drafts returns every decodable draft, oldest first. Files that fail to
// decode are reported through skip and left out.
func (r *FSDraftSource) Drafts(skip func(path string, err error)) ([]FSDraft, error) {
	entries, err := os.ReadDir(r.draftsPath)
	if err != nil {
		return nil, err
	}

	var drafts []FSDraft
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(r.draftsPath, entry.Name())

		d, err := readDraft(path)
		if err != nil {
			if skip != nil {
				skip(path, err)
			}
			continue
		}

		fileInfo, err := entry.Info()
		if err != nil {
			return nil, err
		}

		drafts = append(drafts, FSDraft{
			Name:    strings.TrimSuffix(entry.Name(), ".json"),
			Path:    path,
			Draft:   d,
			ModTime: fileInfo.ModTime(),
		})
	}

	slices.SortStableFunc(drafts, func(a, b FSDraft) int {
		return a.ModTime.Compare(b.ModTime)
	})
	return drafts, nil
}

func readDraft(path string) (model.Draft, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.Draft{}, err
	}
	var d model.Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return model.Draft{}, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return d, nil
}
