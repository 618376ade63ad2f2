package backup

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/techtime/internal/common"
)

const filePrefix = "techtime-backup-"

// Picker chooses the backup file to import from dir.
type Picker interface {
	Pick(ctx context.Context, dir string) (string, error)
}

// NewestPicker picks the most recent techtime-backup-*.json in dir.
type NewestPicker struct{}

func (NewestPicker) Pick(_ context.Context, dir string) (string, error) {
	files, err := listBackups(dir, ".json")
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", common.NotFoundErrorf("no backup files in %s", dir)
	}
	return files[0], nil
}

// StaticPicker always returns Path, the way a file chooser hands back one selection.
type StaticPicker struct {
	Path string
}

func (p StaticPicker) Pick(context.Context, string) (string, error) {
	if p.Path == "" {
		return "", common.InvalidArgumentErrorf("no file selected")
	}
	return p.Path, nil
}

// listBackups returns backup files with ext in dir, newest first. The
// timestamped names sort chronologically; mod time breaks ties.
func listBackups(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	type candidate struct {
		path string
		name string
		mod  int64
	}
	var found []candidate
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		var mod int64
		if info, err := e.Info(); err == nil {
			mod = info.ModTime().UnixNano()
		}
		found = append(found, candidate{path: filepath.Join(dir, name), name: name, mod: mod})
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].name != found[j].name {
			return found[i].name > found[j].name
		}
		return found[i].mod > found[j].mod
	})
	out := make([]string, len(found))
	for i, c := range found {
		out[i] = c.path
	}
	return out, nil
}
