package batch

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"

	"stickerkit/pkg/fsutil"
	"stickerkit/pkg/imgutil"
)

// CollectSources reads the image at root, or every image below root when it is a
// directory, in lexical path order. Files whose magic bytes match no known image
// type are skipped; other image types are kept so ingest can report them. When
// skipDir lies inside root it is not descended into, which keeps a run from
// picking up its own output.
func CollectSources(root, skipDir string) ([]Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		data, err := os.ReadFile(absRoot)
		if err != nil {
			return nil, err
		}
		return []Source{{Name: filepath.Base(absRoot), Data: data}}, nil
	}

	skipAbs := fsutil.NestedDir(absRoot, skipDir)

	var sources []Source
	fsys := os.DirFS(absRoot)
	err = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if skipAbs != "" && fsutil.IsWithin(filepath.Join(absRoot, path), skipAbs) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		if kind, _ := imgutil.SniffReader(bytes.NewReader(data)); kind == imgutil.KindUnknown {
			return nil
		}
		sources = append(sources, Source{Name: path, Data: data})
		return nil
	})
	if err != nil {
		return sources, err
	}
	return sources, nil
}
