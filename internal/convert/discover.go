// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pdiddy/nconvert-bash/pkg/types"
)

// Discover returns every file under dir whose extension matches format,
// case-insensitively, in lexical walk order. Symlinks to regular files are
// included; linked directories are not descended into.
func Discover(dir string, format types.Format) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !format.MatchesFile(path) {
			return nil
		}
		if isFile(path, d) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func isFile(path string, d fs.DirEntry) bool {
	if d.Type()&fs.ModeSymlink == 0 {
		return d.Type().IsRegular()
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
