// Package fsutil provides the small set of path and directory helpers the
// workspace layer needs: prefix-aware path comparison (used
// by workspace context resolution) and plain existence checks (used when
// deciding whether an editable project still needs cloning).
package fsutil

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// HasFilepathPrefix reports whether path is prefix, or is contained within
// prefix, from the point of view of the filesystem rather than of plain
// string comparison: /foo and /foobar are not considered related even
// though "/foobar" has the string "/foo" as a prefix.
func HasFilepathPrefix(path, prefix string) bool {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)

	if path == prefix {
		return true
	}

	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}

	return strings.HasPrefix(path, prefix)
}

// IsDir reports whether name exists and is a directory.
func IsDir(name string) (bool, error) {
	fi, err := os.Stat(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "stat %s", name)
	}
	return fi.IsDir(), nil
}

// Exists reports whether name exists at all (file, directory, or otherwise).
func Exists(name string) (bool, error) {
	_, err := os.Stat(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "stat %s", name)
	}
	return true, nil
}
