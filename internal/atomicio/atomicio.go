// Package atomicio writes and reads JSON files with crash-safe atomic
// semantics: write to a temp file, fsync it, rename over the target, then
// fsync the containing directory.
package atomicio

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/foundryforge/agentmem/internal/errs"
)

// WriteJSON marshals v and atomically replaces path's contents.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errs.Wrap(err, errs.CodeIOFailure, "marshal "+path)
	}
	return Write(path, data)
}

// Write atomically replaces path's contents with data.
func Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errs.Wrap(err, errs.CodeIOFailure, "create temp file for "+path)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errs.Wrap(err, errs.CodeIOFailure, "write temp file for "+path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errs.Wrap(err, errs.CodeIOFailure, "sync temp file for "+path)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(err, errs.CodeIOFailure, "close temp file for "+path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errs.Wrap(err, errs.CodeIOFailure, "rename into place for "+path)
	}
	syncDir(dir)
	return nil
}

// ReadJSON unmarshals path's contents into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errs.Wrap(err, errs.CodeIOFailure, "read "+path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errs.Wrap(err, errs.CodeStoreCorrupt, "decode "+path)
	}
	return nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// syncDir fsyncs a directory so the rename above survives a crash. Best
// effort: some platforms/filesystems don't support fsync on directories.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}
