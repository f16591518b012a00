// Package version implements optimistic concurrency control over JSON
// files via mtime/size/content-hash snapshots.
package version

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/foundryforge/agentmem/internal/atomicio"
	"github.com/foundryforge/agentmem/internal/errs"
	"github.com/foundryforge/agentmem/internal/filelock"
)

// MaxRetries is the default number of retries SafeUpdate performs on
// conflict before giving up.
const MaxRetries = 3

// FileVersion is a snapshot of a file's state at a point in time.
type FileVersion struct {
	Path    string
	ModTime time.Time
	Size    int64
	SHA256  string
}

// Snapshot captures path's current mtime, size, and content hash.
func Snapshot(path string) (FileVersion, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileVersion{}, errs.Wrap(err, errs.CodeIOFailure, "stat "+path)
	}
	sum, err := hashFile(path)
	if err != nil {
		return FileVersion{}, err
	}
	return FileVersion{Path: path, ModTime: info.ModTime(), Size: info.Size(), SHA256: sum}, nil
}

// IsCurrent reports whether the file still matches v.
func IsCurrent(v FileVersion) bool {
	info, err := os.Stat(v.Path)
	if err != nil {
		return false
	}
	if !info.ModTime().Equal(v.ModTime) || info.Size() != v.Size {
		return false
	}
	sum, err := hashFile(v.Path)
	if err != nil {
		return false
	}
	return sum == v.SHA256
}

// Check returns errs.CodeConflict if the file has changed since v was taken.
func Check(v FileVersion) error {
	if !IsCurrent(v) {
		return errs.Errorf(errs.CodeConflict, "conflict on %s: modified since snapshot", v.Path)
	}
	return nil
}

// SafeUpdate performs a read-modify-write of a JSON file at path, retrying
// on conflict up to maxRetries times. modifier receives the decoded value
// via out (a pointer) already populated from disk, mutates it in place.
// The re-check and write happen under a filelock.Lock on path, so two
// callers that both pass the initial Check cannot both write: the second
// blocks until the first releases, then re-snapshots and retries.
func SafeUpdate[T any](path string, out *T, modifier func(*T) error, maxRetries int) error {
	if maxRetries <= 0 {
		maxRetries = MaxRetries
	}
	lock := filelock.New(path)
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		v, err := Snapshot(path)
		if err != nil {
			return err
		}
		if err := atomicio.ReadJSON(path, out); err != nil {
			return err
		}
		if err := modifier(out); err != nil {
			return err
		}

		if err := lock.Acquire(30 * time.Second); err != nil {
			return err
		}
		err = Check(v)
		if err == nil {
			err = atomicio.WriteJSON(path, out)
		}
		lock.Release()
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(10 * time.Millisecond * time.Duration(attempt+1))
	}
	return lastErr
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errs.Wrap(err, errs.CodeIOFailure, "open "+path)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errs.Wrap(err, errs.CodeIOFailure, "hash "+path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
