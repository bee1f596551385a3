// ABOUTME: Content-addressed artifact store keyed by SHA-256 digest with on-disk sharded layout.
// ABOUTME: Put is idempotent via temp-file-plus-rename; identical content is stored exactly once.
package cas

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store is a content-addressed artifact store rooted at a directory.
// Objects live under objects/<first two hex chars>/<digest>. The store is an
// explicit handle: multiple stores may coexist (isolated in tests, shared in
// production) and concurrent Put calls for the same digest are safe to race.
type Store struct {
	baseDir string
}

// Open creates or opens a store rooted at baseDir.
func Open(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir must not be empty")
	}
	if err := os.MkdirAll(filepath.Join(baseDir, "objects"), 0o755); err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	return &Store{baseDir: baseDir}, nil
}

// BaseDir returns the root directory of the store.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Put stores a payload and returns its digest. If an object with the same
// digest already exists, no write occurs and the existing digest is returned.
// The write path is temp file + rename, so a failed Put leaves nothing behind
// and racing writers of the same content converge on one object.
func (s *Store) Put(payload []byte) (Digest, error) {
	digest := HashBytes(payload)
	path := s.objectPath(digest)

	if _, err := os.Stat(path); err == nil {
		return digest, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &StorageError{Op: "put", Digest: digest, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return "", &StorageError{Op: "put", Digest: digest, Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", &StorageError{Op: "put", Digest: digest, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", &StorageError{Op: "put", Digest: digest, Err: err}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		// A racing Put may have won the rename; that is a no-op success.
		if _, statErr := os.Stat(path); statErr == nil {
			return digest, nil
		}
		return "", &StorageError{Op: "put", Digest: digest, Err: err}
	}

	return digest, nil
}

// Get returns the payload for the given digest, or NotFoundError if it has
// never been stored.
func (s *Store) Get(digest Digest) ([]byte, error) {
	data, err := os.ReadFile(s.objectPath(digest))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Digest: digest}
		}
		return nil, &StorageError{Op: "get", Digest: digest, Err: err}
	}
	return data, nil
}

// Exists reports whether an artifact with the given digest has been stored.
func (s *Store) Exists(digest Digest) bool {
	_, err := os.Stat(s.objectPath(digest))
	return err == nil
}

// Size returns the stored size in bytes of the artifact with the given digest.
func (s *Store) Size(digest Digest) (int64, error) {
	info, err := os.Stat(s.objectPath(digest))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, &NotFoundError{Digest: digest}
		}
		return 0, &StorageError{Op: "stat", Digest: digest, Err: err}
	}
	return info.Size(), nil
}

// ObjectPath returns the on-disk path of an object. The path is a non-owning
// reference: callers must not modify or remove the file.
func (s *Store) ObjectPath(digest Digest) string {
	return s.objectPath(digest)
}

func (s *Store) objectPath(digest Digest) string {
	d := digest.String()
	shard := "00"
	if len(d) >= 2 {
		shard = d[:2]
	}
	return filepath.Join(s.baseDir, "objects", shard, d)
}
