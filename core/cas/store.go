// Package cas keeps generated gama-local documents in a content-addressed
// directory tree.
//
// Documents are stored by their SHA-256 hash, so converting the same survey
// twice stores one copy. A BLAKE3 pointer file maps the faster BLAKE3 digest
// back to the SHA-256 name.
//
// Layout:
//
//	<root>/documents/sha256/<first2>/<sha256>.xml
//	<root>/documents/blake3/<first2>/<blake3>.json
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/FocuswithJustin/surveyxml/core/errors"
)

// osRename is a variable to allow testing of rename errors.
var osRename = os.Rename

// ErrInvalidHash is returned when a hash string is not 64 lowercase hex digits.
var ErrInvalidHash = errors.Wrap(errors.ErrInvalidInput, "invalid hash format")

var hashPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Store is a content-addressed document store rooted at a directory.
type Store struct {
	root string
}

// NewStore opens the store at root, creating its directories if needed.
func NewStore(root string) (*Store, error) {
	for _, dir := range []string{"sha256", "blake3"} {
		if err := os.MkdirAll(filepath.Join(root, "documents", dir), 0755); err != nil {
			return nil, errors.NewIO("create", root, err)
		}
	}
	return &Store{root: root}, nil
}

// Root returns the store directory.
func (s *Store) Root() string {
	return s.root
}

// Put stores doc and returns its digests. Storing a document that is already
// present only makes sure its BLAKE3 pointer exists.
func (s *Store) Put(doc []byte) (Digest, error) {
	d := Sum(doc)

	path := s.documentPath(d.SHA256)
	if _, err := os.Stat(path); err != nil {
		if err := writeAtomic(path, doc); err != nil {
			return Digest{}, err
		}
	}

	if err := s.writePointer(d); err != nil {
		return Digest{}, err
	}
	return d, nil
}

// Get returns the document with the given SHA-256 hash.
func (s *Store) Get(sha string) ([]byte, error) {
	if !isValidHash(sha) {
		return nil, ErrInvalidHash
	}

	data, err := os.ReadFile(s.documentPath(sha))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("document", sha)
		}
		return nil, errors.NewIO("read", s.documentPath(sha), err)
	}
	return data, nil
}

// Has reports whether a document with the given SHA-256 hash is stored.
func (s *Store) Has(sha string) bool {
	if !isValidHash(sha) {
		return false
	}
	_, err := os.Stat(s.documentPath(sha))
	return err == nil
}

// Verify re-hashes the stored document and checks it against its name.
func (s *Store) Verify(sha string) error {
	data, err := s.Get(sha)
	if err != nil {
		return err
	}
	if got := Hash(data); got != sha {
		return errors.NewParse("document", s.documentPath(sha),
			fmt.Sprintf("content hash %s does not match", got))
	}
	return nil
}

func (s *Store) documentPath(sha string) string {
	return filepath.Join(s.root, "documents", "sha256", sha[:2], sha+".xml")
}

// writeAtomic writes data next to path and renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewIO("create", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errors.NewIO("create", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.NewIO("write", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.NewIO("close", tmpPath, err)
	}
	if err := osRename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.NewIO("rename", path, err)
	}
	return nil
}

func isValidHash(hash string) bool {
	return hashPattern.MatchString(hash)
}

// Hash computes the SHA-256 hash of data without storing it.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
