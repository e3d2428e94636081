package cas

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/surveyxml/core/errors"
)

// Digest holds both hashes of a document.
type Digest struct {
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
}

// Sum computes both digests of data.
func Sum(data []byte) Digest {
	return Digest{SHA256: Hash(data), BLAKE3: Blake3Hash(data)}
}

// Blake3Hash computes the BLAKE3 hash of data without storing it.
func Blake3Hash(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

type pointer struct {
	SHA256 string `json:"sha256"`
}

func (s *Store) pointerPath(b3 string) string {
	return filepath.Join(s.root, "documents", "blake3", b3[:2], b3+".json")
}

func (s *Store) writePointer(d Digest) error {
	path := s.pointerPath(d.BLAKE3)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := json.Marshal(pointer{SHA256: d.SHA256})
	if err != nil {
		return errors.Wrap(err, "marshal pointer")
	}
	return writeAtomic(path, data)
}

// Lookup maps a BLAKE3 hash to the SHA-256 name of the stored document.
func (s *Store) Lookup(b3 string) (string, error) {
	if !isValidHash(b3) {
		return "", ErrInvalidHash
	}

	data, err := os.ReadFile(s.pointerPath(b3))
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewNotFound("blake3 pointer", b3)
		}
		return "", errors.NewIO("read", s.pointerPath(b3), err)
	}

	var p pointer
	if err := json.Unmarshal(data, &p); err != nil {
		return "", errors.NewParse("json", s.pointerPath(b3), err.Error())
	}
	return p.SHA256, nil
}
