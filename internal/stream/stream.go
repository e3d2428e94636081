// Package stream opens survey input and document output files, handling
// gzip and xz compression by file suffix.
package stream

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// Compression identifies the codec applied to a file.
type Compression int

const (
	// None is an uncompressed file.
	None Compression = iota
	// Gzip is a .gz file.
	Gzip
	// XZ is a .xz file.
	XZ
)

// String returns the codec name.
func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case XZ:
		return "xz"
	}
	return "none"
}

// ParseCompression maps a codec name such as "xz" to a Compression.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(name) {
	case "none", "":
		return None, nil
	case "gzip", "gz":
		return Gzip, nil
	case "xz":
		return XZ, nil
	}
	return None, fmt.Errorf("unknown compression %q", name)
}

// Detect returns the compression implied by the path suffix.
func Detect(path string) Compression {
	switch {
	case strings.HasSuffix(path, ".xz"):
		return XZ
	case strings.HasSuffix(path, ".gz"):
		return Gzip
	}
	return None
}

// IsStdio reports whether path names standard input or output.
func IsStdio(path string) bool {
	return path == "" || path == "-"
}

// reader closes the decompressor and then the file.
type reader struct {
	io.Reader
	file         io.Closer
	decompressor io.Closer
}

func (r *reader) Close() error {
	var errs []error
	if r.decompressor != nil {
		if err := r.decompressor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// OpenInput opens path for reading. An empty path or "-" reads stdin, which
// is never decompressed and never closed.
func OpenInput(path string) (io.ReadCloser, error) {
	if IsStdio(path) {
		return &reader{Reader: os.Stdin}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return wrapReader(f, f, Detect(path))
}

func wrapReader(src io.Reader, file io.Closer, c Compression) (io.ReadCloser, error) {
	switch c {
	case XZ:
		xzr, err := xz.NewReader(src)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		return &reader{Reader: xzr, file: file}, nil
	case Gzip:
		gzr, err := gzip.NewReader(src)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return &reader{Reader: gzr, file: file, decompressor: gzr}, nil
	}
	return &reader{Reader: src, file: file}, nil
}

// writer flushes the compressor before closing the file.
type writer struct {
	io.Writer
	file       io.Closer
	compressor io.Closer
}

func (w *writer) Close() error {
	var errs []error
	if w.compressor != nil {
		if err := w.compressor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// CreateOutput creates path for writing, creating parent directories as
// needed. An empty path or "-" writes uncompressed to stdout. Close must be
// called to flush compressed output.
func CreateOutput(path string) (io.WriteCloser, error) {
	if IsStdio(path) {
		return &writer{Writer: os.Stdout}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return wrapWriter(f, f, Detect(path))
}

// NewWriter wraps dst with the given compression. Closing the result
// finishes the compressed stream but leaves dst open.
func NewWriter(dst io.Writer, c Compression) (io.WriteCloser, error) {
	return wrapWriter(dst, nil, c)
}

// NewReader wraps src with the given decompression. Closing the result
// leaves src open.
func NewReader(src io.Reader, c Compression) (io.ReadCloser, error) {
	return wrapReader(src, nopCloser{}, c)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func wrapWriter(dst io.Writer, file io.Closer, c Compression) (io.WriteCloser, error) {
	switch c {
	case XZ:
		xzw, err := xz.NewWriter(dst)
		if err != nil {
			if file != nil {
				file.Close()
			}
			return nil, fmt.Errorf("xz writer: %w", err)
		}
		return &writer{Writer: xzw, file: file, compressor: xzw}, nil
	case Gzip:
		gzw := gzip.NewWriter(dst)
		return &writer{Writer: gzw, file: file, compressor: gzw}, nil
	}
	return &writer{Writer: dst, file: file}, nil
}
