// Package output writes rendered text to files, compressing by extension and
// optionally converting Markdown to HTML.
package output

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// Options controls how rendered text is written.
type Options struct {
	Markdown bool      // Convert Markdown to HTML before writing
	Level    string    // Compression level: "fastest", "default" (or empty), "best"
	Stdout   io.Writer // Destination for "" and "-" (default os.Stdout)
}

// Compression names the codec chosen for a path.
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
)

func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	}
	return "none"
}

// CompressionFor picks the codec from the last extension of path.
func CompressionFor(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return Gzip
	case ".zst", ".zstd":
		return Zstd
	}
	return None
}

// TrimCompression removes a compression extension, so "a.json.gz" becomes
// "a.json".
func TrimCompression(path string) string {
	if CompressionFor(path) == None {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// Markdown converts GitHub-flavored Markdown to HTML.
func Markdown(src string) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return buf.String(), nil
}

// Wrap returns a writer that compresses into w with c. Closing it flushes
// the codec but does not close w.
func Wrap(w io.Writer, c Compression, level string) (io.WriteCloser, error) {
	switch c {
	case Gzip:
		l, err := GzipLevel(level)
		if err != nil {
			return nil, err
		}
		return gzip.NewWriterLevel(w, l)
	case Zstd:
		l, err := ZstdLevel(level)
		if err != nil {
			return nil, err
		}
		return zstd.NewWriter(w, zstd.WithEncoderLevel(l))
	}
	return nopCloser{w}, nil
}

// GzipLevel maps a level name ("fastest", "default" or empty, "best") to a
// gzip level.
func GzipLevel(level string) (int, error) {
	switch level {
	case "fastest":
		return gzip.BestSpeed, nil
	case "best":
		return gzip.BestCompression, nil
	case "default", "":
		return gzip.DefaultCompression, nil
	}
	return 0, fmt.Errorf("unknown compression level %q", level)
}

// ZstdLevel maps a level name to a zstd encoder level.
func ZstdLevel(level string) (zstd.EncoderLevel, error) {
	switch level {
	case "fastest":
		return zstd.SpeedFastest, nil
	case "best":
		return zstd.SpeedBestCompression, nil
	case "default", "":
		return zstd.SpeedDefault, nil
	}
	return 0, fmt.Errorf("unknown compression level %q", level)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Write writes text to path, or to stdout when path is "" or "-". The file
// is compressed when its name ends in .gz or .zst.
func Write(path, text string, opts Options) error {
	if opts.Markdown {
		html, err := Markdown(text)
		if err != nil {
			return err
		}
		text = html
	}

	if path == "" || path == "-" {
		w := opts.Stdout
		if w == nil {
			w = os.Stdout
		}
		_, err := io.WriteString(w, text)
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, CompressionFor(path), opts.Level, text); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

func write(w io.Writer, c Compression, level, text string) error {
	zw, err := Wrap(w, c, level)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(zw, text); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// Open opens path for reading, decompressing .gz and .zst files. "-" reads
// stdin.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch CompressionFor(path) {
	case Gzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return &readCloser{Reader: zr, close: func() error { zr.Close(); return f.Close() }}, nil
	case Zstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return &readCloser{Reader: zr, close: func() error { zr.Close(); return f.Close() }}, nil
	}
	return f, nil
}

// ReadFile reads the whole of path through Open.
func ReadFile(path string) ([]byte, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r *readCloser) Close() error { return r.close() }
