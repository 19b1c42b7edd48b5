package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzhttp"
	"github.com/klauspost/compress/zstd"

	"github.com/sambeau/fillin/config"
	"github.com/sambeau/fillin/pkg/fillin/output"
)

// newCompressor returns middleware that compresses responses with zstd when
// the client accepts it and with gzip otherwise. Levels use the same names as
// compressed output files. A disabled config, or level "none", returns the
// handler unchanged.
func newCompressor(cfg config.CompressionConfig) (func(http.Handler) http.Handler, error) {
	if !cfg.Enabled || cfg.Level == "none" {
		return func(h http.Handler) http.Handler { return h }, nil
	}

	gzLevel, err := output.GzipLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("server.compression: %w", err)
	}
	zLevel, err := output.ZstdLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("server.compression: %w", err)
	}

	gz, err := gzhttp.NewWrapper(
		gzhttp.MinSize(cfg.MinSize),
		gzhttp.CompressionLevel(gzLevel),
	)
	if err != nil {
		return nil, fmt.Errorf("server.compression: %w", err)
	}
	// EncodeAll is safe for concurrent use on a single encoder.
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zLevel))
	if err != nil {
		return nil, fmt.Errorf("server.compression: %w", err)
	}

	return func(h http.Handler) http.Handler {
		gzipped := gz(h)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !acceptsEncoding(r.Header.Get("Accept-Encoding"), "zstd") {
				gzipped.ServeHTTP(w, r)
				return
			}
			zw := &zstdWriter{ResponseWriter: w}
			h.ServeHTTP(zw, r)
			zw.finish(enc, cfg.MinSize)
		})
	}, nil
}

// acceptsEncoding reports whether header lists coding with a non-zero q.
func acceptsEncoding(header, coding string) bool {
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(name), coding) {
			continue
		}
		q, ok := strings.CutPrefix(strings.TrimSpace(params), "q=")
		if !ok {
			return true
		}
		v, err := strconv.ParseFloat(q, 64)
		return err == nil && v > 0
	}
	return false
}

// zstdWriter buffers a response so it can be compressed whole once the
// handler returns. Responses here are single JSON documents.
type zstdWriter struct {
	http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (w *zstdWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *zstdWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.buf.Write(p)
}

func (w *zstdWriter) finish(enc *zstd.Encoder, minSize int) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	h := w.ResponseWriter.Header()
	h.Add("Vary", "Accept-Encoding")

	body := w.buf.Bytes()
	if len(body) > 0 && len(body) >= minSize && h.Get("Content-Encoding") == "" {
		body = enc.EncodeAll(body, make([]byte, 0, len(body)/2))
		h.Set("Content-Encoding", "zstd")
		h.Del("Content-Length")
	}
	w.ResponseWriter.WriteHeader(w.status)
	w.ResponseWriter.Write(body)
}
