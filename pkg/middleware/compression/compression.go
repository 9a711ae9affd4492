// Package compression negotiates Brotli or gzip response encoding.
package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/nimburion/taskboard/pkg/server/router"
)

const (
	encodingBrotli = "br"
	encodingGzip   = "gzip"
)

// Config controls response compression behavior.
type Config struct {
	Enabled      bool
	EnableGzip   bool
	EnableBrotli bool
	GzipLevel    int
	BrotliLevel  int
	// MinSize is the smallest body, in bytes, worth compressing.
	MinSize                  int
	CompressibleContentTypes []string
	ExcludedPathPrefixes     []string
}

// DefaultConfig returns a sane default for HTTP response compression.
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		EnableGzip:   true,
		EnableBrotli: true,
		GzipLevel:    gzip.DefaultCompression,
		BrotliLevel:  4,
		MinSize:      1024,
		CompressibleContentTypes: []string{
			"text/",
			"application/json",
			"application/openmetrics-text",
		},
	}
}

// Middleware compresses response bodies of at least MinSize bytes using
// the best encoding the client accepts. Brotli wins ties.
func Middleware(cfg Config) router.MiddlewareFunc {
	cfg = normalizeConfig(cfg)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			if !cfg.Enabled || req.Method == http.MethodHead || isExcludedPath(req.URL.Path, cfg.ExcludedPathPrefixes) {
				return next(c)
			}

			encoding := negotiateEncoding(req.Header.Get("Accept-Encoding"), cfg)
			if encoding == "" {
				return next(c)
			}

			appendVary(c.Response().Header(), "Accept-Encoding")
			base := c.Response()
			wrapped := newCompressResponseWriter(base, encoding, cfg)
			c.SetResponse(wrapped)

			err := next(c)
			if closeErr := wrapped.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
			c.SetResponse(base)
			return err
		}
	}
}

func normalizeConfig(cfg Config) Config {
	def := DefaultConfig()
	if cfg.GzipLevel == 0 {
		cfg.GzipLevel = def.GzipLevel
	}
	if cfg.BrotliLevel <= 0 {
		cfg.BrotliLevel = def.BrotliLevel
	}
	if cfg.MinSize < 0 {
		cfg.MinSize = 0
	}
	if len(cfg.CompressibleContentTypes) == 0 {
		cfg.CompressibleContentTypes = def.CompressibleContentTypes
	}
	return cfg
}

func isExcludedPath(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.TrimSpace(prefix) != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func negotiateEncoding(acceptEncoding string, cfg Config) string {
	if acceptEncoding == "" {
		return ""
	}

	qBr, hasBr := qualityForEncoding(acceptEncoding, encodingBrotli)
	qGzip, hasGzip := qualityForEncoding(acceptEncoding, encodingGzip)
	if qAny, hasAny := qualityForEncoding(acceptEncoding, "*"); hasAny {
		if !hasBr {
			qBr, hasBr = qAny, true
		}
		if !hasGzip {
			qGzip, hasGzip = qAny, true
		}
	}

	best, bestQ := "", 0.0
	if cfg.EnableBrotli && hasBr && qBr > 0 {
		best, bestQ = encodingBrotli, qBr
	}
	if cfg.EnableGzip && hasGzip && qGzip > bestQ {
		best = encodingGzip
	}
	return best
}

func qualityForEncoding(acceptEncoding, encoding string) (float64, bool) {
	for _, part := range strings.Split(acceptEncoding, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(name), encoding) {
			continue
		}
		q := 1.0
		for _, param := range strings.Split(params, ";") {
			key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || !strings.EqualFold(key, "q") {
				continue
			}
			if parsed, err := strconv.ParseFloat(value, 64); err == nil {
				q = parsed
			}
		}
		return q, true
	}
	return 0, false
}

// compressResponseWriter buffers the body until MinSize bytes are seen,
// then decides whether to compress based on status and content type.
type compressResponseWriter struct {
	base          router.ResponseWriter
	encoding      string
	cfg           Config
	statusCode    int
	headerWritten bool
	decided       bool
	compress      bool
	encoder       io.WriteCloser
	buffer        bytes.Buffer
}

func newCompressResponseWriter(base router.ResponseWriter, encoding string, cfg Config) *compressResponseWriter {
	return &compressResponseWriter{base: base, encoding: encoding, cfg: cfg}
}

func (w *compressResponseWriter) Header() http.Header {
	return w.base.Header()
}

func (w *compressResponseWriter) WriteHeader(code int) {
	if w.headerWritten {
		return
	}
	w.statusCode = code
	w.headerWritten = true
	if noBodyStatus(code) {
		w.decided = true
		w.base.WriteHeader(code)
	}
}

func (w *compressResponseWriter) Write(p []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}

	if w.decided {
		if w.compress {
			if _, err := w.encoder.Write(p); err != nil {
				return 0, err
			}
			return len(p), nil
		}
		return w.base.Write(p)
	}

	w.buffer.Write(p)
	if w.buffer.Len() < w.cfg.MinSize {
		return len(p), nil
	}
	if err := w.decide(); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *compressResponseWriter) decide() error {
	w.decided = true
	contentType := strings.ToLower(w.Header().Get("Content-Type"))
	if w.buffer.Len() < w.cfg.MinSize ||
		w.Header().Get("Content-Encoding") != "" ||
		!isCompressibleContentType(contentType, w.cfg.CompressibleContentTypes) {
		return w.flushPlain()
	}

	switch w.encoding {
	case encodingBrotli:
		w.encoder = brotli.NewWriterLevel(w.base, w.cfg.BrotliLevel)
	case encodingGzip:
		gz, err := gzip.NewWriterLevel(w.base, w.cfg.GzipLevel)
		if err != nil {
			return fmt.Errorf("create gzip writer: %w", err)
		}
		w.encoder = gz
	default:
		return w.flushPlain()
	}

	w.compress = true
	w.Header().Del("Content-Length")
	w.Header().Set("Content-Encoding", w.encoding)
	w.base.WriteHeader(w.statusOrOK())
	if _, err := w.encoder.Write(w.buffer.Bytes()); err != nil {
		return err
	}
	w.buffer.Reset()
	return nil
}

func (w *compressResponseWriter) flushPlain() error {
	if !w.base.Written() {
		w.base.WriteHeader(w.statusOrOK())
	}
	if w.buffer.Len() == 0 {
		return nil
	}
	_, err := w.base.Write(w.buffer.Bytes())
	w.buffer.Reset()
	return err
}

// Close flushes buffered output and finishes the compressed stream.
func (w *compressResponseWriter) Close() error {
	if !w.headerWritten {
		return nil
	}
	if !w.decided {
		if err := w.decide(); err != nil {
			return err
		}
	}
	if w.compress {
		return w.encoder.Close()
	}
	return nil
}

func (w *compressResponseWriter) statusOrOK() int {
	if w.statusCode == 0 {
		return http.StatusOK
	}
	return w.statusCode
}

func (w *compressResponseWriter) Status() int {
	if w.base.Written() {
		return w.base.Status()
	}
	return w.statusOrOK()
}

func (w *compressResponseWriter) Written() bool {
	return w.base.Written() || w.headerWritten
}

func (w *compressResponseWriter) Flush() {
	if flusher, ok := w.encoder.(interface{ Flush() error }); ok && w.compress {
		_ = flusher.Flush()
	}
	if f, ok := w.base.(http.Flusher); ok {
		f.Flush()
	}
}

func noBodyStatus(statusCode int) bool {
	return statusCode == http.StatusNoContent || statusCode == http.StatusNotModified || (statusCode >= 100 && statusCode < 200)
}

func isCompressibleContentType(contentType string, allow []string) bool {
	if contentType == "" {
		return true
	}
	for _, prefix := range allow {
		if strings.HasPrefix(contentType, strings.ToLower(strings.TrimSpace(prefix))) {
			return true
		}
	}
	return false
}

func appendVary(header http.Header, value string) {
	current := header.Get("Vary")
	if current == "" {
		header.Set("Vary", value)
		return
	}
	for _, part := range strings.Split(current, ",") {
		if strings.EqualFold(strings.TrimSpace(part), value) {
			return
		}
	}
	header.Set("Vary", current+", "+value)
}
