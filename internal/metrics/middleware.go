package metrics

import (
	"net/http"
	"strconv"
	"time"
)

// knownPaths bounds the path label cardinality.
var knownPaths = map[string]bool{
	"/sse":     true,
	"/health":  true,
	"/ready":   true,
	"/metrics": true,
}

// Middleware records HTTP request duration and count.
func (r *Recorder) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if r == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, req)

			path := normalizePath(req.URL.Path)
			r.httpDuration.WithLabelValues(req.Method, path).Observe(time.Since(start).Seconds())
			r.httpRequests.WithLabelValues(req.Method, path, strconv.Itoa(ww.status)).Inc()
		})
	}
}

func normalizePath(path string) string {
	if knownPaths[path] {
		return path
	}
	return "other"
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b)
}

// Flush passes through to the underlying writer so SSE streams keep working.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
