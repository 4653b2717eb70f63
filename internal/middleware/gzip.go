package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
)

// minGzipSize - ответы меньше этого размера отдаются без сжатия
const minGzipSize = 1400

// GzipMiddleware распаковывает gzip-тела запросов и сжимает JSON-ответы API.
// Перенаправления и пустые ответы не сжимаются.
func GzipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Обработка сжатого запроса
		if strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
			gz, err := gzip.NewReader(r.Body)
			if err != nil {
				http.Error(w, "Invalid gzip data", http.StatusBadRequest)
				return
			}
			defer gz.Close()
			r.Body = io.NopCloser(gz)
			r.Header.Del("Content-Encoding")
		}

		// Проверка, поддерживает ли клиент сжатие ответа
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		gw := &gzipResponseWriter{ResponseWriter: w, status: http.StatusOK}
		defer gw.Close()

		next.ServeHTTP(gw, r)
	})
}

// gzipResponseWriter откладывает заголовок ответа до первой записи,
// чтобы решить, сжимать ли тело
type gzipResponseWriter struct {
	http.ResponseWriter
	gz          *gzip.Writer
	status      int
	wroteHeader bool
	decided     bool
}

func (w *gzipResponseWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.status = statusCode
	w.wroteHeader = true
	// Без тела решение принимается сразу
	if statusCode < http.StatusOK || statusCode == http.StatusNoContent ||
		(statusCode >= 300 && statusCode < 400) {
		w.decided = true
		w.ResponseWriter.WriteHeader(statusCode)
	}
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if !w.decided {
		w.decide(b)
	}
	if w.gz != nil {
		return w.gz.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// decide включает сжатие для крупных JSON-ответов
func (w *gzipResponseWriter) decide(first []byte) {
	w.decided = true
	contentType := w.Header().Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") && len(first) >= minGzipSize {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Del("Content-Length")
		w.Header().Add("Vary", "Accept-Encoding")
		w.gz = gzip.NewWriter(w.ResponseWriter)
	}
	w.ResponseWriter.WriteHeader(w.status)
}

// Close дописывает сжатый поток и отправляет отложенный заголовок
func (w *gzipResponseWriter) Close() error {
	if !w.decided {
		w.decided = true
		if w.wroteHeader {
			w.ResponseWriter.WriteHeader(w.status)
		}
	}
	if w.gz != nil {
		return w.gz.Close()
	}
	return nil
}
