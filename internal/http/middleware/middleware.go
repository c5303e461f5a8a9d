// Package middleware — обвязка REST API conference-service: request id,
// access-лог, восстановление после паники, дедлайн запроса и разбор JWT.
package middleware

import (
	"net/http"
)

// Middleware оборачивает http.Handler; router.go собирает их через Chain.
type Middleware func(http.Handler) http.Handler

// Chain навешивает mws на h так, что первый в списке выполняется первым.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// statusWriter запоминает код ответа и объём тела для access-лога.
// Код фиксируется один раз: первый WriteHeader или неявный 200 при Write.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written int
}

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w}
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(p)
	w.written += n
	return n, err
}
