package request

import "net/http"

// ClientWriter wraps a http.ResponseWriter and records the status code that
// was written, for use in metrics after the handler has completed.
type ClientWriter struct {
	http.ResponseWriter
	status int
}

// NewClientWriter creates a new ClientWriter.
func NewClientWriter(w http.ResponseWriter) *ClientWriter {
	return &ClientWriter{ResponseWriter: w}
}

// WriteHeader implements the http.ResponseWriter interface.
func (w *ClientWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Write implements the http.ResponseWriter interface.
func (w *ClientWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// StatusCode returns the status code that was written, defaulting to 200 if
// the handler never called WriteHeader.
func (w *ClientWriter) StatusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
