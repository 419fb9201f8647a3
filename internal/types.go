package internal

import (
	"io"
	"net/http"
	"net/url"
)

// Security is a signed capability granting access to files protected by the
// account's security settings. It is passed through verbatim.
type Security struct {
	Policy    string `json:"policy"`
	Signature string `json:"signature"`
}

// Request is a single outbound call handed to a Transport.
type Request struct {
	Method string
	URL    string
	Header http.Header

	// Form is sent as an application/x-www-form-urlencoded body.
	Form url.Values
	// Body is streamed as the raw request body. The caller owns closing it.
	Body io.Reader
	// ContentLength is the size of Body when known; 0 sends Body chunked.
	ContentLength int64

	// Sink receives a 200 response body instead of it being buffered.
	Sink io.Writer
	// Progress, when set, observes bytes written to Sink.
	Progress ProgressReporter
}

// Response is the status and buffered body of a completed call. When the
// request carried a Sink and the status was 200, Body is empty.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}
