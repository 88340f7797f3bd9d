package model

import (
	"io"
	"net/http"
	"net/url"
)

// NoBody marks a Config without a request body. A nil Config.Data, typed
// nils such as a nil []byte or *bytes.Buffer included, means the same.
var NoBody = http.NoBody

// Config describes a single request to dispatch. It is consumed once.
type Config struct {
	URL     string            `yaml:"url" json:"url"`
	Method  string            `yaml:"method,omitempty" json:"method,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Data    interface{}       `yaml:"data,omitempty" json:"data,omitempty"`
}

// Request is what goes on the wire once a handle has been opened and sent.
type Request struct {
	Method     string
	U          *url.URL
	Header     http.Header
	HeaderHost string

	ContentLength int64 // -1 if unknown, the body is then written chunked
	GetBody       func() (io.ReadCloser, error)
}

type Response struct {
	Proto      string
	Status     string
	StatusCode int
	Header     http.Header

	ContentLength int64
	Body          io.ReadCloser
}
