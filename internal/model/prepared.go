package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"slices"
	"strings"
)

// Prepared is a Config with defaults applied and headers filtered.
// Headers is a copy, the caller's Config.Headers is never modified.
type Prepared struct {
	*Config

	Method  string
	Headers map[string]string
	Body    []byte // nil if and only if HasBody is false
	HasBody bool
}

func (c *Config) Prepare() (*Prepared, error) {
	body, hasBody, err := encodeBody(c.Data)
	if err != nil {
		return nil, err
	}
	method := c.Method
	if method == "" {
		method = http.MethodGet
	}
	p := &Prepared{
		Config: c, Method: strings.ToUpper(method),
		Headers: make(map[string]string, len(c.Headers)),
		Body:    body, HasBody: hasBody,
	}
	for k, v := range c.Headers {
		if !hasBody && strings.EqualFold(k, "content-type") {
			continue
		}
		p.Headers[k] = v
	}
	return p, nil
}

// AddDefault sets name unless a header of the same name, compared
// case-insensitively, is already present. content-type is dropped
// when there is no body.
func (p *Prepared) AddDefault(name, value string) {
	if !p.HasBody && strings.EqualFold(name, "content-type") {
		return
	}
	for k := range p.Headers {
		if strings.EqualFold(k, name) {
			return
		}
	}
	p.Headers[name] = value
}

// HeaderNames returns the filtered header names in a stable order.
func (p *Prepared) HeaderNames() []string {
	names := make([]string, 0, len(p.Headers))
	for k := range p.Headers {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// isNil reports typed nils, which stand for a missing body like a nil Data.
func isNil(data interface{}) bool {
	if data == nil {
		return true
	}
	switch v := reflect.ValueOf(data); v.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return v.IsNil()
	}
	return false
}

func encodeBody(data interface{}) (body []byte, ok bool, err error) {
	if data == NoBody || isNil(data) {
		return nil, false, nil
	}
	switch b := data.(type) {
	case string:
		return []byte(b), true, nil
	case []byte:
		return b, true, nil
	case *bytes.Buffer: // snapshot, the buffer is left unread
		return bytes.Clone(b.Bytes()), true, nil
	case url.Values:
		return []byte(b.Encode()), true, nil
	case io.Reader:
		if c, ok := b.(io.Closer); ok {
			defer c.Close()
		}
		if body, err = io.ReadAll(b); err != nil {
			return nil, false, fmt.Errorf("reading request body: %w", err)
		}
		if body == nil {
			body = []byte{}
		}
		return body, true, nil
	default:
		if body, err = json.Marshal(b); err != nil {
			return nil, false, fmt.Errorf("unsupported body type %T: %w", data, err)
		}
		return body, true, nil
	}
}
