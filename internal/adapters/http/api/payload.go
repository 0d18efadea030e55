package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const maxBodyBytes = 1 << 20

// payload is a decoded JSON object. Fields are type-checked individually so
// that the api key can be checked before anything else is validated.
type payload map[string]any

// decodePayload reads a JSON body. An empty body or a JSON value that is not
// an object yields an empty payload, so callers still answer 401 or 400 from
// the missing fields. Only malformed JSON and oversized bodies are errors.
func decodePayload(w http.ResponseWriter, r *http.Request) (payload, error) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return nil, ErrBodyTooBig
		case errors.Is(err, io.EOF):
			return payload{}, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, ErrBodyTooBig
		}
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrBadRequest)
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return payload{}, nil
	}
	return payload(obj), nil
}

// str returns the field as a string and whether it is a non-empty string.
func (p payload) str(key string) (string, bool) {
	s, ok := p[key].(string)
	return s, ok && s != ""
}

// number returns the field if it is a JSON number.
func (p payload) number(key string) (float64, bool) {
	n, ok := p[key].(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	return f, err == nil
}

// keyMatches compares the apiKey field with the configured secret in
// constant time. An empty configured secret never matches.
func (p payload) keyMatches(secret string) bool {
	got, ok := p.str("apiKey")
	if !ok || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(secret)) == 1
}
