package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrMissingKey    = errors.New("missing api key")
	ErrInvalidKey    = errors.New("invalid api key")
	ErrResetDisabled = errors.New("reset requires a configured api key")
)

// KeyAuthenticator checks the X-API-Key header, or a bearer token, against a
// single shared key.
type KeyAuthenticator struct {
	Key string
}

// Enabled reports whether a key is configured.
func (a KeyAuthenticator) Enabled() bool { return a.Key != "" }

func (a KeyAuthenticator) Authenticate(r *http.Request) error {
	if !a.Enabled() {
		return ErrResetDisabled
	}
	got, err := extractKey(r)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(a.Key)) != 1 {
		return ErrInvalidKey
	}
	return nil
}

func extractKey(r *http.Request) (string, error) {
	if k := strings.TrimSpace(r.Header.Get("X-API-Key")); k != "" {
		return k, nil
	}
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", ErrMissingKey
	}
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", ErrInvalidKey
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	if token == "" {
		return "", ErrInvalidKey
	}
	return token, nil
}
