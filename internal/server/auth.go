package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var (
	errMissingAuth = errors.New("missing authorization header")
	errAuthScheme  = errors.New("invalid authorization scheme")
	errBadToken    = errors.New("invalid token")
)

// checkBearer validates an Authorization header value against token.
func checkBearer(header, token string) error {
	if header == "" {
		return errMissingAuth
	}
	provided, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return errAuthScheme
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
		return errBadToken
	}
	return nil
}

// requestAuth returns the request's Authorization header. Browsers cannot
// set headers on a websocket upgrade, so GET /v1/ws may carry the token as
// the access_token query parameter instead.
func requestAuth(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return h
	}
	if r.URL.Path == "/v1/ws" {
		if qt := r.URL.Query().Get("access_token"); qt != "" {
			return "Bearer " + qt
		}
	}
	return ""
}

// AuthMiddleware rejects requests without the bearer token. An empty token
// disables auth. GET /v1/health is always open.
func AuthMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/v1/health" {
			next.ServeHTTP(w, r)
			return
		}
		if err := checkBearer(requestAuth(r), token); err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}
