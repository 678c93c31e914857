package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pairs/internal/auth"
)

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// requestToken returns the table token from the cookie, falling back to a
// bearer Authorization header.
func requestToken(r *http.Request) string {
	if token := extractCookieToken(r.Header.Get("Cookie"), auth.TokenCookieName); token != "" {
		return token
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// authorizeTable checks that the request carries a token for tableID.
func authorizeTable(r *http.Request, tableID uuid.UUID) bool {
	token := requestToken(r)
	if token == "" {
		return false
	}
	granted, err := auth.AuthenticateTableToken(token)
	return err == nil && granted == tableID
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
