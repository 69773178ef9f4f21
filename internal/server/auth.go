package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

const credentialsFile = "web_credentials.json"

// Credentials hold the single web UI account. The password is stored as
// a SHA-256 digest; good enough for a localhost admin page, and it keeps
// the plaintext off disk.
type Credentials struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
}

func credentialsPath(home string) string { return filepath.Join(home, credentialsFile) }

func hashPassword(pw string) string {
	sum := sha256.Sum256([]byte(pw))
	return fmt.Sprintf("%x", sum)
}

// SaveCredentials writes the web account with owner-only permissions.
func SaveCredentials(home, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("username and password are required")
	}
	c := Credentials{Username: username, PasswordHash: hashPassword(password)}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(home, 0o755); err != nil {
		return err
	}
	return os.WriteFile(credentialsPath(home), b, 0o600)
}

// LoadCredentials reads the stored web account.
func LoadCredentials(home string) (Credentials, error) {
	b, err := os.ReadFile(credentialsPath(home))
	if err != nil {
		return Credentials{}, err
	}
	var c Credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return Credentials{}, fmt.Errorf("parse %s: %w", credentialsFile, err)
	}
	return c, nil
}

// check verifies a basic-auth pair in constant time.
func (c Credentials) check(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(hashPassword(password)), []byte(c.PasswordHash)) == 1
	return userOK && passOK
}

// requireAuth wraps a handler with HTTP basic auth.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !s.creds.check(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="witness-manager"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
