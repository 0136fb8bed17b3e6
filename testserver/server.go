// Package testserver is a local stand-in for the remote record-location
// function, with knobs for injecting failures and latency.
package testserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"georeporter/internal/location"
	"georeporter/internal/session"
)

const (
	// TokenTTL is the lifetime of tokens issued by /auth/v1/token.
	TokenTTL = time.Hour

	maxBodySize = 1 << 16
)

// Report is one accepted location report.
type Report struct {
	UserID     string
	Latitude   float64
	Longitude  float64
	RequestID  string
	ReceivedAt time.Time
}

// Server serves the fake function endpoints.
type Server struct {
	mux    *http.ServeMux
	secret []byte

	failRate atomic.Int64 // percent of function calls answered with 500
	delay    atomic.Int64 // nanoseconds to stall each function call

	mu      sync.Mutex
	reports []Report
}

// NewServer creates a server that signs and verifies tokens with secret.
func NewServer(secret string) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		secret: []byte(secret),
	}
	s.registerHandlers()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerHandlers() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/auth/v1/token", s.handleToken)
	s.mux.HandleFunc("/functions/v1/record-location", s.handleRecordLocation)
}

// SetFailRate makes percent (0-100) of function calls fail with 500.
func (s *Server) SetFailRate(percent int) {
	s.failRate.Store(int64(min(max(percent, 0), 100)))
}

// SetDelay stalls every function call by d before it is answered.
func (s *Server) SetDelay(d time.Duration) {
	s.delay.Store(int64(d))
}

// Reports returns a copy of every accepted report.
func (s *Server) Reports() []Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Report, len(s.reports))
	copy(out, s.reports)
	return out
}

// IssueToken signs an access token for userID valid for ttl.
func (s *Server) IssueToken(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	now := time.Now()
	claims := session.Claims{
		Role: "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// handleToken issues a token for ?user=<id>.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	token, err := s.IssueToken(r.URL.Query().Get("user"), TokenTTL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(TokenTTL.Seconds()),
	})
}

func (s *Server) handleRecordLocation(w http.ResponseWriter, r *http.Request) {
	if d := time.Duration(s.delay.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID, err := s.authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var body struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Latitude == nil || body.Longitude == nil {
		writeError(w, http.StatusBadRequest, "latitude and longitude are required")
		return
	}
	if err := location.Validate(*body.Latitude, *body.Longitude); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if rate := s.failRate.Load(); rate > 0 && int64(rand.Intn(100)) < rate {
		writeError(w, http.StatusInternalServerError, "simulated failure")
		return
	}

	s.mu.Lock()
	s.reports = append(s.reports, Report{
		UserID:     userID,
		Latitude:   *body.Latitude,
		Longitude:  *body.Longitude,
		RequestID:  r.Header.Get("X-Request-Id"),
		ReceivedAt: time.Now(),
	})
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// authenticate verifies the bearer token and returns its subject.
func (s *Server) authenticate(r *http.Request) (string, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return "", errors.New("missing bearer token")
	}

	var claims session.Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("invalid JWT: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("invalid JWT: missing subject")
	}
	return claims.Subject, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
