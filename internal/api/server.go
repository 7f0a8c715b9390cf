// Package api exposes the HTTP JSON surface: public availability and
// booking endpoints plus the token-guarded admin endpoints. All untrusted
// input is validated here; the availability engine only ever sees parsed
// temporal values.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"antigravity/internal/booking"
	"antigravity/internal/model"
	"antigravity/internal/rules"
	"antigravity/internal/store"
)

// BookingStore is the subset of the repository the handlers need.
type BookingStore interface {
	Blocking(ctx context.Context, start, end, now time.Time, lead time.Duration) (bool, error)
	ListBookings(ctx context.Context, f store.ListFilter) ([]model.Booking, error)
	OnDate(ctx context.Context, date time.Time) ([]model.Booking, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// BookingService runs the booking lifecycle.
type BookingService interface {
	Create(ctx context.Context, req booking.Request) (*model.Booking, error)
	Decide(ctx context.Context, id int64, to string) (*model.Booking, error)
	DecideBulk(ctx context.Context, ids []int64, to string) (int, error)
}

// HTTPServer serves the booking API.
type HTTPServer struct {
	rules      *rules.Provider
	db         BookingStore
	svc        BookingService
	limiter    Limiter
	adminToken string
	logger     *zerolog.Logger
	now        func() time.Time
}

// NewHTTPServer wires the API handlers.
func NewHTTPServer(provider *rules.Provider, db BookingStore, svc BookingService, limiter Limiter, adminToken string, logger *zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		rules:      provider,
		db:         db,
		svc:        svc,
		limiter:    limiter,
		adminToken: adminToken,
		logger:     logger,
		now:        time.Now,
	}
}

// Routes returns the API mux.
func (s *HTTPServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/availability", s.rateLimited(s.handleAvailability))
	mux.HandleFunc("/api/bookings", s.rateLimited(s.handleCreateBooking))
	mux.HandleFunc("/api/admin/bookings", s.adminOnly(s.handleAdminList))
	mux.HandleFunc("/api/admin/bookings/status", s.adminOnly(s.handleAdminStatus))
	mux.HandleFunc("/api/admin/bookings/export", s.adminOnly(s.handleAdminExport))
	mux.HandleFunc("/api/admin/rules", s.adminOnly(s.handleAdminRules))
	return mux
}

// Start runs the API server until ctx is cancelled.
func (s *HTTPServer) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.logger.Info().Str("addr", addr).Msg("API server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Admin-Token")
		if s.adminToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	// First hop of X-Forwarded-For when present, else the remote address.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		ip := strings.TrimSpace(parts[0])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format; expected YYYY-MM-DD")
	}
	return d, nil
}
