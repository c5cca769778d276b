package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"planthealth/internal/app"
	"planthealth/internal/ratelimit"
	"planthealth/internal/recognize"
	"planthealth/internal/util"
	"planthealth/pkg/auth"
	"planthealth/pkg/domain"
	"planthealth/pkg/store"
)

const defaultMaxUploadBytes = 16 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                     *app.App
	RedisAddr               string
	RedisPassword           string
	RegisterRateLimitPerMin int
	LoginRateLimitPerMin    int
	MaxUploadBytes          int64
}

// Server exposes the HTTP API.
type Server struct {
	app             *app.App
	mux             *http.ServeMux
	maxUploadBytes  int64
	registerLimiter *ratelimit.FixedWindowLimiter
	loginLimiter    *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	registerLimit := cfg.RegisterRateLimitPerMin
	if registerLimit <= 0 {
		registerLimit = 5
	}
	loginLimit := cfg.LoginRateLimitPerMin
	if loginLimit <= 0 {
		loginLimit = 10
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		prefix := "planthealth:ratelimit:" + name
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	registerLimiter, err := newLimiter("register", registerLimit)
	if err != nil {
		return nil, err
	}
	loginLimiter, err := newLimiter("login", loginLimit)
	if err != nil {
		return nil, err
	}
	s := &Server{
		app:             cfg.App,
		mux:             http.NewServeMux(),
		maxUploadBytes:  maxUpload,
		registerLimiter: registerLimiter,
		loginLimiter:    loginLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth/register", s.handleRegister)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/auth/logout", s.handleLogout)
	s.mux.Handle("/api/auth/me", s.authenticated(s.handleMe))
	s.mux.HandleFunc("/api/auth/session", s.handleSession)

	// images
	s.mux.Handle("/api/images", s.authenticated(s.handleUploadImage))
	s.mux.Handle("/api/blog/images", s.authenticated(s.handleUploadBlogImage))
	s.mux.Handle("/api/blog/images/", s.authenticated(s.handleBlogImageByID))

	// blog entries
	s.mux.Handle("/api/blog/entries", s.authenticated(s.handleEntries))
	s.mux.Handle("/api/blog/entries/", s.authenticated(s.handleEntryByID))

	// recognition
	s.mux.Handle("/api/recognitions", s.authenticated(s.handleRecognize))
	s.mux.Handle("/api/recognitions/", s.authenticated(s.handleRecognitionByID))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.Account)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.audit(r, "authorize", "fail", "reason", "missing_token")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		account, err := s.app.Account(token)
		if err != nil {
			s.audit(r, "authorize", "fail")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, account)
	})
}

// auth handlers
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.registerLimiter, "too many registration attempts, retry later") {
		s.audit(r, "register", "rate_limited")
		return
	}
	var req registerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	account, session, err := s.app.Register(req.Email, req.Password, req.Name)
	if err != nil {
		s.audit(r, "register", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "register", "success", "user_id", account.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{Token: session.Token, ExpiresAt: session.ExpiresAt, Account: account})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts, retry later") {
		s.audit(r, "login", "rate_limited")
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	account, session, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		s.audit(r, "login", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "login", "success", "user_id", account.ID)
	writeJSON(w, http.StatusOK, sessionResponse{Token: session.Token, ExpiresAt: session.ExpiresAt, Account: account})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := s.app.Logout(token); err != nil {
		s.audit(r, "logout", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "logout", "success")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, account domain.Account) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// handleSession probes whether the presented token still maps to a live
// session, without touching the account record.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	token, _ := bearerToken(r)
	session, err := s.app.SessionFromToken(token)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// image handlers
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request, _ domain.Account) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}
	file, err := s.app.UploadImage(r.Context(), data)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, file)
}

func (s *Server) handleUploadBlogImage(w http.ResponseWriter, r *http.Request, _ domain.Account) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image is required (field: image)")
		return
	}
	defer file.Close()
	stored, err := s.app.UploadBlogImage(r.Context(), file, header.Filename, header.Header.Get("Content-Type"), header.Size)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleBlogImageByID(w http.ResponseWriter, r *http.Request, _ domain.Account) {
	id := strings.TrimPrefix(r.URL.Path, "/api/blog/images/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if err := s.app.DeleteBlogImage(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// blog entry handlers
func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request, account domain.Account) {
	switch r.Method {
	case http.MethodGet:
		s.handleListEntries(w, r)
	case http.MethodPost:
		s.handleCreateEntry(w, r, account)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	var (
		entries []domain.BlogEntry
		err     error
	)
	query := r.URL.Query()
	switch {
	case query.Has("user"):
		entries, err = s.app.ListEntriesByUser(r.Context(), query.Get("user"))
	case query.Has("q"):
		entries, err = s.app.SearchEntries(r.Context(), query.Get("q"))
	default:
		entries, err = s.app.ListEntries(r.Context())
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": entries,
		"count": len(entries),
	})
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request, account domain.Account) {
	var req entryRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	entry, err := s.app.CreateEntry(r.Context(), domain.BlogEntry{
		UserID:   account.ID,
		Title:    req.Title,
		Content:  req.Content,
		ImageID:  req.ImageID,
		Plants:   req.Plants,
		Symptoms: req.Symptoms,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleEntryByID(w http.ResponseWriter, r *http.Request, account domain.Account) {
	id := strings.TrimPrefix(r.URL.Path, "/api/blog/entries/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		entry, err := s.app.GetEntry(r.Context(), id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	case http.MethodPut:
		var req entryRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if !s.ownsEntry(w, r, account, id) {
			return
		}
		entry, err := s.app.UpdateEntry(r.Context(), id, domain.BlogEntry{
			Title:    req.Title,
			Content:  req.Content,
			ImageID:  req.ImageID,
			Plants:   req.Plants,
			Symptoms: req.Symptoms,
		})
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	case http.MethodDelete:
		if !s.ownsEntry(w, r, account, id) {
			return
		}
		if err := s.app.DeleteEntry(r.Context(), id); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) ownsEntry(w http.ResponseWriter, r *http.Request, account domain.Account, id string) bool {
	entry, err := s.app.GetEntry(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return false
	}
	if entry.UserID != account.ID {
		s.audit(r, "entry.authorize", "fail", "user_id", account.ID, "entry_id", id)
		writeError(w, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}

// recognition handlers
func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request, account domain.Account) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req recognizeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	plants, err := s.app.RecognizePlant(r.Context(), req.Image)
	if err != nil {
		s.audit(r, "recognize", "fail", "user_id", account.ID, "reason", err.Error())
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": plants,
		"count": len(plants),
	})
}

func (s *Server) handleRecognitionByID(w http.ResponseWriter, r *http.Request, _ domain.Account) {
	id := strings.TrimPrefix(r.URL.Path, "/api/recognitions/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	exec, err := s.app.ExecutionStatus(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Account   domain.Account `json:"account"`
}

type entryRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	ImageID  string   `json:"imageId"`
	Plants   []string `json:"plants"`
	Symptoms []string `json:"symptoms"`
}

type recognizeRequest struct {
	Image string `json:"image"`
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", clientIP(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	key := r.URL.Path + "|" + clientIP(r)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func clientIP(r *http.Request) string {
	if xfwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xfwd != "" {
		parts := strings.Split(xfwd, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

func writeAppError(w http.ResponseWriter, err error) {
	var parseErr *recognize.ParseError
	switch {
	case errors.Is(err, app.ErrInvalidCredentials), errors.Is(err, app.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrEmailAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrValidation),
		errors.Is(err, app.ErrUpload),
		errors.Is(err, app.ErrRegistrationFieldsRequired),
		errors.Is(err, auth.ErrPasswordTooShort):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrStatelessSession):
		writeError(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, recognize.ErrRecognitionTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, recognize.ErrRecognitionFailed), errors.As(err, &parseErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
