// Package api exposes HTTP handlers for the trust ledger.
package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/Sugavanesh17/UniConnect/internal/auth"
	"github.com/Sugavanesh17/UniConnect/internal/domain"
	"github.com/Sugavanesh17/UniConnect/internal/persistence"
)

const maxBodyBytes = 64 << 10

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", healthz)
	mux.HandleFunc("POST /v1/trust/users", h.registerUser)
	mux.HandleFunc("GET /v1/trust/users/{id}", h.getUser)
	mux.HandleFunc("POST /v1/trust/activities", h.recordActivity)
	mux.HandleFunc("GET /v1/trust/history", h.history)
	mux.HandleFunc("GET /v1/trust/stats", h.stats)
	mux.HandleFunc("GET /v1/trust/levels", h.levels)
	mux.HandleFunc("POST /v1/trust/admin/users/{id}/adjustments", h.adjustScore)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeTrustWrite)
	if !ok {
		return
	}

	var req RegisterUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, opening, err := h.service.RegisterUser(r.Context(), domain.RegisterUserInput{
		TenantID:   claims.TenantID,
		UserID:     req.UserID,
		Name:       req.Name,
		Email:      req.Email,
		University: req.University,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, RegisterUserResponse{
		User:     toUserView(*user),
		Activity: toActivityView(*opening),
	})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	userID := r.PathValue("id")
	if !claims.CanRead(userID) {
		writeError(w, http.StatusForbidden, "forbidden", "not allowed to read this user")
		return
	}

	user, err := h.service.GetUser(r.Context(), claims.TenantID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}

func (h *Handler) recordActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeTrustWrite)
	if !ok {
		return
	}

	var req RecordActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if domain.ActivityKind(req.Kind) == domain.KindAdminAdjustment && !claims.IsAdmin() {
		writeError(w, http.StatusForbidden, "forbidden", "admin adjustments require the "+auth.ScopeTrustAdmin+" scope")
		return
	}

	input := domain.RecordActivityInput{
		TenantID:    claims.TenantID,
		UserID:      req.UserID,
		Kind:        domain.ActivityKind(req.Kind),
		Description: req.Description,
		ProjectID:   req.ProjectID,
		Metadata:    req.Metadata,
		IPAddress:   clientIP(r),
		UserAgent:   r.UserAgent(),
	}

	var (
		record *domain.ActivityRecord
		err    error
	)
	if req.Points == nil {
		record, err = h.service.RecordDefault(r.Context(), input)
	} else {
		input.Points = *req.Points
		record, err = h.service.RecordActivity(r.Context(), input)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toActivityView(*record))
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	claims, userID, ok := readTarget(w, r)
	if !ok {
		return
	}

	limit, ok := intParam(w, r, "limit")
	if !ok {
		return
	}
	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	page, err := h.service.GetHistory(r.Context(), claims.TenantID, userID, domain.HistoryQuery{Limit: limit, Cursor: cursor})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]ActivityView, 0, len(page.Items))
	for _, record := range page.Items {
		items = append(items, toActivityView(record))
	}
	writeJSON(w, http.StatusOK, HistoryResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(page.NextCursor),
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	claims, userID, ok := readTarget(w, r)
	if !ok {
		return
	}

	days, ok := intParam(w, r, "days")
	if !ok {
		return
	}

	stats, err := h.service.GetStats(r.Context(), claims.TenantID, userID, days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsView(stats))
}

func (h *Handler) levels(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	if !claims.HasScope(auth.ScopeTrustRead) && !claims.HasScope(auth.ScopeTrustWrite) && !claims.IsAdmin() {
		writeError(w, http.StatusForbidden, "forbidden", "scope trust:read required")
		return
	}

	raw := r.URL.Query().Get("score")
	if raw == "" {
		writeJSON(w, http.StatusOK, LevelsResponse{Levels: domain.Levels()})
		return
	}
	score, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "score must be an integer")
		return
	}
	writeJSON(w, http.StatusOK, LevelResponse{Score: score, Level: domain.ClassifyLevel(score)})
}

func (h *Handler) adjustScore(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeTrustAdmin)
	if !ok {
		return
	}

	var req AdjustScoreRequest
	if !decodeBody(w, r, &req) {
		return
	}

	record, err := h.service.AdjustScore(r.Context(), domain.AdjustScoreInput{
		TenantID: claims.TenantID,
		UserID:   r.PathValue("id"),
		AdminID:  claims.Subject,
		Points:   req.Points,
		Reason:   req.Reason,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toActivityView(*record))
}

func requireClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	return claims, true
}

func requireScope(w http.ResponseWriter, r *http.Request, scope string) (*auth.Claims, bool) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return nil, false
	}
	if !claims.HasScope(scope) && !claims.IsAdmin() {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
		return nil, false
	}
	return claims, true
}

// readTarget resolves the user_id query parameter, defaulting to the caller,
// and checks the caller may read it.
func readTarget(w http.ResponseWriter, r *http.Request) (*auth.Claims, string, bool) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return nil, "", false
	}
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		userID = claims.Subject
	}
	if !claims.CanRead(userID) {
		writeError(w, http.StatusForbidden, "forbidden", "not allowed to read this user")
		return nil, "", false
	}
	return claims, userID, true
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", name+" must be an integer")
		return 0, false
	}
	return value, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not_found", "user not found")
	case errors.Is(err, domain.ErrUserExists):
		writeError(w, http.StatusConflict, "user_exists", "user already registered")
	case errors.Is(err, domain.ErrDuplicate):
		writeError(w, http.StatusConflict, "duplicate", "source event already recorded")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", "concurrent update, retry the request")
	default:
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]string{
		"type":   code,
		"detail": detail,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
