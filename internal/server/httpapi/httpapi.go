// Package httpapi serves the REST surface beside the WebSocket: history,
// collections, the morning digest and pending gifts. Everything under /api
// requires a bearer token; /health does not.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/convivial/salon/internal/common"
	"github.com/convivial/salon/internal/logging"
	"github.com/convivial/salon/internal/server/auth"
)

type contextKey string

const identityKey contextKey = "identity"

// API bundles the handlers and their dependencies behind one mux router.
type API struct {
	authenticator *auth.Authenticator
	service       *Service
	health        HealthChecker
	logger        logging.Logger
	validate      *validator.Validate
}

// HealthChecker reports this instance's liveness inputs.
type HealthChecker interface {
	SessionCount() int
	BackbonePing(ctx context.Context) error
}

func New(a *auth.Authenticator, s *Service, h HealthChecker, l logging.Logger) *API {
	return &API{
		authenticator: a,
		service:       s,
		health:        h,
		logger:        l.With("module", "httpapi"),
		validate:      validator.New(),
	}
}

// Router builds the route table.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(a.requireAuth)
	api.HandleFunc("/discoveries", a.handleListDiscoveries).Methods(http.MethodGet)
	api.HandleFunc("/discoveries", a.handleCreateDiscovery).Methods(http.MethodPost)
	api.HandleFunc("/collections", a.handleListCollections).Methods(http.MethodGet)
	api.HandleFunc("/collections", a.handleCreateCollection).Methods(http.MethodPost)
	api.HandleFunc("/collections/{id}/items", a.handleAddCollectionItem).Methods(http.MethodPost)
	api.HandleFunc("/social/morning-coffee", a.handleMorningCoffee).Methods(http.MethodGet)
	api.HandleFunc("/social/collisions", a.handleCollisions).Methods(http.MethodGet)
	api.HandleFunc("/social/gifts/pending", a.handlePendingGifts).Methods(http.MethodGet)
	api.HandleFunc("/files/upload-url", a.handleUploadURL).Methods(http.MethodPost)
	return r
}

// requireAuth resolves the bearer token to an identity before any handler
// runs. DevAuth mode is honored the same way as on the WebSocket endpoint.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		identity, err := a.authenticator.VerifyOrClaim(token, r.Header.Get("X-User-Id"), r.Header.Get("X-Username"))
		if err != nil {
			a.writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFrom(r *http.Request) auth.Identity {
	identity, _ := r.Context().Value(identityKey).(auth.Identity)
	return identity
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if err := a.health.BackbonePing(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	a.writeJSON(w, code, map[string]any{
		"status":      status,
		"connections": a.health.SessionCount(),
		"timestamp":   time.Now().UTC(),
	})
}

func (a *API) handleListDiscoveries(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			a.writeError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = n
	}
	out, err := a.service.RecentDiscoveries(r.Context(), limit)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) handleCreateDiscovery(w http.ResponseWriter, r *http.Request) {
	var req CreateDiscoveryRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	out, err := a.service.CreateDiscovery(r.Context(), identityFrom(r), &req)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, out)
}

func (a *API) handleListCollections(w http.ResponseWriter, r *http.Request) {
	out, err := a.service.Collections(r.Context(), identityFrom(r).UserID)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var req CreateCollectionRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	out, err := a.service.CreateCollection(r.Context(), identityFrom(r), &req)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, out)
}

func (a *API) handleAddCollectionItem(w http.ResponseWriter, r *http.Request) {
	var req AddCollectionItemRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	collectionID := mux.Vars(r)["id"]
	if err := a.service.AddCollectionItem(r.Context(), collectionID, req.DiscoveryID); err != nil {
		a.serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMorningCoffee(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC().Add(-24 * time.Hour)
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}
	out, err := a.service.MorningCoffee(r.Context(), day)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) handleCollisions(w http.ResponseWriter, r *http.Request) {
	out, err := a.service.RecentCollisions(r.Context())
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) handlePendingGifts(w http.ResponseWriter, r *http.Request) {
	out, err := a.service.PendingGifts(r.Context(), identityFrom(r).UserID)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	var req UploadURLRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	out, err := a.service.UploadURL(r.Context(), &req)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		a.writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return false
	}
	return true
}

func (a *API) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		a.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrNotFound):
		a.writeError(w, http.StatusNotFound, "not found")
	default:
		a.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		a.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (a *API) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error(context.Background(), "failed to encode response", "error", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, code int, message string) {
	a.writeJSON(w, code, map[string]string{"error": message})
}
