package sso

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/idgate/pkg/httputil"
	"github.com/platinummonkey/idgate/pkg/observability"
)

// AdminHandlers manages provider configurations over HTTP. Mounted on the
// internal health/admin port, never on the public listener.
type AdminHandlers struct {
	storage *Storage
	log     *observability.Logger
}

func NewAdminHandlers(storage *Storage, log *observability.Logger) *AdminHandlers {
	return &AdminHandlers{storage: storage, log: log}
}

// Register mounts the provider management routes.
func (h *AdminHandlers) Register(r *mux.Router) {
	r.HandleFunc("/admin/providers", h.List).Methods(http.MethodGet)
	r.HandleFunc("/admin/providers", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/admin/providers/{provider}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/admin/providers/{provider}", h.Update).Methods(http.MethodPut)
	r.HandleFunc("/admin/providers/{provider}", h.Delete).Methods(http.MethodDelete)
}

func (h *AdminHandlers) List(w http.ResponseWriter, r *http.Request) {
	configs, err := h.storage.ListEnabledProviders(r.Context())
	if err != nil {
		h.log.WithError(err).Error("failed to list providers")
		httputil.WriteServiceUnavailable(w, "provider storage unavailable")
		return
	}
	httputil.WriteSuccess(w, configs)
}

func (h *AdminHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var config ProviderConfig
	if !httputil.ParseJSONOrError(w, r, &config) {
		return
	}
	if config.Name == "" || config.IssuerURL == "" || config.ClientID == "" {
		httputil.WriteBadRequest(w, "name, issuer_url and client_id are required")
		return
	}

	if err := h.storage.CreateProvider(r.Context(), &config); err != nil {
		h.log.WithError(err).WithField("provider", config.Name).Error("failed to create provider")
		httputil.WriteConflict(w, "provider could not be created")
		return
	}
	httputil.WriteCreated(w, &config)
}

func (h *AdminHandlers) Get(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "provider")
	if !ok {
		return
	}

	config, err := h.storage.GetProvider(r.Context(), name)
	if errors.Is(err, ErrProviderNotFound) {
		httputil.WriteNotFoundError(w, "provider not found")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("failed to get provider")
		httputil.WriteServiceUnavailable(w, "provider storage unavailable")
		return
	}
	httputil.WriteSuccess(w, config)
}

func (h *AdminHandlers) Update(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "provider")
	if !ok {
		return
	}

	var config ProviderConfig
	if !httputil.ParseJSONOrError(w, r, &config) {
		return
	}
	config.Name = name

	err := h.storage.UpdateProvider(r.Context(), &config)
	if errors.Is(err, ErrProviderNotFound) {
		httputil.WriteNotFoundError(w, "provider not found")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("failed to update provider")
		httputil.WriteServiceUnavailable(w, "provider storage unavailable")
		return
	}
	httputil.WriteSuccess(w, &config)
}

func (h *AdminHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "provider")
	if !ok {
		return
	}

	err := h.storage.DeleteProvider(r.Context(), name)
	if errors.Is(err, ErrProviderNotFound) {
		httputil.WriteNotFoundError(w, "provider not found")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("failed to delete provider")
		httputil.WriteServiceUnavailable(w, "provider storage unavailable")
		return
	}
	httputil.WriteNoContent(w)
}
