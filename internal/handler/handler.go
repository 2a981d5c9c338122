package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Dan9191/ledger-monitor/internal/auth"
	"github.com/Dan9191/ledger-monitor/internal/models"
	"github.com/Dan9191/ledger-monitor/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// defaultForecastPeriods is used when the periods query parameter is absent
const defaultForecastPeriods = 12

type Handler struct {
	svc        *service.Service
	runTimeout time.Duration
	log        *logrus.Logger
}

// NewHandler creates the HTTP handlers. Monitoring and forecast requests are bounded by runTimeout.
func NewHandler(svc *service.Service, runTimeout time.Duration, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, runTimeout: runTimeout, log: log}
}

func (h *Handler) runContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.runTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.runTimeout)
}

// Routes registers public and protected routes on r
func (h *Handler) Routes(r *mux.Router, issuer *auth.Issuer) {
	// Public routes
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/registry/companies", h.SearchCompanies).Methods("GET")
	r.HandleFunc("/registry/companies/{businessID}", h.FetchCompanyDetails).Methods("GET")

	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(auth.Middleware(issuer, h.log))
	authRouter.HandleFunc("/monitor", h.Monitor).Methods("POST")
	authRouter.HandleFunc("/financials/{report}", h.Financials).Methods("GET")
	authRouter.HandleFunc("/forecast/{account:[0-9]+}", h.Forecast).Methods("GET")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Error("Failed to encode response")
	}
}

// writeError maps failures to a status and a short message without partial output
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	switch {
	case errors.Is(err, models.ErrCompanyNotFound):
		status, message = http.StatusNotFound, models.ErrCompanyNotFound.Error()
	case errors.Is(err, models.ErrModelUnavailable):
		status, message = http.StatusServiceUnavailable, models.ErrModelUnavailable.Error()
	case errors.Is(err, models.ErrReportNotFound):
		status, message = http.StatusNotFound, models.ErrReportNotFound.Error()
	case errors.Is(err, models.ErrAccountNotTracked):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, models.ErrInsufficientHistory):
		status, message = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, models.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, models.ErrInvalidCredentials.Error()
	case errors.Is(err, models.ErrUnauthorized):
		status, message = http.StatusUnauthorized, models.ErrUnauthorized.Error()
	default:
		h.log.WithError(err).Error("Request failed")
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	token, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Monitor runs monitoring for the caller's company
func (h *Handler) Monitor(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.runContext(r)
	defer cancel()
	report, err := h.svc.Monitor(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// Financials returns a raw report section of the caller's company
func (h *Handler) Financials(w http.ResponseWriter, r *http.Request) {
	sections, err := h.svc.Report(r.Context(), mux.Vars(r)["report"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sections)
}

// Forecast returns history and forecast of one account of the caller's company
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	account, err := strconv.Atoi(mux.Vars(r)["account"])
	if err != nil {
		http.Error(w, "Invalid account", http.StatusBadRequest)
		return
	}
	periods := defaultForecastPeriods
	if p := r.URL.Query().Get("periods"); p != "" {
		periods, err = strconv.Atoi(p)
		if err != nil || periods < 1 || periods > 60 {
			http.Error(w, "Invalid periods", http.StatusBadRequest)
			return
		}
	}
	ctx, cancel := h.runContext(r)
	defer cancel()
	result, err := h.svc.ForecastAccount(ctx, account, periods)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// FetchCompanyDetails returns registry details for a business id
func (h *Handler) FetchCompanyDetails(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.FetchCompanyDetails(r.Context(), mux.Vars(r)["businessID"])
	if err != nil {
		h.log.WithError(err).Warn("Registry lookup failed")
		h.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "registry unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// SearchCompanies searches the registry by keyword
func (h *Handler) SearchCompanies(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	if keyword == "" {
		http.Error(w, "keyword is required", http.StatusBadRequest)
		return
	}
	activeOnly := r.URL.Query().Get("active") != "false"
	result, err := h.svc.SearchCompanies(r.Context(), keyword, activeOnly)
	if err != nil {
		h.log.WithError(err).Warn("Registry search failed")
		h.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "registry unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}
