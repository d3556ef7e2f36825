package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"water-delivery/internal/app"
	"water-delivery/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Options configures the HTTP handler.
type Options struct {
	AllowedOrigins []string
	JWTSecret      string
	Logger         *zap.Logger
	// Metrics, when set, is served publicly at /metrics.
	Metrics http.Handler
}

// Handler holds the ApplicationService and the request plumbing shared by all routes.
type Handler struct {
	svc       app.ApplicationService
	jwtSecret string
	log       *zap.Logger
	validate  *validator.Validate
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	h := &Handler{
		svc:       svc,
		jwtSecret: opts.JWTSecret,
		log:       log.Named("http"),
		validate:  newValidator(),
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(h.log))
	r.Use(Recoverer(h.log))
	r.Use(CORS(opts.AllowedOrigins))

	// ── Public ────────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/auth/me", h.me)

		// ── Orders ────────────────────────────────────────────────────────────
		r.Get("/api/orders", h.apiListOrders)
		r.Get("/api/orders/{id}", h.apiGetOrder)
		r.Post("/api/orders/{id}/deliver", h.apiDeliverOrder)
		r.Post("/api/orders/{id}/deliver/preview", h.apiPreviewDelivery)
		r.Post("/api/orders/{id}/cancel", h.apiCancelOrder)

		// ── Clients ───────────────────────────────────────────────────────────
		r.Get("/api/clients/{id}", h.apiGetClient)
		r.With(RequireRole(roleAdmin, roleManager)).Post("/api/clients/{id}/adjustments", h.apiAdjustClient)

		r.Get("/api/payment-types", h.apiListPaymentTypes)
	})

	return r
}

// health returns service status and the loaded company code.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	company, err := h.svc.LoadDefaultCompany(r.Context())
	companyCode := ""
	if err == nil && company != nil {
		companyCode = company.CompanyCode
	}

	type response struct {
		Status  string `json:"status"`
		Company string `json:"company,omitempty"`
	}

	writeJSON(w, response{Status: "ok", Company: companyCode})
}

// pathID parses a positive integer URL parameter. On failure it writes a 400
// naming field and returns false.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param, field string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, param))
	if err != nil || id <= 0 {
		writeDomainError(w, r, h.log, &core.ValidationError{Field: field, Reason: "must be a positive integer"})
		return 0, false
	}
	return id, true
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// decodeAndValidate decodes the body and runs struct validation tags on it.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if !decodeJSON(w, r, v) {
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeDomainError(w, r, h.log, validationError(err))
		return false
	}
	return true
}
