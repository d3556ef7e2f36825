package web

import (
	"net/http"

	"water-delivery/internal/app"

	"github.com/shopspring/decimal"
)

type adjustBody struct {
	BalanceDelta     decimal.Decimal `json:"balance_delta"`
	ReturnablesDelta int             `json:"returnables_delta"`
	Reason           string          `json:"reason" validate:"required,max=500"`
}

// apiGetClient handles GET /api/clients/{id}.
func (h *Handler) apiGetClient(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.pathID(w, r, "id", "client_id")
	if !ok {
		return
	}
	result, err := h.svc.GetClient(r.Context(), authFromContext(r.Context()).CompanyID, clientID)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, result)
}

// apiAdjustClient handles POST /api/clients/{id}/adjustments.
func (h *Handler) apiAdjustClient(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.pathID(w, r, "id", "client_id")
	if !ok {
		return
	}
	var body adjustBody
	if !h.decodeAndValidate(w, r, &body) {
		return
	}
	claims := authFromContext(r.Context())
	result, err := h.svc.AdjustClient(r.Context(), app.AdjustClientRequest{
		CompanyID:        claims.CompanyID,
		ClientID:         clientID,
		BalanceDelta:     body.BalanceDelta,
		ReturnablesDelta: body.ReturnablesDelta,
		Reason:           body.Reason,
		ActorID:          claims.UserID,
	})
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, result)
}

// apiListPaymentTypes handles GET /api/payment-types.
func (h *Handler) apiListPaymentTypes(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListPaymentTypes(r.Context(), authFromContext(r.Context()).CompanyID)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, result)
}
