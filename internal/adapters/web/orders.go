package web

import (
	"net/http"

	"water-delivery/internal/app"

	"github.com/shopspring/decimal"
)

// deliverBody is the JSON body for delivery and its preview. amount_collected
// accepts a JSON number or string.
type deliverBody struct {
	PaymentTypeID       int             `json:"payment_type_id" validate:"required,gt=0"`
	AmountCollected     decimal.Decimal `json:"amount_collected"`
	ReturnablesReturned int             `json:"returnables_returned" validate:"gte=0"`
}

func (h *Handler) deliverRequest(w http.ResponseWriter, r *http.Request) (app.DeliverOrderRequest, bool) {
	orderID, ok := h.pathID(w, r, "id", "order_id")
	if !ok {
		return app.DeliverOrderRequest{}, false
	}
	var body deliverBody
	if !h.decodeAndValidate(w, r, &body) {
		return app.DeliverOrderRequest{}, false
	}
	return app.DeliverOrderRequest{
		CompanyID:           authFromContext(r.Context()).CompanyID,
		OrderID:             orderID,
		PaymentTypeID:       body.PaymentTypeID,
		AmountCollected:     body.AmountCollected,
		ReturnablesReturned: body.ReturnablesReturned,
	}, true
}

// apiDeliverOrder handles POST /api/orders/{id}/deliver.
func (h *Handler) apiDeliverOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := h.deliverRequest(w, r)
	if !ok {
		return
	}
	result, err := h.svc.DeliverOrder(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, result)
}

// apiPreviewDelivery handles POST /api/orders/{id}/deliver/preview.
func (h *Handler) apiPreviewDelivery(w http.ResponseWriter, r *http.Request) {
	req, ok := h.deliverRequest(w, r)
	if !ok {
		return
	}
	preview, err := h.svc.PreviewDelivery(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, preview)
}

// apiCancelOrder handles POST /api/orders/{id}/cancel.
func (h *Handler) apiCancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathID(w, r, "id", "order_id")
	if !ok {
		return
	}
	result, err := h.svc.CancelOrder(r.Context(), authFromContext(r.Context()).CompanyID, orderID)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, result)
}

// apiGetOrder handles GET /api/orders/{id}.
func (h *Handler) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathID(w, r, "id", "order_id")
	if !ok {
		return
	}
	result, err := h.svc.GetOrder(r.Context(), authFromContext(r.Context()).CompanyID, orderID)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, result)
}

// apiListOrders handles GET /api/orders?status=.
func (h *Handler) apiListOrders(w http.ResponseWriter, r *http.Request) {
	var status *string
	if s := r.URL.Query().Get("status"); s != "" {
		status = &s
	}
	result, err := h.svc.ListOrders(r.Context(), authFromContext(r.Context()).CompanyID, status)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, result)
}
