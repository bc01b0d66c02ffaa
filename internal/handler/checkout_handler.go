package handler

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"coursecart/internal/model"
	"coursecart/internal/payment"
	"coursecart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// DonationRequest is the body of POST /shoppingcart/donation.
type DonationRequest struct {
	Amount   json.RawMessage `json:"amount"`
	CourseID string          `json:"course_id"`
}

// PaymentResult is returned once a processor callback has been accepted.
type PaymentResult struct {
	OrderID    int64             `json:"order_id"`
	Status     model.OrderStatus `json:"status"`
	ReceiptURL string            `json:"receipt_url"`
}

// PaymentSimulator plays the hosted payment page.
type PaymentSimulator interface {
	Simulate(request map[string]string, decision string) (map[string]string, error)
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head><title>Invoice #{{.OrderID}}</title></head>
<body>
<h1>Invoice #{{.OrderID}}</h1>
<p>Date of purchase: {{.PurchaseDatetime}}</p>
<p>Billed to: {{.BilledTo.FirstName}} {{.BilledTo.LastName}}</p>
<table>
<tr><th>Description</th><th>Quantity</th><th>Unit cost</th><th>Line cost</th></tr>
{{range .Items}}<tr><td>{{.LineDesc}}</td><td>{{.Quantity}}</td><td>{{.UnitCost}}</td><td>{{.LineCost}}</td></tr>
{{end}}</table>
{{if .RegistrationCodes}}<h2>Registration codes</h2>
<ul>{{range .RegistrationCodes}}<li>{{.}}</li>{{end}}</ul>
{{end}}<p>Total: {{.TotalCost}} {{.Currency}}</p>
</body>
</html>
`))

// CheckoutHandler handles payment, receipt and donation HTTP requests.
type CheckoutHandler struct {
	service   service.CheckoutService
	simulator PaymentSimulator
	logger    zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(service service.CheckoutService, simulator PaymentSimulator, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service:   service,
		simulator: simulator,
		logger:    logger.With().Str("handler", "checkout").Logger(),
	}
}

// Checkout handles POST /shoppingcart/checkout.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	var billing model.BillingInfo
	if !decodeJSON(w, r, &billing, h.logger) {
		return
	}

	info, err := h.service.Checkout(r.Context(), p.UserID, billing)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// PostpayCallback handles POST /shoppingcart/postpay_callback. The processor
// posts its signed response as form fields.
func (h *CheckoutHandler) PostpayCallback(w http.ResponseWriter, r *http.Request) {
	params, ok := h.formParams(w, r)
	if !ok {
		return
	}

	order, err := h.service.CompletePayment(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, PaymentResult{
		OrderID:    order.ID,
		Status:     order.Status,
		ReceiptURL: receiptURL(order.ID),
	})
}

// PaymentFake handles POST /shoppingcart/payment_fake. It signs the posted
// request with the decision field (ACCEPT by default) and returns the
// response the client then posts to the callback.
func (h *CheckoutHandler) PaymentFake(w http.ResponseWriter, r *http.Request) {
	params, ok := h.formParams(w, r)
	if !ok {
		return
	}

	decision := params[payment.ParamDecision]
	delete(params, payment.ParamDecision)
	if decision == "" {
		decision = payment.DecisionAccept
	}

	response, err := h.simulator.Simulate(params, decision)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodePaymentRejected, "The payment request could not be verified.", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *CheckoutHandler) formParams(w http.ResponseWriter, r *http.Request) (map[string]string, bool) {
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "invalid form body", h.logger)
		return nil, false
	}

	params := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		params[k] = r.PostForm.Get(k)
	}
	return params, true
}

// Receipt handles GET /shoppingcart/receipt/{order_id}, rendering JSON when
// the client accepts it and HTML otherwise.
func (h *CheckoutHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	orderID, ok := pathID(w, r, chi.URLParam(r, "orderID"), "order ID", h.logger)
	if !ok {
		return
	}

	receipt, err := h.service.Receipt(r.Context(), p.UserID, orderID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, receipt)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := receiptTemplate.Execute(w, receipt); err != nil {
		h.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to render receipt")
	}
}

// Donation handles /shoppingcart/donation. Disabled donations are a 404
// whatever the method or caller.
func (h *CheckoutHandler) Donation(w http.ResponseWriter, r *http.Request) {
	enabled, err := h.service.DonationsEnabled(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	if !enabled {
		writeServiceError(w, r, model.ErrDonationsDisabled, h.logger)
		return
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, model.ErrCodeMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	var req DonationRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	amount := strings.Trim(strings.TrimSpace(string(req.Amount)), `"`)
	info, err := h.service.Donate(r.Context(), p.UserID, amount, req.CourseID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func receiptURL(orderID int64) string {
	return "/shoppingcart/receipt/" + strconv.FormatInt(orderID, 10)
}
