package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/autoparts-storefront/internal/checkout"
	"github.com/fjod/autoparts-storefront/internal/domain"
	"github.com/fjod/autoparts-storefront/internal/session"
)

type CheckoutHandler struct {
	timeout time.Duration
}

func NewCheckoutHandler(timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{timeout: timeout}
}

type SubmitRequestDTO struct {
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
}

type CheckoutViewDTO struct {
	Decision        session.Decision       `json:"decision"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	Cart            session.View           `json:"cart"`
	Status          checkout.Status        `json:"status"`
}

type ConfirmationDTO struct {
	Confirmation domain.Confirmation `json:"confirmation"`
	Redirect     string              `json:"redirect"`
}

type OnlineStartDTO struct {
	Intent domain.PaymentIntent `json:"intent"`
	Status checkout.Status      `json:"status"`
}

type PaymentFailureDTO struct {
	Code      string `json:"code"`
	Reason    string `json:"reason"`
	PaymentID string `json:"paymentId"`
}

// GET /api/v1/checkout
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	sh := getShopper(r.Context())
	user := domain.UserFrom(r.Context())
	respondJSON(w, http.StatusOK, CheckoutViewDTO{
		Decision:        sh.Session.BeginCheckoutAs(user),
		ShippingAddress: session.ShippingDefaultsFor(user),
		Cart:            sh.Session.View(),
		Status:          sh.Checkout.Status(),
	})
}

// POST /api/v1/checkout/cod
func (h *CheckoutHandler) SubmitCOD(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	var req SubmitRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	conf, err := getShopper(r.Context()).Checkout.SubmitCOD(r.Context(), req.ShippingAddress)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, ConfirmationDTO{Confirmation: *conf, Redirect: conf.Redirect()})
}

// POST /api/v1/checkout/online
func (h *CheckoutHandler) StartOnline(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if !requireUser(w, r) {
		return
	}
	var req SubmitRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	orch := getShopper(r.Context()).Checkout
	intent, err := orch.StartOnline(ctx, req.ShippingAddress)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, OnlineStartDTO{Intent: *intent, Status: orch.Status()})
}

// POST /api/v1/checkout/online/verify
func (h *CheckoutHandler) VerifyOnline(w http.ResponseWriter, r *http.Request) {
	var receipt domain.GatewayReceipt
	if err := json.NewDecoder(r.Body).Decode(&receipt); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if receipt.OrderID == "" || receipt.PaymentID == "" || receipt.Signature == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "gateway order id, payment id and signature are required")
		return
	}

	h.complete(w, r, checkout.Succeeded{Receipt: receipt})
}

// POST /api/v1/checkout/online/dismiss
func (h *CheckoutHandler) DismissOnline(w http.ResponseWriter, r *http.Request) {
	h.complete(w, r, checkout.Cancelled{})
}

// POST /api/v1/checkout/online/fail
func (h *CheckoutHandler) FailOnline(w http.ResponseWriter, r *http.Request) {
	var req PaymentFailureDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	h.complete(w, r, checkout.Failed{Code: req.Code, Reason: req.Reason, PaymentID: req.PaymentID})
}

func (h *CheckoutHandler) complete(w http.ResponseWriter, r *http.Request, outcome checkout.Outcome) {
	orch := getShopper(r.Context()).Checkout
	conf, err := orch.CompleteOnline(r.Context(), outcome)
	if errors.Is(err, checkout.ErrPaymentCancelled) {
		respondJSON(w, http.StatusOK, orch.Status())
		return
	}
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, ConfirmationDTO{Confirmation: *conf, Redirect: conf.Redirect()})
}

// POST /api/v1/checkout/acknowledge
func (h *CheckoutHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	orch := getShopper(r.Context()).Checkout
	orch.Acknowledge()
	respondJSON(w, http.StatusOK, orch.Status())
}

// GET /api/v1/session/resume?redirect=
func (h *CheckoutHandler) ResumeAfterLogin(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"redirect": session.ResumeAfterLogin(r.URL.Query().Get("redirect")),
	})
}
