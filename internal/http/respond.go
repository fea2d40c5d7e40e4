package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/autoparts-storefront/internal/backend"
	"github.com/fjod/autoparts-storefront/internal/cart"
	"github.com/fjod/autoparts-storefront/internal/checkout"
	"github.com/fjod/autoparts-storefront/internal/session"
	"github.com/fjod/autoparts-storefront/internal/shopper"
)

type ErrorResponse struct {
	Error    string            `json:"error"`
	Code     string            `json:"code,omitempty"`
	Details  string            `json:"details,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError maps domain errors to the HTTP error envelope.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr   *checkout.ValidationError
		orderErr        *checkout.OrderError
		paymentErr      *checkout.PaymentFailedError
		verificationErr *checkout.VerificationError
		apiErr          *backend.APIError
	)

	switch {
	case errors.As(err, &validationErr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "please correct the highlighted fields",
			Code:   "validation_failed",
			Fields: validationErr.Fields,
		})
	case errors.Is(err, checkout.ErrEmptyCart):
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:    err.Error(),
			Code:     "empty_cart",
			Redirect: session.PathStorefront,
		})
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		respondError(w, http.StatusConflict, "checkout_in_progress", err.Error())
	case errors.Is(err, checkout.ErrUnresolvedPayment):
		respondError(w, http.StatusConflict, "unresolved_payment", err.Error())
	case errors.Is(err, checkout.ErrNoPendingPayment):
		respondError(w, http.StatusConflict, "no_pending_payment", err.Error())
	case errors.Is(err, checkout.ErrPaymentCancelled):
		respondError(w, http.StatusConflict, "payment_cancelled", err.Error())
	case errors.Is(err, checkout.ErrGatewayUnavailable):
		respondError(w, http.StatusServiceUnavailable, "gateway_unavailable", err.Error())
	case errors.As(err, &verificationErr):
		respondJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   verificationErr.Error(),
			Code:    "verification_failed",
			Details: verificationErr.PaymentID,
		})
	case errors.As(err, &paymentErr):
		respondJSON(w, http.StatusPaymentRequired, ErrorResponse{
			Error:   paymentErr.Error(),
			Code:    "payment_failed",
			Details: paymentErr.Code,
		})
	case errors.Is(err, backend.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "backend_unavailable", "order service is temporarily unavailable, please try again")
	case errors.As(err, &orderErr):
		details := ""
		if errors.As(err, &apiErr) {
			details = apiErr.Message
		}
		respondJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   "your order could not be placed, please try again",
			Code:    "order_failed",
			Details: details,
		})
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrInvalidProduct):
		respondError(w, http.StatusBadRequest, "invalid_item", err.Error())
	case errors.Is(err, session.ErrPersist):
		respondError(w, http.StatusServiceUnavailable, "storage_unavailable", "your cart change could not be saved")
	case errors.Is(err, shopper.ErrClosed):
		respondError(w, http.StatusServiceUnavailable, "shutting_down", err.Error())
	default:
		slog.ErrorContext(r.Context(), "unhandled error", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
