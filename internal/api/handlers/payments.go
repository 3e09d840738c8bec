package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/baharkarakas/paycore/internal/api/httpx"
	"github.com/baharkarakas/paycore/internal/api/validate"
	"github.com/baharkarakas/paycore/internal/models"
	"github.com/baharkarakas/paycore/internal/services"
)

type PaymentHandler struct {
	Settlement *services.SettlementService
	Timeout    time.Duration
}

func NewPaymentHandler(s *services.SettlementService, timeout time.Duration) *PaymentHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PaymentHandler{Settlement: s, Timeout: timeout}
}

type gatewayReq struct {
	TransactionID string `json:"transactionId"`
	CardNumber    string `json:"cardNumber"`
	Expiry        string `json:"expiry"`
	CVV           string `json:"cvv"`
	PIN           string `json:"pin"`
}

type walletReq struct {
	TransactionID string `json:"transactionId"`
	CardNumber    string `json:"cardNumber"`
	PIN           string `json:"pin"`
}

type settleResp struct {
	Success     bool               `json:"success"`
	Message     string             `json:"message"`
	Transaction models.Transaction `json:"transaction"`
}

// Gateway settles from the hosted checkout form: full card entry.
func (h *PaymentHandler) Gateway(w http.ResponseWriter, r *http.Request) {
	var req gatewayReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}
	if errs := validate.Collect(
		validate.Required("transactionId", req.TransactionID),
		validate.Required("cardNumber", req.CardNumber),
		validate.Required("expiry", req.Expiry),
		validate.Required("cvv", req.CVV),
		validate.Digits("pin", req.PIN, 6),
	); errs != nil {
		writeInvalid(w, errs)
		return
	}
	h.settle(w, r, req.TransactionID, services.Credentials{
		CardNumber: req.CardNumber,
		PIN:        req.PIN,
		CVV:        req.CVV,
		Expiry:     req.Expiry,
		Mode:       services.AuthCardEntry,
	})
}

// Wallet settles from the payer's wallet app, which presents the PIN only.
func (h *PaymentHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	var req walletReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}
	if errs := validate.Collect(
		validate.Required("transactionId", req.TransactionID),
		validate.Required("cardNumber", req.CardNumber),
		validate.Digits("pin", req.PIN, 6),
	); errs != nil {
		writeInvalid(w, errs)
		return
	}
	h.settle(w, r, req.TransactionID, services.Credentials{
		CardNumber: req.CardNumber,
		PIN:        req.PIN,
		Mode:       services.AuthWalletPINOnly,
	})
}

func (h *PaymentHandler) settle(w http.ResponseWriter, r *http.Request, txnID string, cred services.Credentials) {
	// a client that hangs up must not abort a settlement mid-flight
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.Timeout)
	defer cancel()

	tx, err := h.Settlement.Settle(ctx, txnID, cred)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, settleResp{Success: true, Message: "Payment successful", Transaction: tx})
}
