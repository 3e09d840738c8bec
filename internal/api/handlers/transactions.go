package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/paycore/internal/api/httpx"
	"github.com/baharkarakas/paycore/internal/api/validate"
	"github.com/baharkarakas/paycore/internal/models"
	"github.com/baharkarakas/paycore/internal/services"
)

type TransactionHandler struct {
	Ledger      *services.LedgerService
	PublicURL   string
	CheckoutTTL time.Duration
}

func NewTransactionHandler(ledger *services.LedgerService, publicURL string, checkoutTTL time.Duration) *TransactionHandler {
	return &TransactionHandler{Ledger: ledger, PublicURL: strings.TrimRight(publicURL, "/"), CheckoutTTL: checkoutTTL}
}

func (h *TransactionHandler) checkoutURL(id string) string {
	return h.PublicURL + "/pay/" + id
}

type createTxnReq struct {
	Amount      models.Money           `json:"amount"`
	Description string                 `json:"description"`
	MerchantID  string                 `json:"merchantId,omitempty"`
	Type        models.TransactionType `json:"type,omitempty"`
	PlanID      string                 `json:"planId,omitempty"`
}

type createTxnResp struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId"`
	CheckoutURL   string `json:"checkoutUrl"`
}

// CreateExternal records a payment intent on behalf of a trusted backend.
func (h *TransactionHandler) CreateExternal(w http.ResponseWriter, r *http.Request) {
	var req createTxnReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}
	if errs := validate.Collect(
		validate.MinInt("amount", int64(req.Amount), 1),
		validate.MaxLen("description", req.Description, 500),
	); errs != nil {
		writeInvalid(w, errs)
		return
	}
	tx, err := h.Ledger.CreateTransaction(r.Context(), services.NewTransaction{
		Amount:      req.Amount,
		Description: req.Description,
		MerchantID:  req.MerchantID,
		Type:        req.Type,
		PlanID:      req.PlanID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, createTxnResp{
		Success:       true,
		TransactionID: tx.ID,
		CheckoutURL:   h.checkoutURL(tx.ID),
	})
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Ledger.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tx)
}

// Expire is called by the checkout page when its countdown runs out.
func (h *TransactionHandler) Expire(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Ledger.Expire(r.Context(), chi.URLParam(r, "id"), h.CheckoutTTL)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tx)
}
