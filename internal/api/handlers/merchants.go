package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/paycore/internal/api/httpx"
	"github.com/baharkarakas/paycore/internal/api/validate"
	"github.com/baharkarakas/paycore/internal/middleware"
	"github.com/baharkarakas/paycore/internal/models"
	"github.com/baharkarakas/paycore/internal/services"
)

// MerchantHandler serves the authenticated merchant dashboard.
type MerchantHandler struct {
	Accounts  *services.AccountService
	Ledger    *services.LedgerService
	PublicURL string
}

func NewMerchantHandler(accounts *services.AccountService, ledger *services.LedgerService, publicURL string) *MerchantHandler {
	return &MerchantHandler{Accounts: accounts, Ledger: ledger, PublicURL: strings.TrimRight(publicURL, "/")}
}

func merchantFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.MerchantID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "not authenticated", nil)
	}
	return id, ok
}

func (h *MerchantHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := merchantFrom(w, r)
	if !ok {
		return
	}
	m, err := h.Accounts.GetMerchant(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, m)
}

func (h *MerchantHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	id, ok := merchantFrom(w, r)
	if !ok {
		return
	}
	limit, offset := 50, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	txs, err := h.Ledger.ListByMerchant(r.Context(), id, limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"transactions": txs, "limit": limit, "offset": offset})
}

type subscribeReq struct {
	PlanID string `json:"planId"`
}

// Subscribe opens a plan upgrade charge. The plan switches once it is paid.
func (h *MerchantHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	id, ok := merchantFrom(w, r)
	if !ok {
		return
	}
	var req subscribeReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}
	if errs := validate.Collect(validate.Required("planId", req.PlanID)); errs != nil {
		writeInvalid(w, errs)
		return
	}
	tx, err := h.Ledger.CreateSubscriptionCharge(r.Context(), id, strings.ToUpper(req.PlanID))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, createTxnResp{
		Success:       true,
		TransactionID: tx.ID,
		CheckoutURL:   h.PublicURL + "/pay/" + tx.ID,
	})
}

func (h *MerchantHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := merchantFrom(w, r)
	if !ok {
		return
	}
	tx, err := h.Ledger.Cancel(r.Context(), chi.URLParam(r, "id"), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tx)
}

type webhookReq struct {
	URL string `json:"url"`
}

func (h *MerchantHandler) SetWebhook(w http.ResponseWriter, r *http.Request) {
	id, ok := merchantFrom(w, r)
	if !ok {
		return
	}
	var req webhookReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}
	if err := h.Accounts.SetWebhook(r.Context(), id, req.URL); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
