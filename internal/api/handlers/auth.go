package handlers

import (
	"net/http"
	"time"

	"github.com/baharkarakas/paycore/internal/api/httpx"
	"github.com/baharkarakas/paycore/internal/auth"
	"github.com/baharkarakas/paycore/internal/middleware"
	"github.com/baharkarakas/paycore/internal/services"
)

type AuthHandler struct {
	TM       *auth.TokenManager
	Accounts *services.AccountService
	AppEnv   string
}

func NewAuthHandler(tm *auth.TokenManager, accounts *services.AccountService, appEnv string) *AuthHandler {
	return &AuthHandler{TM: tm, Accounts: accounts, AppEnv: appEnv}
}

type loginReq struct {
	MerchantID string `json:"merchantId"`
}

type tokenResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

// Login issues a token pair for an existing merchant. Dev only: merchant
// credentials live with the dashboard's identity provider.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.AppEnv != "dev" {
		httpx.WriteError(w, http.StatusNotImplemented, "not_implemented", "login not implemented yet", nil)
		return
	}
	var req loginReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil || req.MerchantID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "merchantId is required", nil)
		return
	}
	if _, err := h.Accounts.GetMerchant(r.Context(), req.MerchantID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.issue(w, req.MerchantID, middleware.RoleMerchant)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request", nil)
		return
	}
	claims, err := h.TM.ParseRefresh(req.RefreshToken)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token", nil)
		return
	}
	h.issue(w, claims.MerchantID, claims.Role)
}

func (h *AuthHandler) issue(w http.ResponseWriter, merchantID, role string) {
	access, refresh, exp, err := h.TM.GeneratePair(merchantID, role)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "token generation failed", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResp{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(time.Until(exp).Truncate(time.Second).Seconds()),
	})
}
