package handlers

import (
	"net/http"

	"github.com/baharkarakas/paycore/internal/api/httpx"
	"github.com/baharkarakas/paycore/internal/plans"
)

type PlansHandler struct {
	Catalog *plans.Catalog
}

func NewPlansHandler(c *plans.Catalog) *PlansHandler { return &PlansHandler{Catalog: c} }

func (h *PlansHandler) List(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"plans": h.Catalog.List()})
}
