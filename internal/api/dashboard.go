package api

import (
	"net/http"

	"github.com/sokonihq/sokoni/internal/platform/requestctx"
)

func (a *API) handleBuyerDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := a.store.BuyerDashboard(r.Context(), requestctx.UserIDFromContext(r.Context()), a.now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, newBuyerDashboardView(dashboard))
}

func (a *API) handleSellerDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := a.store.SellerDashboard(r.Context(), requestctx.UserIDFromContext(r.Context()), a.now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, newSellerDashboardView(dashboard))
}
