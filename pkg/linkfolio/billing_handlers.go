package linkfolio

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/auth"
	"github.com/linkfolio/linkfolio/pkg/client"
	"github.com/linkfolio/linkfolio/pkg/money"
)

// maxWebhookSize bounds gateway callback bodies.
const maxWebhookSize = 1 << 20

func (a *App) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := a.store.ListPlans(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	tag := money.ParseTag(r.Header.Get("Accept-Language"))
	views := make([]client.Plan, len(plans))
	for i, p := range plans {
		views[i] = client.Plan{Plan: p, PriceDisplay: money.Format(tag, p.Price, p.Currency)}
	}

	respondJSON(w, http.StatusOK, views)
}

func (a *App) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req client.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	var c apperr.Check
	c.Require("plan_id", !req.PlanID.IsZero(), "is required")
	c.Require("gateway", req.Gateway != "", "is required")
	if err := c.Err(); err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	checkout, err := a.payments.StartPlanCheckout(ctx, auth.UserFromContext(ctx), req.PlanID, req.Gateway)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, checkout)
}

func (a *App) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := a.store.ListTransactions(r.Context(), auth.UserFromContext(r.Context()).ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, txs)
}

// handleWebhook settles a checkout from a gateway callback. The body is passed to the gateway
// unparsed because signatures cover the raw bytes.
func (a *App) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = apperr.New(apperr.CodeTooLarge, "webhook body too large")
		}
		respondError(w, r, err)
		return
	}

	result, err := a.payments.HandleWebhook(r.Context(), mux.Vars(r)["gateway"], r.Header, body)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
