package payments

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/linkfolio/linkfolio/pkg/store"
	"github.com/rs/zerolog"
)

// Result is the body returned to the gateway on success.
type Result struct {
	Status    string `json:"status"`
	Reference string `json:"reference,omitempty"`
}

// Service routes webhooks to gateways and settles checkouts.
type Service struct {
	gateways map[string]Gateway
	store    store.BillingStore
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(billing store.BillingStore, logger zerolog.Logger, gateways ...Gateway) *Service {
	s := &Service{
		gateways: make(map[string]Gateway, len(gateways)),
		store:    billing,
		logger:   logger.With().Str("component", "payments").Logger(),
		now:      time.Now,
	}
	for _, gw := range gateways {
		s.gateways[gw.Name()] = gw
	}
	return s
}

// Gateways returns the configured gateway names, sorted.
func (s *Service) Gateways() []string {
	names := make([]string, 0, len(s.gateways))
	for name := range s.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasGateway reports whether name is configured.
func (s *Service) HasGateway(name string) bool {
	_, ok := s.gateways[name]
	return ok
}

// StartPlanCheckout creates a pending checkout for user buying plan through gateway.
func (s *Service) StartPlanCheckout(ctx context.Context, user *models.User, planID models.PlanID, gateway string) (*models.Checkout, error) {
	if !s.HasGateway(gateway) {
		return nil, apperr.Validation(map[string]string{"gateway": "is not configured"})
	}
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, apperr.Validation(map[string]string{"plan_id": "does not exist"})
	}

	checkout := &models.Checkout{
		UserID:   user.ID,
		Gateway:  gateway,
		Purpose:  models.PurposePlan,
		PlanID:   &plan.ID,
		Amount:   plan.Price,
		Currency: plan.Currency,
	}
	if err := s.store.CreateCheckout(ctx, checkout); err != nil {
		return nil, err
	}
	return checkout, nil
}

// HandleWebhook verifies a callback from gateway and applies it.
//
// Errors carry apperr codes: unknown_gateway, invalid_signature, unknown_checkout,
// amount_mismatch and already_paid.
func (s *Service) HandleWebhook(ctx context.Context, gateway string, header http.Header, body []byte) (*Result, error) {
	gw, ok := s.gateways[gateway]
	if !ok {
		return nil, apperr.New(apperr.CodeUnknownGateway, "unknown gateway "+gateway)
	}

	now := s.now()
	completion, err := gw.ParseWebhook(header, body, now)
	if err != nil {
		return nil, err
	}
	log := s.logger.With().
		Str("gateway", gateway).
		Str("reference", completion.Reference).
		Str("outcome", string(completion.Outcome)).
		Logger()

	if completion.Outcome == OutcomeIgnored {
		log.Debug().Msg("ignoring gateway event")
		return &Result{Status: string(OutcomeIgnored), Reference: completion.Reference}, nil
	}

	checkout, err := s.store.GetCheckoutByReference(ctx, completion.Reference)
	if err != nil {
		return nil, err
	}
	if checkout == nil || checkout.Gateway != gateway {
		return nil, apperr.New(apperr.CodeUnknownCheckout, "no checkout with reference "+completion.Reference)
	}
	if checkout.Status == models.CheckoutPaid {
		log.Warn().Msg("callback for a paid checkout")
		return nil, apperr.New(apperr.CodeAlreadyPaid, "checkout "+checkout.Reference+" is already paid")
	}

	txn := &models.Transaction{
		ExternalID: completion.ExternalID,
		Amount:     completion.Amount,
		Currency:   completion.Currency,
		Payload:    completion.Raw,
	}

	if completion.Outcome == OutcomeFailed {
		if _, err := s.store.FailCheckout(ctx, checkout.Reference, txn); err != nil {
			return nil, err
		}
		log.Info().Msg("checkout failed")
		return &Result{Status: string(OutcomeFailed), Reference: checkout.Reference}, nil
	}

	if completion.Amount != checkout.Amount || !strings.EqualFold(completion.Currency, checkout.Currency) {
		log.Warn().
			Int64("expected", checkout.Amount).
			Int64("got", completion.Amount).
			Str("currency", completion.Currency).
			Msg("amount mismatch")
		return nil, apperr.New(apperr.CodeAmountMismatch, "paid amount does not match checkout")
	}

	if _, err := s.store.CompleteCheckout(ctx, checkout.Reference, txn, now); err != nil {
		return nil, err
	}
	log.Info().Int64("amount", completion.Amount).Msg("checkout paid")
	return &Result{Status: string(OutcomePaid), Reference: checkout.Reference}, nil
}
