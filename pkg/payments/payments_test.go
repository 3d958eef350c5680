package payments

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/linkfolio/linkfolio/pkg/store/gormstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	stripeSecret   = "whsec_test"
	paystackSecret = "sk_test_paystack"
)

type testEnv struct {
	store    *gormstore.Store
	service  *Service
	stripe   *Stripe
	paystack *Paystack
	user     *models.User
	plan     *models.Plan
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	st, err := gormstore.Open(gormstore.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "payments.db")+"?_time_format=sqlite")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(ctx))

	user := &models.User{Email: "owner@example.com", Name: "Owner", PasswordHash: "x"}
	require.NoError(t, st.CreateUser(ctx, user))
	plan := &models.Plan{Slug: "pro", Name: "Pro", Price: 900, Currency: "USD", IntervalDays: 30}
	require.NoError(t, st.UpsertPlan(ctx, plan))

	stripe, paystack := NewStripe(stripeSecret), NewPaystack(paystackSecret)
	return &testEnv{
		store:    st,
		service:  NewService(st, zerolog.Nop(), stripe, paystack),
		stripe:   stripe,
		paystack: paystack,
		user:     user,
		plan:     plan,
	}
}

func (e *testEnv) checkout(t *testing.T, gateway string) *models.Checkout {
	t.Helper()
	c, err := e.service.StartPlanCheckout(context.Background(), e.user, e.plan.ID, gateway)
	require.NoError(t, err)
	return c
}

func stripeBody(eventType, reference string, amount int64, status string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_%s","type":%q,"data":{"object":{"client_reference_id":%q,"amount_total":%d,"currency":"usd","payment_status":%q}}}`,
		reference, eventType, reference, amount, status))
}

func paystackBody(event, reference string, amount int64, status string) []byte {
	return []byte(fmt.Sprintf(`{"event":%q,"data":{"id":4099260516,"reference":%q,"amount":%d,"currency":"USD","status":%q}}`,
		event, reference, amount, status))
}

func (e *testEnv) stripeHeader(body []byte) http.Header {
	h := http.Header{}
	h.Set(StripeSignatureHeader, e.stripe.SignatureHeader(time.Now(), body))
	return h
}

func (e *testEnv) paystackHeader(body []byte) http.Header {
	h := http.Header{}
	h.Set(PaystackSignatureHeader, e.paystack.Sign(body))
	return h
}

func TestStripeWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("should mark the checkout paid and assign the plan", func(t *testing.T) {
		env := setup(t)
		c := env.checkout(t, "stripe")

		body := stripeBody("checkout.session.completed", c.Reference, 900, "paid")
		res, err := env.service.HandleWebhook(ctx, "stripe", env.stripeHeader(body), body)
		require.NoError(t, err)
		assert.Equal(t, "paid", res.Status)

		got, err := env.store.GetCheckoutByReference(ctx, c.Reference)
		require.NoError(t, err)
		assert.Equal(t, models.CheckoutPaid, got.Status)

		user, err := env.store.GetUser(ctx, env.user.ID)
		require.NoError(t, err)
		require.NotNil(t, user.PlanID)
		assert.Equal(t, env.plan.ID, *user.PlanID)
	})

	t.Run("should reject a valid callback for an already paid checkout", func(t *testing.T) {
		env := setup(t)
		c := env.checkout(t, "stripe")

		body := stripeBody("checkout.session.completed", c.Reference, 900, "paid")
		_, err := env.service.HandleWebhook(ctx, "stripe", env.stripeHeader(body), body)
		require.NoError(t, err)

		_, err = env.service.HandleWebhook(ctx, "stripe", env.stripeHeader(body), body)
		require.ErrorIs(t, err, apperr.ErrAlreadyPaid)

		txns, err := env.store.ListTransactions(ctx, env.user.ID)
		require.NoError(t, err)
		assert.Len(t, txns, 1)
	})

	t.Run("should reject a bad signature", func(t *testing.T) {
		env := setup(t)
		c := env.checkout(t, "stripe")

		body := stripeBody("checkout.session.completed", c.Reference, 900, "paid")
		h := http.Header{}
		h.Set(StripeSignatureHeader, NewStripe("wrong").SignatureHeader(time.Now(), body))
		_, err := env.service.HandleWebhook(ctx, "stripe", h, body)
		require.ErrorIs(t, err, apperr.ErrInvalidSignature)
	})

	t.Run("should reject a stale timestamp", func(t *testing.T) {
		env := setup(t)
		c := env.checkout(t, "stripe")

		body := stripeBody("checkout.session.completed", c.Reference, 900, "paid")
		h := http.Header{}
		h.Set(StripeSignatureHeader, env.stripe.SignatureHeader(time.Now().Add(-10*time.Minute), body))
		_, err := env.service.HandleWebhook(ctx, "stripe", h, body)
		require.ErrorIs(t, err, apperr.ErrInvalidSignature)
	})

	t.Run("should reject a mismatched amount", func(t *testing.T) {
		env := setup(t)
		c := env.checkout(t, "stripe")

		body := stripeBody("checkout.session.completed", c.Reference, 100, "paid")
		_, err := env.service.HandleWebhook(ctx, "stripe", env.stripeHeader(body), body)
		require.ErrorIs(t, err, apperr.ErrAmountMismatch)
	})

	t.Run("should record failures", func(t *testing.T) {
		env := setup(t)
		c := env.checkout(t, "stripe")

		body := stripeBody("checkout.session.async_payment_failed", c.Reference, 900, "unpaid")
		res, err := env.service.HandleWebhook(ctx, "stripe", env.stripeHeader(body), body)
		require.NoError(t, err)
		assert.Equal(t, "failed", res.Status)

		got, err := env.store.GetCheckoutByReference(ctx, c.Reference)
		require.NoError(t, err)
		assert.Equal(t, models.CheckoutFailed, got.Status)
	})

	t.Run("should ignore unrelated events", func(t *testing.T) {
		env := setup(t)

		body := stripeBody("customer.created", "", 0, "")
		res, err := env.service.HandleWebhook(ctx, "stripe", env.stripeHeader(body), body)
		require.NoError(t, err)
		assert.Equal(t, "ignored", res.Status)
	})
}

func TestPaystackWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("should mark the checkout paid", func(t *testing.T) {
		env := setup(t)
		c := env.checkout(t, "paystack")

		body := paystackBody("charge.success", c.Reference, 900, "success")
		res, err := env.service.HandleWebhook(ctx, "paystack", env.paystackHeader(body), body)
		require.NoError(t, err)
		assert.Equal(t, "paid", res.Status)

		_, err = env.service.HandleWebhook(ctx, "paystack", env.paystackHeader(body), body)
		require.ErrorIs(t, err, apperr.ErrAlreadyPaid)
	})

	t.Run("should reject a bad signature", func(t *testing.T) {
		env := setup(t)
		c := env.checkout(t, "paystack")

		body := paystackBody("charge.success", c.Reference, 900, "success")
		h := http.Header{}
		h.Set(PaystackSignatureHeader, "deadbeef")
		_, err := env.service.HandleWebhook(ctx, "paystack", h, body)
		require.ErrorIs(t, err, apperr.ErrInvalidSignature)
	})

	t.Run("should not settle another gateway's checkout", func(t *testing.T) {
		env := setup(t)
		c := env.checkout(t, "stripe")

		body := paystackBody("charge.success", c.Reference, 900, "success")
		_, err := env.service.HandleWebhook(ctx, "paystack", env.paystackHeader(body), body)
		require.ErrorIs(t, err, apperr.ErrUnknownCheckout)
	})
}

func TestUnknownGatewayAndCheckout(t *testing.T) {
	ctx := context.Background()
	env := setup(t)

	_, err := env.service.HandleWebhook(ctx, "paypal", http.Header{}, []byte(`{}`))
	require.ErrorIs(t, err, apperr.ErrUnknownGateway)

	body := stripeBody("checkout.session.completed", "lf_missing", 900, "paid")
	_, err = env.service.HandleWebhook(ctx, "stripe", env.stripeHeader(body), body)
	require.ErrorIs(t, err, apperr.ErrUnknownCheckout)
}

func TestStartPlanCheckoutValidates(t *testing.T) {
	ctx := context.Background()
	env := setup(t)

	_, err := env.service.StartPlanCheckout(ctx, env.user, env.plan.ID, "paypal")
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.service.StartPlanCheckout(ctx, env.user, models.NewPlanID(), "stripe")
	require.ErrorIs(t, err, apperr.ErrValidation)

	assert.Equal(t, []string{"paystack", "stripe"}, env.service.Gateways())
}
