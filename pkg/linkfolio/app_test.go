package linkfolio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/linkfolio/linkfolio/pkg/analytics"
	"github.com/linkfolio/linkfolio/pkg/catalog"
	"github.com/linkfolio/linkfolio/pkg/client"
	"github.com/linkfolio/linkfolio/pkg/config"
	"github.com/linkfolio/linkfolio/pkg/media"
	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/linkfolio/linkfolio/pkg/payments"
	"github.com/linkfolio/linkfolio/pkg/store/gormstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testAutosaveDelay = 200 * time.Millisecond
	testAdminEmail    = "ops@example.com"
	testPassword      = "correct horse battery"
	stripeSecret      = "whsec_test_secret"
)

type testEnv struct {
	app    *App
	server *httptest.Server
	stripe *payments.Stripe
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	cfg, err := config.LoadFrom(map[string]string{
		"LINKFOLIO_APP_KEY":                strings.Repeat("k", 32),
		"LINKFOLIO_AUTOSAVE_DELAY":         testAutosaveDelay.String(),
		"LINKFOLIO_ADMIN_EMAILS":           testAdminEmail,
		"LINKFOLIO_ANALYTICS_PATH":         filepath.Join(dir, "analytics.db"),
		"LINKFOLIO_PAYMENTS_STRIPE_SECRET": stripeSecret,
	})
	require.NoError(t, err)

	st, err := gormstore.Open(gormstore.DriverSQLite,
		"file:"+filepath.Join(dir, "linkfolio.db")+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite")
	require.NoError(t, err)

	rec, err := analytics.OpenSQLite(cfg.Analytics.Path)
	require.NoError(t, err)

	stripe := payments.NewStripe(stripeSecret)
	app, err := New(ctx, cfg, zerolog.Nop(), Dependencies{
		Store:     st,
		Storage:   media.NewMemStorage("/media"),
		Analytics: rec,
		Catalog:   catalog.Default(),
		Gateways:  []payments.Gateway{stripe},
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, app.Close()) })

	require.NoError(t, app.Migrate(ctx, &MigrateCommand{}))

	server := httptest.NewServer(app.Handler())
	t.Cleanup(server.Close)

	return &testEnv{app: app, server: server, stripe: stripe}
}

func (e *testEnv) db() *gorm.DB {
	return e.app.raw.(*gormstore.Store).DB()
}

// newUser registers a fresh account and returns a client authenticated as it.
func (e *testEnv) newUser(t *testing.T, email string) *client.Client {
	t.Helper()
	c := client.NewClient(e.server.URL)
	_, err := c.Register(context.Background(), email, testPassword, strings.Split(email, "@")[0])
	require.NoError(t, err)
	return c
}

type siteFixture struct {
	site *models.Site
	home *models.Page
}

// publishedSite creates a published site and returns it with its home page.
func publishedSite(t *testing.T, c *client.Client, slug string) (*siteFixture, error) {
	t.Helper()
	ctx := context.Background()

	site, err := c.CreateSite(ctx, client.CreateSiteRequest{Name: slug, Slug: slug, Theme: "minimal"})
	if err != nil {
		return nil, err
	}
	published := true
	if site, err = c.UpdateSite(ctx, site.ID, client.UpdateSiteRequest{Published: &published}); err != nil {
		return nil, err
	}
	pages, err := c.ListPages(ctx, site.ID)
	if err != nil {
		return nil, err
	}
	return &siteFixture{site: site, home: pages[0]}, nil
}

func requireAPIError(t *testing.T, err error, status int, code string) *client.APIError {
	t.Helper()
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr), "expected an API error, got %v", err)
	assert.Equal(t, status, apiErr.Status)
	assert.Equal(t, code, apiErr.Code)
	return apiErr
}

func TestHealth(t *testing.T) {
	env := setupTestApp(t)

	health, err := client.NewClient(env.server.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.False(t, health.ReadOnly)
}

func TestRegisterLoginLogout(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()

	c := env.newUser(t, "ada@example.com")
	me, err := c.GetCurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", me.Email)

	other := client.NewClient(env.server.URL)
	_, err = other.Register(ctx, "ADA@example.com", testPassword, "Ada again")
	requireAPIError(t, err, http.StatusUnprocessableEntity, "validation")

	_, err = other.Login(ctx, "ada@example.com", "wrong password")
	require.Error(t, err)

	_, err = other.Login(ctx, "ada@example.com", testPassword)
	require.NoError(t, err)

	token := c.AuthToken()
	require.NoError(t, c.Logout(ctx))
	c.SetAuthToken(token)
	_, err = c.GetCurrentUser(ctx)
	requireAPIError(t, err, http.StatusUnauthorized, "unauthenticated")

	// The second session is unaffected.
	_, err = other.GetCurrentUser(ctx)
	assert.NoError(t, err)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := setupTestApp(t)

	tests := []struct {
		method, path, auth string
	}{
		{"GET", "/api/sites", ""},
		{"POST", "/api/sites", ""},
		{"GET", "/api/auth/me", "Bearer not-a-token"},
		{"GET", "/api/audience", "Basic dXNlcjpwYXNz"},
		{"POST", "/api/admin/maintenance", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, env.server.URL+tt.path, strings.NewReader("{}"))
			require.NoError(t, err)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.JSONEq(t, `{"error":"unauthenticated"}`, readBody(t, resp))
		})
	}
}

func TestCreateSiteMergesThemeDefaults(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()
	c := env.newUser(t, "ada@example.com")

	site, err := c.CreateSite(ctx, client.CreateSiteRequest{
		Name:     "Ada Lovelace",
		Theme:    "midnight",
		Settings: map[string]any{"accent": "#ff0000", "tagline": "engines"},
	})
	require.NoError(t, err)

	assert.Equal(t, "ada-lovelace", site.Slug)
	assert.False(t, site.Published)
	assert.Equal(t, "#0b1020", site.Settings["background"])
	assert.Equal(t, "space_grotesk", site.Settings["font"])
	assert.Equal(t, "#ff0000", site.Settings["accent"])
	assert.Equal(t, "engines", site.Settings["tagline"])

	pages, err := c.ListPages(ctx, site.ID)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "home", pages[0].Slug)

	_, err = c.CreateSite(ctx, client.CreateSiteRequest{Name: "Copy", Slug: "ada-lovelace", Theme: "minimal"})
	apiErr := requireAPIError(t, err, http.StatusConflict, "conflict")
	assert.Contains(t, apiErr.Fields, "slug")

	_, err = c.CreateSite(ctx, client.CreateSiteRequest{Name: "Nope", Theme: "no-such-theme"})
	apiErr = requireAPIError(t, err, http.StatusUnprocessableEntity, "validation")
	assert.Contains(t, apiErr.Fields, "theme")

	theme := "sunset"
	updated, err := c.UpdateSite(ctx, site.ID, client.UpdateSiteRequest{Theme: &theme})
	require.NoError(t, err)
	assert.Equal(t, "wide", updated.Settings["layout"])
	assert.NotContains(t, updated.Settings, "tagline")
}

func TestDraftsAreCoalescedIntoOneSave(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()
	c := env.newUser(t, "ada@example.com")

	fx, err := publishedSite(t, c, "ada")
	require.NoError(t, err)
	section, err := c.CreateSection(ctx, fx.home.ID, client.SectionRequest{
		Type:    "links",
		Content: map[string]any{"title": "v0"},
		Items:   []client.ItemRequest{{Content: map[string]any{"label": "Blog", "url": "https://ada.example"}}},
	})
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		draft := *section
		draft.Items = nil
		draft.Content = map[string]any{"title": fmt.Sprintf("v%d", i)}
		draft.Position = 42
		resp, err := c.SaveDraft(ctx, &draft)
		require.NoError(t, err)
		assert.Equal(t, "queued", resp.Status)
		assert.Equal(t, testAutosaveDelay.Milliseconds(), resp.DelayMS)
	}

	assert.Eventually(t, func() bool {
		revisions, err := c.ListRevisions(ctx, section.ID, 10)
		return err == nil && len(revisions) == 1
	}, 5*time.Second, 20*time.Millisecond)

	// No further saves arrive after the quiet period.
	time.Sleep(2 * testAutosaveDelay)
	revisions, err := c.ListRevisions(ctx, section.ID, 10)
	require.NoError(t, err)
	require.Len(t, revisions, 1)
	assert.Equal(t, map[string]any{"title": "v5"}, revisions[0].Payload["content"])

	saved, err := c.GetSection(ctx, section.ID)
	require.NoError(t, err)
	assert.Equal(t, "v5", saved.Content["title"])
	assert.Equal(t, section.Position, saved.Position)
	require.Len(t, saved.Items, 1)
	assert.Equal(t, "Blog", saved.Items[0].Content["label"])
}

func TestSaveSectionReplacesItems(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()
	c := env.newUser(t, "ada@example.com")

	fx, err := publishedSite(t, c, "ada")
	require.NoError(t, err)
	section, err := c.CreateSection(ctx, fx.home.ID, client.SectionRequest{
		Type: "links",
		Items: []client.ItemRequest{
			{Content: map[string]any{"label": "One"}},
			{Content: map[string]any{"label": "Two"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, section.Items, 2)

	section.Items = section.Items[1:]
	section.Items[0].Content = map[string]any{"label": "Two, renamed"}
	saved, err := c.SaveSection(ctx, section)
	require.NoError(t, err)
	require.Len(t, saved.Items, 1)

	got, err := c.GetSection(ctx, section.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Two, renamed", got.Items[0].Content["label"])

	got.Items = []*models.SectionItem{}
	saved, err = c.SaveSection(ctx, got)
	require.NoError(t, err)
	assert.Empty(t, saved.Items)
}

func TestReorderSections(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()
	c := env.newUser(t, "ada@example.com")

	fx, err := publishedSite(t, c, "ada")
	require.NoError(t, err)

	first, err := c.CreateSection(ctx, fx.home.ID, client.SectionRequest{Type: "header"})
	require.NoError(t, err)
	second, err := c.CreateSection(ctx, fx.home.ID, client.SectionRequest{Type: "links"})
	require.NoError(t, err)

	sections, err := c.ReorderSections(ctx, fx.home.ID, []models.SectionID{second.ID, first.ID})
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, second.ID, sections[0].ID)
	assert.Equal(t, first.ID, sections[1].ID)

	_, err = c.ReorderSections(ctx, fx.home.ID, []models.SectionID{first.ID, first.ID})
	requireAPIError(t, err, http.StatusUnprocessableEntity, "validation")

	third, err := c.CreateSection(ctx, fx.home.ID, client.SectionRequest{Type: "text"})
	require.NoError(t, err)
	sections, err = c.ReorderSections(ctx, fx.home.ID, []models.SectionID{third.ID})
	require.NoError(t, err)
	require.Len(t, sections, 3)
	for i, want := range []models.SectionID{third.ID, second.ID, first.ID} {
		assert.Equal(t, want, sections[i].ID)
		assert.Equal(t, i, sections[i].Position)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()
	ada := env.newUser(t, "ada@example.com")
	bob := env.newUser(t, "bob@example.com")

	fx, err := publishedSite(t, ada, "ada")
	require.NoError(t, err)
	section, err := ada.CreateSection(ctx, fx.home.ID, client.SectionRequest{Type: "links"})
	require.NoError(t, err)

	_, err = bob.GetSite(ctx, fx.site.ID)
	requireAPIError(t, err, http.StatusNotFound, "not_found")

	name := "stolen"
	_, err = bob.UpdateSite(ctx, fx.site.ID, client.UpdateSiteRequest{Name: &name})
	requireAPIError(t, err, http.StatusNotFound, "not_found")

	_, err = bob.SaveDraft(ctx, section)
	requireAPIError(t, err, http.StatusNotFound, "not_found")

	err = bob.DeleteSection(ctx, section.ID)
	requireAPIError(t, err, http.StatusNotFound, "not_found")

	sites, err := bob.ListSites(ctx)
	require.NoError(t, err)
	assert.Empty(t, sites)

	_, err = ada.GetSection(ctx, section.ID)
	assert.NoError(t, err)
}

func TestMaintenanceMode(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()
	ada := env.newUser(t, "ada@example.com")
	ops := env.newUser(t, testAdminEmail)

	_, err := ada.SetMaintenance(ctx, true)
	requireAPIError(t, err, http.StatusForbidden, "forbidden")

	fx, err := publishedSite(t, ada, "ada")
	require.NoError(t, err)

	state, err := ops.SetMaintenance(ctx, true)
	require.NoError(t, err)
	assert.True(t, state.ReadOnly)

	_, err = ada.CreateSite(ctx, client.CreateSiteRequest{Name: "Second", Theme: "minimal"})
	requireAPIError(t, err, http.StatusServiceUnavailable, "read_only")

	_, err = ada.CreatePage(ctx, fx.site.ID, client.PageRequest{Title: "About"})
	requireAPIError(t, err, http.StatusServiceUnavailable, "read_only")

	// Reads and the public site keep working.
	_, err = ada.GetSite(ctx, fx.site.ID)
	require.NoError(t, err)
	_, err = client.NewClient(env.server.URL).GetPublicSite(ctx, "ada")
	require.NoError(t, err)

	health, err := ada.Health(ctx)
	require.NoError(t, err)
	assert.True(t, health.ReadOnly)

	state, err = ops.SetMaintenance(ctx, false)
	require.NoError(t, err)
	assert.False(t, state.ReadOnly)

	_, err = ada.CreatePage(ctx, fx.site.ID, client.PageRequest{Title: "About"})
	assert.NoError(t, err)
}

func TestPublicSiteAndAnalytics(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()
	ada := env.newUser(t, "ada@example.com")
	visitor := client.NewClient(env.server.URL)

	draft, err := ada.CreateSite(ctx, client.CreateSiteRequest{Name: "Draft", Slug: "draft", Theme: "minimal"})
	require.NoError(t, err)
	_, err = visitor.GetPublicSite(ctx, draft.Slug)
	requireAPIError(t, err, http.StatusNotFound, "not_found")

	fx, err := publishedSite(t, ada, "ada")
	require.NoError(t, err)
	section, err := ada.CreateSection(ctx, fx.home.ID, client.SectionRequest{
		Type:  "links",
		Items: []client.ItemRequest{{Content: map[string]any{"label": "Blog"}}},
	})
	require.NoError(t, err)

	public, err := visitor.GetPublicSite(ctx, "ada")
	require.NoError(t, err)
	require.Len(t, public.Pages, 1)
	require.Len(t, public.Pages[0].Sections, 1)
	assert.Equal(t, section.ID, public.Pages[0].Sections[0].ID)

	itemID := section.Items[0].ID
	require.NoError(t, visitor.RecordClick(ctx, "ada", itemID))
	require.NoError(t, visitor.RecordClick(ctx, "ada", itemID))

	summary, err := ada.SiteAnalytics(ctx, fx.site.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Visits)
	assert.Equal(t, int64(2), summary.Clicks)
	require.Len(t, summary.TopItems, 1)
	assert.Equal(t, itemID, summary.TopItems[0].ItemID)

	other, err := publishedSite(t, ada, "other")
	require.NoError(t, err)
	err = visitor.RecordClick(ctx, other.site.Slug, itemID)
	requireAPIError(t, err, http.StatusNotFound, "not_found")
}

func TestOrderTotalsAreBounded(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()
	ada := env.newUser(t, "ada@example.com")
	buyer := client.NewClient(env.server.URL)

	fx, err := publishedSite(t, ada, "ada")
	require.NoError(t, err)
	cheap, err := ada.CreateProduct(ctx, fx.site.ID, client.ProductRequest{Name: "Sticker", Price: 1000, Currency: "usd"})
	require.NoError(t, err)
	pricey, err := ada.CreateProduct(ctx, fx.site.ID, client.ProductRequest{Name: "Castle", Price: 1 << 62, Currency: "usd"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		product  models.ProductID
		quantity int
	}{
		{"quantity above the limit", cheap.ID, 9223372036854776},
		{"total beyond int64", pricey.ID, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buyer.PlaceOrder(ctx, "ada", client.OrderRequest{
				ProductID: tt.product, Quantity: tt.quantity, Email: "buyer@example.com", Gateway: "stripe",
			})
			apiErr := requireAPIError(t, err, http.StatusUnprocessableEntity, "validation")
			assert.Contains(t, apiErr.Fields, "quantity")
		})
	}

	orders, err := ada.ListOrders(ctx, fx.site.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
	var checkouts int64
	require.NoError(t, env.db().Model(&models.Checkout{}).Count(&checkouts).Error)
	assert.Zero(t, checkouts)

	placed, err := buyer.PlaceOrder(ctx, "ada", client.OrderRequest{
		ProductID: cheap.ID, Quantity: 1000, Email: "buyer@example.com", Gateway: "stripe",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), placed.Order.Amount)
}

func TestOrderWebhookIsSettledOnce(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()
	ada := env.newUser(t, "ada@example.com")
	buyer := client.NewClient(env.server.URL)

	fx, err := publishedSite(t, ada, "ada")
	require.NoError(t, err)
	stock := 3
	product, err := ada.CreateProduct(ctx, fx.site.ID, client.ProductRequest{
		Name: "Zine", Price: 1500, Currency: "usd", Stock: &stock,
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", product.Currency)
	assert.Contains(t, product.PriceDisplay, "15.00")

	_, err = buyer.PlaceOrder(ctx, "ada", client.OrderRequest{
		ProductID: product.ID, Quantity: 5, Email: "buyer@example.com", Gateway: "stripe",
	})
	requireAPIError(t, err, http.StatusUnprocessableEntity, "validation")

	placed, err := buyer.PlaceOrder(ctx, "ada", client.OrderRequest{
		ProductID: product.ID, Quantity: 2, Email: "buyer@example.com", Name: "Buyer", Gateway: "stripe",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3000), placed.Order.Amount)
	require.NotEmpty(t, placed.CheckoutReference)

	body := stripeEvent(placed.CheckoutReference, 3000, "usd")

	resp := env.postWebhook(t, "stripe", body, "t=1,v1=deadbeef")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"invalid_signature"}`, readBody(t, resp))

	resp = env.postWebhook(t, "stripe", body, env.stripe.SignatureHeader(time.Now(), body))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, fmt.Sprintf(`{"status":"paid","reference":%q}`, placed.CheckoutReference), readBody(t, resp))

	order, err := ada.GetOrder(ctx, placed.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, "paid", string(order.Status))

	resp = env.postWebhook(t, "stripe", body, env.stripe.SignatureHeader(time.Now(), body))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.JSONEq(t, `{"error":"already_paid"}`, readBody(t, resp))

	resp = env.postWebhook(t, "bitcoin", body, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// The buyer was collected into the owner's audience.
	contacts, err := ada.ListAudience(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "buyer@example.com", contacts[0].Email)
}

func TestPlanCheckout(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()
	ada := env.newUser(t, "ada@example.com")

	plans, err := ada.ListPlans(ctx)
	require.NoError(t, err)
	var pro *client.Plan
	for i := range plans {
		if plans[i].Slug == "pro" {
			pro = &plans[i]
		}
	}
	require.NotNil(t, pro)
	assert.Contains(t, pro.PriceDisplay, "9.00")

	checkout, err := ada.StartCheckout(ctx, pro.ID, "stripe")
	require.NoError(t, err)
	assert.Equal(t, int64(900), checkout.Amount)

	body := stripeEvent(checkout.Reference, 900, "usd")
	resp := env.postWebhook(t, "stripe", body, env.stripe.SignatureHeader(time.Now(), body))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	me, err := ada.GetCurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, me.PlanID)
	assert.Equal(t, pro.ID, *me.PlanID)
	require.NotNil(t, me.PlanExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *me.PlanExpiresAt, time.Minute)

	txs, err := ada.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(900), txs[0].Amount)
}

func TestDeleteFolderRemovesMemberships(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()
	ada := env.newUser(t, "ada@example.com")
	bob := env.newUser(t, "bob@example.com")

	grace, err := ada.CreateAudience(ctx, client.AudienceRequest{Name: "Grace", Email: "grace@example.com"})
	require.NoError(t, err)
	alan, err := ada.CreateAudience(ctx, client.AudienceRequest{Name: "Alan", Email: "alan@example.com"})
	require.NoError(t, err)

	_, err = ada.CreateAudience(ctx, client.AudienceRequest{Name: "Grace", Email: "GRACE@example.com"})
	requireAPIError(t, err, http.StatusConflict, "conflict")

	folder, err := ada.CreateFolder(ctx, "Newsletter")
	require.NoError(t, err)
	require.NoError(t, ada.AddFolderMember(ctx, folder.ID, grace.ID))
	require.NoError(t, ada.AddFolderMember(ctx, folder.ID, alan.ID))
	require.NoError(t, ada.AddFolderMember(ctx, folder.ID, alan.ID))

	got, err := ada.GetFolder(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.MemberCount)

	bobContact, err := bob.CreateAudience(ctx, client.AudienceRequest{Name: "Eve", Email: "eve@example.com"})
	require.NoError(t, err)
	err = ada.AddFolderMember(ctx, folder.ID, bobContact.ID)
	requireAPIError(t, err, http.StatusNotFound, "not_found")

	require.NoError(t, ada.DeleteFolder(ctx, folder.ID))

	var rows int64
	require.NoError(t, env.db().Model(&models.FolderMember{}).Where("folder_id = ?", folder.ID).Count(&rows).Error)
	assert.Zero(t, rows)

	contacts, err := ada.ListAudience(ctx)
	require.NoError(t, err)
	assert.Len(t, contacts, 2)
}

func TestBookings(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()
	ada := env.newUser(t, "ada@example.com")
	guest := client.NewClient(env.server.URL)

	svc, err := ada.CreateBookingService(ctx, client.BookingServiceRequest{
		Name: "Consultation", DurationMinutes: 30, Price: 5000, Currency: "eur",
	})
	require.NoError(t, err)
	assert.Equal(t, "EUR", svc.Currency)

	_, err = ada.CreateBookingService(ctx, client.BookingServiceRequest{Name: "Too long", DurationMinutes: 2000})
	requireAPIError(t, err, http.StatusUnprocessableEntity, "validation")

	start := time.Now().Add(24 * time.Hour).Truncate(time.Minute).UTC()
	booking, err := guest.Book(ctx, svc.ID, client.BookingRequest{StartsAt: start, Name: "Grace", Email: "grace@example.com"})
	require.NoError(t, err)
	assert.True(t, booking.EndsAt.Equal(start.Add(30*time.Minute)))

	_, err = guest.Book(ctx, svc.ID, client.BookingRequest{StartsAt: start.Add(15 * time.Minute), Name: "Alan", Email: "alan@example.com"})
	requireAPIError(t, err, http.StatusConflict, "slot_taken")

	_, err = guest.Book(ctx, svc.ID, client.BookingRequest{StartsAt: time.Now().Add(-time.Hour), Name: "Late", Email: "late@example.com"})
	requireAPIError(t, err, http.StatusUnprocessableEntity, "validation")

	cancelled, err := ada.CancelBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", string(cancelled.Status))

	_, err = guest.Book(ctx, svc.ID, client.BookingRequest{StartsAt: start.Add(15 * time.Minute), Name: "Alan", Email: "alan@example.com"})
	require.NoError(t, err)

	bookings, err := ada.ListBookings(ctx, svc.ID)
	require.NoError(t, err)
	assert.Len(t, bookings, 2)

	contacts, err := ada.ListAudience(ctx)
	require.NoError(t, err)
	assert.Len(t, contacts, 2)
}

func TestUploadMedia(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()
	ada := env.newUser(t, "ada@example.com")

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")
	obj, err := ada.UploadMedia(ctx, "avatar.png", png)
	require.NoError(t, err)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.True(t, strings.HasPrefix(obj.URL, "/media/"), obj.URL)

	resp, err := http.Get(env.server.URL + obj.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(png), readBody(t, resp))

	_, err = ada.UploadMedia(ctx, "run.sh", []byte("#!/bin/sh\necho hi\n"))
	requireAPIError(t, err, http.StatusUnsupportedMediaType, "unsupported_media_type")
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func (e *testEnv) postWebhook(t *testing.T, gateway string, body []byte, signature string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/api/webhooks/"+gateway, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(payments.StripeSignatureHeader, signature)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// stripeEvent is a completed checkout session for reference.
func stripeEvent(reference string, amount int64, currency string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_%s",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test",
			"client_reference_id": %q,
			"amount_total": %d,
			"currency": %q,
			"payment_status": "paid"
		}}
	}`, reference, reference, amount, currency))
}
