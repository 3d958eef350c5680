// Package client is a Go client for the linkfolio REST API.
//
//	c := client.NewClient("http://localhost:8080")
//	if _, err := c.Login(ctx, "ada@example.com", "correct horse"); err != nil {
//		return err
//	}
//	site, err := c.CreateSite(ctx, client.CreateSiteRequest{Name: "Ada", Theme: "minimal"})
//
// Failed requests return an *APIError carrying the HTTP status and the server's error code.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/linkfolio/linkfolio/pkg/models"
)

// APIError is a non-2xx response.
type APIError struct {
	Status int               `json:"-"`
	Code   string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("API error: status=%d, code=%s, fields=%v", e.Status, e.Code, e.Fields)
	}
	return fmt.Sprintf("API error: status=%d, code=%s", e.Status, e.Code)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
	language   string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) SetAuthToken(token string) {
	c.authToken = token
}

func (c *Client) AuthToken() string {
	return c.authToken
}

// SetLanguage sets the Accept-Language header, which selects how prices are formatted.
func (c *Client) SetLanguage(lang string) {
	c.language = lang
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	if c.language != "" {
		req.Header.Set("Accept-Language", c.language)
	}
	return c.httpClient.Do(req)
}

func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// call sends a JSON request and decodes the JSON response into a new T.
func call[T any](ctx context.Context, c *Client, method, path string, body any) (*T, error) {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	var result T
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// send is call for endpoints answering 204.
func (c *Client) send(ctx context.Context, method, path string, body any) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	return decodeResponse(resp, nil)
}

func list[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	result, err := call[[]T](ctx, c, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return *result, nil
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	return call[HealthResponse](ctx, c, http.MethodGet, "/health", nil)
}

func (c *Client) ListThemes(ctx context.Context) ([]map[string]any, error) {
	return list[map[string]any](ctx, c, "/api/themes")
}

// Site operations

func (c *Client) CreateSite(ctx context.Context, req CreateSiteRequest) (*models.Site, error) {
	return call[models.Site](ctx, c, http.MethodPost, "/api/sites", req)
}

func (c *Client) GetSite(ctx context.Context, id models.SiteID) (*models.Site, error) {
	return call[models.Site](ctx, c, http.MethodGet, fmt.Sprintf("/api/sites/%s", id), nil)
}

func (c *Client) UpdateSite(ctx context.Context, id models.SiteID, req UpdateSiteRequest) (*models.Site, error) {
	return call[models.Site](ctx, c, http.MethodPut, fmt.Sprintf("/api/sites/%s", id), req)
}

func (c *Client) DeleteSite(ctx context.Context, id models.SiteID) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/sites/%s", id), nil)
}

func (c *Client) ListSites(ctx context.Context) ([]*models.Site, error) {
	return list[*models.Site](ctx, c, "/api/sites")
}

// Page operations

func (c *Client) CreatePage(ctx context.Context, siteID models.SiteID, req PageRequest) (*models.Page, error) {
	return call[models.Page](ctx, c, http.MethodPost, fmt.Sprintf("/api/sites/%s/pages", siteID), req)
}

func (c *Client) GetPage(ctx context.Context, id models.PageID) (*models.Page, error) {
	return call[models.Page](ctx, c, http.MethodGet, fmt.Sprintf("/api/pages/%s", id), nil)
}

func (c *Client) UpdatePage(ctx context.Context, id models.PageID, req PageRequest) (*models.Page, error) {
	return call[models.Page](ctx, c, http.MethodPut, fmt.Sprintf("/api/pages/%s", id), req)
}

func (c *Client) DeletePage(ctx context.Context, id models.PageID) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/pages/%s", id), nil)
}

func (c *Client) ListPages(ctx context.Context, siteID models.SiteID) ([]*models.Page, error) {
	return list[*models.Page](ctx, c, fmt.Sprintf("/api/sites/%s/pages", siteID))
}

// Section operations

func (c *Client) CreateSection(ctx context.Context, pageID models.PageID, req SectionRequest) (*models.Section, error) {
	return call[models.Section](ctx, c, http.MethodPost, fmt.Sprintf("/api/pages/%s/sections", pageID), req)
}

func (c *Client) GetSection(ctx context.Context, id models.SectionID) (*models.Section, error) {
	return call[models.Section](ctx, c, http.MethodGet, fmt.Sprintf("/api/sections/%s", id), nil)
}

// SaveSection writes a whole-section snapshot immediately.
func (c *Client) SaveSection(ctx context.Context, section *models.Section) (*models.Section, error) {
	return call[models.Section](ctx, c, http.MethodPut, fmt.Sprintf("/api/sections/%s", section.ID), section)
}

// SaveDraft queues a whole-section snapshot for debounced saving.
func (c *Client) SaveDraft(ctx context.Context, section *models.Section) (*DraftResponse, error) {
	return call[DraftResponse](ctx, c, http.MethodPut, fmt.Sprintf("/api/sections/%s/draft", section.ID), section)
}

func (c *Client) DeleteSection(ctx context.Context, id models.SectionID) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/sections/%s", id), nil)
}

func (c *Client) ListSections(ctx context.Context, pageID models.PageID) ([]*models.Section, error) {
	return list[*models.Section](ctx, c, fmt.Sprintf("/api/pages/%s/sections", pageID))
}

func (c *Client) ReorderSections(ctx context.Context, pageID models.PageID, ids []models.SectionID) ([]*models.Section, error) {
	result, err := call[[]*models.Section](ctx, c, http.MethodPut, fmt.Sprintf("/api/pages/%s/sections/reorder", pageID), ReorderRequest{IDs: ids})
	if err != nil {
		return nil, err
	}
	return *result, nil
}

func (c *Client) ListRevisions(ctx context.Context, sectionID models.SectionID, limit int) ([]*models.SectionRevision, error) {
	return list[*models.SectionRevision](ctx, c, fmt.Sprintf("/api/sections/%s/revisions?limit=%d", sectionID, limit))
}

func (c *Client) CreateItem(ctx context.Context, sectionID models.SectionID, req ItemRequest) (*models.SectionItem, error) {
	return call[models.SectionItem](ctx, c, http.MethodPost, fmt.Sprintf("/api/sections/%s/items", sectionID), req)
}

func (c *Client) UpdateItem(ctx context.Context, id models.SectionItemID, req ItemRequest) (*models.SectionItem, error) {
	return call[models.SectionItem](ctx, c, http.MethodPut, fmt.Sprintf("/api/items/%s", id), req)
}

func (c *Client) DeleteItem(ctx context.Context, id models.SectionItemID) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/items/%s", id), nil)
}

// BuilderSocketURL returns the websocket URL of a site's builder channel, authenticated with
// the current token.
func (c *Client) BuilderSocketURL(siteID models.SiteID) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = fmt.Sprintf("/api/sites/%s/builder/ws", siteID)
	u.RawQuery = url.Values{"token": {c.authToken}}.Encode()
	return u.String(), nil
}

// Public operations

func (c *Client) GetPublicSite(ctx context.Context, slug string) (*models.Site, error) {
	return call[models.Site](ctx, c, http.MethodGet, "/api/public/sites/"+url.PathEscape(slug), nil)
}

func (c *Client) ListPublicProducts(ctx context.Context, slug string) ([]Product, error) {
	return list[Product](ctx, c, "/api/public/sites/"+url.PathEscape(slug)+"/products")
}

func (c *Client) RecordClick(ctx context.Context, slug string, itemID models.SectionItemID) error {
	return c.send(ctx, http.MethodPost, "/api/public/sites/"+url.PathEscape(slug)+"/clicks", ClickRequest{ItemID: itemID})
}

func (c *Client) PlaceOrder(ctx context.Context, slug string, req OrderRequest) (*OrderResponse, error) {
	return call[OrderResponse](ctx, c, http.MethodPost, "/api/public/sites/"+url.PathEscape(slug)+"/orders", req)
}

func (c *Client) Book(ctx context.Context, serviceID models.BookingServiceID, req BookingRequest) (*models.Booking, error) {
	return call[models.Booking](ctx, c, http.MethodPost, fmt.Sprintf("/api/public/booking-services/%s/bookings", serviceID), req)
}

// Commerce operations

func (c *Client) CreateProduct(ctx context.Context, siteID models.SiteID, req ProductRequest) (*Product, error) {
	return call[Product](ctx, c, http.MethodPost, fmt.Sprintf("/api/sites/%s/products", siteID), req)
}

func (c *Client) GetProduct(ctx context.Context, id models.ProductID) (*Product, error) {
	return call[Product](ctx, c, http.MethodGet, fmt.Sprintf("/api/products/%s", id), nil)
}

func (c *Client) UpdateProduct(ctx context.Context, id models.ProductID, req ProductRequest) (*Product, error) {
	return call[Product](ctx, c, http.MethodPut, fmt.Sprintf("/api/products/%s", id), req)
}

func (c *Client) DeleteProduct(ctx context.Context, id models.ProductID) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/products/%s", id), nil)
}

func (c *Client) ListProducts(ctx context.Context, siteID models.SiteID) ([]Product, error) {
	return list[Product](ctx, c, fmt.Sprintf("/api/sites/%s/products", siteID))
}

func (c *Client) ListOrders(ctx context.Context, siteID models.SiteID) ([]*models.Order, error) {
	return list[*models.Order](ctx, c, fmt.Sprintf("/api/sites/%s/orders", siteID))
}

func (c *Client) GetOrder(ctx context.Context, id models.OrderID) (*models.Order, error) {
	return call[models.Order](ctx, c, http.MethodGet, fmt.Sprintf("/api/orders/%s", id), nil)
}

// Audience operations

func (c *Client) CreateAudience(ctx context.Context, req AudienceRequest) (*models.Audience, error) {
	return call[models.Audience](ctx, c, http.MethodPost, "/api/audience", req)
}

func (c *Client) GetAudience(ctx context.Context, id models.AudienceID) (*models.Audience, error) {
	return call[models.Audience](ctx, c, http.MethodGet, fmt.Sprintf("/api/audience/%s", id), nil)
}

func (c *Client) UpdateAudience(ctx context.Context, id models.AudienceID, req AudienceRequest) (*models.Audience, error) {
	return call[models.Audience](ctx, c, http.MethodPut, fmt.Sprintf("/api/audience/%s", id), req)
}

func (c *Client) DeleteAudience(ctx context.Context, id models.AudienceID) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/audience/%s", id), nil)
}

func (c *Client) ListAudience(ctx context.Context) ([]*models.Audience, error) {
	return list[*models.Audience](ctx, c, "/api/audience")
}

func (c *Client) CreateFolder(ctx context.Context, name string) (*Folder, error) {
	return call[Folder](ctx, c, http.MethodPost, "/api/folders", FolderRequest{Name: name})
}

func (c *Client) GetFolder(ctx context.Context, id models.FolderID) (*Folder, error) {
	return call[Folder](ctx, c, http.MethodGet, fmt.Sprintf("/api/folders/%s", id), nil)
}

func (c *Client) RenameFolder(ctx context.Context, id models.FolderID, name string) (*Folder, error) {
	return call[Folder](ctx, c, http.MethodPut, fmt.Sprintf("/api/folders/%s", id), FolderRequest{Name: name})
}

func (c *Client) DeleteFolder(ctx context.Context, id models.FolderID) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/folders/%s", id), nil)
}

func (c *Client) ListFolders(ctx context.Context) ([]Folder, error) {
	return list[Folder](ctx, c, "/api/folders")
}

func (c *Client) AddFolderMember(ctx context.Context, folderID models.FolderID, audienceID models.AudienceID) error {
	return c.send(ctx, http.MethodPut, fmt.Sprintf("/api/folders/%s/members/%s", folderID, audienceID), nil)
}

func (c *Client) RemoveFolderMember(ctx context.Context, folderID models.FolderID, audienceID models.AudienceID) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/folders/%s/members/%s", folderID, audienceID), nil)
}

func (c *Client) ListFolderMembers(ctx context.Context, folderID models.FolderID) ([]*models.Audience, error) {
	return list[*models.Audience](ctx, c, fmt.Sprintf("/api/folders/%s/members", folderID))
}

// Booking operations

func (c *Client) CreateBookingService(ctx context.Context, req BookingServiceRequest) (*models.BookingService, error) {
	return call[models.BookingService](ctx, c, http.MethodPost, "/api/booking-services", req)
}

func (c *Client) UpdateBookingService(ctx context.Context, id models.BookingServiceID, req BookingServiceRequest) (*models.BookingService, error) {
	return call[models.BookingService](ctx, c, http.MethodPut, fmt.Sprintf("/api/booking-services/%s", id), req)
}

func (c *Client) DeleteBookingService(ctx context.Context, id models.BookingServiceID) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/booking-services/%s", id), nil)
}

func (c *Client) ListBookingServices(ctx context.Context) ([]*models.BookingService, error) {
	return list[*models.BookingService](ctx, c, "/api/booking-services")
}

func (c *Client) ListBookings(ctx context.Context, serviceID models.BookingServiceID) ([]*models.Booking, error) {
	return list[*models.Booking](ctx, c, fmt.Sprintf("/api/booking-services/%s/bookings", serviceID))
}

func (c *Client) CancelBooking(ctx context.Context, id models.BookingID) (*models.Booking, error) {
	return call[models.Booking](ctx, c, http.MethodPost, fmt.Sprintf("/api/bookings/%s/cancel", id), nil)
}

// Billing operations

func (c *Client) ListPlans(ctx context.Context) ([]Plan, error) {
	return list[Plan](ctx, c, "/api/plans")
}

func (c *Client) StartCheckout(ctx context.Context, planID models.PlanID, gateway string) (*models.Checkout, error) {
	return call[models.Checkout](ctx, c, http.MethodPost, "/api/checkouts", CheckoutRequest{PlanID: planID, Gateway: gateway})
}

func (c *Client) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	return list[*models.Transaction](ctx, c, "/api/transactions")
}

// Media and analytics

// UploadMedia sends data as the multipart "file" field.
func (c *Client) UploadMedia(ctx context.Context, filename string, data []byte) (*MediaObject, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/media", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var result MediaObject
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SiteAnalytics summarises a site's visits and clicks. Zero bounds select the server defaults.
func (c *Client) SiteAnalytics(ctx context.Context, siteID models.SiteID, since, until time.Time) (*AnalyticsSummary, error) {
	q := url.Values{}
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339))
	}
	if !until.IsZero() {
		q.Set("until", until.UTC().Format(time.RFC3339))
	}
	path := fmt.Sprintf("/api/sites/%s/analytics", siteID)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return call[AnalyticsSummary](ctx, c, http.MethodGet, path, nil)
}

// Maintenance operations, admin only.

func (c *Client) GetMaintenance(ctx context.Context) (*Maintenance, error) {
	return call[Maintenance](ctx, c, http.MethodGet, "/api/admin/maintenance", nil)
}

func (c *Client) SetMaintenance(ctx context.Context, readOnly bool) (*Maintenance, error) {
	return call[Maintenance](ctx, c, http.MethodPost, "/api/admin/maintenance", Maintenance{ReadOnly: readOnly})
}
