package linkfolio

import (
	"net/http"
	"strings"

	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/client"
	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/linkfolio/linkfolio/pkg/money"
)

// productViews formats prices for the request's Accept-Language.
func (a *App) productViews(r *http.Request, products []*models.Product) []client.Product {
	tag := money.ParseTag(r.Header.Get("Accept-Language"))
	views := make([]client.Product, len(products))
	for i, p := range products {
		views[i] = client.Product{Product: p, PriceDisplay: money.Format(tag, p.Price, p.Currency)}
	}
	return views
}

func (a *App) productView(r *http.Request, p *models.Product) client.Product {
	return a.productViews(r, []*models.Product{p})[0]
}

func applyProduct(p *models.Product, req client.ProductRequest) error {
	name := strings.TrimSpace(req.Name)
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))

	var c apperr.Check
	c.Require("name", name != "", "is required")
	c.Require("price", req.Price >= 0, "must not be negative")
	c.Require("currency", money.ValidCurrency(currency), "must be an ISO 4217 code")
	if req.Stock != nil {
		c.Require("stock", *req.Stock >= 0, "must not be negative")
	}
	if err := c.Err(); err != nil {
		return err
	}

	p.Name = name
	p.Description = req.Description
	p.Price = req.Price
	p.Currency = currency
	p.Stock = req.Stock
	p.Extra = orEmpty(req.Extra)
	return nil
}

func (a *App) handleListProducts(w http.ResponseWriter, r *http.Request) {
	site, err := loadOwned(r, "id", "site", a.store.GetSite)
	if err != nil {
		respondError(w, r, err)
		return
	}

	products, err := a.store.ListProducts(r.Context(), site.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, a.productViews(r, products))
}

func (a *App) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	site, err := loadOwned(r, "id", "site", a.store.GetSite)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req client.ProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	product := &models.Product{UserID: site.UserID, SiteID: site.ID}
	if err := applyProduct(product, req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := a.store.CreateProduct(r.Context(), product); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, a.productView(r, product))
}

func (a *App) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := loadOwned(r, "id", "product", a.store.GetProduct)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, a.productView(r, product))
}

func (a *App) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	product, err := loadOwned(r, "id", "product", a.store.GetProduct)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req client.ProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := applyProduct(product, req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := a.store.UpdateProduct(r.Context(), product); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, a.productView(r, product))
}

func (a *App) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	product, err := loadOwned(r, "id", "product", a.store.GetProduct)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := a.store.DeleteProduct(r.Context(), product.ID); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleListOrders(w http.ResponseWriter, r *http.Request) {
	site, err := loadOwned(r, "id", "site", a.store.GetSite)
	if err != nil {
		respondError(w, r, err)
		return
	}

	orders, err := a.store.ListOrders(r.Context(), site.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, orders)
}

func (a *App) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := loadOwned(r, "id", "order", a.store.GetOrder)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}
