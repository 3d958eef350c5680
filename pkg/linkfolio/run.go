package linkfolio

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

const shutdownTimeout = 5 * time.Second

// Handler returns the HTTP handler serving the whole API.
func (a *App) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(a.instrument)

	router.HandleFunc("/health", a.handleHealth).Methods("GET")
	if a.files != nil {
		router.PathPrefix("/media/").Handler(http.StripPrefix("/media", a.files)).Methods("GET", "HEAD")
	}

	api := router.PathPrefix("/api").Subrouter()

	// Public routes
	api.HandleFunc("/health", a.handleHealth).Methods("GET")
	api.HandleFunc("/auth/register", a.handleRegister).Methods("POST")
	api.HandleFunc("/auth/login", a.handleLogin).Methods("POST")
	api.HandleFunc("/plans", a.handleListPlans).Methods("GET")
	api.HandleFunc("/themes", a.handleListThemes).Methods("GET")
	api.HandleFunc("/webhooks/{gateway}", a.handleWebhook).Methods("POST")

	api.HandleFunc("/public/sites/{slug}", a.handlePublicSite).Methods("GET")
	api.HandleFunc("/public/sites/{slug}/products", a.handlePublicProducts).Methods("GET")
	api.HandleFunc("/public/sites/{slug}/clicks", a.handleRecordClick).Methods("POST")
	api.HandleFunc("/public/sites/{slug}/orders", a.handlePublicOrder).Methods("POST")
	api.HandleFunc("/public/booking-services/{id}/bookings", a.handlePublicBooking).Methods("POST")

	// Browsers cannot set headers on websocket requests, so the builder socket authenticates
	// with a token query parameter.
	api.HandleFunc("/sites/{id}/builder/ws", a.handleBuilderSocket).Methods("GET")

	// Authenticated routes
	priv := api.NewRoute().Subrouter()
	priv.Use(a.requireAuth)

	priv.HandleFunc("/auth/logout", a.handleLogout).Methods("POST")
	priv.HandleFunc("/auth/me", a.handleMe).Methods("GET")

	priv.HandleFunc("/sites", a.handleListSites).Methods("GET")
	priv.HandleFunc("/sites", a.handleCreateSite).Methods("POST")
	priv.HandleFunc("/sites/{id}", a.handleGetSite).Methods("GET")
	priv.HandleFunc("/sites/{id}", a.handleUpdateSite).Methods("PUT")
	priv.HandleFunc("/sites/{id}", a.handleDeleteSite).Methods("DELETE")
	priv.HandleFunc("/sites/{id}/analytics", a.handleSiteAnalytics).Methods("GET")

	priv.HandleFunc("/sites/{id}/pages", a.handleListPages).Methods("GET")
	priv.HandleFunc("/sites/{id}/pages", a.handleCreatePage).Methods("POST")
	priv.HandleFunc("/pages/{id}", a.handleGetPage).Methods("GET")
	priv.HandleFunc("/pages/{id}", a.handleUpdatePage).Methods("PUT")
	priv.HandleFunc("/pages/{id}", a.handleDeletePage).Methods("DELETE")

	priv.HandleFunc("/pages/{id}/sections", a.handleListSections).Methods("GET")
	priv.HandleFunc("/pages/{id}/sections", a.handleCreateSection).Methods("POST")
	priv.HandleFunc("/pages/{id}/sections/reorder", a.handleReorderSections).Methods("PUT")
	priv.HandleFunc("/sections/{id}", a.handleGetSection).Methods("GET")
	priv.HandleFunc("/sections/{id}", a.handleSaveSection).Methods("PUT")
	priv.HandleFunc("/sections/{id}", a.handleDeleteSection).Methods("DELETE")
	priv.HandleFunc("/sections/{id}/draft", a.handleSectionDraft).Methods("PUT")
	priv.HandleFunc("/sections/{id}/revisions", a.handleListRevisions).Methods("GET")

	priv.HandleFunc("/sections/{id}/items", a.handleCreateItem).Methods("POST")
	priv.HandleFunc("/items/{id}", a.handleUpdateItem).Methods("PUT")
	priv.HandleFunc("/items/{id}", a.handleDeleteItem).Methods("DELETE")

	priv.HandleFunc("/sites/{id}/products", a.handleListProducts).Methods("GET")
	priv.HandleFunc("/sites/{id}/products", a.handleCreateProduct).Methods("POST")
	priv.HandleFunc("/products/{id}", a.handleGetProduct).Methods("GET")
	priv.HandleFunc("/products/{id}", a.handleUpdateProduct).Methods("PUT")
	priv.HandleFunc("/products/{id}", a.handleDeleteProduct).Methods("DELETE")
	priv.HandleFunc("/sites/{id}/orders", a.handleListOrders).Methods("GET")
	priv.HandleFunc("/orders/{id}", a.handleGetOrder).Methods("GET")

	priv.HandleFunc("/audience", a.handleListAudience).Methods("GET")
	priv.HandleFunc("/audience", a.handleCreateAudience).Methods("POST")
	priv.HandleFunc("/audience/{id}", a.handleGetAudience).Methods("GET")
	priv.HandleFunc("/audience/{id}", a.handleUpdateAudience).Methods("PUT")
	priv.HandleFunc("/audience/{id}", a.handleDeleteAudience).Methods("DELETE")

	priv.HandleFunc("/folders", a.handleListFolders).Methods("GET")
	priv.HandleFunc("/folders", a.handleCreateFolder).Methods("POST")
	priv.HandleFunc("/folders/{id}", a.handleGetFolder).Methods("GET")
	priv.HandleFunc("/folders/{id}", a.handleUpdateFolder).Methods("PUT")
	priv.HandleFunc("/folders/{id}", a.handleDeleteFolder).Methods("DELETE")
	priv.HandleFunc("/folders/{id}/members", a.handleListFolderMembers).Methods("GET")
	priv.HandleFunc("/folders/{id}/members/{audienceId}", a.handleAddFolderMember).Methods("PUT")
	priv.HandleFunc("/folders/{id}/members/{audienceId}", a.handleRemoveFolderMember).Methods("DELETE")

	priv.HandleFunc("/booking-services", a.handleListBookingServices).Methods("GET")
	priv.HandleFunc("/booking-services", a.handleCreateBookingService).Methods("POST")
	priv.HandleFunc("/booking-services/{id}", a.handleGetBookingService).Methods("GET")
	priv.HandleFunc("/booking-services/{id}", a.handleUpdateBookingService).Methods("PUT")
	priv.HandleFunc("/booking-services/{id}", a.handleDeleteBookingService).Methods("DELETE")
	priv.HandleFunc("/booking-services/{id}/bookings", a.handleListBookings).Methods("GET")
	priv.HandleFunc("/bookings/{id}/cancel", a.handleCancelBooking).Methods("POST")

	priv.HandleFunc("/checkouts", a.handleCreateCheckout).Methods("POST")
	priv.HandleFunc("/transactions", a.handleListTransactions).Methods("GET")

	priv.HandleFunc("/media", a.handleUploadMedia).Methods("POST")

	admin := priv.PathPrefix("/admin").Subrouter()
	admin.Use(a.requireAdmin)
	admin.HandleFunc("/maintenance", a.handleGetMaintenance).Methods("GET")
	admin.HandleFunc("/maintenance", a.handleSetMaintenance).Methods("POST")

	return router
}

// Run serves the API until ctx is done, then shuts the server down and flushes pending
// section saves.
func (a *App) Run(ctx context.Context, cmd *RunCommand) error {
	server := &http.Server{
		Addr:              a.config.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info().Str("addr", a.config.Addr).Msg("starting linkfolio server")

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		a.autosaver.Flush(shutdownCtx)
		return err
	case err := <-serverErr:
		return err
	}
}
