package linkfolio

import (
	"net/http"

	"github.com/linkfolio/linkfolio/pkg/auth"
	"github.com/linkfolio/linkfolio/pkg/client"
	"github.com/rs/zerolog"
)

func (a *App) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req client.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	session, err := a.auth.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req client.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	session, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromContext(r.Context())
	if err := a.auth.Logout(r.Context(), token.ID); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleMe(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, auth.UserFromContext(r.Context()))
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := client.HealthResponse{
		Status:   "healthy",
		ReadOnly: a.IsReadOnly(),
		Time:     a.now().UTC(),
	}
	status := http.StatusOK
	if err := a.raw.Ping(r.Context()); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("database ping failed")
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}

func (a *App) handleGetMaintenance(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, client.Maintenance{ReadOnly: a.IsReadOnly()})
}

func (a *App) handleSetMaintenance(w http.ResponseWriter, r *http.Request) {
	var req client.Maintenance
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	a.SetReadOnly(req.ReadOnly)
	respondJSON(w, http.StatusOK, client.Maintenance{ReadOnly: a.IsReadOnly()})
}
