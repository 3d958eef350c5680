package linkfolio

import (
	"context"
	"net/http"
	"strings"

	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/auth"
	"github.com/linkfolio/linkfolio/pkg/client"
	"github.com/linkfolio/linkfolio/pkg/models"
)

func applyAudience(contact *models.Audience, req client.AudienceRequest) error {
	email := strings.TrimSpace(req.Email)

	var c apperr.Check
	c.Require("email", validEmail(email), "must be a valid email address")
	if err := c.Err(); err != nil {
		return err
	}

	contact.Name = strings.TrimSpace(req.Name)
	contact.Email = email
	contact.Phone = strings.TrimSpace(req.Phone)
	contact.Extra = orEmpty(req.Extra)
	return nil
}

func (a *App) handleListAudience(w http.ResponseWriter, r *http.Request) {
	contacts, err := a.store.ListAudience(r.Context(), auth.UserFromContext(r.Context()).ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, contacts)
}

func (a *App) handleCreateAudience(w http.ResponseWriter, r *http.Request) {
	var req client.AudienceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	contact := &models.Audience{UserID: auth.UserFromContext(r.Context()).ID}
	if err := applyAudience(contact, req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := a.store.CreateAudience(r.Context(), contact); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, contact)
}

func (a *App) handleGetAudience(w http.ResponseWriter, r *http.Request) {
	contact, err := loadOwned(r, "id", "contact", a.store.GetAudience)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, contact)
}

func (a *App) handleUpdateAudience(w http.ResponseWriter, r *http.Request) {
	contact, err := loadOwned(r, "id", "contact", a.store.GetAudience)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req client.AudienceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := applyAudience(contact, req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := a.store.UpdateAudience(r.Context(), contact); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, contact)
}

func (a *App) handleDeleteAudience(w http.ResponseWriter, r *http.Request) {
	contact, err := loadOwned(r, "id", "contact", a.store.GetAudience)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := a.store.DeleteAudience(r.Context(), contact.ID); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *App) folderView(ctx context.Context, folder *models.Folder) (client.Folder, error) {
	count, err := a.store.CountFolderMembers(ctx, folder.ID)
	if err != nil {
		return client.Folder{}, err
	}
	return client.Folder{Folder: folder, MemberCount: count}, nil
}

func (a *App) handleListFolders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	folders, err := a.store.ListFolders(ctx, auth.UserFromContext(ctx).ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	views := make([]client.Folder, 0, len(folders))
	for _, folder := range folders {
		view, err := a.folderView(ctx, folder)
		if err != nil {
			respondError(w, r, err)
			return
		}
		views = append(views, view)
	}

	respondJSON(w, http.StatusOK, views)
}

func folderName(req client.FolderRequest) (string, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", apperr.Validation(map[string]string{"name": "is required"})
	}
	return name, nil
}

func (a *App) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req client.FolderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	name, err := folderName(req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	folder := &models.Folder{UserID: auth.UserFromContext(ctx).ID, Name: name}
	if err := a.store.CreateFolder(ctx, folder); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, client.Folder{Folder: folder})
}

func (a *App) handleGetFolder(w http.ResponseWriter, r *http.Request) {
	folder, err := loadOwned(r, "id", "folder", a.store.GetFolder)
	if err != nil {
		respondError(w, r, err)
		return
	}

	view, err := a.folderView(r.Context(), folder)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (a *App) handleUpdateFolder(w http.ResponseWriter, r *http.Request) {
	folder, err := loadOwned(r, "id", "folder", a.store.GetFolder)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req client.FolderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if folder.Name, err = folderName(req); err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	if err := a.store.UpdateFolder(ctx, folder); err != nil {
		respondError(w, r, err)
		return
	}
	view, err := a.folderView(ctx, folder)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// handleDeleteFolder removes the folder together with its membership rows. The contacts stay.
func (a *App) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	folder, err := loadOwned(r, "id", "folder", a.store.GetFolder)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := a.store.DeleteFolder(r.Context(), folder.ID); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleListFolderMembers(w http.ResponseWriter, r *http.Request) {
	folder, err := loadOwned(r, "id", "folder", a.store.GetFolder)
	if err != nil {
		respondError(w, r, err)
		return
	}

	members, err := a.store.ListFolderMembers(r.Context(), folder.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, members)
}

func (a *App) handleAddFolderMember(w http.ResponseWriter, r *http.Request) {
	folder, err := loadOwned(r, "id", "folder", a.store.GetFolder)
	if err != nil {
		respondError(w, r, err)
		return
	}
	contact, err := loadOwned(r, "audienceId", "contact", a.store.GetAudience)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := a.store.AddFolderMember(r.Context(), folder.ID, contact.ID); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleRemoveFolderMember(w http.ResponseWriter, r *http.Request) {
	folder, err := loadOwned(r, "id", "folder", a.store.GetFolder)
	if err != nil {
		respondError(w, r, err)
		return
	}
	contact, err := loadOwned(r, "audienceId", "contact", a.store.GetAudience)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := a.store.RemoveFolderMember(r.Context(), folder.ID, contact.ID); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
