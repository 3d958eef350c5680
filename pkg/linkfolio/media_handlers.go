package linkfolio

import (
	"errors"
	"net/http"

	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/auth"
)

const (
	// multipartOverhead allows for headers and boundaries around the file part.
	multipartOverhead = 64 << 10
	multipartMemory   = 1 << 20
)

// handleUploadMedia stores the multipart "file" field.
func (a *App) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	if a.IsReadOnly() {
		respondError(w, r, apperr.ErrReadOnly)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.media.MaxSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, apperr.New(apperr.CodeTooLarge, "upload too large"))
			return
		}
		respondError(w, r, apperr.Validation(map[string]string{"file": "must be sent as multipart/form-data"}))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, apperr.Validation(map[string]string{"file": "is required"}))
		return
	}
	defer file.Close()

	ctx := r.Context()
	obj, err := a.media.Upload(ctx, auth.UserFromContext(ctx).ID, file)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, obj)
}
