package api

import (
	"errors"
	"mime/multipart"
	"net/http"

	"resource-site-backend/internal/auth"
	"resource-site-backend/internal/models"
	"resource-site-backend/internal/upload"
)

const (
	descriptionField = "description"
	avatarField      = "avatar"

	multipartMemory = 8 << 20
)

// ImageUploadResponse reports every accepted image. Parts that were not images
// appear in neither list.
type ImageUploadResponse struct {
	Uploaded []upload.Result  `json:"uploaded"`
	Failed   []upload.Failure `json:"failed"`
}

// AvatarResponse is the body of a successful avatar upload.
type AvatarResponse struct {
	User   *models.User  `json:"user"`
	Avatar upload.Result `json:"avatar"`
}

// multipartFiles parses a bounded multipart body and returns the parts under
// field. It writes the error response itself and reports false on failure.
func (h *Handler) multipartFiles(w http.ResponseWriter, r *http.Request, field string) ([]*multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
			return nil, false
		}
		respondError(w, r, http.StatusBadRequest, "request must be multipart/form-data")
		return nil, false
	}

	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		respondError(w, r, http.StatusBadRequest, "file not found in request, expected field \""+field+"\"")
		return nil, false
	}
	return files, true
}

func cleanupForm(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// uploadDescription (PUT /resource/upload/description)
func (h *Handler) uploadDescription(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	if !requirePrincipal(w, r, p) {
		return
	}
	defer cleanupForm(r)
	files, ok := h.multipartFiles(w, r, descriptionField)
	if !ok {
		return
	}

	res, err := h.uploads.SaveDescription(files[0])
	if err != nil {
		if errors.Is(err, upload.ErrStorage) {
			h.metrics.countUploads(descriptionField, "failed", 1)
			h.log.ErrorContext(r.Context(), "description upload failed",
				"user_id", p.UserID,
				"filename", files[0].Filename,
				"error", err)
			respondError(w, r, http.StatusInternalServerError, "failed to store the uploaded file")
			return
		}
		h.metrics.countUploads(descriptionField, "rejected", 1)
		h.handleError(w, r, err)
		return
	}

	h.metrics.countUploads(descriptionField, "stored", 1)
	respondJSON(w, r, http.StatusOK, res)
}

// uploadImages (PUT /resource/upload/image)
func (h *Handler) uploadImages(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	if !requirePrincipal(w, r, p) {
		return
	}
	defer cleanupForm(r)
	files, ok := h.multipartFiles(w, r, avatarField)
	if !ok {
		return
	}

	batch := h.ingestImages(r, files)
	if len(batch.Uploaded) > 0 {
		if err := h.resources.SaveImageMetadata(r.Context(), p.UserID, batch.Uploaded); err != nil {
			h.uploads.Remove(batch.Uploaded)
			h.handleError(w, r, err)
			return
		}
	}

	respondJSON(w, r, batchStatus(batch), ImageUploadResponse{Uploaded: batch.Uploaded, Failed: batch.Failed})
}

// uploadAvatar (PUT /user/profile/avatar) stores the first image of the
// request as the caller's avatar.
func (h *Handler) uploadAvatar(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	if !requirePrincipal(w, r, p) {
		return
	}
	defer cleanupForm(r)
	files, ok := h.multipartFiles(w, r, avatarField)
	if !ok {
		return
	}

	batch := h.ingestImages(r, files)
	if len(batch.Uploaded) == 0 {
		if len(batch.Failed) > 0 {
			respondError(w, r, http.StatusInternalServerError, "failed to store the uploaded image")
			return
		}
		respondError(w, r, http.StatusBadRequest, "no image found in request")
		return
	}
	avatar := batch.Uploaded[0]
	h.uploads.Remove(batch.Uploaded[1:])

	user, err := h.users.UpdateAvatar(r.Context(), p.UserID, avatar.StoredPath)
	if err != nil {
		h.uploads.Remove(batch.Uploaded[:1])
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, AvatarResponse{User: user, Avatar: avatar})
}

func (h *Handler) ingestImages(r *http.Request, files []*multipart.FileHeader) upload.Batch {
	batch := h.uploads.SaveImages(r.Context(), files)
	h.metrics.countUploads("image", "stored", len(batch.Uploaded))
	h.metrics.countUploads("image", "failed", len(batch.Failed))
	h.metrics.countUploads("image", "skipped", batch.Skipped)
	return batch
}

// batchStatus is 200 when nothing failed, 500 when nothing was stored and 207
// for a mix.
func batchStatus(b upload.Batch) int {
	switch {
	case len(b.Failed) == 0:
		return http.StatusOK
	case len(b.Uploaded) == 0:
		return http.StatusInternalServerError
	default:
		return http.StatusMultiStatus
	}
}
