// Package profile edits the caller's own name and picture.
package profile

import (
	"context"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"shophub/media"
	"shophub/models"
	"shophub/rdx"
	"shophub/store"
	"shophub/utils"

	"github.com/julienschmidt/httprouter"
)

// ImageFolder is where profile pictures are stored.
const ImageFolder = "profiles"

type Editor struct {
	accounts store.AccountStore
	uploader media.Uploader
	cache    rdx.Invalidator
}

func NewEditor(accounts store.AccountStore, uploader media.Uploader, cache rdx.Invalidator) *Editor {
	return &Editor{accounts: accounts, uploader: uploader, cache: cache}
}

// Update carries the fields to change; nil leaves a field as it is.
type Update struct {
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	ProfileImage *string `json:"profile_image"`
}

func (e *Editor) Apply(ctx context.Context, id models.Identity, u Update) (*models.AccountView, error) {
	acc, err := e.accounts.FindByID(ctx, id.AccountID)
	if err != nil {
		return nil, err
	}
	if u.FirstName != nil {
		acc.FirstName = strings.TrimSpace(*u.FirstName)
	}
	if u.LastName != nil {
		acc.LastName = strings.TrimSpace(*u.LastName)
	}
	if u.ProfileImage != nil {
		acc.ProfileImage = strings.TrimSpace(*u.ProfileImage)
	}
	if err := e.accounts.Save(ctx, acc); err != nil {
		return nil, err
	}
	rdx.Evict(ctx, e.cache, acc.Email)

	view := acc.View()
	return &view, nil
}

// UploadImage stores the picture and points the profile at it.
func (e *Editor) UploadImage(ctx context.Context, id models.Identity, file multipart.File, header *multipart.FileHeader) (*models.AccountView, error) {
	url, err := e.uploader.Upload(file, header, ImageFolder)
	if err != nil {
		return nil, err
	}
	return e.Apply(ctx, id, Update{ProfileImage: &url})
}

func (e *Editor) HandleUpdate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var u Update
	if err := utils.DecodeJSON(r, &u); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	id, _ := utils.IdentityFromRequest(r)
	view, err := e.Apply(ctx, id, u)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, view, "Profile updated")
}

func (e *Editor) HandleUploadImage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	file, header, err := media.FormImage(r, "image")
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	defer file.Close()

	id, _ := utils.IdentityFromRequest(r)
	view, err := e.UploadImage(ctx, id, file, header)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, view, "Profile image updated")
}
