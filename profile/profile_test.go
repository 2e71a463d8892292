package profile

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shophub/apperr"
	"shophub/models"
	"shophub/store"
	"shophub/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	folder string
	err    error
}

func (u *fakeUploader) Upload(_ multipart.File, header *multipart.FileHeader, folder string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.folder = folder
	return "/static/uploads/" + folder + "/" + header.Filename, nil
}

type evictions struct{ emails []string }

func (e *evictions) Invalidate(_ context.Context, email string) error {
	e.emails = append(e.emails, email)
	return nil
}

func setup(t *testing.T) (*Editor, store.AccountStore, models.Identity, *fakeUploader, *evictions) {
	t.Helper()
	st := store.NewMemory()
	acc := &models.Account{FirstName: "Ada", LastName: "Byron", Email: "ada@example.com"}
	require.NoError(t, st.Accounts.Save(context.Background(), acc))
	up, ev := &fakeUploader{}, &evictions{}
	return NewEditor(st.Accounts, up, ev), st.Accounts, models.Identity{AccountID: acc.ID, Email: acc.Email}, up, ev
}

func TestApplyChangesOnlyGivenFields(t *testing.T) {
	e, accounts, id, _, ev := setup(t)
	last := " Lovelace "

	view, err := e.Apply(context.Background(), id, Update{LastName: &last})
	require.NoError(t, err)
	assert.Equal(t, "Ada", view.FirstName)
	assert.Equal(t, "Lovelace", view.LastName)

	acc, err := accounts.FindByID(context.Background(), id.AccountID)
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", acc.LastName)
	assert.Equal(t, []string{"ada@example.com"}, ev.emails)
}

func TestApplyUnknownAccount(t *testing.T) {
	e, _, _, _, _ := setup(t)
	_, err := e.Apply(context.Background(), models.Identity{AccountID: "missing"}, Update{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestHandleUploadImage(t *testing.T) {
	e, _, id, up, _ := setup(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/user/upload-profile-image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = req.WithContext(utils.WithIdentity(req.Context(), id))
	rec := httptest.NewRecorder()
	e.HandleUploadImage(rec, req, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ImageFolder, up.folder)
	assert.True(t, strings.Contains(rec.Body.String(), "/static/uploads/profiles/me.png"))
}

func TestHandleUploadImageRejectsUploadFailure(t *testing.T) {
	e, _, id, up, ev := setup(t)
	up.err = apperr.InvalidArgument("unsupported image type")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "doc.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/user/upload-profile-image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = req.WithContext(utils.WithIdentity(req.Context(), id))
	rec := httptest.NewRecorder()
	e.HandleUploadImage(rec, req, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ev.emails)
}
