// Package media stores uploaded images on local disk and serves them from
// the static file tree.
package media

import (
	"fmt"
	"image"
	"mime/multipart"
	"net/http"
	"path"
	"path/filepath"

	"shophub/apperr"
	"shophub/utils"

	"github.com/disintegration/imaging"
)

// MaxWidth bounds the stored width of an uploaded image.
const MaxWidth = 1200

// Uploader stores one image and returns the URL it is served under.
type Uploader interface {
	Upload(file multipart.File, header *multipart.FileHeader, folder string) (string, error)
}

// LocalUploader writes re-encoded JPEGs below root. URLs are root-relative
// under urlPrefix, which main mounts as a static file server.
type LocalUploader struct {
	root      string
	urlPrefix string
	maxWidth  int
}

func NewLocalUploader(root, urlPrefix string) *LocalUploader {
	return &LocalUploader{root: root, urlPrefix: urlPrefix, maxWidth: MaxWidth}
}

func (u *LocalUploader) Upload(file multipart.File, header *multipart.FileHeader, folder string) (string, error) {
	if header == nil || !utils.IsSupportedImage(header) {
		return "", apperr.InvalidArgument("unsupported image type")
	}

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		return "", apperr.InvalidArgument("could not decode image")
	}
	img = u.fit(img)

	folder = utils.SanitizeFilename(folder)
	dir := filepath.Join(u.root, folder)
	if err := utils.EnsureDir(dir); err != nil {
		return "", apperr.Internal(fmt.Errorf("create upload dir: %w", err))
	}

	name := utils.GetUUID() + ".jpg"
	if err := imaging.Save(img, filepath.Join(dir, name), imaging.JPEGQuality(85)); err != nil {
		return "", apperr.Internal(fmt.Errorf("save image: %w", err))
	}
	return path.Join(u.urlPrefix, folder, name), nil
}

func (u *LocalUploader) fit(img image.Image) image.Image {
	if img.Bounds().Dx() <= u.maxWidth {
		return img
	}
	return imaging.Resize(img, u.maxWidth, 0, imaging.Lanczos)
}

// FormImage parses a multipart request (10 MB in memory) and returns the
// part named field. The caller closes the file.
func FormImage(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		return nil, nil, apperr.InvalidArgument("unable to parse form")
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, apperr.InvalidArgument(field + " is required")
	}
	return file, header, nil
}
