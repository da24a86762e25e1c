// Package media delegates image hosting to Cloudinary: uploads return a
// stable public URL plus a deletable reference id.
package media

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/charlene/kitchen-api/internal/config"
)

const (
	MaxProductImageSize = 5 << 20 // 5MB
	MaxAvatarSize       = 2 << 20 // 2MB

	productFolder = "charlenes-kitchen/products"
	avatarFolder  = "charlenes-kitchen/avatars"

	productTransformation = "c_fill,w_800,h_600,q_auto,f_auto"
	avatarTransformation  = "c_fill,w_300,h_300,r_max,q_auto,f_auto"
)

// Image is a hosted image reference.
type Image struct {
	URL      string
	PublicID string
}

// Uploader is the narrow interface handlers depend on.
type Uploader interface {
	UploadProductImage(ctx context.Context, r io.Reader) (*Image, error)
	UploadAvatar(ctx context.Context, r io.Reader) (*Image, error)
	Delete(ctx context.Context, publicID string) error
}

type cloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

func New(cfg config.CloudinaryConfig) (Uploader, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &cloudinaryUploader{cld: cld}, nil
}

func (u *cloudinaryUploader) upload(ctx context.Context, r io.Reader, folder, transformation string) (*Image, error) {
	res, err := u.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:         folder,
		Transformation: transformation,
	})
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	return &Image{URL: res.SecureURL, PublicID: res.PublicID}, nil
}

func (u *cloudinaryUploader) UploadProductImage(ctx context.Context, r io.Reader) (*Image, error) {
	return u.upload(ctx, r, productFolder, productTransformation)
}

func (u *cloudinaryUploader) UploadAvatar(ctx context.Context, r io.Reader) (*Image, error) {
	return u.upload(ctx, r, avatarFolder, avatarTransformation)
}

func (u *cloudinaryUploader) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	_, err := u.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

// CheckUpload validates size and mimetype before any bytes leave the
// process.
func CheckUpload(fh *multipart.FileHeader, maxSize int64) error {
	if fh.Size > maxSize {
		return fmt.Errorf("file exceeds the %dMB limit", maxSize>>20)
	}
	if ct := fh.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("only image files are allowed")
	}
	return nil
}
