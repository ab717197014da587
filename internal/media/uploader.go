// Package media 把菜品图片存到托管媒体服务
package media

import (
	"context"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/go-faster/errors"
)

type Uploader interface {
	// Upload stores the image and returns its public https URL.
	Upload(ctx context.Context, r io.Reader) (string, error)
}

type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryUploader(cloudName, apiKey, apiSecret, folder string) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, errors.Wrap(err, "init cloudinary")
	}
	return &CloudinaryUploader{cld: cld, folder: folder}, nil
}

func (u *CloudinaryUploader) Upload(ctx context.Context, r io.Reader) (string, error) {
	res, err := u.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:       u.folder,
		ResourceType: "image",
	})
	if err != nil {
		return "", errors.Wrap(err, "upload image")
	}
	if res.Error.Message != "" {
		return "", errors.Errorf("upload image: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}
