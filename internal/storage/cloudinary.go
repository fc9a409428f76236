package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore uploads through Cloudinary's signed upload API. Keys are
// "<resource_type>/<public_id>" so deletes can reach the right endpoint.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStore constructs a CloudinaryStore.
func NewCloudinaryStore(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStore, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, errors.New("cloudinary: missing credentials")
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

func (s *CloudinaryStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (Object, error) {
	resourceType := "raw"
	if isImage(contentType) {
		resourceType = "image"
	}
	publicID := strings.TrimSuffix(key, pathExt(key))
	if s.folder != "" {
		publicID = s.folder + "/" + publicID
	}

	res, err := s.cld.Upload.Upload(ctx, body, uploader.UploadParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return Object{}, fmt.Errorf("cloudinary: upload: %w", err)
	}
	if res.Error.Message != "" {
		return Object{}, fmt.Errorf("cloudinary: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		return Object{}, errors.New("cloudinary: no url returned")
	}

	obj := Object{Key: resourceType + "/" + res.PublicID, URL: res.SecureURL}
	if resourceType == "image" {
		obj.ThumbnailURL = strings.Replace(res.SecureURL, "/upload/", "/upload/c_thumb,w_320/", 1)
	}
	return obj, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, key string) error {
	resourceType, publicID, ok := strings.Cut(key, "/")
	if !ok {
		return fmt.Errorf("cloudinary: invalid key %q", key)
	}
	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return fmt.Errorf("cloudinary: destroy: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary: %s", res.Error.Message)
	}
	if res.Result != "ok" && res.Result != "not found" {
		return fmt.Errorf("cloudinary: destroy result %q", res.Result)
	}
	return nil
}

func pathExt(key string) string {
	i := strings.LastIndex(key, ".")
	if i < 0 || strings.Contains(key[i:], "/") {
		return ""
	}
	return key[i:]
}
