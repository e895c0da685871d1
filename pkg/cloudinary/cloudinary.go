// Package cloudinary stores question pictures.
package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
	"github.com/google/uuid"
)

const (
	PictureFolder = "qa/questions"
	PictureWidth  = 1024
)

const pictureEager = "q_auto,f_auto,w_1024,c_limit"

var ErrNotConfigured = errors.New("picture storage not configured")

// PictureStore uploads a question picture and returns its public HTTPS URL.
type PictureStore interface {
	UploadPicture(ctx context.Context, file io.Reader, questionerID uint) (string, error)
}

// PictureURL returns a delivery URL for an existing public ID, resized to width.
func PictureURL(cloudName, publicID string, width int) string {
	if width <= 0 {
		width = PictureWidth
	}
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/q_auto,f_auto,w_%d,c_limit/%s",
		cloudName, width, strings.TrimPrefix(publicID, "/"))
}

// PicturePublicID names an upload so two pictures from the same questioner never collide.
func PicturePublicID(questionerID uint) string {
	return fmt.Sprintf("u%d-%s", questionerID, uuid.NewString())
}

type store struct {
	cloudName string
	uploader  *uploader.API
}

var eagerAsync = false

func (s *store) UploadPicture(ctx context.Context, file io.Reader, questionerID uint) (string, error) {
	res, err := s.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:       PictureFolder,
		PublicID:     PicturePublicID(questionerID),
		ResourceType: "image",
		Eager:        pictureEager,
		EagerAsync:   &eagerAsync,
	})
	if err != nil {
		return "", err
	}
	if res.Error.Message != "" {
		return "", errors.New(res.Error.Message)
	}
	if len(res.Eager) > 0 && res.Eager[0].SecureURL != "" {
		return res.Eager[0].SecureURL, nil
	}
	if res.SecureURL != "" {
		return res.SecureURL, nil
	}
	return PictureURL(s.cloudName, res.PublicID, PictureWidth), nil
}

// NewPictureStore builds a Cloudinary-backed store. Empty credentials return
// ErrNotConfigured so callers can disable multipart picture uploads.
func NewPictureStore(cloudName, apiKey, apiSecret string) (PictureStore, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, ErrNotConfigured
	}
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &store{cloudName: cloudName, uploader: up}, nil
}
