package media_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/media"
	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestUpload(t *testing.T) {
	ctx := context.Background()
	storage := media.NewMemStorage("/media")
	svc := media.NewService(storage)
	userID := models.NewUserID()

	t.Run("stores an image under the user prefix", func(t *testing.T) {
		obj, err := svc.Upload(ctx, userID, bytes.NewReader(pngHeader))
		require.NoError(t, err)

		assert.Equal(t, "image/png", obj.ContentType)
		assert.True(t, strings.HasPrefix(obj.Key, "users/"+userID.String()+"/"))
		assert.True(t, strings.HasSuffix(obj.Key, ".png"))
		assert.Equal(t, "/media/"+obj.Key, obj.URL)
		assert.Equal(t, int64(len(pngHeader)), obj.Size)
	})

	t.Run("accepts pdf", func(t *testing.T) {
		obj, err := svc.Upload(ctx, userID, strings.NewReader("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"))
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", obj.ContentType)
	})

	t.Run("rejects plain text", func(t *testing.T) {
		_, err := svc.Upload(ctx, userID, strings.NewReader("just some notes"))
		require.ErrorIs(t, err, &apperr.Error{Code: apperr.CodeUnsupportedType})
	})

	t.Run("rejects empty uploads", func(t *testing.T) {
		_, err := svc.Upload(ctx, userID, strings.NewReader(""))
		require.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("rejects oversized uploads", func(t *testing.T) {
		small := media.NewService(storage)
		small.MaxSize = 16
		_, err := small.Upload(ctx, userID, bytes.NewReader(pngHeader))
		require.ErrorIs(t, err, &apperr.Error{Code: apperr.CodeTooLarge})
	})
}

func TestFileStorageServe(t *testing.T) {
	storage := media.NewMemStorage("/media")
	svc := media.NewService(storage)

	obj, err := svc.Upload(context.Background(), models.NewUserID(), bytes.NewReader(pngHeader))
	require.NoError(t, err)

	srv := httptest.NewServer(http.StripPrefix("/media", storage))
	defer srv.Close()

	resp, err := http.Get(srv.URL + obj.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, body)

	missing, err := http.Get(srv.URL + "/media/users/nobody/nothing.png")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestAllowed(t *testing.T) {
	for contentType, want := range map[string]bool{
		"image/png":                 true,
		"image/svg+xml":             true,
		"audio/mpeg":                true,
		"video/mp4":                 true,
		"application/pdf":           true,
		"text/plain; charset=utf-8": false,
		"application/zip":           false,
		"application/x-msdownload":  false,
	} {
		assert.Equal(t, want, media.Allowed(contentType), contentType)
	}
}

func TestS3URL(t *testing.T) {
	cfg := aws.Config{Region: "eu-west-1"}

	s := media.NewS3StorageFromConfig(cfg, media.S3Options{Bucket: "lf"})
	assert.Equal(t, "https://lf.s3.eu-west-1.amazonaws.com/users/a/b.png", s.URL("users/a/b.png"))

	s = media.NewS3StorageFromConfig(cfg, media.S3Options{Bucket: "lf", Endpoint: "http://minio:9000", PathStyle: true})
	assert.Equal(t, "http://minio:9000/lf/users/a/b.png", s.URL("users/a/b.png"))

	s = media.NewS3StorageFromConfig(cfg, media.S3Options{Bucket: "lf", PublicURL: "https://cdn.example.com/"})
	assert.Equal(t, "https://cdn.example.com/users/a/b.png", s.URL("users/a/b.png"))
}
