package avatar_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/hugh/go-contacts/internal/avatar"
	"github.com/hugh/go-contacts/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listResponse = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>avatars-bucket</Name>
  <Prefix>avatars/</Prefix>
  <KeyCount>1</KeyCount>
  <MaxKeys>1000</MaxKeys>
  <IsTruncated>false</IsTruncated>
  <Contents>
    <Key>avatars/u1_a.png</Key>
    <LastModified>2024-01-02T03:04:05.000Z</LastModified>
    <Size>3</Size>
  </Contents>
</ListBucketResult>`

type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        []byte
}

func newFakeS3(t *testing.T) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []recordedRequest
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, recordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Body:        body,
		})
		mu.Unlock()

		switch r.Method {
		case http.MethodPut:
			w.Header().Set("ETag", `"abc"`)
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(listResponse))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)

	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), requests...)
	}
}

func newS3Storage(t *testing.T, endpoint string) *avatar.S3Storage {
	t.Helper()
	storage, err := avatar.NewS3Storage(context.Background(), config.StorageConfig{
		Driver:      "s3",
		S3Bucket:    "avatars-bucket",
		S3Region:    "us-east-1",
		S3Endpoint:  endpoint,
		S3AccessKey: "test",
		S3SecretKey: "test",
		S3PublicURL: "https://cdn.example.com",
		S3Prefix:    "avatars/",
	})
	require.NoError(t, err)
	return storage
}

func TestS3Storage_PutAndDelete(t *testing.T) {
	srv, recorded := newFakeS3(t)
	storage := newS3Storage(t, srv.URL)
	ctx := context.Background()

	url, err := storage.Put(ctx, "u1_a.png", bytes.NewReader([]byte("img")), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/u1_a.png", url)

	require.NoError(t, storage.Delete(ctx, "u1_a.png"))

	reqs := recorded()
	require.Len(t, reqs, 2)

	assert.Equal(t, http.MethodPut, reqs[0].Method)
	assert.Equal(t, "/avatars-bucket/avatars/u1_a.png", reqs[0].Path)
	assert.Equal(t, "image/png", reqs[0].ContentType)
	assert.Equal(t, []byte("img"), reqs[0].Body)

	assert.Equal(t, http.MethodDelete, reqs[1].Method)
	assert.Equal(t, "/avatars-bucket/avatars/u1_a.png", reqs[1].Path)
}

func TestS3Storage_List(t *testing.T) {
	srv, _ := newFakeS3(t)
	storage := newS3Storage(t, srv.URL)

	objects, err := storage.List(context.Background())
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "u1_a.png", objects[0].Key)
	assert.Equal(t, "https://cdn.example.com/avatars/u1_a.png", objects[0].URL)
	assert.Equal(t, 2024, objects[0].ModTime.Year())
}

func TestNewStorage_UnknownDriver(t *testing.T) {
	_, err := avatar.NewStorage(context.Background(), config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)
}
