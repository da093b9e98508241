package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeS3 accepts bucket creation and object PUTs and records the objects.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusOK)
		return
	}
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.objects[r.URL.Path] = body
	f.types[r.URL.Path] = r.Header.Get("Content-Type")
	f.mu.Unlock()
	w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
	w.WriteHeader(http.StatusOK)
}

func newTestStorage(t *testing.T, publicBase string) (*MinIOStorage, *fakeS3) {
	t.Helper()
	s3 := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(s3)
	t.Cleanup(srv.Close)
	st, err := NewMinIOStorage(&MinIOConfig{
		Endpoint:      strings.TrimPrefix(srv.URL, "http://"),
		AccessKey:     "access",
		SecretKey:     "secret",
		Region:        "us-east-1",
		Bucket:        "mealbox",
		PublicBaseURL: publicBase,
		PresignExpiry: time.Hour,
	})
	require.NoError(t, err)
	return st, s3
}

func TestUploadImage_PublicURL(t *testing.T) {
	st, s3 := newTestStorage(t, "https://cdn.mealbox.test")
	data := []byte("\x89PNG\r\n\x1a\nfake")

	u, err := st.UploadImage(context.Background(), "Dish.PNG", bytes.NewReader(data), int64(len(data)), "image/png")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(u, "https://cdn.mealbox.test/mealbox/images/"), u)
	require.True(t, strings.HasSuffix(u, ".png"), u)

	key := strings.TrimPrefix(u, "https://cdn.mealbox.test")
	s3.mu.Lock()
	defer s3.mu.Unlock()
	require.Equal(t, data, s3.objects[key])
	require.Equal(t, "image/png", s3.types[key])
}

func TestUploadImage_Presigned(t *testing.T) {
	st, _ := newTestStorage(t, "")
	data := []byte("GIF89a")

	u, err := st.UploadImage(context.Background(), "a.gif", bytes.NewReader(data), int64(len(data)), "image/gif")
	require.NoError(t, err)
	require.Contains(t, u, "/mealbox/images/")
	require.Contains(t, u, "X-Amz-Signature=")
	require.Contains(t, u, "X-Amz-Expires=3600")
}

func TestImageKey(t *testing.T) {
	k := ImageKey("photo.JPeG")
	require.True(t, strings.HasPrefix(k, ImagePrefix))
	require.True(t, strings.HasSuffix(k, ".jpeg"))
	require.NotEqual(t, k, ImageKey("photo.jpeg"))
	require.False(t, strings.Contains(ImageKey("noext"), "."))
	require.False(t, strings.Contains(ImageKey("x.verylongextension"), "."))
}

func TestNewMinIOStorage_RequiresEndpoint(t *testing.T) {
	_, err := NewMinIOStorage(&MinIOConfig{})
	require.Error(t, err)
	_, err = NewMinIOStorage(nil)
	require.Error(t, err)
}
