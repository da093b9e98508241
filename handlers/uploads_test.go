package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mealbox/mealbox/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type fakeImageStore struct {
	name        string
	contentType string
	data        []byte
	err         error
}

func (f *fakeImageStore) UploadImage(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.name, f.contentType, f.data = name, contentType, b
	return "https://cdn.mealbox.test/mealbox/images/1.png", nil
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func multipartRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/uploads/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func uploadRouter(h *UploadHandler) *gin.Engine {
	g := gin.New()
	h.Register(g.Group("/api"))
	return g
}

func TestUploadImage_Stores(t *testing.T) {
	store := &fakeImageStore{}
	g := uploadRouter(NewUploadHandler(store))
	before := testutil.ToFloat64(metrics.ImageUploads.WithLabelValues("stored"))

	w := httptest.NewRecorder()
	// the client-declared type is ignored; content decides
	g.ServeHTTP(w, multipartRequest(t, "file", "dish.png", pngBytes))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Equal(t, "https://cdn.mealbox.test/mealbox/images/1.png", out["url"])
	require.Equal(t, "image/png", out["contentType"])
	require.Equal(t, "dish.png", store.name)
	require.Equal(t, pngBytes, store.data)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.ImageUploads.WithLabelValues("stored")))
}

func TestUploadImage_Rejects(t *testing.T) {
	store := &fakeImageStore{}
	h := NewUploadHandler(store)
	g := uploadRouter(h)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, multipartRequest(t, "file", "notes.png", []byte("just some text, not an image")))
	require.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = httptest.NewRecorder()
	g.ServeHTTP(w, multipartRequest(t, "other", "dish.png", pngBytes))
	require.Equal(t, http.StatusBadRequest, w.Code)

	h.maxBytes = 16
	w = httptest.NewRecorder()
	g.ServeHTTP(w, multipartRequest(t, "file", "dish.png", pngBytes))
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	require.Nil(t, store.data)
}

func TestUploadImage_StoreFailure(t *testing.T) {
	g := uploadRouter(NewUploadHandler(&fakeImageStore{err: errors.New("bucket unavailable")}))
	w := httptest.NewRecorder()
	g.ServeHTTP(w, multipartRequest(t, "file", "dish.png", pngBytes))
	require.Equal(t, http.StatusBadGateway, w.Code)
}
