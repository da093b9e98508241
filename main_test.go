package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mealbox/mealbox/internal/auth"
	"github.com/mealbox/mealbox/internal/catalog"
	"github.com/mealbox/mealbox/internal/config"
	"github.com/mealbox/mealbox/internal/models"
	"github.com/mealbox/mealbox/internal/sessions"
	"github.com/mealbox/mealbox/internal/tokens"
	"github.com/mealbox/mealbox/internal/useragent"
	"github.com/mealbox/mealbox/internal/users"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*app, *sessions.Service) {
	t.Helper()
	cols := catalog.MemoryCollections()
	store := sessions.NewService(sessions.NewMemoryStore())
	ctrl := auth.NewController(nil, store, users.NewService(cols.Users),
		useragent.NewLoopback("http://127.0.0.1:0/callback", time.Second, ""), auth.Options{})
	return &app{cfg: &config.Config{}, ctrl: ctrl, cols: cols}, store
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicEndpoints(t *testing.T) {
	a, _ := newTestApp(t)
	r := a.router()

	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", "").Code)
	require.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodGet, "/ready", "").Code, "no provider yet")
	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/auth/session", "").Code)
	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/swagger/doc.json", "").Code)
	require.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/me", "").Code)
	require.Equal(t, http.StatusOK, serve(r, http.MethodOptions, "/api/me", "").Code)
	require.Equal(t, http.StatusNotFound, serve(r, http.MethodPost, "/api/uploads/images", "").Code)
}

func TestRouter_RestoredSessionReachesAPI(t *testing.T) {
	a, store := newTestApp(t)
	ctx := context.Background()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "abc123", "name": "Ana"}).SignedString([]byte("k"))
	require.NoError(t, err)
	require.NoError(t, store.SaveTokens(ctx, &tokens.Stored{AccessToken: "at", IDToken: raw, ExpiresIn: 3600, IssuedAt: time.Now().Unix()}))
	a.ctrl.Restore(ctx)
	require.Equal(t, auth.Authenticated, a.ctrl.State())

	r := a.router()
	w := serve(r, http.MethodGet, "/api/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"uid":"abc123"`)

	w = serve(r, http.MethodPost, "/api/orders", `{"restaurantId":"r1","items":[{"name":"Marmita","quantity":1,"priceCents":2500}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"customerUid":"abc123"`)

	// customers cannot browse the users collection
	require.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/api/users", "").Code)

	a.ctrl.Logout(ctx)
	require.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/me", "").Code)
}

func TestRouter_AdminSeesUsers(t *testing.T) {
	a, store := newTestApp(t)
	ctx := context.Background()
	_, err := a.cols.Users.Create(ctx, &models.User{UID: "root", Name: "Root", UserType: models.UserTypeAdmin})
	require.NoError(t, err)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "root"}).SignedString([]byte("k"))
	require.NoError(t, err)
	require.NoError(t, store.SaveTokens(ctx, &tokens.Stored{AccessToken: "at", IDToken: raw, ExpiresIn: 3600, IssuedAt: time.Now().Unix()}))
	a.ctrl.Restore(ctx)

	w := serve(a.router(), http.MethodGet, "/api/users?prefix=ro", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"uid":"root"`)
}
