package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifybot/config"
	"verifybot/registry"
	"verifybot/utils"
)

func TestMain(m *testing.M) {
	utils.InfoLogger = log.New(os.Stdout, "TEST-INFO: ", log.Ldate|log.Ltime)
	utils.ErrorLogger = log.New(os.Stderr, "TEST-ERROR: ", log.Ldate|log.Ltime)
	os.Exit(m.Run())
}

// =====================
// Fakes
// =====================

type fakeRegistry struct {
	users map[string]registry.VerifiedUser
	err   error
}

func (f *fakeRegistry) Lookup(ctx context.Context, username string) (registry.VerifiedUser, bool, error) {
	if f.err != nil {
		return registry.VerifiedUser{}, false, f.err
	}
	u, ok := f.users[registry.Normalize(username)]
	return u, ok, nil
}

func (f *fakeRegistry) Upsert(ctx context.Context, username, service string, addedBy int64) (registry.VerifiedUser, error) {
	if f.err != nil {
		return registry.VerifiedUser{}, f.err
	}
	u := registry.VerifiedUser{Username: registry.Normalize(username), Service: service, AddedBy: addedBy}
	if f.users == nil {
		f.users = map[string]registry.VerifiedUser{}
	}
	f.users[u.Username] = u
	return u, nil
}

func (f *fakeRegistry) Remove(ctx context.Context, username string, actorID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	normalized := registry.Normalize(username)
	_, ok := f.users[normalized]
	delete(f.users, normalized)
	return ok, nil
}

func (f *fakeRegistry) List(ctx context.Context, limit, offset int) ([]registry.VerifiedUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []registry.VerifiedUser{}
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeRegistry) Count(ctx context.Context) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(f.users)), nil
}

func newSellersApp(reg Registry) *fiber.App {
	h := NewSellersHandler(reg, time.Now(), func() bool { return true })
	app := fiber.New()
	api := app.Group("/api/v1")
	api.Get("/sellers", h.ListSellers)
	api.Get("/sellers/:username", h.GetSeller)
	api.Put("/sellers/:username", h.PutSeller)
	api.Delete("/sellers/:username", h.DeleteSeller)
	api.Get("/stats", h.Stats)
	return app
}

// =====================
// Sellers API tests
// =====================

func TestGetSeller(t *testing.T) {
	reg := &fakeRegistry{users: map[string]registry.VerifiedUser{
		"@seller": {Username: "@seller", Service: "Steam"},
	}}
	app := newSellersApp(reg)

	t.Run("known seller returned", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/sellers/seller", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var seller registry.VerifiedUser
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&seller))
		assert.Equal(t, "@seller", seller.Username)
		assert.Equal(t, "Steam", seller.Service)
	})

	t.Run("unknown seller is 404", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/sellers/ghost", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
	})

	t.Run("store failure is 500", func(t *testing.T) {
		broken := newSellersApp(&fakeRegistry{err: errors.New("db down")})
		req := httptest.NewRequest("GET", "/api/v1/sellers/seller", nil)
		resp, err := broken.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 500, resp.StatusCode)
	})
}

func TestPutSeller(t *testing.T) {
	reg := &fakeRegistry{}
	app := newSellersApp(reg)

	t.Run("creates seller", func(t *testing.T) {
		payload := bytes.NewBufferString(`{"service": "PayPal"}`)
		req := httptest.NewRequest("PUT", "/api/v1/sellers/NewSeller", payload)
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Contains(t, reg.users, "@newseller")
		assert.Equal(t, "PayPal", reg.users["@newseller"].Service)
	})

	t.Run("missing service rejected", func(t *testing.T) {
		payload := bytes.NewBufferString(`{"service": "  "}`)
		req := httptest.NewRequest("PUT", "/api/v1/sellers/seller", payload)
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		payload := bytes.NewBufferString(`{not json`)
		req := httptest.NewRequest("PUT", "/api/v1/sellers/seller", payload)
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
	})
}

func TestDeleteSeller(t *testing.T) {
	reg := &fakeRegistry{users: map[string]registry.VerifiedUser{
		"@seller": {Username: "@seller", Service: "Steam"},
	}}
	app := newSellersApp(reg)

	t.Run("removes existing seller", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", "/api/v1/sellers/Seller", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.NotContains(t, reg.users, "@seller")
	})

	t.Run("second delete is 404", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", "/api/v1/sellers/Seller", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
	})
}

func TestListSellersAndStats(t *testing.T) {
	reg := &fakeRegistry{users: map[string]registry.VerifiedUser{
		"@a": {Username: "@a", Service: "Steam"},
		"@b": {Username: "@b", Service: "PayPal"},
	}}
	app := newSellersApp(reg)

	t.Run("list returns all sellers", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/sellers", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var body struct {
			Sellers []registry.VerifiedUser `json:"sellers"`
			Count   int                     `json:"count"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, 2, body.Count)
		assert.Len(t, body.Sellers, 2)
	})

	t.Run("stats reports registry size and bot state", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/stats", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var body struct {
			Sellers  int64  `json:"sellers"`
			BotReady bool   `json:"bot_ready"`
			Uptime   string `json:"uptime"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, int64(2), body.Sellers)
		assert.True(t, body.BotReady)
		assert.NotEmpty(t, body.Uptime)
	})
}

// =====================
// Auth tests
// =====================

func newAuthApp(t *testing.T, cfg *config.Config) *fiber.App {
	t.Helper()
	h, err := NewAuthHandler(cfg)
	require.NoError(t, err)
	app := fiber.New()
	app.Post("/api/v1/auth/login", h.Login)
	return app
}

func TestLogin(t *testing.T) {
	cfg := &config.Config{
		AdminAPISecret:  []byte("0123456789abcdef0123456789abcdef"),
		AdminPassword:   "operator-password-123",
		SessionDuration: time.Hour,
	}
	app := newAuthApp(t, cfg)

	t.Run("correct password yields a valid token", func(t *testing.T) {
		payload := bytes.NewBufferString(`{"password": "operator-password-123"}`)
		req := httptest.NewRequest("POST", "/api/v1/auth/login", payload)
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, 200, resp.StatusCode)

		var body struct {
			Token     string `json:"token"`
			ExpiresAt string `json:"expires_at"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.NotEmpty(t, body.Token)

		parsed, err := jwt.Parse(body.Token, func(token *jwt.Token) (interface{}, error) {
			return cfg.AdminAPISecret, nil
		})
		require.NoError(t, err)
		require.True(t, parsed.Valid)
		claims := parsed.Claims.(jwt.MapClaims)
		assert.Equal(t, "admin", claims["role"])
		assert.Equal(t, "admin", claims["sub"])
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		payload := bytes.NewBufferString(`{"password": "nope"}`)
		req := httptest.NewRequest("POST", "/api/v1/auth/login", payload)
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
	})

	t.Run("empty password rejected", func(t *testing.T) {
		payload := bytes.NewBufferString(`{}`)
		req := httptest.NewRequest("POST", "/api/v1/auth/login", payload)
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
	})
}
