package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/vendora/internal/config"
	"github.com/smallbiznis/vendora/internal/identity/session"
	"github.com/smallbiznis/vendora/internal/observability"
	storefrontdomain "github.com/smallbiznis/vendora/internal/storefront/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingResolver records how many requests triggered a domain lookup.
type countingResolver struct {
	storefrontdomain.Service

	calls int
}

func (r *countingResolver) Resolve(_ context.Context, _, _ string) storefrontdomain.Resolution {
	r.calls++
	return storefrontdomain.Resolution{}
}

func newRoutingTestServer(t *testing.T) (*Server, *countingResolver) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{Environment: "test"}
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	resolver := &countingResolver{}
	srv := NewServer(ServerParams{
		Gin:           NewEngine(observability.Config{}),
		Cfg:           cfg,
		GenID:         node,
		Sessions:      session.NewManager(cfg),
		StorefrontSvc: resolver,
		Log:           zap.NewNop(),
	})
	return srv, resolver
}

func perform(srv *Server, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	req.Host = "acme.example.com"
	srv.Engine().ServeHTTP(w, req)
	return w
}

func TestDomainResolutionScopedToStorefrontRoutes(t *testing.T) {
	srv, resolver := newRoutingTestServer(t)

	// API, admin and auth-session routes never hit the domains table.
	w := perform(srv, http.MethodGet, "/api/vendors/123")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = perform(srv, http.MethodGet, "/admin/vendors")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = perform(srv, http.MethodGet, "/auth/me")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = perform(srv, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	require.Zero(t, resolver.calls)

	// Storefront routes resolve the host; an unresolved host is a 404.
	w = perform(srv, http.MethodGet, "/store/products")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, 1, resolver.calls)

	// Login resolves too, so the anonymous cart merge can find the store.
	w = perform(srv, http.MethodPost, "/auth/login")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, 2, resolver.calls)
}
