package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	identitydomain "github.com/smallbiznis/vendora/internal/identity/domain"
	"github.com/smallbiznis/vendora/internal/storectx"
)

// IdentityContext resolves the session cookie into an identity and stores
// it on the request context. Missing or stale sessions pass through
// unauthenticated; route gates decide whether that matters.
func (s *Server) IdentityContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			c.Next()
			return
		}

		id, err := s.identitySvc.Verify(c.Request.Context(), token)
		if err != nil {
			s.sessions.Clear(c)
			c.Next()
			return
		}

		ctx := identitydomain.WithIdentity(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) WebAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := identitydomain.IdentityFromContext(c.Request.Context()); !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func (s *Server) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identitydomain.IdentityFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !id.IsAdmin() {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

// authorizeVendorAction gates vendor-scoped routes. The :id path param is
// the vendor id the caller wants to act on.
func (s *Server) authorizeVendorAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identitydomain.IdentityFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		vendorID := strings.TrimSpace(c.Param("id"))
		if vendorID == "" {
			AbortWithError(c, invalidRequestError())
			return
		}

		if err := s.authzSvc.Authorize(c.Request.Context(), id, vendorID, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// StorefrontRequired rejects requests whose Host did not resolve to an
// active vendor storefront.
func (s *Server) StorefrontRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := storectx.FromContext(c.Request.Context()); !ok {
			AbortWithError(c, ErrNotFound)
			return
		}
		c.Next()
	}
}

func currentIdentity(c *gin.Context) (identitydomain.Identity, bool) {
	return identitydomain.IdentityFromContext(c.Request.Context())
}

func currentStorefront(c *gin.Context) (storectx.Storefront, bool) {
	return storectx.FromContext(c.Request.Context())
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, error) {
	return parseSnowflakeField(c.Param(name), name)
}

func parseSnowflakeField(raw, field string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalidRequestError()
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, newValidationError(field, "invalid_id", "invalid id")
	}
	return id, nil
}
