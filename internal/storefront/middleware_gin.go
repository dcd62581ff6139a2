package storefront

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/vendora/internal/config"
	"github.com/smallbiznis/vendora/internal/storectx"
	"github.com/smallbiznis/vendora/internal/storefront/domain"
)

const (
	overrideHeader = "X-Vendora-Store"
	overrideQuery  = "store"
)

// Middleware resolves the request Host to a vendor storefront and attaches
// the context when one matches. It never aborts: unresolved hosts fall
// through so platform routes keep working on the same listener.
func Middleware(svc domain.Service, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var override string
		if !cfg.IsProduction() {
			override = strings.TrimSpace(c.GetHeader(overrideHeader))
			if override == "" {
				override = strings.TrimSpace(c.Query(overrideQuery))
			}
		}

		res := svc.Resolve(c.Request.Context(), c.Request.Host, override)
		if res.IsVendorStore {
			ctx := storectx.WithStorefront(c.Request.Context(), res.Storefront)
			c.Request = c.Request.WithContext(ctx)
			c.Set("storefront_vendor_id", res.Storefront.VendorID.String())
		}
		c.Next()
	}
}
