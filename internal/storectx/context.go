package storectx

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Storefront carries the display-safe vendor context attached to requests
// whose Host header resolved to an active vendor domain.
type Storefront struct {
	VendorID    snowflake.ID `json:"vendor_id"`
	DomainID    snowflake.ID `json:"domain_id"`
	Hostname    string       `json:"hostname"`
	CompanyName string       `json:"company_name"`
	Theme       string       `json:"theme,omitempty"`
	CustomCSS   string       `json:"custom_css,omitempty"`
	LogoURL     string       `json:"logo_url,omitempty"`
}

type storefrontKey struct{}

// WithStorefront stores the resolved storefront in the context.
func WithStorefront(ctx context.Context, sf Storefront) context.Context {
	return context.WithValue(ctx, storefrontKey{}, sf)
}

// FromContext returns the resolved storefront, if the request targeted one.
func FromContext(ctx context.Context) (Storefront, bool) {
	if ctx == nil {
		return Storefront{}, false
	}
	sf, ok := ctx.Value(storefrontKey{}).(Storefront)
	return sf, ok
}

// VendorIDFromContext returns the storefront vendor ID, if set.
func VendorIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	sf, ok := FromContext(ctx)
	if !ok || sf.VendorID == 0 {
		return 0, false
	}
	return sf.VendorID, true
}
