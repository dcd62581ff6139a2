package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// DomainProvisioner creates the default storefront hostname for a newly
// registered vendor. Implemented by the storefront module.
type DomainProvisioner interface {
	ProvisionSubdomain(ctx context.Context, vendorID snowflake.ID, companyName string) error
}
