package migration

import (
	"github.com/bwmarrin/snowflake"
	cartdomain "github.com/smallbiznis/vendora/internal/cart/domain"
	"github.com/smallbiznis/vendora/internal/config"
	customerdomain "github.com/smallbiznis/vendora/internal/customer/domain"
	identitydomain "github.com/smallbiznis/vendora/internal/identity/domain"
	ledgerdomain "github.com/smallbiznis/vendora/internal/ledger/domain"
	orderdomain "github.com/smallbiznis/vendora/internal/order/domain"
	productdomain "github.com/smallbiznis/vendora/internal/product/domain"
	"github.com/smallbiznis/vendora/internal/seed"
	storefrontdomain "github.com/smallbiznis/vendora/internal/storefront/domain"
	subscriptiondomain "github.com/smallbiznis/vendora/internal/subscription/domain"
	vendordomain "github.com/smallbiznis/vendora/internal/vendors/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Versioned migrations target postgres; other dialects are
			// for local development and get the schema from the models.
			if err := conn.AutoMigrate(
				&identitydomain.User{},
				&vendordomain.Vendor{},
				&storefrontdomain.Domain{},
				&productdomain.Product{},
				&customerdomain.Customer{},
				&cartdomain.Cart{},
				&cartdomain.CartItem{},
				&orderdomain.Order{},
				&orderdomain.OrderItem{},
				&ledgerdomain.Transaction{},
				&ledgerdomain.Payout{},
				&subscriptiondomain.Plan{},
			); err != nil {
				return err
			}
		}

		if err := seed.EnsureAdminUser(conn, genID, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
			return err
		}
		return seed.EnsureDefaultPlan(conn, genID)
	}),
)
