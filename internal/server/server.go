package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/vendora/internal/authorization"
	"github.com/smallbiznis/vendora/internal/cart"
	cartdomain "github.com/smallbiznis/vendora/internal/cart/domain"
	"github.com/smallbiznis/vendora/internal/checkout"
	checkoutdomain "github.com/smallbiznis/vendora/internal/checkout/domain"
	"github.com/smallbiznis/vendora/internal/config"
	"github.com/smallbiznis/vendora/internal/customer"
	customerdomain "github.com/smallbiznis/vendora/internal/customer/domain"
	"github.com/smallbiznis/vendora/internal/identity"
	identitydomain "github.com/smallbiznis/vendora/internal/identity/domain"
	"github.com/smallbiznis/vendora/internal/identity/session"
	"github.com/smallbiznis/vendora/internal/ledger"
	ledgerdomain "github.com/smallbiznis/vendora/internal/ledger/domain"
	"github.com/smallbiznis/vendora/internal/observability"
	obsmiddleware "github.com/smallbiznis/vendora/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/vendora/internal/observability/metrics"
	obstracing "github.com/smallbiznis/vendora/internal/observability/tracing"
	"github.com/smallbiznis/vendora/internal/order"
	orderdomain "github.com/smallbiznis/vendora/internal/order/domain"
	"github.com/smallbiznis/vendora/internal/product"
	productdomain "github.com/smallbiznis/vendora/internal/product/domain"
	"github.com/smallbiznis/vendora/internal/ratelimit"
	"github.com/smallbiznis/vendora/internal/storefront"
	storefrontdomain "github.com/smallbiznis/vendora/internal/storefront/domain"
	"github.com/smallbiznis/vendora/internal/subscription"
	subscriptiondomain "github.com/smallbiznis/vendora/internal/subscription/domain"
	"github.com/smallbiznis/vendora/internal/vendors"
	vendordomain "github.com/smallbiznis/vendora/internal/vendors/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	identity.Module,
	vendor.Module,
	storefront.Module,
	product.Module,
	customer.Module,
	cart.Module,
	checkout.Module,
	order.Module,
	ledger.Module,
	subscription.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	genID           *snowflake.Node
	sessions        *session.Manager
	identitySvc     identitydomain.Service
	authzSvc        authorization.Service
	vendorSvc       vendordomain.Service
	storefrontSvc   storefrontdomain.Service
	productSvc      productdomain.Service
	customerSvc     customerdomain.Service
	cartSvc         cartdomain.Service
	checkoutSvc     checkoutdomain.Service
	orderSvc        orderdomain.Service
	ledgerSvc       ledgerdomain.Service
	subscriptionSvc subscriptiondomain.Service
	bucket          *ratelimit.TokenBucket
	obsMetrics      *obsmetrics.Metrics
	log             *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	GenID           *snowflake.Node
	Sessions        *session.Manager
	IdentitySvc     identitydomain.Service
	AuthzSvc        authorization.Service
	VendorSvc       vendordomain.Service
	StorefrontSvc   storefrontdomain.Service
	ProductSvc      productdomain.Service
	CustomerSvc     customerdomain.Service
	CartSvc         cartdomain.Service
	CheckoutSvc     checkoutdomain.Service
	OrderSvc        orderdomain.Service
	LedgerSvc       ledgerdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	Bucket          *ratelimit.TokenBucket `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics    `optional:"true"`
	Log             *zap.Logger
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		genID:           p.GenID,
		sessions:        p.Sessions,
		identitySvc:     p.IdentitySvc,
		authzSvc:        p.AuthzSvc,
		vendorSvc:       p.VendorSvc,
		storefrontSvc:   p.StorefrontSvc,
		productSvc:      p.ProductSvc,
		customerSvc:     p.CustomerSvc,
		cartSvc:         p.CartSvc,
		checkoutSvc:     p.CheckoutSvc,
		orderSvc:        p.OrderSvc,
		ledgerSvc:       p.LedgerSvc,
		subscriptionSvc: p.SubscriptionSvc,
		bucket:          p.Bucket,
		obsMetrics:      p.ObsMetrics,
		log:             p.Log.Named("http.server"),
	}

	svc.wireRoutes()

	return svc
}

// wireRoutes installs the shared middleware and registers all route
// groups. Host resolution is scoped to the shopper surface and the login
// route (for the anonymous cart merge); API and admin calls never touch
// the domains table.
func (s *Server) wireRoutes() {
	s.engine.Use(s.IdentityContext())

	s.registerAuthRoutes()
	s.registerStoreRoutes()
	s.registerAPIRoutes()
	s.registerAdminRoutes()
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/register", s.RegisterUser)
	// Login resolves the storefront so the anonymous cart can be merged
	// into the user cart when the shopper signs in on a store domain.
	auth.POST("/login", storefront.Middleware(s.storefrontSvc, s.cfg), s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.Me)
}

// registerStoreRoutes wires the public shopper surface. Every route
// requires a resolved storefront and shares the storefront rate limit.
func (s *Server) registerStoreRoutes() {
	store := s.engine.Group("/store")
	store.Use(storefront.Middleware(s.storefrontSvc, s.cfg))
	store.Use(ratelimit.GinMiddleware(s.bucket, s.cfg, s.log, s.obsMetrics))
	store.Use(s.StorefrontRequired())

	store.GET("", s.CurrentStorefront)
	store.GET("/products", s.StoreListProducts)
	store.GET("/products/:slug", s.StoreGetProduct)

	store.GET("/cart", s.GetCart)
	store.POST("/cart/items", s.AddCartItem)
	store.PATCH("/cart/items/:id", s.UpdateCartItem)
	store.DELETE("/cart/items/:id", s.RemoveCartItem)
	store.DELETE("/cart", s.ClearCart)

	store.POST("/checkout", s.Checkout)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/vendors", s.WebAuthRequired(), s.CreateVendor)

	vendors := api.Group("/vendors/:id", s.WebAuthRequired())
	{
		vendors.GET("", s.authorizeVendorAction(authorization.ObjectVendor, authorization.ActionView), s.GetVendor)
		vendors.PATCH("", s.authorizeVendorAction(authorization.ObjectVendor, authorization.ActionUpdate), s.UpdateVendor)

		vendors.GET("/products", s.authorizeVendorAction(authorization.ObjectProduct, authorization.ActionView), s.ListProducts)
		vendors.POST("/products", s.authorizeVendorAction(authorization.ObjectProduct, authorization.ActionCreate), s.CreateProduct)
		vendors.GET("/products/:productId", s.authorizeVendorAction(authorization.ObjectProduct, authorization.ActionView), s.GetProduct)
		vendors.PATCH("/products/:productId", s.authorizeVendorAction(authorization.ObjectProduct, authorization.ActionUpdate), s.UpdateProduct)
		vendors.DELETE("/products/:productId", s.authorizeVendorAction(authorization.ObjectProduct, authorization.ActionDelete), s.DeleteProduct)

		vendors.GET("/orders", s.authorizeVendorAction(authorization.ObjectOrder, authorization.ActionView), s.ListOrders)
		vendors.GET("/orders/:orderId", s.authorizeVendorAction(authorization.ObjectOrder, authorization.ActionView), s.GetOrder)
		vendors.POST("/orders/:orderId/status", s.authorizeVendorAction(authorization.ObjectOrder, authorization.ActionUpdate), s.UpdateOrderStatus)
		vendors.POST("/orders/:orderId/confirm-payment", s.authorizeVendorAction(authorization.ObjectOrder, authorization.ActionUpdate), s.ConfirmOrderPayment)

		vendors.GET("/customers", s.authorizeVendorAction(authorization.ObjectCustomer, authorization.ActionView), s.ListCustomers)
		vendors.GET("/customers/:customerId", s.authorizeVendorAction(authorization.ObjectCustomer, authorization.ActionView), s.GetCustomer)

		vendors.GET("/domains", s.authorizeVendorAction(authorization.ObjectDomain, authorization.ActionView), s.ListDomains)
		vendors.POST("/domains", s.authorizeVendorAction(authorization.ObjectDomain, authorization.ActionCreate), s.AddDomain)
		vendors.POST("/domains/:domainId/primary", s.authorizeVendorAction(authorization.ObjectDomain, authorization.ActionUpdate), s.SetPrimaryDomain)
		vendors.DELETE("/domains/:domainId", s.authorizeVendorAction(authorization.ObjectDomain, authorization.ActionDelete), s.DeleteDomain)

		vendors.GET("/transactions", s.authorizeVendorAction(authorization.ObjectTransaction, authorization.ActionView), s.ListTransactions)
		vendors.POST("/transactions/:txId/refund", s.authorizeVendorAction(authorization.ObjectTransaction, authorization.ActionRefund), s.RefundTransaction)
		vendors.GET("/balance", s.authorizeVendorAction(authorization.ObjectPayout, authorization.ActionView), s.GetBalance)
		vendors.GET("/payouts", s.authorizeVendorAction(authorization.ObjectPayout, authorization.ActionView), s.ListPayouts)
		vendors.POST("/payouts", s.authorizeVendorAction(authorization.ObjectPayout, authorization.ActionPayoutRequest), s.RequestPayout)
		vendors.GET("/analytics", s.authorizeVendorAction(authorization.ObjectTransaction, authorization.ActionView), s.GetAnalytics)
	}
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.WebAuthRequired())
	admin.Use(s.RequireAdmin())

	admin.GET("/vendors", s.AdminListVendors)
	admin.POST("/vendors/:id/activate", s.AdminActivateVendor)
	admin.POST("/vendors/:id/suspend", s.AdminSuspendVendor)
	admin.POST("/vendors/:id/plan", s.AdminAssignPlan)
	admin.POST("/vendors/:id/charge", s.AdminChargeVendor)

	admin.GET("/plans", s.AdminListPlans)
	admin.POST("/plans", s.AdminCreatePlan)
	admin.GET("/plans/:id", s.AdminGetPlan)
	admin.PATCH("/plans/:id", s.AdminUpdatePlan)
	admin.DELETE("/plans/:id", s.AdminDeletePlan)

	admin.POST("/domains/:id/verify", s.AdminVerifyDomain)
	admin.POST("/payouts/:id/settle", s.AdminSettlePayout)
	admin.POST("/users/:id/impersonate", s.AdminImpersonate)
}
