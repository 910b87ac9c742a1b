package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/statement/internal/audit/domain"
	authdomain "github.com/smallbiznis/statement/internal/auth/domain"
	"github.com/smallbiznis/statement/internal/authorization"
	"github.com/smallbiznis/statement/internal/config"
	customerdomain "github.com/smallbiznis/statement/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/statement/internal/invoice/domain"
	"github.com/smallbiznis/statement/internal/observability"
	obslogger "github.com/smallbiznis/statement/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/statement/internal/observability/metrics"
	obstracing "github.com/smallbiznis/statement/internal/observability/tracing"
	pricingdomain "github.com/smallbiznis/statement/internal/pricingrule/domain"
	productdomain "github.com/smallbiznis/statement/internal/product/domain"
	"github.com/smallbiznis/statement/internal/ratelimit"
	reportdomain "github.com/smallbiznis/statement/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	registerJSONFieldNames()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine       *gin.Engine
	cfg          config.Config
	profile      *config.ProfileHolder
	log          *zap.Logger
	authsvc      authdomain.Service
	authzSvc     authorization.Service
	customerSvc  customerdomain.Service
	productSvc   productdomain.Service
	pricingSvc   pricingdomain.Service
	invoiceSvc   invoicedomain.Service
	reportSvc    reportdomain.Service
	auditSvc     auditdomain.Service
	loginLimiter *ratelimit.LoginLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Profile      *config.ProfileHolder
	Log          *zap.Logger
	Authsvc      authdomain.Service
	AuthzSvc     authorization.Service
	CustomerSvc  customerdomain.Service
	ProductSvc   productdomain.Service
	PricingSvc   pricingdomain.Service
	InvoiceSvc   invoicedomain.Service
	ReportSvc    reportdomain.Service
	AuditSvc     auditdomain.Service     `optional:"true"`
	LoginLimiter *ratelimit.LoginLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		profile:      p.Profile,
		log:          p.Log.Named("http"),
		authsvc:      p.Authsvc,
		authzSvc:     p.AuthzSvc,
		customerSvc:  p.CustomerSvc,
		productSvc:   p.ProductSvc,
		pricingSvc:   p.PricingSvc,
		invoiceSvc:   p.InvoiceSvc,
		reportSvc:    p.ReportSvc,
		auditSvc:     p.AuditSvc,
		loginLimiter: p.LoginLimiter,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.LoginRateLimit(), s.Login)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.AuthRequired())

	// -------- Customers --------
	api.GET("/customers", s.authorize(authorization.ObjectCustomer, authorization.ActionView), s.ListCustomers)
	api.POST("/customers", s.authorize(authorization.ObjectCustomer, authorization.ActionCreate), s.CreateCustomer)
	api.GET("/customers/:id", s.authorize(authorization.ObjectCustomer, authorization.ActionView), s.GetCustomerByID)
	api.PATCH("/customers/:id", s.authorize(authorization.ObjectCustomer, authorization.ActionUpdate), s.UpdateCustomer)
	api.DELETE("/customers/:id", s.authorize(authorization.ObjectCustomer, authorization.ActionDelete), s.DeleteCustomer)
	api.GET("/customers/:id/next-serial", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.PreviewNextSerial)

	// -------- Products --------
	api.GET("/products", s.authorize(authorization.ObjectProduct, authorization.ActionView), s.ListProducts)
	api.POST("/products", s.authorize(authorization.ObjectProduct, authorization.ActionCreate), s.CreateProduct)
	api.GET("/products/:id", s.authorize(authorization.ObjectProduct, authorization.ActionView), s.GetProductByID)
	api.PATCH("/products/:id", s.authorize(authorization.ObjectProduct, authorization.ActionUpdate), s.UpdateProduct)
	api.POST("/products/:id/archive", s.authorize(authorization.ObjectProduct, authorization.ActionDelete), s.ArchiveProduct)

	// -------- Pricing rules --------
	api.GET("/pricing-rules", s.authorize(authorization.ObjectPricingRule, authorization.ActionView), s.ListPricingRules)
	api.POST("/pricing-rules", s.authorize(authorization.ObjectPricingRule, authorization.ActionCreate), s.CreatePricingRule)
	api.GET("/pricing-rules/:id", s.authorize(authorization.ObjectPricingRule, authorization.ActionView), s.GetPricingRule)
	api.PUT("/pricing-rules/:id", s.authorize(authorization.ObjectPricingRule, authorization.ActionUpdate), s.UpdatePricingRule)
	api.DELETE("/pricing-rules/:id", s.authorize(authorization.ObjectPricingRule, authorization.ActionDelete), s.DeletePricingRule)
	api.POST("/pricing-rules/:id/toggle", s.authorize(authorization.ObjectPricingRule, authorization.ActionUpdate), s.TogglePricingRule)
	api.POST("/pricing/quote", s.authorize(authorization.ObjectPricing, authorization.ActionQuote), s.QuotePrice)

	// -------- Invoices --------
	api.GET("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.ListInvoices)
	api.POST("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionCreate), s.CreateInvoice)
	api.POST("/invoices/batch-sign", s.authorize(authorization.ObjectInvoice, authorization.ActionSign), s.BatchSignInvoices)
	api.GET("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.GetInvoiceByID)
	api.PUT("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionUpdate), s.SaveInvoice)
	api.DELETE("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionDelete), s.DeleteInvoice)
	api.POST("/invoices/:id/sign", s.authorize(authorization.ObjectInvoice, authorization.ActionSign), s.SignInvoice)
	api.GET("/invoices/:id/pdf", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.RenderInvoicePDF)

	// -------- Reports --------
	api.GET("/reports/revenue", s.authorize(authorization.ObjectReport, authorization.ActionView), s.RevenueReport)

	// -------- Audit --------
	api.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)
}
