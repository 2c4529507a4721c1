package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ledger-admin-go/internal/api"
	"ledger-admin-go/internal/auth"
	"ledger-admin-go/internal/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const (
	defaultAddr            = ":8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Server exposes the admin façade over HTTP
type Server struct {
	engine          *gin.Engine
	httpServer      *http.Server
	shutdownTimeout time.Duration
}

func New(cfg models.ServerConfig, admin *api.AdminService, verifier *auth.Verifier) *Server {
	engine := NewRouter(cfg, admin, verifier)

	addr := cfg.Addr
	if addr == "" {
		addr = defaultAddr
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	return &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           h2c.NewHandler(engine, &http2.Server{}),
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       2 * writeTimeout,
		},
		shutdownTimeout: shutdownTimeout,
	}
}

// NewRouter builds the gin engine with every route registered
func NewRouter(cfg models.ServerConfig, admin *api.AdminService, verifier *auth.Verifier) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           5 * time.Minute,
	}
	if len(cfg.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	h := &handlers{admin: admin}
	router.GET("/healthz", h.health)

	v1 := router.Group("/api/v1")
	v1.Use(authenticate(verifier))

	me := v1.Group("/me")
	{
		me.GET("", h.me)
		me.POST("/account", h.provisionSelf)
		me.GET("/balances", h.myBalances)
		me.GET("/requests", h.myRequests)
		me.POST("/deposits", h.requestDeposit)
		me.POST("/withdrawals", h.requestWithdrawal)
	}

	settlement := v1.Group("/settlement")
	settlement.Use(requireRole(models.RoleService, models.RoleAdmin))
	{
		settlement.POST("/adjustments", h.settle)
		settlement.GET("/trade-outcome/:userId", h.tradeOutcome)
	}

	adminGroup := v1.Group("/admin")
	adminGroup.Use(requireRole(models.RoleAdmin))
	{
		adminGroup.GET("/stats", h.stats)

		adminGroup.GET("/accounts", h.listAccounts)
		adminGroup.GET("/accounts/:userId", h.getAccount)
		adminGroup.GET("/accounts/:userId/audit", h.auditLog)
		adminGroup.PUT("/accounts/:userId/kyc", h.setKYCStatus)
		adminGroup.PUT("/accounts/:userId/status", h.setAccountStatus)

		adminGroup.GET("/accounts/:userId/balances", h.userBalances)
		adminGroup.GET("/accounts/:userId/adjustments", h.adjustmentHistory)
		adminGroup.GET("/accounts/:userId/reconcile/:asset", h.reconcile)
		adminGroup.POST("/accounts/:userId/credit", h.addFunds)
		adminGroup.POST("/accounts/:userId/debit", h.removeFunds)
		adminGroup.POST("/accounts/:userId/adjust", h.adjustBalance)

		adminGroup.PUT("/accounts/:userId/trade-outcome", h.setTradeOutcome)
		adminGroup.GET("/accounts/:userId/trade-outcome/logs", h.tradeOutcomeLogs)

		adminGroup.GET("/requests", h.listRequests)
		adminGroup.GET("/requests/:id", h.getRequest)
		adminGroup.POST("/deposits/:id/approve", h.approveDeposit)
		adminGroup.POST("/deposits/:id/reject", h.rejectDeposit)
		adminGroup.POST("/withdrawals/:id/approve", h.approveWithdrawal)
		adminGroup.POST("/withdrawals/:id/reject", h.rejectWithdrawal)
	}

	return router
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	zap.L().Info("Shutting down HTTP server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
