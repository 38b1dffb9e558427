package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"manualhub/internal/activity"
	"manualhub/internal/auditlog"
	"manualhub/internal/auth"
	"manualhub/internal/external"
	"manualhub/internal/manuals"
	"manualhub/internal/products"
	"manualhub/internal/ratelimit"
	"manualhub/internal/resolver"
	"manualhub/internal/search"
	"manualhub/pkg/database"
	"manualhub/pkg/logger"
	"manualhub/pkg/storage"
	"manualhub/pkg/utils"
)

func main() {
	srvCfg := utils.LoadServerConfig()

	logg, err := logger.New(srvCfg.LogMode)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logg.Sync()

	dbCfg := database.DefaultConfig()
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logg.Fatal("db migrate failed", "err", err)
	}

	if srvCfg.LogMode == "prod" || srvCfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// Optional: avoid “trusted all proxies” warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Activity feed: TCP side first so binding errors show up early.
	hub := activity.NewHub()
	tcpSrv := activity.NewServer(srvCfg.FeedAddr, hub, logg)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Object storage is optional: without a bucket the admin panel
	// still works, only PDF upload is disabled.
	var bucket storage.BucketService
	if bucketCfg := storage.LoadConfig(); bucketCfg.Bucket != "" {
		bucket, err = storage.NewBucketService(context.Background(), logg, bucketCfg)
		if err != nil {
			logg.Fatal("object storage init failed", "err", err)
		}
		defer bucket.Close()
	} else {
		logg.Warn("MANUALHUB_GCS_BUCKET not set, manual file upload disabled")
	}

	// Public search/download, rate limited per caller IP.
	rateCfg := utils.LoadRateLimitConfig()
	limiter := ratelimit.NewIPLimiter(rateCfg.IPRPS, rateCfg.IPBurst)
	defer limiter.Stop()

	auditRepo := auditlog.NewRepo(db)
	res := resolver.New(resolver.NewSQLStore(db))
	searchHandler := search.NewHandler(res, auditRepo, hub, logg)

	public := router.Group("/api")
	public.Use(ratelimit.Middleware(limiter))
	searchHandler.RegisterRoutes(public)

	// Auth
	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc, authCfg.BootstrapToken)
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Admin panel (staff JWT)
	admin := router.Group("/admin")
	admin.Use(auth.AuthMiddleware(tokenSvc, authRepo))

	admin.GET("/me", func(c *gin.Context) {
		claims := auth.MustGetClaims(c)
		c.JSON(http.StatusOK, gin.H{
			"id":       claims.UserID,
			"username": claims.Username,
			"email":    claims.Email,
		})
	})

	productRepo := products.NewRepo(db)
	products.NewHandler(productRepo).RegisterRoutes(admin.Group("/products"))

	manualRepo := manuals.NewRepo(db)
	manuals.NewHandler(manualRepo, bucket, logg).RegisterRoutes(admin.Group("/manuals"))

	auditlog.NewHandler(auditRepo).RegisterRoutes(admin)

	// Live activity feed over WebSocket (token via ?token= for browsers).
	admin.GET("/feed", activity.WSHandler(hub, logg))

	// Integration API for upstream systems (static bearer tokens).
	extCfg := utils.LoadExternalAPIConfig()
	if len(extCfg.Tokens) > 0 {
		ext := router.Group("/external")
		ext.Use(external.TokenMiddleware(extCfg.Tokens))
		external.NewHandler(productRepo, manualRepo, logg).RegisterRoutes(ext)
	} else {
		logg.Warn("MANUALHUB_API_TOKENS not set, external API disabled")
	}

	httpSrv := &http.Server{
		Addr:    srvCfg.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logg.Info("http api server listening", "addr", srvCfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logg.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		logg.Error("server error", "err", err)
	}

	logg.Info("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logg.Error("http shutdown error", "err", err)
	}
	if err := tcpSrv.Close(); err != nil {
		logg.Error("tcp shutdown error", "err", err)
	}

	wg.Wait()
	logg.Info("servers stopped")
}
