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

	"listbridge/internal/auth"
	"listbridge/internal/events"
	"listbridge/internal/httpapi"
	"listbridge/internal/listcache"
	"listbridge/internal/notify"
	"listbridge/internal/platform"
	"listbridge/internal/ratelimit"
	"listbridge/internal/reconcile"
	"listbridge/internal/syncer"
	"listbridge/pkg/database"
	"listbridge/pkg/models"
	"listbridge/pkg/utils"
)

func main() {
	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	srvCfg := utils.LoadServerConfig()
	syncCfg := utils.LoadSyncConfig()

	router := gin.Default()

	// Optional: avoid "trusted all proxies" warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Progress events: in-process bus fanned out to TCP and WebSocket clients.
	bus := events.NewBus(nil)
	hub := events.NewHub()
	bus.Subscribe(hub.Broadcast)
	router.GET("/ws", events.WSHandler(hub))
	tcpSrv := events.NewServer(srvCfg.StreamAddr, hub)

	// UDP clients only hear about finished runs, not per-item progress.
	notifySrv := notify.NewServer(srvCfg.NotifyAddr, notify.NewRegistry(), nil)
	bus.Subscribe(notifySrv.Observe)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Path})
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

	// Platform bindings share one limiter so every request path obeys the
	// per-platform budgets.
	limiter := ratelimit.New()
	limiter.SetPolicy(platform.LimitKeyJikan, ratelimit.Policy{Interval: syncCfg.JikanInterval})
	limiter.SetPolicy(platform.LimitKeyMAL, ratelimit.Policy{Interval: syncCfg.MALInterval})
	limiter.SetPolicy(platform.LimitKeyAniList, ratelimit.Policy{
		WindowLimit: syncCfg.AniListPerMin,
		WindowSpan:  time.Minute,
		Buffer:      syncCfg.AniListBuffer,
	})

	mal := platform.NewMAL(os.Getenv("LISTBRIDGE_MAL_TOKEN"), limiter)
	anilist := platform.NewAniList(os.Getenv("LISTBRIDGE_ANILIST_TOKEN"), limiter)
	fetcher := platform.NewFetcher(mal, anilist, bus)

	reconciler := reconcile.New(bus)
	reconciler.Threshold = syncCfg.MatchThreshold

	runRepo := syncer.NewRunRepo(db)
	driver := syncer.NewDriver(map[models.Platform]platform.Mutator{
		models.PlatformMAL:     mal,
		models.PlatformAniList: anilist,
	}, bus, runRepo, syncCfg.ItemDelay)

	snapshots := listcache.NewRepo(db)
	if n, err := snapshots.Prune(context.Background(), srvCfg.SnapshotTTL); err != nil {
		log.Printf("[listcache] prune failed: %v", err)
	} else if n > 0 {
		log.Printf("[listcache] pruned %d expired snapshots", n)
	}

	// Auth
	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc)
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Protected routes
	protected := router.Group("/api")
	protected.Use(auth.AuthMiddleware(tokenSvc))

	protected.GET("/me", func(c *gin.Context) {
		claims := auth.MustGetClaims(c)
		c.JSON(http.StatusOK, gin.H{
			"id":               claims.UserID,
			"username":         claims.Username,
			"mal_username":     claims.MALUsername,
			"anilist_username": claims.AniListUsername,
		})
	})

	apiHandler := httpapi.NewHandler(fetcher, reconciler, driver, runRepo, snapshots, syncCfg.ImportMaxBytes)
	apiHandler.RegisterRoutes(protected)

	httpSrv := &http.Server{
		Addr:    srvCfg.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	go func() {
		if err := notifySrv.Run(); err != nil {
			log.Printf("udp notify server stopped: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("HTTP API server listening on %s", srvCfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down servers")
	driver.Cancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("servers stopped")
}
