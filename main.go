package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"civicconnect-be/config"
	"civicconnect-be/controllers"
	"civicconnect-be/logger"
	"civicconnect-be/middlewares"
	"civicconnect-be/routes"
	"civicconnect-be/services"
	"civicconnect-be/store"
	authUtils "civicconnect-be/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", map[string]interface{}{"error": err.Error()})
	}
	logger.Initialize(cfg.LogLevel, cfg.Production())
	gin.SetMode(cfg.Server.GinMode)

	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open store", map[string]interface{}{"driver": cfg.Store.Driver, "error": err.Error()})
	}
	defer st.Close(context.Background())

	redisClient, err := config.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		logger.Warn("REDIS_ADDRESS not set, role cache and daily issue limit disabled", nil)
	}

	var cache services.RoleCache
	if redisClient != nil {
		cache = services.NewRedisRoleCache(redisClient, cfg.Issues.RoleCacheTTL)
	}
	tokens := authUtils.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Expiry)
	roles := services.NewRoleResolver(st, cache)
	accounts := services.NewAccountService(st, tokens, roles)
	issues := services.NewIssueService(st, cfg.Issues.MutationScope)

	if err := controllers.RegisterValidators(); err != nil {
		logger.Fatal("Failed to register validators", map[string]interface{}{"error": err.Error()})
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.PrometheusMiddleware())
	r.Use(middlewares.SecureHeaders(middlewares.SecureOptions(!cfg.Production())))
	if cfg.Server.RateLimitIP != "" {
		limiter, err := middlewares.NewIPRateLimiter(cfg.Server.RateLimitIP)
		if err != nil {
			logger.Fatal("Invalid RATE_LIMIT_IP", map[string]interface{}{"error": err.Error()})
		}
		r.Use(limiter)
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.Setup(r, routes.Deps{
		Tokens: tokens,
		Roles:  roles,
		Auth: controllers.NewAuthController(accounts, controllers.CookieConfig{
			Domain:     cfg.Server.Domain,
			Production: cfg.Production(),
			MaxAge:     cfg.JWT.Expiry,
		}),
		Issues:     controllers.NewIssueController(issues),
		Comments:   controllers.NewCommentController(issues),
		Health:     controllers.NewHealthController(st, redisClient, cfg.Server.Env),
		Redis:      redisClient,
		IssueQueue: cfg.Redis.IssueLimitQueue,
		DailyLimit: cfg.Issues.DailyLimit,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", map[string]interface{}{"port": cfg.Server.Port, "store": cfg.Store.Driver})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
	}
}

// openStore builds the Store selected by STORE_DRIVER and prepares its schema.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := config.ConnectPostgres(cfg.Store, !cfg.Production())
		if err != nil {
			return nil, err
		}
		st := store.NewPostgresStore(db)
		if err := st.AutoMigrate(); err != nil {
			return nil, err
		}
		return st, nil
	case config.StoreMemory:
		logger.Warn("Using in-memory store, data is lost on restart", nil)
		return store.NewMemoryStore(), nil
	default:
		db, err := config.ConnectMongo(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		st := store.NewMongoStore(db, cfg.Store.MongoTransactions)
		if err := st.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return st, nil
	}
}
