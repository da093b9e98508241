package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mealbox/mealbox/handlers"
	"github.com/mealbox/mealbox/internal/auth"
	"github.com/mealbox/mealbox/internal/catalog"
	"github.com/mealbox/mealbox/internal/config"
	"github.com/mealbox/mealbox/internal/database"
	"github.com/mealbox/mealbox/internal/models"
	"github.com/mealbox/mealbox/internal/oidc"
	"github.com/mealbox/mealbox/internal/sessions"
	"github.com/mealbox/mealbox/internal/storage"
	"github.com/mealbox/mealbox/internal/useragent"
	"github.com/mealbox/mealbox/internal/users"
	"github.com/mealbox/mealbox/pkg/logger"
	"github.com/mealbox/mealbox/pkg/metrics"
	"github.com/mealbox/mealbox/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

// app holds the wired dependencies of the host.
type app struct {
	cfg    *config.Config
	ctrl   *auth.Controller
	cols   *catalog.Collections
	images handlers.ImageStore
	redis  *redis.Client
	mongo  *mongo.Client
}

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	if cfg.Log.File != "" {
		f, err := logger.OpenFile(cfg.Log.File)
		if err != nil {
			logger.Fatalf("%v", err)
		}
		defer f.Close()
	}
	logger.Infof("config loaded: oauth=%v mongo=%v redis=%v", cfg.OAuth.Domain != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg}
	a.redis = connectRedis(ctx, cfg.Redis)
	a.mongo = connectMongo(ctx, cfg.MongoDB)
	if a.mongo != nil {
		defer func() { _ = a.mongo.Disconnect(context.Background()) }()
	}

	var store sessions.Store
	switch {
	case a.redis != nil:
		store = sessions.NewRedisStore(a.redis, cfg.Session.Namespace+"session:")
		logger.Infof("Using Redis for session storage")
	case a.mongo != nil:
		store = sessions.NewMongoStore(a.mongo.Database(cfg.MongoDB.Database).Collection("session_entries"), cfg.Session.Namespace)
		logger.Infof("Using MongoDB for session storage")
	default:
		store = sessions.NewMemoryStore()
		logger.Warnf("no Redis or MongoDB configured; the session will not survive a restart")
	}

	a.cols = catalog.MemoryCollections()
	if a.mongo != nil {
		cols, err := catalog.MongoCollections(ctx, a.mongo.Database(cfg.MongoDB.Database))
		if err != nil {
			logger.Warnf("MongoDB collections unavailable, using memory: %v", err)
		} else {
			a.cols = cols
		}
	}

	agent := useragent.NewLoopback(cfg.OAuth.RedirectURI, cfg.Session.AuthTimeout, cfg.Session.BrowserCommand)
	a.ctrl = auth.NewController(nil, sessions.NewService(store), users.NewService(a.cols.Users), agent, auth.Options{
		Cooldown:        cfg.Session.LoginCooldown,
		ExpiryBuffer:    cfg.Session.ExpiryBuffer,
		RefreshOnExpiry: cfg.Session.RefreshOnExpiry,
	})
	a.ctrl.Watch(func(s auth.Snapshot) {
		logger.Debugf("session: state=%s destination=%s", s.State, s.Destination)
	})
	initProvider(ctx, cfg.OAuth, a.ctrl)
	a.ctrl.Restore(ctx)

	if mc := storage.LoadMinIOConfig(); mc.Endpoint != "" {
		st, err := storage.NewMinIOStorage(mc)
		if err != nil {
			logger.Warnf("image uploads disabled: %v", err)
		} else {
			a.images = st
		}
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r := a.router()
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadTimeout: cfg.Server.ReadTimeout, WriteTimeout: cfg.Server.WriteTimeout}
	go func() {
		logger.Infof("Starting mealbox host on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("shutdown: %v", err)
	}
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Host == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Host + ":" + cfg.Port, Password: cfg.Password, DB: cfg.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Host, cfg.Port, err)
		_ = client.Close()
		return nil
	}
	logger.Infof("Connected to Redis: %s:%s", cfg.Host, cfg.Port)
	return client
}

// connectMongo retries with backoff to tolerate startup races.
func connectMongo(ctx context.Context, cfg config.MongoDBConfig) *mongo.Client {
	if cfg.URI == "" {
		return nil
	}
	const maxAttempts = 5
	backoff := time.Second
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := database.ConnectMongo(ctx, cfg.URI, cfg.Timeout)
		if err == nil {
			logger.Infof("Connected to MongoDB (database=%s)", cfg.Database)
			return client
		}
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	logger.Warnf("could not connect to MongoDB after %d attempts", maxAttempts)
	return nil
}

// initProvider sets the identity provider on ctrl. When discovery fails it
// keeps retrying in the background and reports false; until then logins
// fail as not ready.
func initProvider(ctx context.Context, cfg config.OAuthConfig, ctrl *auth.Controller) bool {
	if cfg.Domain == "" || cfg.ClientID == "" {
		logger.Warnf("OAuth not configured; sign-in is unavailable")
		return false
	}
	c, err := oidc.NewClient(ctx, cfg)
	if err == nil {
		ctrl.SetProvider(c)
		return true
	}
	logger.Warnf("identity provider unavailable: %v", err)
	go func() {
		backoff := time.Second
		for attempt := 2; ; attempt++ {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			c, err := oidc.NewClient(ctx, cfg)
			if err == nil {
				ctrl.SetProvider(c)
				logger.Infof("identity provider ready after %d attempts", attempt)
				return
			}
			logger.Warnf("attempt %d: identity provider unavailable: %v", attempt, err)
			if backoff < time.Minute {
				backoff *= 2
			}
		}
	}()
	return false
}

func (a *app) router() *gin.Engine {
	r := gin.New()

	r.Use(middleware.CORS(a.cfg.Server.CORSOrigins))
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", a.ready)

	handlers.RegisterSwagger(r)
	handlers.NewAuthHandler(a.ctrl).Register(&r.RouterGroup)

	api := r.Group("/api", middleware.RequireSession(a.ctrl))
	if a.cfg.RateLimit.Enabled {
		if a.cfg.RateLimit.UseRedis && a.redis != nil {
			win := time.Duration(a.cfg.RateLimit.WindowSeconds) * time.Second
			api.Use(middleware.RedisRateLimitMiddleware(a.redis, a.cfg.Session.Namespace, a.cfg.RateLimit.RPS, a.cfg.RateLimit.Burst, win))
		} else {
			api.Use(middleware.RateLimitMiddleware(a.cfg.RateLimit.RPS, a.cfg.RateLimit.Burst))
		}
	}
	api.GET("/me", handlers.Me)
	handlers.NewSetupHandler(users.NewService(a.cols.Users), a.ctrl).Register(api)
	a.cols.Register(api, func(c *gin.Context) string {
		if u := middleware.CurrentUser(c); u != nil {
			return u.UID
		}
		return ""
	})
	a.cols.RegisterUsers(api.Group("", middleware.RequireUserType(models.UserTypeAdmin)))
	if a.images != nil {
		handlers.NewUploadHandler(a.images).Register(api)
	} else {
		logger.Infof("image uploads not registered: MinIO is not configured")
	}
	return r
}

// ready returns 200 only when the session can sign in: a provider is set and
// the configured stores answer.
func (a *app) ready(c *gin.Context) {
	ready := true
	deps := map[string]bool{"oidc": a.ctrl.ProviderReady()}
	if !deps["oidc"] {
		ready = false
	}
	if a.cfg.Redis.Host != "" {
		deps["redis"] = a.redis != nil && a.redis.Ping(c.Request.Context()).Err() == nil
		ready = ready && deps["redis"]
	}
	if a.cfg.MongoDB.URI != "" {
		deps["mongodb"] = a.mongo != nil && a.mongo.Ping(c.Request.Context(), nil) == nil
		ready = ready && deps["mongodb"]
	}
	deps["images"] = a.images != nil

	uptime := time.Since(startTime).String()
	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": uptime})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": uptime})
}
