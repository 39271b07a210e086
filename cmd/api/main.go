// Command api bootstraps every module and serves the wedding sharing API.
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

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/imadgeboyega/wedding-backend/internal/admin"
	"github.com/imadgeboyega/wedding-backend/internal/auth"
	"github.com/imadgeboyega/wedding-backend/internal/blog"
	"github.com/imadgeboyega/wedding-backend/internal/caption"
	"github.com/imadgeboyega/wedding-backend/internal/common/database"
	"github.com/imadgeboyega/wedding-backend/internal/common/logger"
	"github.com/imadgeboyega/wedding-backend/internal/config"
	"github.com/imadgeboyega/wedding-backend/internal/feed"
	"github.com/imadgeboyega/wedding-backend/internal/media"
	"github.com/imadgeboyega/wedding-backend/internal/messaging"
	"github.com/imadgeboyega/wedding-backend/internal/posts"
	"github.com/imadgeboyega/wedding-backend/internal/profile"
	"github.com/imadgeboyega/wedding-backend/internal/web"
)

func main() {
	// 1. Load environment variables
	envErr := godotenv.Load()

	// 2. Load and validate configuration
	cfg := config.Load()

	log, err := logger.NewForEnvironment(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if envErr != nil {
		log.Info("no .env file found, using environment variables")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. Connect to Postgres, or serve sample data
	var db *sqlx.DB
	if cfg.SampleMode() {
		log.Warn("DATABASE_URL not set, serving read-only sample data")
	} else {
		db, err = database.NewPostgresDBFromURL(ctx, cfg.DatabaseURL, database.DefaultPoolConfig())
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := database.RunMigrations(ctx, db, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
		log.Info("database connected")
	}

	// 4. Connect to Redis when configured
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClientFromURL(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable, falling back to in-process state", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Info("redis connected")
		}
	}

	// 5. Media storage
	storage, err := newStorage(cfg)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}
	ingestor := media.NewIngestor(storage, "posts", cfg.MaxUploadSize, log.Named("media"))

	// 6. Auth
	authService := auth.NewService(
		authRepository(db),
		newLimiter(cfg, redisClient),
		newResetStore(redisClient),
		newMailer(cfg, log),
		auth.NewGoogleVerifier(cfg.GoogleClientID),
		&auth.Config{
			JWTSecret:          cfg.JWTSecret,
			AccessTokenExpiry:  cfg.AccessTokenExpiry,
			RefreshTokenExpiry: cfg.RefreshTokenExpiry,
			BCryptCost:         cfg.BCryptCost,
			ResetExpiry:        cfg.PasswordResetExpiry,
			ResetURL:           cfg.ResetURL,
			AllowedDomain:      cfg.AllowedEmailDomain,
			IsAdmin:            cfg.IsAdminEmail,
		},
		log.Named("auth"),
	)
	authMiddleware := auth.NewMiddleware(authService)

	// 7. Profiles feed author and peer lookups
	profileRepo := profile.NewSampleRepository()
	if db != nil {
		profileRepo = profile.NewPostgresRepository(db)
	}
	profileService := profile.NewService(profileRepo, ingestor.WithNamespace("avatars"), log.Named("profile"))

	authors := posts.AuthorDirectoryFunc(func(ctx context.Context, userID string) (posts.Author, error) {
		p, err := profileService.GetProfile(ctx, userID)
		if err != nil {
			return posts.Author{}, err
		}
		return posts.Author{ID: p.ID, Name: p.DisplayName, Avatar: p.AvatarURL}, nil
	})
	peers := messaging.PeerDirectoryFunc(func(ctx context.Context, userID string) (messaging.Peer, error) {
		p, err := profileService.GetProfile(ctx, userID)
		if err != nil {
			return messaging.Peer{}, err
		}
		return messaging.Peer{ID: p.ID, Name: p.DisplayName, Avatar: p.AvatarURL}, nil
	})

	// 8. Posts and the in-memory feed
	postsRepo := posts.NewSampleRepository()
	if db != nil {
		postsRepo = posts.NewPostgresRepository(db)
	}
	postsService := posts.NewService(postsRepo, ingestor, authors, log.Named("posts"))

	feedStore := feed.NewStore(postsService, cfg.FeedWindow, log.Named("feed"))
	if err := feedStore.Load(ctx); err != nil {
		log.Error("failed to warm feed", zap.Error(err))
	}
	postsService.OnCreate(feedStore.Insert)

	// 9. Messaging
	var broker messaging.Broker
	if redisClient != nil {
		broker = messaging.NewRedisBroker(redisClient, messaging.DefaultBrokerChannel, log.Named("broker"))
	}
	hub := messaging.NewHub(broker, log.Named("hub"))
	go hub.Run(ctx)

	messagingRepo := messaging.NewMemoryRepository()
	if db != nil {
		messagingRepo = messaging.NewPostgresRepository(db)
	}
	messagingService := messaging.NewService(
		messagingRepo,
		hub,
		newPusher(ctx, cfg, messagingRepo, log),
		peers,
		cfg.ChatHistoryLimit,
		log.Named("messaging"),
	)
	go messaging.NewChatCleanup(messagingService, cfg.ChatRetention, time.Hour, log.Named("chat_cleanup")).Start(ctx)

	// 10. Blog and moderation
	blogRepo := blog.NewSampleRepository()
	if db != nil {
		blogRepo = blog.NewPostgresRepository(db)
	}
	blogService := blog.NewService(blogRepo, ingestor.WithNamespace("blog"), log.Named("blog"))

	adminService := admin.NewService(feedStore, blogService, []admin.Dataset{
		{Name: "posts", Store: postsService},
		{Name: "blog", Store: blogService},
		{Name: "messaging", Store: messagingService},
	}, log.Named("admin"))

	webHandler, err := web.NewHandler(web.DefaultConfig())
	if err != nil {
		log.Fatal("failed to render web assets", zap.Error(err))
	}

	// 11. Routes
	router := newRouter()

	if !cfg.UseS3 {
		router.PathPrefix("/uploads/").Handler(
			http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.LocalUploadDir))))
	}
	webHandler.RegisterRoutes(router)
	auth.NewHandler(authService, authMiddleware).RegisterRoutes(router)

	// the admin prefix is matched before the general one
	adminAPI := router.PathPrefix("/api/v1/admin").Subrouter()
	adminAPI.Use(authMiddleware.Authenticate, authMiddleware.RequireAdmin)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.Authenticate)

	profile.RegisterRoutes(api, profile.NewHandler(profileService, cfg.MaxUploadSize, log.Named("profile")))
	posts.RegisterRoutes(api, posts.NewHandler(postsService, cfg.MaxUploadSize, log.Named("posts")))
	feed.NewHandler(feedStore, postsService, log.Named("feed")).RegisterRoutes(api)
	messaging.RegisterRoutes(api, messaging.NewHandler(ctx, messagingService, hub, cfg.AllowedOrigins, log.Named("ws")))
	blog.RegisterRoutes(api, adminAPI, blog.NewHandler(blogService, cfg.MaxUploadSize, log.Named("blog")))
	caption.NewHandler(caption.NewClient(cfg.CaptionEndpoint, cfg.CaptionAPIKey, cfg.CaptionTimeout, log.Named("caption"))).RegisterRoutes(api)
	admin.RegisterRoutes(adminAPI, admin.NewHandler(adminService, cfg.SampleMode(), log.Named("admin")))

	// 12. Serve
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      withMiddleware(router, cfg.AllowedOrigins, log),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.Environment),
			zap.Bool("sample_mode", cfg.SampleMode()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	// stops the hub, websocket clients and chat cleanup
	stop()
	feedStore.Wait()

	log.Info("server exited")
}

func newStorage(cfg *config.Config) (media.Storage, error) {
	if cfg.UseS3 {
		s3, err := media.NewS3Storage(cfg.S3Region, cfg.S3Bucket, cfg.S3PublicURL)
		if err != nil {
			return nil, err
		}
		return s3, nil
	}
	local, err := media.NewLocalStorage(cfg.LocalUploadDir, cfg.BaseURL+"/uploads")
	if err != nil {
		return nil, err
	}
	return local, nil
}

func authRepository(db *sqlx.DB) auth.Repository {
	if db == nil {
		return auth.NewMemoryRepository()
	}
	return auth.NewPostgresRepository(db)
}

func newLimiter(cfg *config.Config, client *redis.Client) auth.AttemptLimiter {
	if client == nil {
		return auth.NewMemoryLimiter(cfg.LoginAttemptsMax, cfg.LoginAttemptsWindow)
	}
	return auth.NewRedisLimiter(client, cfg.LoginAttemptsMax, cfg.LoginAttemptsWindow)
}

func newResetStore(client *redis.Client) auth.ResetStore {
	if client == nil {
		return auth.NewMemoryResetStore()
	}
	return auth.NewRedisResetStore(client)
}

func newMailer(cfg *config.Config, log *zap.Logger) auth.Mailer {
	switch cfg.EmailProvider {
	case "sendgrid":
		return auth.NewSendGridMailer(cfg.SendGridAPIKey, cfg.EmailFrom)
	case "smtp":
		return auth.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom)
	default:
		log.Info("email provider is mock, reset links are logged")
		return auth.NewMockMailer(log.Named("mailer"))
	}
}

func newPusher(ctx context.Context, cfg *config.Config, tokens messaging.TokenStore, log *zap.Logger) messaging.Pusher {
	if cfg.FirebaseCredentialsFile == "" {
		log.Info("push notifications disabled, firebase credentials not configured")
		return messaging.NewLogPusher(log.Named("push"))
	}
	pusher, err := messaging.NewFCMPusher(ctx, cfg.FirebaseCredentialsFile, tokens, log.Named("push"))
	if err != nil {
		log.Warn("push notifications disabled", zap.Error(err))
		return messaging.NewLogPusher(log.Named("push"))
	}
	return pusher
}
