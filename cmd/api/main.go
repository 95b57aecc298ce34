package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chatly/chatly-backend/internal/config"
	"github.com/chatly/chatly-backend/internal/domain"
	"github.com/chatly/chatly-backend/internal/handler"
	"github.com/chatly/chatly-backend/internal/middleware"
	"github.com/chatly/chatly-backend/internal/repository"
	"github.com/chatly/chatly-backend/internal/routes"
	"github.com/chatly/chatly-backend/internal/service"
	"github.com/chatly/chatly-backend/internal/ws"
	"github.com/chatly/chatly-backend/pkg/jwt"
	pkglogger "github.com/chatly/chatly-backend/pkg/logger"
	pkgredis "github.com/chatly/chatly-backend/pkg/redis"
	pkgstorage "github.com/chatly/chatly-backend/pkg/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	dotenvFiles := config.LoadDotEnv()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env)
	log := pkglogger.GetLogger()
	log.Info().Str("env", env).Strs("dotenv", dotenvFiles).Msg("starting chatly backend")

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := initDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	redisClient, err := pkgredis.NewClient(
		cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, running single-node")
		redisClient = nil
	}

	var uploader service.Uploader
	if cfg.Storage.Enabled {
		s3Client, err := pkgstorage.NewS3Client(pkgstorage.S3Config{
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			Bucket:          cfg.Storage.Bucket,
			CDNURL:          cfg.Storage.CDNURL,
			BasePath:        cfg.Storage.BasePath,
			ForcePathStyle:  cfg.Storage.ForcePathStyle,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init media storage")
		}
		uploader = s3Client
	} else {
		log.Warn().Msg("media storage disabled, uploads will be rejected")
		uploader = disabledUploader{}
	}

	hub := ws.NewHub(redisClient)
	go hub.Run()

	// repositories
	userRepo := repository.NewUserRepository(db)
	friendRepo := repository.NewFriendRequestRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	statusRepo := repository.NewStatusRepository(db)

	// services
	mediaService := service.NewMediaService(uploader)
	relationshipService := service.NewRelationshipService(userRepo, friendRepo, hub)
	conversationService := service.NewConversationService(convRepo, msgRepo)
	messageService := service.NewMessageService(msgRepo, convRepo, userRepo,
		relationshipService, conversationService, mediaService, hub)
	groupService := service.NewGroupService(convRepo, msgRepo, userRepo, mediaService, hub)
	statusService := service.NewStatusService(statusRepo, userRepo, relationshipService, mediaService, hub)

	// handlers
	socketEvents := handler.NewSocketEventHandler(messageService)
	handlers := &routes.Handlers{
		Chat:   handler.NewChatHandler(conversationService, messageService),
		Group:  handler.NewGroupHandler(groupService),
		Friend: handler.NewFriendHandler(relationshipService),
		Status: handler.NewStatusHandler(statusService),
		WS:     handler.NewWSHandler(hub, socketEvents, userRepo, convRepo, relationshipService),
	}

	jwtManager := jwt.NewManager(cfg.JWT.Secret)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())
	router.Use(cors.New(corsConfig(cfg)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	routes.Setup(router, handlers, jwtManager)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.Shutdown()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if cfg.IsDevelopment() {
		logLevel = gormlogger.Info
	}
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.FriendRequest{},
		&domain.Conversation{},
		&domain.Message{},
		&domain.Status{},
	); err != nil {
		return nil, err
	}
	return db, nil
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.DefaultConfig()
	if cfg.CORS.AllowOrigins == "" || cfg.CORS.AllowOrigins == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = strings.Split(cfg.CORS.AllowOrigins, ",")
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	corsCfg.AllowCredentials = !corsCfg.AllowAllOrigins
	return corsCfg
}

// disabledUploader rejects uploads when no storage backend is configured
type disabledUploader struct{}

func (disabledUploader) Upload(context.Context, string, []byte, string) (string, error) {
	return "", errors.New("media storage disabled")
}

func (disabledUploader) Delete(context.Context, string) error {
	return errors.New("media storage disabled")
}
