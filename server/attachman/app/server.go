package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	attachapi "task_server/server/attachman/api"
	"task_server/server/attachman/domain"
	"task_server/server/attachman/repository"
	"task_server/server/attachman/service"
	"task_server/server/attachman/storage"
	commonauth "task_server/server/common/auth"
	"task_server/server/common/infra/cache"
	"task_server/server/common/infra/db"
	"task_server/server/common/infra/mq"
	"task_server/server/common/infra/object"
	commonlog "task_server/server/common/log"
)

type Config struct {
	Port          string
	JWTSecret     string
	JWTTTLMinutes int

	PostgresDSN string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	RedisAddr string
	AMQPURL   string
}

type Server struct {
	HTTPServer *http.Server
	DB         *pgxpool.Pool

	publisher *service.AMQPPublisher
}

func NewServer(cfg Config) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := repository.Migrate(cfg.PostgresDSN); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	dbPool, err := db.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres: %w", err)
	}

	minioClient, err := object.NewClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	if err != nil {
		return nil, fmt.Errorf("initialize minio: %w", err)
	}
	if err := object.EnsureBucket(ctx, minioClient, cfg.MinioBucket); err != nil {
		return nil, fmt.Errorf("ensure minio bucket: %w", err)
	}

	var tasks service.TaskDirectory = repository.NewTaskRepository(dbPool)
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		redisClient := cache.NewClient(cfg.RedisAddr)
		if err := cache.Ping(ctx, redisClient); err != nil {
			return nil, fmt.Errorf("initialize redis: %w", err)
		}
		tasks = service.NewCachedTaskDirectory(tasks, redisClient)
	}

	var events service.EventPublisher = service.NoopPublisher{}
	var amqpPublisher *service.AMQPPublisher
	if strings.TrimSpace(cfg.AMQPURL) != "" {
		conn, err := mq.NewConnection(cfg.AMQPURL)
		if err != nil {
			return nil, fmt.Errorf("initialize amqp: %w", err)
		}
		amqpPublisher, err = service.NewAMQPPublisher(conn)
		if err != nil {
			return nil, fmt.Errorf("initialize amqp publisher: %w", err)
		}
		events = amqpPublisher
	} else {
		commonlog.Infof("amqp url not set, lifecycle events disabled")
	}

	attachmentStore := storage.NewMinIOStore(minioClient, cfg.MinioBucket)
	attachmentRepo := repository.NewAttachmentRepository(dbPool)
	attachmentSvc := service.NewAttachmentService(domain.DefaultPolicy(), attachmentStore, attachmentRepo, tasks, events)
	authSvc := commonauth.NewService(cfg.JWTSecret, cfg.JWTTTLMinutes)

	h := attachapi.NewHandler(attachmentSvc, authSvc, dbPool.Ping)
	r := gin.Default()
	h.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{HTTPServer: httpServer, DB: dbPool, publisher: amqpPublisher}, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
	return s.HTTPServer.Shutdown(ctx)
}
