package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"vaultai/internal/ai"
	"vaultai/internal/cache"
	"vaultai/internal/config"
	"vaultai/internal/corpus"
	"vaultai/internal/pkg/logger"
	mysqlClient "vaultai/internal/platform/mysql"
	"vaultai/internal/platform/rabbitmq"
	redisClient "vaultai/internal/platform/redis"
	"vaultai/internal/repository"
	"vaultai/internal/vision"
	"vaultai/internal/worker"
)

// ServerApp holds the resources of the development backend.
type ServerApp struct {
	Config     *config.Config
	Logger     *zap.Logger
	Redis      *redis.Client
	MySQL      *gorm.DB
	RabbitMQ   *amqp.Connection
	Worker     *worker.CorpusPersistWorker
	Corpus     *corpus.Service
	Chat       *ai.ChatClient
	Classifier *vision.Classifier

	StartedAt time.Time
}

func NewServer(ctx context.Context) (*ServerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	return NewServerWith(ctx, cfg, log)
}

// NewServerWith wires the backend from an already loaded config.
func NewServerWith(ctx context.Context, cfg *config.Config, log *zap.Logger) (*ServerApp, error) {
	app := &ServerApp{Config: cfg, Logger: log, StartedAt: time.Now()}

	var chunkCache cache.ChunkCache = cache.NewMemoryChunkCache()
	if cfg.Redis.Enabled {
		redisCli, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		app.Redis = redisCli
		chunkCache = cache.NewRedisChunkCache(redisCli, cfg.ChunkTTL())
		log.Info("chunk cache uses redis", zap.String("addr", cfg.Redis.Addr))
	}

	var labeler vision.Labeler
	if cfg.Vision.ModelPath != "" {
		app.Classifier = vision.NewClassifier(
			cfg.Vision.ModelPath,
			cfg.Vision.LabelsPath,
			cfg.Vision.ONNXSharedLibPath,
			cfg.Vision.TopK,
		)
		labeler = app.Classifier
	}

	app.Corpus = corpus.NewService(
		chunkCache,
		vision.NewDescriber(labeler),
		cfg.DevServer.TempDir,
		cfg.DevServer.Transcription,
		log.Named("corpus"),
	)
	if cfg.EmbeddingEnabled() {
		app.Corpus.UseEmbedder(ai.NewEmbeddingClient(ai.EmbeddingConfig{
			BaseURL: cfg.Embedding.BaseURL,
			APIKey:  cfg.Embedding.APIKey,
			Model:   cfg.Embedding.Model,
			Timeout: cfg.EmbeddingTimeout(),
		}))
		log.Info("retrieval uses embeddings", zap.String("model", cfg.Embedding.Model))
	}

	if cfg.LLMEnabled() {
		app.Chat = ai.NewChatClient(ai.ChatConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLMTimeout(),
		})
		log.Info("answers use llm", zap.String("model", cfg.LLM.Model))
	}

	if err := app.initStore(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

// initStore restores the corpus from MySQL and mirrors later changes into
// it, through RabbitMQ when a broker is configured.
func (a *ServerApp) initStore(ctx context.Context) error {
	cfg, log := a.Config, a.Logger
	if cfg.MySQL.DSN == "" {
		if cfg.RabbitMQ.URL != "" {
			log.Warn("rabbitmq is configured without mysql, ignoring it")
		}
		return nil
	}

	db, err := mysqlClient.New(ctx, cfg.MySQL)
	if err != nil {
		return err
	}
	a.MySQL = db

	repo := repository.NewDocumentRepository(db)
	if err := repo.Migrate(); err != nil {
		return err
	}
	docs, err := repo.LoadAll(ctx)
	if err != nil {
		return err
	}
	a.Corpus.Restore(ctx, docs)

	if cfg.RabbitMQ.URL == "" {
		a.Corpus.UseStore(repo)
		log.Info("corpus store uses mysql")
		return nil
	}

	conn, err := rabbitmq.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return err
	}
	a.RabbitMQ = conn

	a.Worker = worker.NewCorpusPersistWorker(conn, repo, cfg.RabbitMQ.Queue, log.Named("worker"))
	if err := a.Worker.Start(context.Background()); err != nil {
		return err
	}
	a.Corpus.UseStore(rabbitmq.NewCorpusPublisher(conn, cfg.RabbitMQ.Queue))
	log.Info("corpus store uses mysql through rabbitmq", zap.String("queue", cfg.RabbitMQ.Queue))
	return nil
}

func (a *ServerApp) Close() error {
	var closeErr error
	if a.Worker != nil {
		a.Worker.Close()
	}
	if a.RabbitMQ != nil {
		if err := a.RabbitMQ.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		if sqlDB, err := a.MySQL.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Classifier != nil {
		a.Classifier.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
