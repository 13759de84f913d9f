package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/product-search/internal/cfg"
	v1Http "github.com/DRSN-tech/product-search/internal/delivery/v1/http"
	"github.com/DRSN-tech/product-search/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/product-search/internal/infrastructure/minio"
	ml_service "github.com/DRSN-tech/product-search/internal/infrastructure/ml-service"
	elasticRepo "github.com/DRSN-tech/product-search/internal/repository/elastic"
	s3Repo "github.com/DRSN-tech/product-search/internal/repository/minio"
	"github.com/DRSN-tech/product-search/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/product-search/internal/repository/pgdb/converter"
	qdrantRepo "github.com/DRSN-tech/product-search/internal/repository/qdrant"
	"github.com/DRSN-tech/product-search/internal/repository/redis"
	redisConv "github.com/DRSN-tech/product-search/internal/repository/redis/converter"
	"github.com/DRSN-tech/product-search/internal/usecase"
	"github.com/DRSN-tech/product-search/pkg/clients"
	"github.com/DRSN-tech/product-search/pkg/closer"
	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/DRSN-tech/product-search/pkg/logger"
	"github.com/DRSN-tech/product-search/pkg/postgres"
	"github.com/DRSN-tech/product-search/pkg/tr"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	initTimeout     = 10 * time.Second
	shutdownTimeout = 15 * time.Second
	topicTimeout    = 10 * time.Second
)

// App связывает хранилища, пайплайн инжеста и HTTP API.
type App struct {
	cfg    *config.Config
	logger logger.Logger
	closer *closer.Closer

	httpSrv *v1Http.Server
	worker  *kafka.IngestWorker
}

func NewApp(cfg *config.Config, logger logger.Logger) (*App, error) {
	a := &App{
		cfg:    cfg,
		logger: logger,
		closer: closer.NewCloser(5 * time.Second),
	}

	if err := a.init(); err != nil {
		// уже открытые соединения закрываются в обратном порядке
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if closeErr := a.closer.Close(ctx); closeErr != nil {
			logger.Warnf("%v", closeErr)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return a, nil
}

func (a *App) init() error {
	cfg, logger := a.cfg, a.logger

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	// === PostgreSQL ===
	db, err := initPGDB(ctx, logger, cfg)
	if err != nil {
		return err
	}
	a.closer.Add("postgres", db.Close)

	productRepo := pgdb.NewProductRepo(db.Pool, pgdbConv.ProductConverter{})
	historyRepo := pgdb.NewHistoryRepo(db.Pool, pgdbConv.HistoryConverter{})
	trManager := tr.NewManager(db.Pool)

	// === Redis ===
	redisClient := clients.NewRedisClient(cfg.Redis)
	a.closer.Add("redis", redisClient.Close)
	if err := redisClient.Ping(ctx); err != nil {
		logger.Errorf(err, "failed to connect to redis")
		return err
	}
	cacheRepo := redis.NewCacheRepo(redisClient, redisConv.ProductInfoConverter{}, cfg.Redis, logger)

	// === MinIO ===
	minioClient, err := clients.NewMinIOClient(cfg.Minio)
	if err != nil {
		logger.Errorf(err, "failed to initialize minio client")
		return err
	}
	if err := clients.EnsureBucket(ctx, minioClient, cfg.Minio.BucketName); err != nil {
		logger.Errorf(err, "failed to initialize MinIO bucket")
		return err
	}
	imageRepo := s3Repo.NewImageRepo(minioClient, cfg.Minio)
	imagesInfra := minioInfra.NewMinioInfrastructure(
		imageRepo,
		cfg.Minio,
		&http.Client{Timeout: cfg.Ingest.ImageTimeout},
		logger,
	)

	// === Qdrant ===
	qdrantClient, err := clients.NewQdrantClient(cfg.Qdrant)
	if err != nil {
		logger.Errorf(err, "failed to initialize qdrant")
		return err
	}
	a.closer.Add("qdrant", qdrantClient.Close)
	if err := clients.EnsureCollections(ctx, qdrantClient); err != nil {
		logger.Errorf(err, "failed to initialize qdrant collections")
		return err
	}
	embRepo := qdrantRepo.NewEmbeddingRepo(qdrantClient.Client, cfg.Qdrant)

	// === Elasticsearch ===
	esClient, err := clients.NewElasticClient(cfg.Elastic)
	if err != nil {
		logger.Errorf(err, "failed to initialize elasticsearch client")
		return err
	}
	if err := clients.EnsureIndex(ctx, esClient, cfg.Elastic.IndexName); err != nil {
		logger.Errorf(err, "failed to initialize elasticsearch index")
		return err
	}
	textIndex := elasticRepo.NewTextIndexRepo(esClient, cfg.Elastic)

	// === ML service ===
	conn, err := grpc.NewClient(
		cfg.Ml.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()), // явное указание gRPC-клиенту использовать НЕзащищённое соединение (без TLS).
	)
	if err != nil {
		logger.Errorf(err, "failed to initialize grpc client")
		return err
	}
	a.closer.Add("ml-service", func(context.Context) error { return conn.Close() })
	ml := ml_service.NewMLService(conn, cfg.Ml, int(cfg.Qdrant.VectorSize), logger)

	// === Use cases ===
	productUC := usecase.NewProductUC(productRepo, cacheRepo, logger)
	searchUC := usecase.NewSearchUC(ml, embRepo, textIndex, productUC, usecase.SearchOptions{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
		QueryTimeout: cfg.Search.QueryTimeout,
	}, logger)
	ingestUC := usecase.NewIngestUC(
		productRepo,
		historyRepo,
		embRepo,
		textIndex,
		cacheRepo,
		ml,
		imagesInfra,
		trManager,
		cfg.Ingest.Location,
		logger,
	)

	// === Kafka ===
	producer := kafka.NewProducer(logger, cfg.Kafka)
	a.closer.Add("kafka producer", producer.Close)
	if err := producer.EnsureTopic(topicTimeout); err != nil {
		logger.Errorf(err, "failed to ensure kafka topics")
		return err
	}
	a.worker = kafka.NewIngestWorker(ingestUC, producer, cfg.Kafka, cfg.Ingest, logger)
	a.closer.Add("ingest workers", a.worker.Stop)

	// === HTTP ===
	r := chi.NewRouter()
	v1Http.NewRouter(r, logger).Init(productUC, searchUC, ingestUC)
	a.httpSrv = v1Http.NewServer(r, cfg.Http)
	a.closer.Add("http server", a.httpSrv.Stop)

	return nil
}

// Run запускает воркеров инжеста и HTTP-сервер и блокируется до сигнала
// остановки или фатальной ошибки сервера.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.worker.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		errCh <- a.httpSrv.Run()
	}()

	var appErr error
	select {
	case appErr = <-errCh:
		if appErr != nil {
			a.logger.Errorf(appErr, "HTTP server fatal error")
		}
	case <-ctx.Done():
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	// === Graceful shutdown ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Errorf(err, "shutdown finished with errors")
		if appErr == nil {
			appErr = err
		}
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}

func initPGDB(ctx context.Context, logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(postgres.DefaultMigrationsURL, logger); err != nil {
		logger.Errorf(err, "failed to run migrations")
		_ = db.Close(ctx)
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
