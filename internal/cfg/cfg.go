package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/DRSN-tech/product-search/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/joho/godotenv"
)

type Config struct {
	Minio   *MinIOCfg
	Http    *HTTPConfig
	Db      *PGDBCfg
	Qdrant  *QdrantCfg
	Redis   *RedisCfg
	Ml      *MLServiceCfg
	Kafka   *KafkaCfg
	Elastic *ElasticCfg
	Ingest  *IngestCfg
	Search  *SearchCfg
}

type KafkaCfg struct {
	Topic             string
	DeadLetterTopic   string
	GroupID           string
	Brokers           []string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
}

type MinIOCfg struct {
	MinioEndpoint     string // Адрес конечной точки Minio
	BucketName        string // Название конкретного бакета в Minio
	MinioRootUser     string // Имя пользователя для доступа к Minio
	MinioRootPassword string // Пароль для доступа к Minio
	MinioUseSSL       bool
	PublicBaseURL     string // Базовый URL, по которому объекты бакета доступны снаружи
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PGDBCfg struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type QdrantCfg struct {
	Port             int
	Host             string
	ApiKey           string
	CollectionPrefix string // коллекции партиций: <prefix>_text_search и т.д.
	UseTLS           bool
	VectorSize       uint64
	HnswM            uint64
	HnswEfConstruct  uint64
}

type RedisCfg struct {
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
	ProductTTL  time.Duration
}

type MLServiceCfg struct {
	Addr            string
	MaxConcurrent   int // при 1 инференс строго последовательный
	RequestTimeout  time.Duration
	ImageResolution int
}

type ElasticCfg struct {
	Addresses []string
	Username  string
	Password  string
	IndexName string
}

type IngestCfg struct {
	Workers        int
	MaxDeliveries  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	ImageTimeout   time.Duration
	Location       *time.Location // часовой пояс метки времени краулера
}

type SearchCfg struct {
	DefaultLimit int
	MaxLimit     int
	QueryTimeout time.Duration
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
// Если рядом лежит .env, переменные из него подхватываются без перезаписи окружения.
func Load(log logger.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warnf("failed to load .env: %v", err)
	}

	db, err := loadPGDBCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	qdrant, err := loadQdrantCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	ml, err := loadMLServiceCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	ingest, err := loadIngestCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	search, err := loadSearchCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Minio:   minio,
		Http:    http,
		Db:      db,
		Qdrant:  qdrant,
		Redis:   redis,
		Ml:      ml,
		Kafka:   kafka,
		Elastic: loadElasticCfg(),
		Ingest:  ingest,
		Search:  search,
	}, nil
}

// LoadKafkaCfg загружает только настройки Kafka (для утилит вроде enqueue).
func LoadKafkaCfg() (*KafkaCfg, error) {
	return loadKafkaCfg()
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
		defaultGroupID           = "product-ingestor"
	)

	brokerStr := os.Getenv("KAFKA_BROKERS")
	if brokerStr == "" {
		return nil, fmt.Errorf("KAFKA_BROKERS environment variable is required")
	}
	brokers := splitList(brokerStr)

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		return nil, fmt.Errorf("KAFKA_TOPIC environment variable is required")
	}

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	return &KafkaCfg{
		Brokers:           brokers,
		Topic:             topic,
		DeadLetterTopic:   getEnvOrDefault("KAFKA_DLQ_TOPIC", topic+".dlq"),
		GroupID:           getEnvOrDefault("KAFKA_GROUP_ID", defaultGroupID),
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
		NetworkMode:       getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL   = false
		defaultEndpoint = "minio:9000"
		defaultBucket   = "product-images"
	)

	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", strconv.FormatBool(defaultUseSSL)))
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	endpoint := getEnvOrDefault("MINIO_ENDPOINT", defaultEndpoint)
	bucket := getEnvOrDefault("BUCKET_NAME", defaultBucket)

	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	publicBase := getEnvOrDefault("MINIO_PUBLIC_URL", fmt.Sprintf("%s://%s/%s", scheme, endpoint, bucket))

	return &MinIOCfg{
		MinioEndpoint:     endpoint,
		BucketName:        bucket,
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
		PublicBaseURL:     strings.TrimRight(publicBase, "/"),
	}, nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort         = "8080"
		defaultReadTimeout  = 5 * time.Second
		defaultWriteTimeout = 10 * time.Second
		defaultIdleTimeout  = 60 * time.Second
	)

	port := getEnvOrDefault("HTTP_PORT", defaultPort)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	return &HTTPConfig{
		Port:         port,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}, nil
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost    = "localhost"
		defaultPort    = "5432"
		defaultSSLMode = "disable"
	)

	user := getEnv("POSTGRES_USER")
	if user == "" {
		err := fmt.Errorf("POSTGRES_USER is required")
		log.Errorf(err, "missing POSTGRES_USER")
		return nil, err
	}

	password := getEnv("POSTGRES_PASSWORD")
	if password == "" {
		err := fmt.Errorf("POSTGRES_PASSWORD is required")
		log.Errorf(err, "missing POSTGRES_PASSWORD")
		return nil, err
	}

	dbName := getEnv("POSTGRES_DB")
	if dbName == "" {
		err := fmt.Errorf("POSTGRES_DB is required")
		log.Errorf(err, "missing POSTGRES_DB")
		return nil, err
	}

	return &PGDBCfg{
		Host:     getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:     getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:     user,
		Password: password,
		DBName:   dbName,
		SSLMode:  getEnvOrDefault("SSL_MODE", defaultSSLMode),
	}, nil
}

func loadQdrantCfg(logger logger.Logger) (*QdrantCfg, error) {
	const (
		defaultQdrantHost     = "localhost"
		defaultQdrantGRPCPort = "6334"
		defaultUseTLS         = false
		defaultVectorSize     = "768"
		defaultPrefix         = "product_embedding"
		defaultHnswM          = 8
		defaultEfConstruct    = 64
	)

	strPort := getEnvOrDefault("QDRANT_GRPC_PORT", defaultQdrantGRPCPort)
	port, err := strconv.Atoi(strPort)
	if err != nil {
		logger.Errorf(err, "invalid QDRANT_GRPC_PORT")
		return nil, err
	}

	useTLS, err := strconv.ParseBool(getEnvOrDefault("QDRANT_USE_TLS", strconv.FormatBool(defaultUseTLS)))
	if err != nil {
		logger.Errorf(err, "invalid QDRANT_USE_TLS")
		return nil, err
	}

	strVectorSize := getEnvOrDefault("VECTOR_SIZE", defaultVectorSize)
	vectorSize, err := strconv.ParseUint(strVectorSize, 10, 64)
	if err != nil || vectorSize == 0 {
		if err == nil {
			err = e.ErrIncorrectEnvVariable
		}
		logger.Errorf(err, "invalid VECTOR_SIZE")
		return nil, err
	}

	hnswM, err := parseIntEnv("QDRANT_HNSW_M", defaultHnswM)
	if err != nil {
		return nil, e.Wrap("QDRANT_HNSW_M", err)
	}

	efConstruct, err := parseIntEnv("QDRANT_HNSW_EF_CONSTRUCT", defaultEfConstruct)
	if err != nil {
		return nil, e.Wrap("QDRANT_HNSW_EF_CONSTRUCT", err)
	}

	return &QdrantCfg{
		Host:             getEnvOrDefault("QDRANT_HOST", defaultQdrantHost),
		Port:             port,
		ApiKey:           getEnv("QDRANT__SERVICE__API_KEY"),
		CollectionPrefix: getEnvOrDefault("COLLECTION_PREFIX", defaultPrefix),
		UseTLS:           useTLS,
		VectorSize:       vectorSize,
		HnswM:            uint64(hnswM),
		HnswEfConstruct:  uint64(efConstruct),
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultAddr         = "localhost:6379"
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
		defaultProductTTL   = 3 * time.Minute
	)

	addr := getEnvOrDefault("REDIS_ADDR", defaultAddr)
	password := getEnv("REDIS_PASSWORD")
	user := getEnv("REDIS_USER")

	dbStr := getEnvOrDefault("REDIS_DB_ID", strconv.Itoa(defaultDB))
	db, err := strconv.Atoi(dbStr)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetriesStr := getEnvOrDefault("MAX_RETRIES", strconv.Itoa(defaultMaxRetries))
	maxRetries, err := strconv.Atoi(maxRetriesStr)
	if err != nil {
		log.Errorf(err, "invalid MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid WRITE_TIMEOUT")
		return nil, err
	}

	productTTL, err := parseDurationEnv("PRODUCT_TTL", defaultProductTTL)
	if err != nil {
		log.Errorf(err, "invalid PRODUCT_TTL")
		return nil, err
	}

	timeout := readTimeout
	if writeTimeout > timeout {
		timeout = writeTimeout
	}

	return &RedisCfg{
		Addr:        addr,
		Password:    password,
		User:        user,
		DB:          db,
		MaxRetries:  maxRetries,
		DialTimeout: dialTimeout,
		Timeout:     timeout,
		ProductTTL:  productTTL,
	}, nil
}

func loadMLServiceCfg() (*MLServiceCfg, error) {
	const (
		defaultHost           = "ml-service"
		defaultPort           = "50051"
		defaultMaxConcurrent  = 1
		defaultRequestTimeout = 30 * time.Second
		defaultResolution     = 336
	)

	host := getEnvOrDefault("ML_HOST", defaultHost)
	port := getEnvOrDefault("ML_PORT", defaultPort)

	maxConcurrent, err := parseIntEnv("ML_MAX_CONCURRENT", defaultMaxConcurrent)
	if err != nil || maxConcurrent < 1 {
		return nil, e.Wrap("ML_MAX_CONCURRENT", e.ErrIncorrectEnvVariable)
	}

	requestTimeout, err := parseDurationEnv("ML_REQUEST_TIMEOUT", defaultRequestTimeout)
	if err != nil {
		return nil, e.Wrap("ML_REQUEST_TIMEOUT", err)
	}

	resolution, err := parseIntEnv("ML_IMAGE_RESOLUTION", defaultResolution)
	if err != nil || resolution < 1 {
		return nil, e.Wrap("ML_IMAGE_RESOLUTION", e.ErrIncorrectEnvVariable)
	}

	return &MLServiceCfg{
		Addr:            host + ":" + port,
		MaxConcurrent:   maxConcurrent,
		RequestTimeout:  requestTimeout,
		ImageResolution: resolution,
	}, nil
}

func loadElasticCfg() *ElasticCfg {
	const (
		defaultAddr  = "http://localhost:9200"
		defaultIndex = "products"
	)

	return &ElasticCfg{
		Addresses: splitList(getEnvOrDefault("ES_HOST", defaultAddr)),
		Username:  getEnv("ES_USERNAME"),
		Password:  getEnv("ES_PASSWORD"),
		IndexName: getEnvOrDefault("ES_INDEX", defaultIndex),
	}
}

func loadIngestCfg() (*IngestCfg, error) {
	const (
		defaultWorkers        = 10
		defaultMaxDeliveries  = 5
		defaultRetryBaseDelay = time.Second
		defaultRetryMaxDelay  = 30 * time.Second
		defaultImageTimeout   = 10 * time.Second
		defaultTimezone       = "UTC"
	)

	workers, err := parseIntEnv("INGEST_WORKERS", defaultWorkers)
	if err != nil || workers < 1 {
		return nil, e.Wrap("INGEST_WORKERS", e.ErrIncorrectEnvVariable)
	}

	maxDeliveries, err := parseIntEnv("INGEST_MAX_DELIVERIES", defaultMaxDeliveries)
	if err != nil || maxDeliveries < 1 {
		return nil, e.Wrap("INGEST_MAX_DELIVERIES", e.ErrIncorrectEnvVariable)
	}

	baseDelay, err := parseDurationEnv("INGEST_RETRY_BASE_DELAY", defaultRetryBaseDelay)
	if err != nil {
		return nil, e.Wrap("INGEST_RETRY_BASE_DELAY", err)
	}

	maxDelay, err := parseDurationEnv("INGEST_RETRY_MAX_DELAY", defaultRetryMaxDelay)
	if err != nil {
		return nil, e.Wrap("INGEST_RETRY_MAX_DELAY", err)
	}

	imageTimeout, err := parseDurationEnv("INGEST_IMAGE_TIMEOUT", defaultImageTimeout)
	if err != nil {
		return nil, e.Wrap("INGEST_IMAGE_TIMEOUT", err)
	}

	loc, err := time.LoadLocation(getEnvOrDefault("INGEST_TIMEZONE", defaultTimezone))
	if err != nil {
		return nil, e.Wrap("INGEST_TIMEZONE", err)
	}

	return &IngestCfg{
		Workers:        workers,
		MaxDeliveries:  maxDeliveries,
		RetryBaseDelay: baseDelay,
		RetryMaxDelay:  maxDelay,
		ImageTimeout:   imageTimeout,
		Location:       loc,
	}, nil
}

func loadSearchCfg() (*SearchCfg, error) {
	const (
		defaultLimit        = 50
		defaultMaxLimit     = 200
		defaultQueryTimeout = 5 * time.Second
	)

	limit, err := parseIntEnv("SEARCH_DEFAULT_LIMIT", defaultLimit)
	if err != nil || limit < 1 {
		return nil, e.Wrap("SEARCH_DEFAULT_LIMIT", e.ErrIncorrectEnvVariable)
	}

	maxLimit, err := parseIntEnv("SEARCH_MAX_LIMIT", defaultMaxLimit)
	if err != nil || maxLimit < limit {
		return nil, e.Wrap("SEARCH_MAX_LIMIT", e.ErrIncorrectEnvVariable)
	}

	timeout, err := parseDurationEnv("SEARCH_QUERY_TIMEOUT", defaultQueryTimeout)
	if err != nil {
		return nil, e.Wrap("SEARCH_QUERY_TIMEOUT", err)
	}

	return &SearchCfg{
		DefaultLimit: limit,
		MaxLimit:     maxLimit,
		QueryTimeout: timeout,
	}, nil
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}

// splitList разбивает список через запятую, отбрасывая пустые элементы.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
