package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HttpPort     string
	AllowOrigins string

	// S3/MinIO/bolt
	BucketEndpoint  string
	BucketAccessID  string
	BucketAccessKey string
	BucketName      string
	BucketRegion    string
	UseSSL          bool   // MinIO: false, S3: true
	StorageType     string // "minio", "s3" or "bolt"
	BoltPath        string

	// Redis
	RedisURL string

	// Postgres
	Host     string
	User     string
	Password string
	DBName   string
	Port     string

	// LLM
	LLMProvider      string // "openai" or "azure"
	LLMAPIKey        string
	LLMEndpoint      string
	ModelStandard    string
	ModelLarge       string
	EmbeddingModel   string
	LLMCallTimeout   time.Duration
	RateLimitBackoff time.Duration

	// translation
	DeepLAPIURL        string
	DeepLAPIKey        string
	MicrosoftAPIURL    string
	MicrosoftAPIKey    string
	MicrosoftAPIRegion string
	TranslationTTL     time.Duration

	// pipeline policy
	Pipeline PipelineConfig
	TaskMode string // "queue" (redis worker) or "inline"

	// grpc
	GrpcHealthPort string
}

type PipelineConfig struct {
	SummaryChunkSize      int
	AnonymizeChunkSize    int
	IndexChunkSize        int
	CategorizeTokenLimit  int
	IndexTeardownMaxDocs  int
	WorkerConcurrency     int
	DonationConcurrency   int
	TaskLockTTL           time.Duration
	ConversationIndexName string
}

func LoadConfig() *Config {
	d := DefaultPipeline()
	return &Config{
		HttpPort:           os.Getenv("PORT"),
		AllowOrigins:       os.Getenv("ALLOWORIGINS"),
		BucketEndpoint:     os.Getenv("BUCKET_ENDPOINT"),
		BucketAccessID:     os.Getenv("BUCKET_ACCESS_ID"),
		BucketAccessKey:    os.Getenv("BUCKET_ACCESS_KEY"),
		BucketName:         os.Getenv("BUCKET_NAME"),
		BucketRegion:       os.Getenv("BUCKET_REGION"),
		UseSSL:             os.Getenv("BUCKET_USE_SSL") == "true",
		StorageType:        getEnv("STORAGE_TYPE", "minio"),
		BoltPath:           getEnv("BOLT_PATH", "blobs.db"),
		RedisURL:           os.Getenv("REDIS_URL"),
		Host:               os.Getenv("PG_HOST"),
		User:               os.Getenv("PG_USER"),
		Password:           os.Getenv("PG_PASSWORD"),
		DBName:             os.Getenv("PG_DB"),
		Port:               os.Getenv("PG_PORT"),
		LLMProvider:        getEnv("LLM_PROVIDER", "openai"),
		LLMAPIKey:          os.Getenv("LLM_API_KEY"),
		LLMEndpoint:        os.Getenv("LLM_ENDPOINT"),
		ModelStandard:      getEnv("LLM_MODEL_STANDARD", "gpt-4o-mini"),
		ModelLarge:         getEnv("LLM_MODEL_LARGE", "gpt-4o"),
		EmbeddingModel:     getEnv("LLM_MODEL_EMBEDDING", "text-embedding-ada-002"),
		LLMCallTimeout:     getDuration("LLM_CALL_TIMEOUT", 10*time.Minute),
		RateLimitBackoff:   getDuration("LLM_RATE_LIMIT_BACKOFF", 20*time.Second),
		DeepLAPIURL:        getEnv("DEEPL_API_URL", "https://api.deepl.com/v2/translate"),
		DeepLAPIKey:        os.Getenv("DEEPL_API_KEY"),
		MicrosoftAPIURL:    getEnv("MS_TRANSLATOR_URL", "https://api.cognitive.microsofttranslator.com"),
		MicrosoftAPIKey:    os.Getenv("MS_TRANSLATOR_KEY"),
		MicrosoftAPIRegion: os.Getenv("MS_TRANSLATOR_REGION"),
		TranslationTTL:     getDuration("TRANSLATION_CACHE_TTL", 24*time.Hour),
		TaskMode:           getEnv("TASK_MODE", "queue"),
		GrpcHealthPort:     getEnv("GRPC_HEALTH_PORT", "50051"),
		Pipeline: PipelineConfig{
			SummaryChunkSize:      getInt("SUMMARY_CHUNK_SIZE", d.SummaryChunkSize),
			AnonymizeChunkSize:    getInt("ANONYMIZE_CHUNK_SIZE", d.AnonymizeChunkSize),
			IndexChunkSize:        getInt("INDEX_CHUNK_SIZE", d.IndexChunkSize),
			CategorizeTokenLimit:  getInt("CATEGORIZE_TOKEN_LIMIT", d.CategorizeTokenLimit),
			IndexTeardownMaxDocs:  getInt("INDEX_TEARDOWN_MAX_DOCS", d.IndexTeardownMaxDocs),
			WorkerConcurrency:     getInt("WORKER_CONCURRENCY", d.WorkerConcurrency),
			DonationConcurrency:   getInt("DONATION_CONCURRENCY", d.DonationConcurrency),
			TaskLockTTL:           getDuration("TASK_LOCK_TTL", d.TaskLockTTL),
			ConversationIndexName: getEnv("CONVERSATION_INDEX_PREFIX", d.ConversationIndexName),
		},
	}
}

// DefaultPipeline returns the pipeline policy used when nothing is configured.
func DefaultPipeline() PipelineConfig {
	return PipelineConfig{
		SummaryChunkSize:      100000,
		AnonymizeChunkSize:    15000,
		IndexChunkSize:        4000,
		CategorizeTokenLimit:  30000,
		IndexTeardownMaxDocs:  1,
		WorkerConcurrency:     8,
		DonationConcurrency:   3,
		TaskLockTTL:           30 * time.Minute,
		ConversationIndexName: "convmemory",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
