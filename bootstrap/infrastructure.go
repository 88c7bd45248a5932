package bootstrap

import (
	"medpipe_backend/config"
	"medpipe_backend/pkg/logging"
	"medpipe_backend/platform/cache"
	"medpipe_backend/platform/database"
	"medpipe_backend/platform/events"
	"medpipe_backend/platform/llm"
	"medpipe_backend/platform/queue"
	"medpipe_backend/platform/redis"
	"medpipe_backend/platform/search"
	"medpipe_backend/platform/storage"
	"medpipe_backend/platform/translator"
	"medpipe_backend/services"
)

type Infrastructure struct {
	DB             *database.DB
	Redis          *redis.Service
	Storage        storage.BlobStore
	Queue          *queue.TaskQueue
	Cache          cache.CacheService
	EventPublisher *events.EventPublisher
	LLM            *llm.OpenAIClient
	SearchIndex    search.SearchIndex

	// DeepL is nil when no key is configured.
	DeepL    translator.Translator
	Inverse  translator.Translator
	Detector services.LanguageDetector
}

func NewInfrastructure(cfg *config.Config) (*Infrastructure, error) {
	infra := &Infrastructure{}

	// database
	db, err := database.InitPostgres(cfg)
	if err != nil {
		return nil, err
	}
	infra.DB = db
	if err := infra.DB.AutoMigrate(); err != nil {
		return nil, err
	}
	infra.SearchIndex = search.NewPostgresIndex(db.GetDatabase())

	// redis services
	redisService, err := redis.InitRedis(cfg)
	if err != nil {
		logging.Logger.Error("fail Initializing Redis", "error", err)
		return nil, err
	}
	infra.Redis = redisService

	// storage services
	storageService, err := storage.InitStorageService(cfg)
	if err != nil {
		logging.Logger.Error("fail Initializing Bucket", "error", err)
		return nil, err
	}
	infra.Storage = storageService

	// task queue
	infra.Queue = queue.NewTaskQueue(redisService, cfg.Pipeline.TaskLockTTL)

	// cache
	l1CacheService := cache.InitL1Cache()
	infra.Cache = cache.NewCacheService(l1CacheService, redisService)

	// event publisher
	infra.EventPublisher = events.NewEventPublisher(redisService.Rdb)

	// language model
	infra.LLM = llm.NewOpenAIClient(cfg)

	// translation providers
	if cfg.DeepLAPIKey != "" {
		infra.DeepL = translator.NewDeepLClient(cfg.DeepLAPIURL, cfg.DeepLAPIKey)
	} else {
		logging.Logger.Warn("DEEPL_API_KEY not set, every language goes through the inverse provider")
	}
	if cfg.MicrosoftAPIKey != "" {
		ms := translator.NewMicrosoftClient(cfg.MicrosoftAPIURL, cfg.MicrosoftAPIKey, cfg.MicrosoftAPIRegion)
		infra.Inverse = ms
		infra.Detector = ms
	} else {
		lt := translator.NewLLMTranslator(infra.LLM)
		infra.Inverse = lt
		infra.Detector = lt
	}

	return infra, nil
}

func (infra *Infrastructure) Shutdown() error {
	if err := infra.Storage.Close(); err != nil {
		logging.Logger.Error("fail closing storage", "error", err)
		return err
	}
	if err := infra.DB.Close(); err != nil {
		logging.Logger.Error("fail closing database", "error", err)
		return err
	}
	if err := infra.Redis.Rdb.Close(); err != nil {
		logging.Logger.Error("fail closing redis", "error", err)
		return err
	}
	return nil
}
