package di

import (
	"context"
	"fmt"

	"omnichan/backend/internal/ai"
	"omnichan/backend/internal/facebook"
	"omnichan/backend/internal/repository"
	"omnichan/backend/internal/service"
	"omnichan/backend/internal/sync"
	"omnichan/backend/internal/ws"
	"omnichan/backend/pkg/config"
	"omnichan/backend/pkg/jwt"
	"omnichan/backend/pkg/logger"
	"omnichan/backend/pkg/secrets"
	sharedredis "omnichan/backend/shared/redis"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB     *gorm.DB
	Config *config.Config
	Logger *logger.Logger

	JWTService *jwt.Service
	Cipher     *secrets.Cipher
	Redis      *sharedredis.RedisClient

	CustomerRepo     repository.CustomerRepository
	ConversationRepo repository.ConversationRepository
	MessageRepo      repository.MessageRepository
	IntegrationRepo  repository.IntegrationRepository

	FacebookClient *facebook.Client
	ProfileCache   *facebook.ProfileCache
	Verifier       *facebook.SignatureVerifier

	Engine     *sync.Engine
	Dispatcher *sync.Dispatcher
	Hub        *ws.Hub

	AIService           *ai.Service
	UserService         *service.UserService
	ConversationService *service.ConversationService
	CustomerService     *service.CustomerService
	IntegrationService  *service.IntegrationService
}

// New wires the full dependency graph. Construction order follows the data
// flow: store and platform clients first, then the sync engine, then the
// services and fan-out listeners on top.
func New(db *gorm.DB, cfg *config.Config, log *logger.Logger) (*Container, error) {
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)

	cipher, err := secrets.NewCipher(encryptionKey(cfg, log))
	if err != nil {
		return nil, fmt.Errorf("initializing token cipher: %w", err)
	}

	redisClient := sharedredis.NewRedisClient()

	customerRepo := repository.NewGormCustomerRepository(db)
	conversationRepo := repository.NewGormConversationRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)
	integrationRepo := repository.NewGormIntegrationRepository(db)

	fbClient := facebook.NewClient(facebook.ClientConfig{
		BaseURL:   cfg.Facebook.GraphBaseURL,
		AppID:     cfg.Facebook.AppID,
		AppSecret: cfg.Facebook.AppSecret,
		Timeout:   cfg.Facebook.SendTimeout,
	}, log)
	profileCache := facebook.NewProfileCache(fbClient, redisClient, cfg.Facebook.ProfileExpiry, log)
	verifier := facebook.NewSignatureVerifier(cfg.Facebook.AppSecret)

	engine := sync.NewEngine(
		customerRepo,
		conversationRepo,
		messageRepo,
		integrationRepo,
		fbClient,
		profileCache,
		cipher,
		log,
	)

	dispatcher := sync.NewDispatcher(engine, sync.DispatcherConfig{
		QueueSize: cfg.Dispatcher.QueueSize,
		Workers:   cfg.Dispatcher.Workers,
	}, log)

	hub := ws.NewHub(log)
	engine.AddListener(ws.NewSyncNotifier(hub))

	aiService := ai.NewService(
		ai.NewClient(ai.ClientConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Timeout:     cfg.AI.Timeout,
			MaxTokens:   cfg.AI.MaxTokens,
			Temperature: cfg.AI.Temperature,
		}),
		messageRepo,
		conversationRepo,
		log,
	)
	if cfg.AI.APIKey != "" {
		engine.AddListener(aiService)
	} else {
		log.Warn("AI API key not configured, conversation analysis disabled")
	}

	return &Container{
		DB:                  db,
		Config:              cfg,
		Logger:              log,
		JWTService:          jwtService,
		Cipher:              cipher,
		Redis:               redisClient,
		CustomerRepo:        customerRepo,
		ConversationRepo:    conversationRepo,
		MessageRepo:         messageRepo,
		IntegrationRepo:     integrationRepo,
		FacebookClient:      fbClient,
		ProfileCache:        profileCache,
		Verifier:            verifier,
		Engine:              engine,
		Dispatcher:          dispatcher,
		Hub:                 hub,
		AIService:           aiService,
		UserService:         service.NewUserService(db),
		ConversationService: service.NewConversationService(conversationRepo, messageRepo, engine),
		CustomerService:     service.NewCustomerService(customerRepo),
		IntegrationService:  service.NewIntegrationService(integrationRepo, fbClient, cipher, log),
	}, nil
}

// encryptionKey prefers Vault, falls back to the environment, and as a last
// resort derives from the JWT secret so development setups still boot.
func encryptionKey(cfg *config.Config, log *logger.Logger) string {
	if key := secrets.GetSecretWithDefault(context.Background(), "ENCRYPTION_KEY", cfg.Security.EncryptionKey); key != "" {
		return key
	}
	log.Warn("No encryption key configured, deriving from JWT secret")
	return cfg.JWT.Secret
}
