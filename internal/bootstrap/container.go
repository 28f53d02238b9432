package bootstrap

import (
	"context"
	"log"

	"ai-docagent-be/internal/config"
	"ai-docagent-be/internal/constant"
	"ai-docagent-be/internal/controller"
	"ai-docagent-be/internal/pkg/logger"
	"ai-docagent-be/internal/repository/memory"
	"ai-docagent-be/internal/service"
	"ai-docagent-be/internal/websocket"
	"ai-docagent-be/pkg/agent"
	"ai-docagent-be/pkg/bus"
	"ai-docagent-be/pkg/document"
	"ai-docagent-be/pkg/llm/factory"

	pkgNats "ai-docagent-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	DocumentController controller.IDocumentController
	AgentController    controller.IAgentController

	// Background Services (Exposed for main.go to run)
	MutationConsumer service.IMutationConsumerService
	EditDispatcher   *bus.Dispatcher

	// WebSockets
	WebSocketHub *websocket.Hub
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus (in-process mutation channel)
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Live Document Store
	docStore := document.NewStore()

	// Initialize LLM Provider based on Config
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.BaseURL,
		cfg.Ai.APIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// Initialize In-Memory Session Storage
	sessionRepo := memory.NewSessionRepository()

	// 3.5 Infrastructure
	// NATS (optional, for downstream consumers of document/agent events)
	var natsPub *pkgNats.Publisher
	if cfg.Agent.EventsEnabled {
		natsPub, err = pkgNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
			natsPub = nil
		}
	}

	// Redis (optional, relays websocket events across instances)
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb = nil
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 4. Mutation Channel
	dispatcher := bus.NewDispatcher(pubSub, constant.EditAckTimeout)
	mutationConsumer := service.NewMutationConsumerService(pubSub, docStore, wsHub, natsPub, sysLogger)

	// 5. Agent Session Controller
	broadcaster := service.NewAgentBroadcaster(wsHub)
	sessionController := agent.NewController(docStore, llmProvider, dispatcher, broadcaster)
	sessionController.AutoApply = cfg.Agent.AutoApply

	// 6. Services
	documentService := service.NewDocumentService(docStore, dispatcher, natsPub)
	agentService := service.NewAgentService(sessionRepo, sessionController, docStore, dispatcher, natsPub)

	// 7. Controllers
	return &Container{
		DocumentController: controller.NewDocumentController(documentService),
		AgentController:    controller.NewAgentController(agentService),

		MutationConsumer: mutationConsumer,
		EditDispatcher:   dispatcher,
		WebSocketHub:     wsHub,
	}
}
