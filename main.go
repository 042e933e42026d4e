package main

import (
	"context"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chatlist-service/internal/bus"
	"chatlist-service/internal/chatlist"
	"chatlist-service/internal/config"
	"chatlist-service/internal/db"
	"chatlist-service/internal/handlers"
	"chatlist-service/internal/logger"
	"chatlist-service/internal/metacache"
	"chatlist-service/internal/middleware"
	"chatlist-service/internal/observability"
	"chatlist-service/internal/rabbitmq"
	"chatlist-service/internal/repositories"
	"chatlist-service/internal/telemetry"
	"chatlist-service/internal/ws"
)

const serviceName = "chatlist-service"

func main() {
	cfg, err := config.Load(os.Getenv("CHATLIST_CONFIG"))
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	if cfg.Trace.Enabled {
		shutdown, err := telemetry.SetupTracing(context.Background(), serviceName, cfg.Trace.OTLPEndpoint)
		if err != nil {
			logger.Fatalf("failed to set up tracing: %v", err)
		}
		defer func() {
			_ = shutdown(context.Background())
		}()
	}

	database, err := db.Connect(cfg.DB.DSN)
	if err != nil {
		logger.Fatalf("failed to connect to db: %v", err)
	}

	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	activeRepo := repositories.NewActiveChatRepo(database)

	events := bus.New()
	cache := metacache.New()
	syncState := chatlist.NewSyncState()

	list := chatlist.New(chatRepo, messageRepo, activeRepo, cache, events, syncState)
	list.Start()
	defer list.Stop()
	list.RestoreSelection(context.Background())

	hub := ws.NewHub()
	detach := hub.Bridge(events)
	defer detach()

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
	defer publisher.Close()
	logger.Infof("audit publisher mode=%s", rabbitmq.PublisherMode(publisher))
	audit := telemetry.NewAuditEmitter(publisher, cfg.AMQP.AuditRouting, serviceName, cfg.AMQP.Environment)

	if consumer, err := rabbitmq.NewConsumer(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.SyncQueue, events); err != nil {
		logger.Warnf("sync event consumer disabled: %v", err)
	} else {
		if err := consumer.Start(); err != nil {
			logger.Fatalf("failed to start sync event consumer: %v", err)
		}
		defer consumer.Close()
	}

	chatListHandler := handlers.NewChatListHandler(list, chatRepo, messageRepo, cache, events, audit)
	syncEventHandler := handlers.NewSyncEventHandler(events)
	chatListWS := ws.NewChatListWebSocketHandler(hub)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(cfg.Server.AuthToken)

	router.GET("/chats", authMiddleware, chatListHandler.ListChats)
	router.GET("/chats/:chat_id", authMiddleware, chatListHandler.GetChat)
	router.GET("/chats/:chat_id/messages", authMiddleware, chatListHandler.GetChatMessages)
	router.POST("/chats/:chat_id/select", authMiddleware, chatListHandler.SelectChat)
	router.DELETE("/selection", authMiddleware, chatListHandler.DeselectChat)
	router.POST("/chats/:chat_id/pin", authMiddleware, chatListHandler.PinChat)
	router.POST("/chats/:chat_id/hide", authMiddleware, chatListHandler.HideChat)
	router.DELETE("/chats/:chat_id", authMiddleware, chatListHandler.DeleteChat)
	router.GET("/sync/status", authMiddleware, chatListHandler.SyncStatus)
	router.POST("/internal/sync-events", authMiddleware, syncEventHandler.Post)

	router.GET("/ws/chatlist", chatListWS.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, chatRepo, messageRepo, audit, cfg.Debug.Enabled)

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	logger.Infof("listening on %s", addr)
	if err := router.Run(addr); err != nil {
		logger.Fatalf("server error: %v", err)
	}
}
