package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-hub/internal/db"
	"chat-hub/internal/handlers"
	"chat-hub/internal/middleware"
	"chat-hub/internal/observability"
	"chat-hub/internal/presence"
	"chat-hub/internal/rabbitmq"
	"chat-hub/internal/router"
	"chat-hub/internal/store"
	"chat-hub/internal/telemetry"
	"chat-hub/internal/ws"
)

const serviceName = "chat-hub"

func main() {
	ctx := context.Background()

	shutdownTracing, err := telemetry.InitTracing(ctx, serviceName, getEnv("OTLP_ENDPOINT", ""))
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	entityStore, err := buildStore()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	if err := store.EnsureDefaults(ctx, entityStore); err != nil {
		log.Fatalf("failed to seed defaults: %v", err)
	}

	publisher := rabbitmq.NewPublisher(getEnv("AMQP_URL", ""), getEnv("AMQP_EXCHANGE", "chat_events"))
	defer publisher.Close()

	hub := ws.NewHub()
	tracker := presence.New(entityStore)
	events := router.New(entityStore, tracker, hub, publisher)
	wsHandler := ws.NewHandler(events)
	authHandler := handlers.NewAuthHandler(entityStore)

	engine := gin.Default()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(otelgin.Middleware(serviceName))
	engine.Use(observability.HTTPMetricsMiddleware())

	engine.POST("/api/auth/register", authHandler.Register)
	engine.POST("/api/auth/login", authHandler.Login)
	engine.GET("/api/users", authHandler.ListUsers)
	engine.GET("/api/channels", authHandler.ListChannels)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/ws", wsHandler.Handle)

	port := getEnv("PORT", "8080")
	if err := engine.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// buildStore picks the backing store: Postgres when STORAGE_DSN is set,
// otherwise the in-memory store.
func buildStore() (store.Store, error) {
	dsn := getEnv("STORAGE_DSN", "")
	if dsn == "" {
		log.Printf("no STORAGE_DSN, using in-memory store")
		return store.NewMemStore(), nil
	}

	database, err := db.Connect(dsn)
	if err != nil {
		return nil, err
	}
	log.Printf("connected to postgres")
	return store.NewPostgresStore(database), nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
