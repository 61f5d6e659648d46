package http

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"ragchat/internal/bootstrap"
	"ragchat/internal/transport/http/handler"
	"ragchat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)

	healthHandler := handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, map[string]handler.Check{
		app.Config.Store.Driver: app.Store.Ping,
		"redis": func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		},
		"rabbitmq": func(context.Context) error {
			if app.MQConn == nil || app.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		},
	})

	return newRouter(routerDeps{
		appName:        app.Config.App.Name,
		allowedOrigins: app.Config.CORS.AllowedOrigins,
		jwtSecret:      app.Config.Auth.JWTSecret,
		rateLimit:      middleware.RateLimit(app.Redis, app.Config.RateLimit.Requests, time.Duration(app.Config.RateLimit.WindowSeconds)*time.Second),
		health:         healthHandler,
		auth:           handler.NewAuthHandler(app.AuthService),
		chat:           handler.NewChatHandler(app.ChatService, app.HistoryService),
		documents:      handler.NewDocumentHandler(app.IngestService),
		settings:       handler.NewSettingsHandler(app.SettingsService),
	})
}

type routerDeps struct {
	appName        string
	allowedOrigins []string
	jwtSecret      string
	rateLimit      gin.HandlerFunc

	health    *handler.HealthHandler
	auth      *handler.AuthHandler
	chat      *handler.ChatHandler
	documents *handler.DocumentHandler
	settings  *handler.SettingsHandler
}

func newRouter(deps routerDeps) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		otelgin.Middleware(deps.appName),
		middleware.CORS(deps.allowedOrigins),
		middleware.AccessLog(),
	)

	router.GET("/healthz", deps.health.Check)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", deps.auth.Register)
	authGroup.POST("/login", deps.auth.Login)
	authGroup.GET("/me", middleware.AuthJWT(deps.jwtSecret), deps.auth.Me)

	api := v1.Group("")
	api.Use(middleware.AuthJWT(deps.jwtSecret))
	if deps.rateLimit != nil {
		api.Use(deps.rateLimit)
	}

	api.GET("/models", deps.settings.ListModels)
	api.GET("/models/selected", deps.settings.SelectedModel)
	api.POST("/models/select", deps.settings.SelectModel)
	api.GET("/prompt", deps.settings.GetPrompt)
	api.PUT("/prompt", deps.settings.SetPrompt)

	api.POST("/documents", deps.documents.Upload)
	api.POST("/documents/async", deps.documents.UploadAsync)
	api.GET("/documents", deps.documents.List)
	api.DELETE("/documents", deps.documents.DeleteAll)

	api.POST("/chat", deps.chat.Chat)
	api.GET("/chat/history", deps.chat.History)
	api.DELETE("/chat/history", deps.chat.ClearHistory)
	api.GET("/chat/history/export", deps.chat.ExportHistory)

	return router
}
