package handler

import (
	"messenger/internal/config"
	"messenger/internal/service"
	"messenger/internal/ws"
	"messenger/pkg/logger"
)

type Handlers struct {
	Health    *HealthHandler
	Auth      *AuthHandler
	User      *UserHandler
	Media     *MediaHandler
	WebSocket *WebSocketHandler
}

func NewHandlers(services *service.Services, hub *ws.Hub, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(cfg),
		Auth:      NewAuthHandler(services.Auth, log),
		User:      NewUserHandler(services.User, log),
		Media:     NewMediaHandler(services.Media, log),
		WebSocket: NewWebSocketHandler(services.Auth, services.Chat, hub, log),
	}
}
