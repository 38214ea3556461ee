package service

import (
	"messenger/internal/config"
	"messenger/internal/repository"
	"messenger/pkg/logger"
)

type Services struct {
	Auth      AuthService
	User      UserService
	Chat      ChatService
	Media     MediaService
	RateLimit RateLimitService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, pusher EventPusher, log logger.Logger) (*Services, error) {
	media, err := NewMediaService(cfg.Upload, log)
	if err != nil {
		return nil, err
	}

	return &Services{
		Auth:      NewAuthService(repos.User, cfg.JWT, log),
		User:      NewUserService(repos.User, log),
		Chat:      NewChatService(repos.Conversation, repos.User, pusher, log),
		Media:     media,
		RateLimit: NewRateLimitService(repos.RateLimit, log),
	}, nil
}
