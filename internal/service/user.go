package service

import (
	"context"
	"errors"
	"strings"

	"messenger/internal/domain"
	"messenger/internal/repository"
	"messenger/pkg/logger"

	"github.com/google/uuid"
)

type UserService interface {
	GetMe(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateMe(ctx context.Context, userID uuid.UUID, displayName string, avatarURL *string) (*domain.User, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.PublicProfile, error)
	Search(ctx context.Context, term string) ([]*domain.PublicProfile, error)
}

type userService struct {
	userRepo repository.UserRepository
	log      logger.Logger
}

func NewUserService(userRepo repository.UserRepository, log logger.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		log:      log,
	}
}

func (s *userService) GetMe(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *userService) UpdateMe(ctx context.Context, userID uuid.UUID, displayName string, avatarURL *string) (*domain.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, errors.New("display name is required")
	}
	if len(displayName) > 100 {
		return nil, errors.New("display name is too long (max 100 characters)")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.DisplayName = displayName
	if avatarURL != nil {
		user.AvatarURL = avatarURL
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.log.Error("Failed to update user", "error", err, "user_id", userID)
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.PublicProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return user.PublicProfile(), nil
}

// Search ищет пользователей по имени или email. Возвращаются только публичные
// проекции.
func (s *userService) Search(ctx context.Context, term string) ([]*domain.PublicProfile, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, errors.New("search term is required")
	}

	users, err := s.userRepo.Search(ctx, term, 20)
	if err != nil {
		return nil, err
	}

	profiles := make([]*domain.PublicProfile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, user.PublicProfile())
	}

	return profiles, nil
}
