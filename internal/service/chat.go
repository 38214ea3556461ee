package service

import (
	"context"
	"errors"

	"messenger/internal/domain"
	"messenger/internal/repository"
	apperrors "messenger/pkg/errors"
	"messenger/pkg/logger"

	"github.com/google/uuid"
)

// Имена событий, которые сервер пушит в соединения клиентов.
const (
	EventThread  = "thread"
	EventSidebar = "sidebar"
	EventPeer    = "peer"
)

// EventPusher доставляет событие во все живые соединения пользователя.
// Доставка best-effort: оффлайн-получатель прочитает актуальное состояние
// из БД при следующем подключении.
type EventPusher interface {
	Push(userID uuid.UUID, event string, payload any)
	IsOnline(userID uuid.UUID) bool
}

// ThreadPayload - каноническое представление переписки с одним собеседником.
type ThreadPayload struct {
	PeerID   uuid.UUID         `json:"peer_id"`
	Messages []*domain.Message `json:"messages"`
}

// PeerPayload - профиль собеседника с текущим статусом присутствия.
type PeerPayload struct {
	*domain.PublicProfile
	Online bool `json:"online"`
}

type ChatService interface {
	Send(ctx context.Context, senderID, receiverID uuid.UUID, content domain.MessageContent) (*domain.Message, error)
	MarkSeen(ctx context.Context, viewerID, authorID uuid.UUID) error
	OpenThread(ctx context.Context, viewerID, otherID uuid.UUID) error
	Sidebar(ctx context.Context, userID uuid.UUID) ([]*domain.ConversationSummary, error)
	PushSidebar(ctx context.Context, userID uuid.UUID)
}

type chatService struct {
	convRepo repository.ConversationRepository
	userRepo repository.UserRepository
	pusher   EventPusher
	log      logger.Logger
}

func NewChatService(convRepo repository.ConversationRepository, userRepo repository.UserRepository, pusher EventPusher, log logger.Logger) ChatService {
	return &chatService{
		convRepo: convRepo,
		userRepo: userRepo,
		pusher:   pusher,
		log:      log,
	}
}

// Send записывает сообщение и рассылает обеим сторонам обновленную переписку
// и их сайдбары. Пустое содержимое отклоняется до любых записей и рассылок.
// Отправитель и получатель могут совпадать: диалог с самим собой обычная пара.
func (s *chatService) Send(ctx context.Context, senderID, receiverID uuid.UUID, content domain.MessageContent) (*domain.Message, error) {
	if content.IsEmpty() {
		return nil, apperrors.ErrInvalidContent
	}

	conversation, err := s.convRepo.FindOrCreate(ctx, senderID, receiverID)
	if err != nil {
		s.log.Error("Failed to resolve conversation", "error", err, "sender_id", senderID, "receiver_id", receiverID)
		return nil, err
	}

	message := &domain.Message{
		AuthorID: senderID,
		Text:     content.Text,
		ImageURL: content.ImageURL,
		VideoURL: content.VideoURL,
	}
	if err := s.convRepo.Append(ctx, conversation.ID, message); err != nil {
		s.log.Error("Failed to append message", "error", err, "conversation_id", conversation.ID)
		return nil, err
	}

	// Рассылка только после успешной записи: половинчатого состояния
	// наблюдатели не видят.
	messages, err := s.convRepo.ListMessages(ctx, conversation.ID)
	if err != nil {
		s.log.Error("Failed to reload thread after append", "error", err, "conversation_id", conversation.ID)
		return nil, err
	}

	s.pusher.Push(senderID, EventThread, ThreadPayload{PeerID: receiverID, Messages: messages})
	if receiverID != senderID {
		s.pusher.Push(receiverID, EventThread, ThreadPayload{PeerID: senderID, Messages: messages})
	}

	s.PushSidebar(ctx, senderID)
	if receiverID != senderID {
		s.PushSidebar(ctx, receiverID)
	}

	return message, nil
}

// MarkSeen помечает прочитанными сообщения authorID в диалоге с viewerID.
// Направление фиксировано: читатель никогда не помечает собственные сообщения.
func (s *chatService) MarkSeen(ctx context.Context, viewerID, authorID uuid.UUID) error {
	conversation, err := s.convRepo.Find(ctx, viewerID, authorID)
	if err != nil {
		if errors.Is(err, apperrors.ErrConversationNotFound) {
			// Нечего помечать
			return nil
		}
		return err
	}

	updated, err := s.convRepo.MarkSeen(ctx, conversation.ID, authorID)
	if err != nil {
		s.log.Error("Failed to mark seen", "error", err, "conversation_id", conversation.ID)
		return err
	}
	if updated > 0 {
		s.log.Debug("Messages marked seen", "conversation_id", conversation.ID, "count", updated)
	}

	// Автору тоже нужен свежий сайдбар: его исходящие теперь прочитаны
	s.PushSidebar(ctx, viewerID)
	if authorID != viewerID {
		s.PushSidebar(ctx, authorID)
	}

	return nil
}

// OpenThread пушит открывшему соединению профиль собеседника и полную переписку.
func (s *chatService) OpenThread(ctx context.Context, viewerID, otherID uuid.UUID) error {
	other, err := s.userRepo.GetByID(ctx, otherID)
	if err != nil {
		return err
	}

	s.pusher.Push(viewerID, EventPeer, PeerPayload{
		PublicProfile: other.PublicProfile(),
		Online:        s.pusher.IsOnline(otherID),
	})

	conversation, err := s.convRepo.Find(ctx, viewerID, otherID)
	if err != nil {
		if errors.Is(err, apperrors.ErrConversationNotFound) {
			// Переписки еще нет - пустая лента
			s.pusher.Push(viewerID, EventThread, ThreadPayload{PeerID: otherID, Messages: []*domain.Message{}})
			return nil
		}
		return err
	}

	messages, err := s.convRepo.ListMessages(ctx, conversation.ID)
	if err != nil {
		return err
	}

	s.pusher.Push(viewerID, EventThread, ThreadPayload{PeerID: otherID, Messages: messages})
	return nil
}

// Sidebar пересчитывает список диалогов пользователя: непрочитанные считаются
// только среди сообщений собеседника, порядок - по последней активности.
func (s *chatService) Sidebar(ctx context.Context, userID uuid.UUID) ([]*domain.ConversationSummary, error) {
	conversations, err := s.convRepo.ListFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*domain.ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		otherID := conversation.Counterpart(userID)

		var counterpart *domain.PublicProfile
		if other, err := s.userRepo.GetByID(ctx, otherID); err == nil {
			counterpart = other.PublicProfile()
		} else {
			s.log.Warn("Failed to load counterpart profile", "error", err, "user_id", otherID)
			counterpart = &domain.PublicProfile{ID: otherID}
		}

		// В диалоге с самим собой непрочитанных не бывает
		var unseen int64
		if otherID != userID {
			unseen, err = s.convRepo.CountUnseen(ctx, conversation.ID, otherID)
			if err != nil {
				return nil, err
			}
		}

		last, err := s.convRepo.LastMessage(ctx, conversation.ID)
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, &domain.ConversationSummary{
			ConversationID: conversation.ID,
			Counterpart:    counterpart,
			UnseenCount:    unseen,
			LastMessage:    last,
			UpdatedAt:      conversation.UpdatedAt,
		})
	}

	return summaries, nil
}

// PushSidebar пересчитывает и пушит сайдбар. Ошибка пересчета не роняет
// вызвавшую операцию: клиент дозапросит состояние сам.
func (s *chatService) PushSidebar(ctx context.Context, userID uuid.UUID) {
	summaries, err := s.Sidebar(ctx, userID)
	if err != nil {
		s.log.Error("Failed to recompute sidebar", "error", err, "user_id", userID)
		return
	}
	s.pusher.Push(userID, EventSidebar, summaries)
}
