package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"messenger/internal/domain"
	apperrors "messenger/pkg/errors"

	"github.com/google/uuid"
)

// memoryConversationRepo повторяет контракт Postgres-репозитория в памяти:
// одна строка на канонический ключ пары, серверный seq, идемпотентный MarkSeen.
// Наружу всегда отдаются копии строк, как отдает свежие строки сам Postgres:
// вызывающие не делят память с хранилищем.
type memoryConversationRepo struct {
	mu      sync.Mutex
	byPair  map[string]*domain.Conversation
	byID    map[uuid.UUID]*domain.Conversation
	msgs    map[uuid.UUID][]*domain.Message
	nextSeq int64
}

func newMemoryConversationRepo() *memoryConversationRepo {
	return &memoryConversationRepo{
		byPair: make(map[string]*domain.Conversation),
		byID:   make(map[uuid.UUID]*domain.Conversation),
		msgs:   make(map[uuid.UUID][]*domain.Message),
	}
}

func (r *memoryConversationRepo) FindOrCreate(ctx context.Context, a, b uuid.UUID) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.PairKey(a, b)
	if conv, ok := r.byPair[key]; ok {
		clone := *conv
		return &clone, nil
	}

	now := time.Now()
	conv := &domain.Conversation{
		ID:        uuid.New(),
		PartyA:    a,
		PartyB:    b,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.byPair[key] = conv
	r.byID[conv.ID] = conv
	clone := *conv
	return &clone, nil
}

func (r *memoryConversationRepo) Find(ctx context.Context, a, b uuid.UUID) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conv, ok := r.byPair[domain.PairKey(a, b)]; ok {
		clone := *conv
		return &clone, nil
	}
	return nil, apperrors.ErrConversationNotFound
}

func (r *memoryConversationRepo) Append(ctx context.Context, conversationID uuid.UUID, message *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.byID[conversationID]
	if !ok {
		return apperrors.ErrConversationNotFound
	}

	r.nextSeq++
	message.ID = uuid.New()
	message.ConversationID = conversationID
	message.Seq = r.nextSeq
	message.CreatedAt = time.Now()

	// Хранится копия: последующий MarkSeen не трогает сообщение вызывающего
	stored := *message
	r.msgs[conversationID] = append(r.msgs[conversationID], &stored)
	conv.UpdatedAt = stored.CreatedAt
	return nil
}

func (r *memoryConversationRepo) MarkSeen(ctx context.Context, conversationID, authorID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated int64
	for _, msg := range r.msgs[conversationID] {
		if msg.AuthorID == authorID && !msg.Seen {
			msg.Seen = true
			updated++
		}
	}
	return updated, nil
}

func (r *memoryConversationRepo) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.Message, 0, len(r.msgs[conversationID]))
	for _, msg := range r.msgs[conversationID] {
		clone := *msg
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memoryConversationRepo) ListFor(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Conversation
	for _, conv := range r.byPair {
		if conv.PartyA == userID || conv.PartyB == userID {
			clone := *conv
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *memoryConversationRepo) CountUnseen(ctx context.Context, conversationID, authorID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, msg := range r.msgs[conversationID] {
		if msg.AuthorID == authorID && !msg.Seen {
			count++
		}
	}
	return count, nil
}

func (r *memoryConversationRepo) LastMessage(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.msgs[conversationID]
	if len(msgs) == 0 {
		return nil, nil
	}
	clone := *msgs[len(msgs)-1]
	return &clone, nil
}

func (r *memoryConversationRepo) conversationCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPair)
}

func (r *memoryConversationRepo) allMessages(conversationID uuid.UUID) []*domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.Message, 0, len(r.msgs[conversationID]))
	for _, msg := range r.msgs[conversationID] {
		clone := *msg
		out = append(out, &clone)
	}
	return out
}

// fakeUserRepo - пользователи и refresh-сессии в памяти.
type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*domain.User
	sessions map[string]*domain.UserSession
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:    make(map[uuid.UUID]*domain.User),
		sessions: make(map[string]*domain.UserSession),
	}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return apperrors.ErrUserAlreadyExists
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return apperrors.ErrUserNotFound
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) Search(ctx context.Context, term string, limit int) ([]*domain.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) CreateSession(ctx context.Context, session *domain.UserSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *session
	r.sessions[session.RefreshTokenHash] = &clone
	return nil
}

func (r *fakeUserRepo) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[tokenHash]
	if !ok || session.RevokedAt != nil || session.ExpiresAt.Before(time.Now()) {
		return nil, apperrors.ErrNotFound
	}
	clone := *session
	return &clone, nil
}

func (r *fakeUserRepo) RevokeSession(ctx context.Context, sessionID uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, session := range r.sessions {
		if session.ID == sessionID && session.RevokedAt == nil {
			now := time.Now()
			session.RevokedAt = &now
			session.RevokedReason = &reason
		}
	}
	return nil
}

func (r *fakeUserRepo) addUser(displayName, email string) *domain.User {
	user := &domain.User{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: displayName,
		GlobalRole:  domain.GlobalRoleUser,
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	r.mu.Lock()
	r.users[user.ID] = user
	r.mu.Unlock()
	return user
}

type pushedEvent struct {
	event   string
	payload any
}

// fakePusher записывает рассылки вместо доставки по WebSocket.
type fakePusher struct {
	mu     sync.Mutex
	events map[uuid.UUID][]pushedEvent
	online map[uuid.UUID]bool
}

func newFakePusher() *fakePusher {
	return &fakePusher{
		events: make(map[uuid.UUID][]pushedEvent),
		online: make(map[uuid.UUID]bool),
	}
}

func (p *fakePusher) Push(userID uuid.UUID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[userID] = append(p.events[userID], pushedEvent{event: event, payload: payload})
}

func (p *fakePusher) IsOnline(userID uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID]
}

func (p *fakePusher) eventsFor(userID uuid.UUID) []pushedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]pushedEvent, len(p.events[userID]))
	copy(out, p.events[userID])
	return out
}

func (p *fakePusher) lastEventOf(userID uuid.UUID, event string) (pushedEvent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := len(p.events[userID]) - 1; i >= 0; i-- {
		if p.events[userID][i].event == event {
			return p.events[userID][i], true
		}
	}
	return pushedEvent{}, false
}
