package repository

import (
	"context"
	"errors"
	"fmt"

	"messenger/internal/domain"
	apperrors "messenger/pkg/errors"
	"messenger/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConversationRepository interface {
	FindOrCreate(ctx context.Context, a, b uuid.UUID) (*domain.Conversation, error)
	Find(ctx context.Context, a, b uuid.UUID) (*domain.Conversation, error)
	Append(ctx context.Context, conversationID uuid.UUID, message *domain.Message) error
	MarkSeen(ctx context.Context, conversationID, authorID uuid.UUID) (int64, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*domain.Message, error)
	ListFor(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error)
	CountUnseen(ctx context.Context, conversationID, authorID uuid.UUID) (int64, error)
	LastMessage(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error)
}

type conversationRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewConversationRepository(db *pgxpool.Pool, log logger.Logger) ConversationRepository {
	return &conversationRepository{db: db, log: log}
}

// FindOrCreate атомарно разрешает диалог для неупорядоченной пары. Upsert по
// каноническому ключу пары: конкурирующие первые сообщения обеих сторон всегда
// сходятся к одной строке. DO UPDATE нужен, чтобы RETURNING отдавал
// существующую строку проигравшему гонку.
func (r *conversationRepository) FindOrCreate(ctx context.Context, a, b uuid.UUID) (*domain.Conversation, error) {
	query := `
		INSERT INTO conversations (id, party_a, party_b, pair_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (pair_key) DO UPDATE SET pair_key = EXCLUDED.pair_key
		RETURNING id, party_a, party_b, created_at, updated_at
	`

	pairKey := domain.PairKey(a, b)

	// Редкий случай: два insert'а одновременно могут оба проиграть и получить
	// unique_violation вместо конфликтной строки. Повторяем, наружу не отдаем.
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		conv := &domain.Conversation{}
		err := r.db.QueryRow(ctx, query, uuid.New(), a, b, pairKey).Scan(
			&conv.ID, &conv.PartyA, &conv.PartyB, &conv.CreatedAt, &conv.UpdatedAt,
		)
		if err == nil {
			return conv, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			lastErr = apperrors.ErrConflictRetry
			continue
		}

		r.log.Error("Failed to find or create conversation", "error", err, "pair_key", pairKey)
		return nil, fmt.Errorf("find or create conversation: %w", err)
	}

	return nil, lastErr
}

func (r *conversationRepository) Find(ctx context.Context, a, b uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT id, party_a, party_b, created_at, updated_at
		FROM conversations
		WHERE pair_key = $1
	`

	conv := &domain.Conversation{}
	err := r.db.QueryRow(ctx, query, domain.PairKey(a, b)).Scan(
		&conv.ID, &conv.PartyA, &conv.PartyB, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConversationNotFound
		}
		r.log.Error("Failed to find conversation", "error", err)
		return nil, err
	}

	return conv, nil
}

// Append вставляет сообщение и поднимает updated_at диалога в одной транзакции.
// Порядок в диалоге задает серверный seq (bigserial), не клиентское время.
func (r *conversationRepository) Append(ctx context.Context, conversationID uuid.UUID, message *domain.Message) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin append transaction", "error", err)
		return err
	}
	defer tx.Rollback(ctx)

	insertQuery := `
		INSERT INTO messages (id, conversation_id, author_id, text, image_url, video_url, seen, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, now())
		RETURNING seq, created_at
	`

	message.ID = uuid.New()
	message.ConversationID = conversationID
	err = tx.QueryRow(ctx, insertQuery,
		message.ID, conversationID, message.AuthorID,
		message.Text, message.ImageURL, message.VideoURL,
	).Scan(&message.Seq, &message.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23503 = foreign_key_violation: диалог исчез
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperrors.ErrConversationNotFound
		}
		r.log.Error("Failed to insert message", "error", err, "conversation_id", conversationID)
		return err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE conversations SET updated_at = now() WHERE id = $1`, conversationID)
	if err != nil {
		r.log.Error("Failed to bump conversation", "error", err, "conversation_id", conversationID)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrConversationNotFound
	}

	return tx.Commit(ctx)
}

// MarkSeen помечает прочитанными все сообщения данного автора в диалоге.
// Повторный вызов ничего не меняет.
func (r *conversationRepository) MarkSeen(ctx context.Context, conversationID, authorID uuid.UUID) (int64, error) {
	query := `
		UPDATE messages
		SET seen = true
		WHERE conversation_id = $1 AND author_id = $2 AND NOT seen
	`

	tag, err := r.db.Exec(ctx, query, conversationID, authorID)
	if err != nil {
		r.log.Error("Failed to mark messages seen", "error", err, "conversation_id", conversationID)
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (r *conversationRepository) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*domain.Message, error) {
	query := `
		SELECT id, conversation_id, author_id, seq, text, image_url, video_url, seen, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY seq
	`

	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		r.log.Error("Failed to list messages", "error", err, "conversation_id", conversationID)
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		message := &domain.Message{}
		err := rows.Scan(
			&message.ID, &message.ConversationID, &message.AuthorID, &message.Seq,
			&message.Text, &message.ImageURL, &message.VideoURL, &message.Seen, &message.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, err
		}
		messages = append(messages, message)
	}

	return messages, rows.Err()
}

func (r *conversationRepository) ListFor(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error) {
	query := `
		SELECT id, party_a, party_b, created_at, updated_at
		FROM conversations
		WHERE party_a = $1 OR party_b = $1
		ORDER BY updated_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.log.Error("Failed to list conversations", "error", err, "user_id", userID)
		return nil, err
	}
	defer rows.Close()

	var conversations []*domain.Conversation
	for rows.Next() {
		conv := &domain.Conversation{}
		if err := rows.Scan(&conv.ID, &conv.PartyA, &conv.PartyB, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			r.log.Error("Failed to scan conversation", "error", err)
			return nil, err
		}
		conversations = append(conversations, conv)
	}

	return conversations, rows.Err()
}

func (r *conversationRepository) CountUnseen(ctx context.Context, conversationID, authorID uuid.UUID) (int64, error) {
	query := `
		SELECT count(*)
		FROM messages
		WHERE conversation_id = $1 AND author_id = $2 AND NOT seen
	`

	var count int64
	if err := r.db.QueryRow(ctx, query, conversationID, authorID).Scan(&count); err != nil {
		r.log.Error("Failed to count unseen messages", "error", err, "conversation_id", conversationID)
		return 0, err
	}

	return count, nil
}

func (r *conversationRepository) LastMessage(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT id, conversation_id, author_id, seq, text, image_url, video_url, seen, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY seq DESC
		LIMIT 1
	`

	message := &domain.Message{}
	err := r.db.QueryRow(ctx, query, conversationID).Scan(
		&message.ID, &message.ConversationID, &message.AuthorID, &message.Seq,
		&message.Text, &message.ImageURL, &message.VideoURL, &message.Seen, &message.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Пустой диалог - не ошибка
			return nil, nil
		}
		r.log.Error("Failed to get last message", "error", err, "conversation_id", conversationID)
		return nil, err
	}

	return message, nil
}
