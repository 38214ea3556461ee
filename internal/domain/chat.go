package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation - неупорядоченная пара участников, владеющая историей сообщений.
// Для любой пары идентичностей существует не более одной записи: уникальность
// обеспечивается каноническим ключом пары (см. PairKey).
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	PartyA    uuid.UUID `json:"party_a"`
	PartyB    uuid.UUID `json:"party_b"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Counterpart возвращает вторую сторону диалога относительно viewer.
// Для диалога с самим собой обе стороны совпадают.
func (c *Conversation) Counterpart(viewer uuid.UUID) uuid.UUID {
	if c.PartyA == viewer {
		return c.PartyB
	}
	return c.PartyA
}

// PairKey строит канонический ключ неупорядоченной пары: min|max по строковому
// представлению UUID. PairKey(a, b) == PairKey(b, a).
func PairKey(a, b uuid.UUID) string {
	as, bs := a.String(), b.String()
	if as > bs {
		as, bs = bs, as
	}
	return as + "|" + bs
}

type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	AuthorID       uuid.UUID `json:"author_id"`
	Seq            int64     `json:"seq"`
	Text           string    `json:"text,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	VideoURL       string    `json:"video_url,omitempty"`
	Seen           bool      `json:"seen"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessageContent - содержимое нового сообщения от клиента.
type MessageContent struct {
	Text     string `json:"text"`
	ImageURL string `json:"image_url"`
	VideoURL string `json:"video_url"`
}

// IsEmpty: сообщение без текста и без медиа отклоняется до записи.
func (c MessageContent) IsEmpty() bool {
	return c.Text == "" && c.ImageURL == "" && c.VideoURL == ""
}

// ConversationSummary - производное представление диалога для сайдбара.
// Не хранится, пересчитывается по запросу.
type ConversationSummary struct {
	ConversationID uuid.UUID      `json:"conversation_id"`
	Counterpart    *PublicProfile `json:"counterpart"`
	UnseenCount    int64          `json:"unseen_count"`
	LastMessage    *Message       `json:"last_message,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
