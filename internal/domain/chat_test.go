package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPairKeyIsSymmetric(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	assert.Equal(t, PairKey(a, b), PairKey(b, a))
	assert.NotEqual(t, PairKey(a, b), PairKey(a, a))
}

func TestCounterpart(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	conv := &Conversation{PartyA: a, PartyB: b}

	assert.Equal(t, b, conv.Counterpart(a))
	assert.Equal(t, a, conv.Counterpart(b))

	self := &Conversation{PartyA: a, PartyB: a}
	assert.Equal(t, a, self.Counterpart(a))
}

func TestMessageContentIsEmpty(t *testing.T) {
	assert.True(t, MessageContent{}.IsEmpty())
	assert.False(t, MessageContent{Text: "hi"}.IsEmpty())
	assert.False(t, MessageContent{ImageURL: "/uploads/a.png"}.IsEmpty())
	assert.False(t, MessageContent{VideoURL: "/uploads/a.mp4"}.IsEmpty())
}
