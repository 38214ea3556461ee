package ws

import (
	"testing"

	"messenger/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, userID uuid.UUID) *Client {
	// conn и chat не нужны: тесты не крутят pumps
	return NewClient(hub, nil, userID, nil, logger.New("error"))
}

// drain выгребает накопленные события без блокировки.
func drain(c *Client) []Event {
	var events []Event
	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return events
			}
			events = append(events, event)
		default:
			return events
		}
	}
}

func eventTypes(events []Event) []string {
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func TestUserStaysOnlineUntilLastConnectionDrops(t *testing.T) {
	hub := NewHub(logger.New("error"))
	userID := uuid.New()

	tab1 := newTestClient(hub, userID)
	tab2 := newTestClient(hub, userID)

	hub.Register(tab1)
	hub.Register(tab2)
	require.True(t, hub.IsOnline(userID))

	// Первая вкладка закрылась - пользователь все еще онлайн
	hub.Unregister(tab1)
	assert.True(t, hub.IsOnline(userID))
	assert.Equal(t, []uuid.UUID{userID}, hub.Snapshot())

	// Последняя вкладка закрылась - пользователь оффлайн
	hub.Unregister(tab2)
	assert.False(t, hub.IsOnline(userID))
	assert.Empty(t, hub.Snapshot())
}

func TestOnlineSnapshotBroadcastOnMembershipChange(t *testing.T) {
	hub := NewHub(logger.New("error"))
	aliceID, bobID := uuid.New(), uuid.New()

	alice := newTestClient(hub, aliceID)
	hub.Register(alice)
	drain(alice)

	// Появление Боба рассылается всем, включая самого Боба
	bob := newTestClient(hub, bobID)
	hub.Register(bob)

	aliceEvents := drain(alice)
	require.Len(t, aliceEvents, 1)
	assert.Equal(t, EventOnline, aliceEvents[0].Type)
	assert.ElementsMatch(t, []uuid.UUID{aliceID, bobID}, aliceEvents[0].Payload.([]uuid.UUID))

	bobEvents := drain(bob)
	require.Len(t, bobEvents, 1)
	assert.Equal(t, EventOnline, bobEvents[0].Type)

	// Вторая вкладка Боба множество не меняет - рассылки нет
	bobTab2 := newTestClient(hub, bobID)
	hub.Register(bobTab2)
	assert.Empty(t, drain(alice))

	// Уход Боба целиком - рассылка
	hub.Unregister(bob)
	assert.Empty(t, drain(alice))
	hub.Unregister(bobTab2)

	aliceEvents = drain(alice)
	require.Len(t, aliceEvents, 1)
	assert.Equal(t, EventOnline, aliceEvents[0].Type)
	assert.Equal(t, []uuid.UUID{aliceID}, aliceEvents[0].Payload.([]uuid.UUID))
}

func TestPushTargetsOnlyOwnersConnections(t *testing.T) {
	hub := NewHub(logger.New("error"))
	aliceID, bobID := uuid.New(), uuid.New()

	aliceTab1 := newTestClient(hub, aliceID)
	aliceTab2 := newTestClient(hub, aliceID)
	bob := newTestClient(hub, bobID)
	hub.Register(aliceTab1)
	hub.Register(aliceTab2)
	hub.Register(bob)
	drain(aliceTab1)
	drain(aliceTab2)
	drain(bob)

	hub.Push(aliceID, "sidebar", "payload")

	assert.Equal(t, []string{"sidebar"}, eventTypes(drain(aliceTab1)))
	assert.Equal(t, []string{"sidebar"}, eventTypes(drain(aliceTab2)))
	assert.Empty(t, drain(bob))
}

func TestPushToOfflineUserIsDropped(t *testing.T) {
	hub := NewHub(logger.New("error"))

	// Никто не подключен - просто ничего не происходит
	hub.Push(uuid.New(), "sidebar", "payload")
}

func TestUnregisterIsIdempotent(t *testing.T) {
	hub := NewHub(logger.New("error"))
	userID := uuid.New()

	client := newTestClient(hub, userID)
	hub.Register(client)

	hub.Unregister(client)
	hub.Unregister(client) // повторное снятие с учета - no-op
	assert.False(t, hub.IsOnline(userID))
}
