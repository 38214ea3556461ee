package ws

import (
	"sync"

	"messenger/pkg/logger"

	"github.com/google/uuid"
)

// Hub - реестр живых соединений. На одного пользователя допускается несколько
// соединений (несколько вкладок); пользователь онлайн, пока живо хотя бы одно.
// Hub - единственный владелец множества, снаружи оно не мутируется.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
	log     logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]map[*Client]struct{}),
		log:     log,
	}
}

// Register добавляет соединение. Если пользователь появился в онлайн-множестве,
// всем соединениям рассылается полный онлайн-снимок: снимок вместо дельт -
// осознанное упрощение при ожидаемом масштабе.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	conns, ok := h.clients[client.userID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.clients[client.userID] = conns
	}
	wentOnline := len(conns) == 0
	conns[client] = struct{}{}
	h.mu.Unlock()

	h.log.Debug("Connection registered", "user_id", client.userID, "went_online", wentOnline)
	if wentOnline {
		h.broadcastOnline()
	}
}

// Unregister убирает соединение; повторный вызов для того же клиента - no-op.
// Пользователь уходит из онлайн-множества только с последним соединением.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	conns, ok := h.clients[client.userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := conns[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(conns, client)
	close(client.send)
	wentOffline := len(conns) == 0
	if wentOffline {
		delete(h.clients, client.userID)
	}
	h.mu.Unlock()

	h.log.Debug("Connection unregistered", "user_id", client.userID, "went_offline", wentOffline)
	if wentOffline {
		h.broadcastOnline()
	}
}

func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// Snapshot возвращает текущее онлайн-множество.
func (h *Hub) Snapshot() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// Push доставляет событие во все соединения одного пользователя. Доставка
// best-effort: при переполненном буфере событие отбрасывается, клиент
// дочитает состояние из БД при следующем запросе.
func (h *Hub) Push(userID uuid.UUID, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- Event{Type: event, Payload: payload}:
		default:
			h.log.Warn("Dropping event for slow connection", "user_id", userID, "event", event)
		}
	}
}

func (h *Hub) broadcastOnline() {
	snapshot := h.Snapshot()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conns := range h.clients {
		for client := range conns {
			select {
			case client.send <- Event{Type: EventOnline, Payload: snapshot}:
			default:
				h.log.Warn("Dropping online snapshot for slow connection", "user_id", client.userID)
			}
		}
	}
}
