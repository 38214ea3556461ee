package handler

import (
	"net/http"

	"messenger/internal/service"
	"messenger/internal/ws"
	"messenger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // В продакшене нужно проверять origin
	},
}

type WebSocketHandler struct {
	authService service.AuthService
	chatService service.ChatService
	hub         *ws.Hub
	log         logger.Logger
}

func NewWebSocketHandler(authService service.AuthService, chatService service.ChatService, hub *ws.Hub, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		authService: authService,
		chatService: chatService,
		hub:         hub,
		log:         log,
	}
}

// HandleChat аутентифицирует соединение и передает его движку диалогов.
// Без валидного токена апгрейда не происходит.
func (h *WebSocketHandler) HandleChat(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		// Браузерный WebSocket не умеет заголовки, но прямым клиентам удобнее Bearer
		token = bearerToken(c.GetHeader("Authorization"))
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
		return
	}

	user, err := h.authService.ValidateToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err, "user_id", user.ID)
		return
	}

	h.log.Info("Chat connection established", "user_id", user.ID)
	client := ws.NewClient(h.hub, conn, user.ID, h.chatService, h.log)
	client.Run()
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
