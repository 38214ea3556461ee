package ws

// Intent - команда клиента. Действует всегда от имени аутентифицированного
// пользователя соединения, user_id здесь - вторая сторона диалога.
type Intent struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id,omitempty"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
}

const (
	IntentOpen    = "open"
	IntentSend    = "send"
	IntentSeen    = "seen"
	IntentSidebar = "sidebar"
)

// Event - конверт серверного события.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

const (
	EventOnline = "online"
	EventError  = "error"
)
