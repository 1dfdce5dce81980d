package chat

import "time"

// Role 标识消息的发送方。
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message 是会话记录中的一条不可变消息，按追加顺序排列。
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // epoch millis
}

// NewMessage stamps a message with the given id and time.
func NewMessage(id string, role Role, text string, at time.Time) Message {
	return Message{ID: id, Role: role, Text: text, Timestamp: at.UnixMilli()}
}
