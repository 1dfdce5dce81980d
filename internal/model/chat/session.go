package chat

import (
	"fmt"
	"time"
)

// Stats 是会话的派生计数，仅存在于内存中。
type Stats struct {
	SessionID        string `json:"sessionId"`
	Elapsed          string `json:"elapsed"`
	InteractionCount int    `json:"interactionCount"`
	MessageCount     int    `json:"messageCount"`
	Pending          bool   `json:"pending"`
}

// FormatElapsed renders d as zero-padded minutes:seconds; minutes keep growing past 59.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
