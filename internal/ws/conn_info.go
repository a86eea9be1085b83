package ws

import "time"

// ConnInfo describes the socket currently backing the channel.
type ConnInfo struct {
	ConnID      string
	UserID      string
	URL         string
	ConnectedAt time.Time
}

func (i ConnInfo) payload(event, reason string) map[string]interface{} {
	duration := int64(0)
	if !i.ConnectedAt.IsZero() {
		duration = time.Since(i.ConnectedAt).Milliseconds()
	}
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        "client",
			"url":         i.URL,
			"event":       event,
			"conn_id":     i.ConnID,
			"duration_ms": duration,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id": i.UserID,
		},
	}
}
