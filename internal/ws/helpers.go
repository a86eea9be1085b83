package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"chat-client/internal/models"
	"chat-client/internal/observability"
)

func newConnID() string {
	return uuid.NewString()
}

func encodeFrame(event string, payload interface{}) ([]byte, error) {
	frame := models.Frame{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		frame.Data = data
	}
	return json.Marshal(frame)
}

func publishLifecycle(info ConnInfo, event, reason string) {
	observability.IncWSEvent("lifecycle", event)
	_ = observability.PublishEvent(context.Background(), observability.RoutingKeyWS, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   info.payload(event, reason),
	})
}
