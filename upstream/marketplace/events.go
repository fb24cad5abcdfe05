package marketplace

import (
	"context"
	"net/http"

	"github.com/bedrocktools/mcgate/internal/apierr"
	"github.com/bedrocktools/mcgate/upstream/transport"
)

// MessageEventInput describes one marketplace messaging interaction
// (impression, click, dismissal) to report upstream.
type MessageEventInput struct {
	SessionID  string `json:"sessionId"`
	EventType  string `json:"eventType"`
	InstanceID string `json:"instanceId"`
	ReportID   string `json:"reportId"`
}

// BuildMessageEventsPayload shapes one interaction into the events envelope
// the messaging service expects.
func BuildMessageEventsPayload(in MessageEventInput) map[string]any {
	return map[string]any{
		"events": []map[string]any{
			{
				"eventType":  in.EventType,
				"instanceId": in.InstanceID,
				"reportId":   in.ReportID,
				"sessionId":  in.SessionID,
			},
		},
	}
}

// SendMessageEvents reports one marketplace messaging interaction.
func (c *Client) SendMessageEvents(ctx context.Context, mcToken string, in MessageEventInput) error {
	if in.EventType == "" {
		return apierr.New(apierr.KindClient, "event type is required")
	}

	_, err := transport.Do(ctx, c.httpClient, upstreamName, transport.Request{
		Method: http.MethodPost,
		URL:    c.ServiceURL + "/api/v1.0/messaging/events",
		Header: map[string]string{"Authorization": mcToken},
		Body:   BuildMessageEventsPayload(in),
	})
	return err
}
