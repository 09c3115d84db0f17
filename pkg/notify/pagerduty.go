package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const pagerDutyEventsURL = "https://events.pagerduty.com/v2/enqueue"

// PagerDutyPager raises incidents through the PagerDuty Events API v2.
type PagerDutyPager struct {
	routingKey string
	eventsURL  string
	httpClient *http.Client
}

func NewPagerDutyPager(routingKey string) *PagerDutyPager {
	return &PagerDutyPager{
		routingKey: routingKey,
		eventsURL:  pagerDutyEventsURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type pagerDutyEvent struct {
	RoutingKey  string           `json:"routing_key"`
	EventAction string           `json:"event_action"`
	DedupKey    string           `json:"dedup_key"`
	Payload     pagerDutyPayload `json:"payload"`
}

type pagerDutyPayload struct {
	Summary       string         `json:"summary"`
	Source        string         `json:"source"`
	Severity      string         `json:"severity"`
	CustomDetails map[string]any `json:"custom_details,omitempty"`
}

func (p *PagerDutyPager) Trigger(ctx context.Context, summary string, details map[string]any) error {
	event := pagerDutyEvent{
		RoutingKey:  p.routingKey,
		EventAction: "trigger",
		DedupKey:    uuid.NewString(),
		Payload: pagerDutyPayload{
			Summary:       summary,
			Source:        "ninebridge-relayer",
			Severity:      "critical",
			CustomDetails: details,
		},
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode pagerduty event: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, p.eventsURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create pagerduty request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := p.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("pagerduty request failed: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusAccepted {
		return fmt.Errorf("pagerduty returned status %d", response.StatusCode)
	}
	log.Info().Str("summary", summary).Msg("[PagerDutyPager] [Trigger] incident raised")
	return nil
}
