package persistence

import (
	"context"
	"fmt"
)

// EventRepo mirrors cycle progress events to an analytics capture endpoint.
// Delivery is fire-and-forget; the orchestrator logs failures and moves on.
type EventRepo struct {
	BaseHeaders []string
	BaseUrl     string
	ApiKey      string
}

func (r EventRepo) Capture(ctx context.Context, eventType string, cycleId string) error {
	body := []byte(fmt.Sprintf(`{
		"api_key": "%s",
		"event": "%s",
		"properties": {
			"distinct_id": "%s"}}`, r.ApiKey, eventType, cycleId))

	_, err := request[struct{}](ctx, reqConfig{
		Method:  "POST",
		Url:     r.BaseUrl,
		Headers: append(r.BaseHeaders, "Content-Type:application/json"),
		Body:    body},
		200)

	if err != nil {
		return err
	}

	return nil
}
