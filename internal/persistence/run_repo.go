package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/promptcycle/promptcycle/internal/domain"
)

type RunRepo struct {
	BaseHeaders []string
	BaseUrl     string
}

func (r RunRepo) Insert(ctx context.Context, run domain.TestRun) error {
	body, err := json.Marshal(run)

	if err != nil {
		return err
	}

	_, err = request[struct{}](ctx, reqConfig{
		Method:  "POST",
		Url:     r.BaseUrl,
		Body:    body,
		Headers: append(r.BaseHeaders, "Content-Type:application/json")},
		201)

	if err != nil {
		return err
	}

	return nil
}

func (r RunRepo) Read(ctx context.Context, id string) (*domain.TestRun, error) {
	records, err := request[[]domain.TestRun](ctx, reqConfig{
		Method:    "GET",
		Url:       r.BaseUrl,
		UrlParams: []string{fmt.Sprintf("id=eq.%s", id)},
		Headers:   r.BaseHeaders},
		200)

	if err != nil {
		return nil, err
	}

	return single(records, id)
}
