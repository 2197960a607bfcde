package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/promptcycle/promptcycle/internal/domain"
)

type CycleRepo struct {
	BaseHeaders []string
	BaseUrl     string
}

func (r CycleRepo) Insert(ctx context.Context, cycle domain.Cycle) error {
	body, err := json.Marshal(cycle)

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

func (r CycleRepo) Update(ctx context.Context, cycle domain.Cycle) error {
	body, err := json.Marshal(cycle)

	if err != nil {
		return err
	}

	_, err = request[struct{}](ctx, reqConfig{
		Method:    "PATCH",
		Url:       r.BaseUrl,
		UrlParams: []string{fmt.Sprintf("id=eq.%s", cycle.Id)},
		Body:      body,
		Headers:   append(r.BaseHeaders, "Content-Type:application/json")},
		204)

	if err != nil {
		return err
	}

	return nil
}

func (r CycleRepo) Read(ctx context.Context, id string) (*domain.Cycle, error) {
	records, err := request[[]domain.Cycle](ctx, reqConfig{
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
