package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/promptcycle/promptcycle/internal/domain"
)

type OptimizationRepo struct {
	BaseHeaders []string
	BaseUrl     string
}

func (r OptimizationRepo) Insert(ctx context.Context, optimization domain.Optimization) error {
	body, err := json.Marshal(optimization)

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

func (r OptimizationRepo) UpdateStatus(ctx context.Context, id string, status domain.OptimizationStatus) error {
	body := []byte(fmt.Sprintf(`{"status": "%s"}`, status))

	_, err := request[struct{}](ctx, reqConfig{
		Method:    "PATCH",
		Url:       r.BaseUrl,
		UrlParams: []string{fmt.Sprintf("id=eq.%s", id)},
		Body:      body,
		Headers:   append(r.BaseHeaders, "Content-Type:application/json")},
		204)

	if err != nil {
		return err
	}

	return nil
}

func (r OptimizationRepo) Read(ctx context.Context, id string) (*domain.Optimization, error) {
	records, err := request[[]domain.Optimization](ctx, reqConfig{
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
