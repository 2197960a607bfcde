package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/promptcycle/promptcycle/internal/domain"
)

type SuiteRepo struct {
	BaseHeaders []string
	BaseUrl     string
}

// Insert writes the suite, its cases and their criteria through a single
// rpc call so they appear together or not at all.
func (r SuiteRepo) Insert(ctx context.Context, suite domain.TestSuite) error {
	body, err := json.Marshal(map[string]domain.TestSuite{"suite": suite})

	if err != nil {
		return err
	}

	_, err = request[struct{}](ctx, reqConfig{
		Method:  "POST",
		Url:     fmt.Sprintf("%s/rpc/insert_test_suite", r.BaseUrl),
		Body:    body,
		Headers: append(r.BaseHeaders, "Content-Type:application/json")},
		204)

	if err != nil {
		return err
	}

	return nil
}

func (r SuiteRepo) Read(ctx context.Context, id string) (*domain.TestSuite, error) {
	records, err := request[[]domain.TestSuite](ctx, reqConfig{
		Method:    "GET",
		Url:       fmt.Sprintf("%s/test_suite", r.BaseUrl),
		UrlParams: []string{fmt.Sprintf("id=eq.%s", id), "select=*,cases:test_case(*,criteria:success_criterion(*))"},
		Headers:   r.BaseHeaders},
		200)

	if err != nil {
		return nil, err
	}

	return single(records, id)
}
