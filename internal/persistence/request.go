// Package persistence implements the repo interfaces of the app package
// against a Supabase-style REST data API, plus an in-memory store for
// offline operation and tests.
package persistence

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/promptcycle/promptcycle/internal/app"
)

type reqConfig struct {
	Method    string
	Url       string
	UrlParams []string
	Headers   []string
	Body      []byte
}

func request[T any](ctx context.Context, config reqConfig, expectedResCode int) (*T, error) {
	url := config.Url
	if len(config.UrlParams) > 0 {
		url = fmt.Sprintf("%s?%s", url, strings.Join(config.UrlParams, "&"))
	}

	req, err := http.NewRequestWithContext(ctx, config.Method, url, bytes.NewBuffer(config.Body))

	if err != nil {
		return nil, err
	}

	for i := 0; i < len(config.Headers); i++ {
		headerKV := strings.SplitN(config.Headers[i], ":", 2)
		req.Header.Add(headerKV[0], strings.TrimSpace(headerKV[1]))
	}

	resp, err := http.DefaultClient.Do(req)

	if err != nil {
		return nil, err
	} else if resp.StatusCode != expectedResCode {
		return nil, fmt.Errorf("unexpected response status code %d for %s %s", resp.StatusCode, config.Method, config.Url)
	}

	body, err := app.Read(resp.Body)

	if err != nil {
		return nil, err
	}

	if len(body) == 0 {
		return new(T), nil
	}

	return app.ReadJSON[T](body)
}

func single[T any](records *[]T, id string) (*T, error) {
	if records == nil || len(*records) == 0 {
		return nil, fmt.Errorf("record %s not found", id)
	}

	return &(*records)[0], nil
}
