package app

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/promptcycle/promptcycle/internal/domain"
)

type startCycleReq struct {
	Prompt          string  `json:"prompt"`
	SuiteId         string  `json:"suite_id"`
	TargetThreshold float64 `json:"target_threshold"`
	MaxCycles       int     `json:"max_cycles"`
}

type analyzeReq struct {
	Prompt string `json:"prompt"`
}

type executeRunReq struct {
	SuiteId string `json:"suite_id"`
	Prompt  string `json:"prompt"`
}

type optimizeReq struct {
	RunId string `json:"run_id"`
}

func (a *App) routes(mux *http.ServeMux) {
	mux.Handle("POST /cycles", apiHandler(a.handleStartCycle))
	mux.Handle("POST /cycles/{id}/cancel", apiHandler(a.handleCancelCycle))
	mux.Handle("POST /cycles/{id}/pause", apiHandler(a.handlePauseCycle))
	mux.Handle("POST /cycles/{id}/resume", apiHandler(a.handleResumeCycle))
	mux.Handle("GET /cycles/{id}", apiHandler(a.handleGetCycle))
	mux.HandleFunc("GET /cycles/{id}/events", a.handleCycleEvents)

	mux.Handle("POST /analyses", apiHandler(a.handleAnalyze))
	mux.Handle("POST /suites", apiHandler(a.handleGenerateSuite))
	mux.Handle("POST /runs", apiHandler(a.handleExecuteRun))
	mux.Handle("POST /runs/{id}/cases/{caseId}/retry", apiHandler(a.handleRetryCase))
	mux.Handle("GET /runs/{id}/compare/{otherId}", apiHandler(a.handleCompareRuns))
	mux.Handle("POST /optimizations", apiHandler(a.handleOptimize))
	mux.Handle("POST /optimizations/{id}/accept", apiHandler(a.handleAcceptOptimization))
	mux.Handle("POST /optimizations/{id}/reject", apiHandler(a.handleRejectOptimization))
}

func decodeBody[T any](r *http.Request) (*T, error) {
	var t T
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		return nil, validationError("malformed request body: %w", err)
	}

	return &t, nil
}

func (a *App) handleStartCycle(r *http.Request) *apiResponse {
	body, err := decodeBody[startCycleReq](r)

	if err != nil {
		return &apiResponse{Error: err}
	}

	cycleId, err := a.Orchestrator.StartCycle(r.Context(), body.Prompt, body.SuiteId, body.TargetThreshold, body.MaxCycles)

	if err != nil {
		return &apiResponse{Error: err}
	}

	return &apiResponse{Code: http.StatusAccepted, Body: map[string]string{"cycle_id": cycleId}}
}

func (a *App) handleCancelCycle(r *http.Request) *apiResponse {
	if err := a.Orchestrator.Cancel(r.Context(), r.PathValue("id")); err != nil {
		return &apiResponse{Error: err}
	}

	return &apiResponse{Code: http.StatusAccepted}
}

func (a *App) handlePauseCycle(r *http.Request) *apiResponse {
	if err := a.Orchestrator.Pause(r.Context(), r.PathValue("id")); err != nil {
		return &apiResponse{Error: err}
	}

	return &apiResponse{Code: http.StatusAccepted}
}

func (a *App) handleResumeCycle(r *http.Request) *apiResponse {
	if err := a.Orchestrator.Resume(r.Context(), r.PathValue("id")); err != nil {
		return &apiResponse{Error: err}
	}

	return &apiResponse{Code: http.StatusAccepted}
}

func (a *App) handleGetCycle(r *http.Request) *apiResponse {
	record, err := a.Orchestrator.GetRecord(r.Context(), r.PathValue("id"))

	if err != nil {
		return &apiResponse{Error: err}
	}

	return &apiResponse{Code: http.StatusOK, Body: record}
}

// handleCycleEvents translates the listener subscription into a server-sent
// event stream. The stream closes on finished or error.
func (a *App) handleCycleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events := make(chan Event, 16)
	token, err := a.Orchestrator.AddEventListener(r.PathValue("id"), func(e Event) {
		select {
		case events <- e:
		default:
		}
	})

	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	defer a.Orchestrator.RemoveEventListener(r.PathValue("id"), token)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-events:
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}

			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()

			if event.Type == EventFinished || event.Type == EventError {
				return
			}
		}
	}
}

func (a *App) handleAnalyze(r *http.Request) *apiResponse {
	body, err := decodeBody[analyzeReq](r)

	if err != nil {
		return &apiResponse{Error: err}
	}

	analysis, err := a.AnalyzePrompt(r.Context(), body.Prompt)

	if err != nil {
		return &apiResponse{Error: err}
	}

	return &apiResponse{Code: http.StatusCreated, Body: analysis}
}

func (a *App) handleGenerateSuite(r *http.Request) *apiResponse {
	body, err := decodeBody[domain.Analysis](r)

	if err != nil {
		return &apiResponse{Error: err}
	}

	suite, err := a.GenerateTestSuite(r.Context(), *body)

	if err != nil {
		return &apiResponse{Error: err}
	}

	return &apiResponse{Code: http.StatusCreated, Body: suite}
}

func (a *App) handleExecuteRun(r *http.Request) *apiResponse {
	body, err := decodeBody[executeRunReq](r)

	if err != nil {
		return &apiResponse{Error: err}
	}

	run, err := a.ExecuteTestRun(r.Context(), body.SuiteId, body.Prompt)

	if err != nil {
		return &apiResponse{Error: err}
	}

	return &apiResponse{Code: http.StatusCreated, Body: run}
}

func (a *App) handleRetryCase(r *http.Request) *apiResponse {
	run, err := a.RetryTestCase(r.Context(), r.PathValue("id"), r.PathValue("caseId"))

	if err != nil {
		return &apiResponse{Error: err}
	}

	return &apiResponse{Code: http.StatusCreated, Body: run}
}

func (a *App) handleCompareRuns(r *http.Request) *apiResponse {
	comparison, err := a.CompareTestRuns(r.Context(), r.PathValue("id"), r.PathValue("otherId"))

	if err != nil {
		return &apiResponse{Error: err}
	}

	return &apiResponse{Code: http.StatusOK, Body: comparison}
}

func (a *App) handleOptimize(r *http.Request) *apiResponse {
	body, err := decodeBody[optimizeReq](r)

	if err != nil {
		return &apiResponse{Error: err}
	}

	view, err := a.OptimizePrompt(r.Context(), body.RunId)

	if err != nil {
		return &apiResponse{Error: err}
	}

	return &apiResponse{Code: http.StatusCreated, Body: view}
}

func (a *App) handleAcceptOptimization(r *http.Request) *apiResponse {
	optimization, err := a.ApplyOptimization(r.Context(), r.PathValue("id"))

	if err != nil {
		return &apiResponse{Error: err}
	}

	return &apiResponse{Code: http.StatusOK, Body: optimization}
}

func (a *App) handleRejectOptimization(r *http.Request) *apiResponse {
	optimization, err := a.RejectOptimization(r.Context(), r.PathValue("id"))

	if err != nil {
		return &apiResponse{Error: err}
	}

	return &apiResponse{Code: http.StatusOK, Body: optimization}
}
