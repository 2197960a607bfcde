package app

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/promptcycle/promptcycle/internal/domain"
	"github.com/promptcycle/promptcycle/internal/genai"
)

type Config struct {
	Port      string
	OAIApiKey string
	OAIModel  string
	DBApiKey  string
	DBUrlBase string
	Offline   bool
}

// Agent is the external agent-interaction collaborator the test executor
// plays input turns against.
type Agent interface {
	Send(ctx context.Context, utterance string, promptSnapshot string) (string, error)
}

type SuiteRepo interface {
	Insert(ctx context.Context, suite domain.TestSuite) error
	Read(ctx context.Context, id string) (*domain.TestSuite, error)
}

type RunRepo interface {
	Insert(ctx context.Context, run domain.TestRun) error
	Read(ctx context.Context, id string) (*domain.TestRun, error)
}

type OptimizationRepo interface {
	Insert(ctx context.Context, optimization domain.Optimization) error
	UpdateStatus(ctx context.Context, id string, status domain.OptimizationStatus) error
	Read(ctx context.Context, id string) (*domain.Optimization, error)
}

type CycleRepo interface {
	Insert(ctx context.Context, cycle domain.Cycle) error
	Update(ctx context.Context, cycle domain.Cycle) error
	Read(ctx context.Context, id string) (*domain.Cycle, error)
}

// EventRepo captures progress events out of band; failures are logged,
// never surfaced.
type EventRepo interface {
	Capture(ctx context.Context, eventType string, cycleId string) error
}

type App struct {
	SuiteRepo        SuiteRepo
	RunRepo          RunRepo
	OptimizationRepo OptimizationRepo
	CycleRepo        CycleRepo
	Client           genai.Client
	Agent            Agent
	Orchestrator     *Orchestrator
	Config           Config
}

func (a *App) Start() {
	mux := http.NewServeMux()
	a.routes(mux)

	log.Printf("App running on %s...", a.Config.Port)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%s", a.Config.Port), mux))
}
