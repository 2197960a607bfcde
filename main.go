package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/promptcycle/promptcycle/internal/app"
	"github.com/promptcycle/promptcycle/internal/genai"
	"github.com/promptcycle/promptcycle/internal/persistence"

	_ "go.uber.org/automaxprocs"
)

func config() app.Config {
	port := os.Getenv("GOPORT")
	if port == "" {
		port = "8000"
	}

	offline, _ := strconv.ParseBool(os.Getenv("GENAI_OFFLINE"))

	oaiApiKey := os.Getenv("OAI_API_KEY")
	if oaiApiKey == "" && !offline {
		slog.Error("OAI_API_KEY environment variable not set")
	}

	oaiModel := os.Getenv("OAI_MODEL")
	if oaiModel == "" {
		oaiModel = "gpt-4o-mini"
	}

	dbApiKey := os.Getenv("DB_API_KEY")
	if dbApiKey == "" && !offline {
		slog.Error("DB_API_KEY environment variable not set")
	}

	return app.Config{
		Port:      port,
		OAIApiKey: oaiApiKey,
		OAIModel:  oaiModel,
		DBApiKey:  dbApiKey,
		DBUrlBase: os.Getenv("DB_URL_BASE"),
		Offline:   offline,
	}
}

func main() {
	config := config()

	var client genai.Client
	var agent app.Agent
	var suiteRepo app.SuiteRepo
	var runRepo app.RunRepo
	var optimizationRepo app.OptimizationRepo
	var cycleRepo app.CycleRepo
	var eventRepo app.EventRepo

	if config.Offline {
		client = genai.Fallback{}
		agent = genai.ScriptedAgent{}

		store := persistence.NewMemoryStore()
		suiteRepo = store.Suites()
		runRepo = store.Runs()
		optimizationRepo = store.Optimizations()
		cycleRepo = store.Cycles()
		eventRepo = store.Events()
	} else {
		client = genai.NewOpenAIClient(config.OAIApiKey, config.OAIModel, genai.DefaultRetryConfig())
		agent = genai.NewChatAgent(config.OAIApiKey, config.OAIModel)

		dbHeader := []string{
			fmt.Sprintf("apikey:%s", config.DBApiKey),
			fmt.Sprintf("Authorization:Bearer %s", config.DBApiKey)}

		suiteRepo = persistence.SuiteRepo{BaseHeaders: dbHeader, BaseUrl: config.DBUrlBase}
		runRepo = persistence.RunRepo{BaseHeaders: dbHeader, BaseUrl: fmt.Sprintf("%s/test_run", config.DBUrlBase)}
		optimizationRepo = persistence.OptimizationRepo{BaseHeaders: dbHeader, BaseUrl: fmt.Sprintf("%s/optimization", config.DBUrlBase)}
		cycleRepo = persistence.CycleRepo{BaseHeaders: dbHeader, BaseUrl: fmt.Sprintf("%s/cycle", config.DBUrlBase)}
		eventRepo = persistence.EventRepo{BaseUrl: os.Getenv("EVENT_CAPTURE_URL"), ApiKey: os.Getenv("EVENT_API_KEY")}
	}

	a := app.App{
		SuiteRepo:        suiteRepo,
		RunRepo:          runRepo,
		OptimizationRepo: optimizationRepo,
		CycleRepo:        cycleRepo,
		Client:           client,
		Agent:            agent,
		Orchestrator:     app.NewOrchestrator(agent, client, suiteRepo, runRepo, optimizationRepo, cycleRepo, eventRepo),
		Config:           config,
	}

	a.Start()
}
