package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rahul/autops/internal/agent"
	"github.com/rahul/autops/internal/capability"
	"github.com/rahul/autops/internal/gateway"
	"github.com/rahul/autops/internal/governance"
	"github.com/rahul/autops/internal/observability"
	"github.com/rahul/autops/internal/store"
	"github.com/rahul/autops/internal/tools"
	"github.com/rahul/autops/pkg/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

func main() {
	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	cfg := config.LoadConfig("config.json")

	slackCfg, ok := cfg.GetSlackConfig()
	if !ok {
		log.Fatal("Slack gateway is not enabled or token is missing")
	}

	logger := observability.NewLogger()
	metrics := observability.NewMetrics(logger)

	// Capability registry: built-in defaults plus config overrides.
	registry := capability.DefaultRegistry()
	for name, cc := range cfg.Capabilities {
		actions := make(map[string]bool, len(cc.Actions))
		for _, a := range cc.Actions {
			actions[a] = true
		}
		registry.Register(name, capability.Capability{
			Supported: cc.Supported,
			Actions:   actions,
			Message:   cc.Message,
		})
	}

	auditPath := cfg.Audit.Path
	if auditPath == "" {
		auditPath = "autops.db"
	}
	audit, err := store.NewAuditStore(auditPath)
	if err != nil {
		log.Fatal(err)
	}
	defer audit.Close()

	// Initialize LLM (using default enabled provider)
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		log.Fatal("No enabled provider found in config")
	}

	var llm llms.Model
	switch pName {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	default:
		log.Fatalf("Provider %s not yet implemented in main", pName)
	}
	if err != nil {
		log.Fatal(err)
	}

	// External tool clients: long-lived handles, safe for concurrent use.
	ghCfg := cfg.GetTool("github")
	github, err := tools.NewGitHubClient(ghCfg.Token, ghCfg.Owner)
	if err != nil {
		log.Printf("Warning: GitHub client unavailable: %v", err)
	}

	ddCfg := cfg.GetTool("datadog")
	datadog := tools.NewDatadogClient(ddCfg.Token, ddCfg.AppKey, ddCfg.BaseURL)

	pdCfg := cfg.GetTool("pagerduty")
	pagerduty := tools.NewPagerDutyClient(pdCfg.Token, pdCfg.BaseURL)

	glCfg := cfg.GetTool("gitlab")
	gitlab := tools.NewGitLabClient(glCfg.Token, glCfg.BaseURL, glCfg.Owner)

	search, err := tools.NewSearchClient()
	if err != nil {
		log.Printf("Warning: Failed to initialize search client: %v", err)
	}

	// Governance: remediation actions evaluated before execution.
	gov := governance.NewDefaultPolicyEngine()
	gov.DenyAction("delete_database")
	gov.DenyAction("drop_table")
	for _, name := range cfg.Governance.DeniedActions {
		gov.DenyAction(name)
	}
	for _, pattern := range cfg.Governance.DeniedPatterns {
		if err := gov.DenyArguments(pattern); err != nil {
			log.Printf("Warning: invalid governance pattern %q: %v", pattern, err)
		}
	}

	// Gateway first: the responder needs it to post replies.
	dispatcher := agent.NewDispatcher(64)
	slackGw, err := gateway.NewSlackGateway(slackCfg.Token, slackCfg.SigningSecret, cfg.App.ListenAddr)
	if err != nil {
		log.Fatal(err)
	}
	slackGw.Dispatcher = dispatcher

	// Agents
	retrieval := agent.NewRetrievalAgent(datadog, pagerduty, gitlab)
	analysis := agent.NewAnalysisAgent(llm, logger)
	knowledge := agent.NewKnowledgeAgent(search)
	responder := agent.NewResponder(llm, slackGw, logger)

	remediation := agent.NewRemediationAgent()
	remediation.RegisterHandler("rollback_deployment", func(ctx context.Context, params map[string]any) (any, error) {
		service, _ := params["service_name"].(string)
		ref, _ := params["ref"].(string)
		if ref == "" {
			ref, _ = params["deployment_id"].(string)
		}
		return gitlab.TriggerPipeline(ctx, service, ref)
	})

	// Closed dispatch table: every (executor, action) pair a plan can name.
	dispatch := agent.NewDispatch()
	dispatch.RegisterAgent(agent.ExecutorRetrieval, agent.ActionGatherContext, retrieval.GatherContext)
	dispatch.RegisterAgent(agent.ExecutorPlanning, agent.ActionAnalyzeContext, analysis.AnalyzeContext)
	dispatch.RegisterAgent(agent.ExecutorKnowledge, agent.ActionSearchKnowledge, knowledge.SearchKnowledge)
	dispatch.RegisterAgent(agent.ExecutorResponder, agent.ActionErrorResponse, responder.GenerateErrorResponse)
	dispatch.RegisterAgent(agent.ExecutorResponder, agent.ActionNotImplemented, responder.GenerateNotImplementedResponse)
	dispatch.RegisterAgent(agent.ExecutorRemediation, agent.ActionExecuteRemediation, remediation.ExecuteRemediation)
	if github != nil {
		dispatch.RegisterTool(agent.ExecutorGitHub, agent.ActionPipelineStatus, func(ctx context.Context, params map[string]any) (any, error) {
			repo, _ := params["repo_name"].(string)
			branch, _ := params["branch"].(string)
			return github.PipelineStatus(ctx, repo, branch)
		})
	}
	dispatch.RegisterTool(agent.ExecutorDatadog, agent.ActionErrorRateMetrics, func(ctx context.Context, params map[string]any) (any, error) {
		service, _ := params["service_name"].(string)
		return datadog.ErrorRateMetrics(ctx, service)
	})

	executor := agent.NewExecutor(dispatch)
	verifier := agent.NewVerifier(logger)
	orchestrator := agent.NewOrchestrator(executor, verifier, responder, analysis, logger, metrics)

	pipeline := &agent.Pipeline{
		Classifier:   agent.NewClassifier(llm, pCfg.Model, logger),
		Planner:      agent.NewPlanner(registry),
		Orchestrator: orchestrator,
		Messenger:    slackGw,
		Logger:       logger,
		Metrics:      metrics,
		Audit:        audit,
	}
	approvals := agent.NewApprovalGate(executor, slackGw, gov, logger, metrics)

	slackGw.OnQuery = pipeline.HandleQuery
	slackGw.OnInteraction = approvals.HandleInteraction

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go dispatcher.Start(ctx)

	// Start Live Resource Dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
				logger.LogHeartbeat()
			}
		}
	}()

	// Start Gateway in a goroutine so we can wait for context in the main loop
	go func() {
		if err := slackGw.Start(); err != nil {
			log.Printf("\033[91m[ FAIL ] GATEWAY CRITICAL ERROR: %v\033[0m", err)
			stop() // stop caller if gateway dies
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	if err := slackGw.Stop(); err != nil {
		log.Printf("gateway shutdown error: %v", err)
	}

	// Reset terminal aesthetics
	observability.CleanupTerminal()

	// Give a short time for final logs/syncs
	time.Sleep(500 * time.Millisecond)
	log.Println("\033[95m[ EXIT ] CORE DE-INITIALIZED. GOODBYE.\033[0m")
}
