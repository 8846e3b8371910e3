package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rohan/claimpilot/internal/agent"
	"github.com/rohan/claimpilot/internal/governance"
	"github.com/rohan/claimpilot/internal/mailroom"
	"github.com/rohan/claimpilot/internal/notify"
	"github.com/rohan/claimpilot/internal/observability"
	"github.com/rohan/claimpilot/internal/processor"
	"github.com/rohan/claimpilot/internal/store"
	"github.com/rohan/claimpilot/internal/tools"
	"github.com/rohan/claimpilot/internal/warranty"
	"github.com/rohan/claimpilot/internal/workflow"
	"github.com/rohan/claimpilot/pkg/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

func main() {
	observability.PrintBanner()

	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := observability.NewLogger()

	// Warranty registry
	warrantyStore, err := store.NewWarrantyStore(cfg.Warranty.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer warrantyStore.Close()

	var checker workflow.WarrantyChecker
	switch cfg.Warranty.Source {
	case "portal":
		portal := warranty.NewPortalLookup(cfg.Warranty.PortalURL, cfg.Warranty.PortalSelector)
		defer portal.Close()
		checker = portal
	default:
		checker = warrantyStore
	}

	// Initialize LLM (using default enabled provider)
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		log.Fatal("No enabled provider found in config")
	}

	var model llms.Model
	switch pName {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		model, err = openai.New(opts...)
	default:
		log.Fatalf("Provider %s not yet implemented in main", pName)
	}
	if err != nil {
		log.Fatal(err)
	}

	// Mail in and out
	mailbox, err := mailroom.NewSpoolMailbox(cfg.App.SpoolDir)
	if err != nil {
		log.Fatal(err)
	}
	mailer := mailroom.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From)

	// Operator escalation channels
	var notifiers []notify.Notifier
	if tgCfg, ok := cfg.GetNotifier("telegram"); ok {
		tn, err := notify.NewTelegramNotifier(tgCfg.Token, tgCfg.ChatID)
		if err != nil {
			log.Printf("Warning: Failed to initialize telegram notifier: %v", err)
		} else {
			notifiers = append(notifiers, tn)
		}
	}
	if dcCfg, ok := cfg.GetNotifier("discord"); ok {
		dn, err := notify.NewDiscordNotifier(dcCfg.Token, dcCfg.ChannelID)
		if err != nil {
			log.Printf("Warning: Failed to initialize discord notifier: %v", err)
		} else {
			notifiers = append(notifiers, dn)
		}
	}

	// Dispatch mode, selected once per process
	var runner processor.Runner
	var role observability.Role
	switch cfg.Workflow.Mode {
	case "tools":
		registry := tools.NewRegistry()
		registry.Register(tools.NewCheckWarrantyTool(checker))
		registry.Register(tools.NewCreateTicketTool(warrantyStore))
		registry.Register(tools.NewSendReplyTool(mailer))

		gov := governance.NewRuleEngine()
		// Tool output is echoed into replies; keep script injection out.
		_ = gov.DenyArguments(`(?i)<script`)

		runner = agent.NewToolRunner(model, registry, gov, logger, cfg.Workflow.MaxSteps)
		role = observability.RoleTools
	default:
		instructions := workflow.NewInstructionStore(cfg.App.InstructionsDir)
		executor := workflow.NewExecutor(model, instructions, workflow.MarkerParser{}, checker)
		runner = workflow.NewOrchestrator(executor, logger, cfg.Workflow.MaxSteps, cfg.Workflow.RetryOnParseFailure)
		role = observability.RoleSteps
	}

	proc := &processor.Processor{
		Mailbox:      mailbox,
		Mailer:       mailer,
		Runner:       runner,
		Recorder:     warrantyStore,
		Notifiers:    notifiers,
		Log:          logger,
		EntryStep:    cfg.Workflow.EntryStep,
		RunTimeout:   time.Duration(cfg.Workflow.RunTimeoutSeconds) * time.Second,
		PollInterval: time.Duration(cfg.Workflow.PollIntervalSeconds) * time.Second,
		Role:         role,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go proc.Start(ctx)

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
				observability.PrintLiveStatus()
			}
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	// Give a short time for final logs/syncs
	time.Sleep(500 * time.Millisecond)
	log.Println("Claim processor stopped. Goodbye.")
}
