// Package main is the webpilot CLI: it runs one browser automation task
// end-to-end, streaming progress to the terminal, and manages external tool
// servers (install, list, uninstall) used by the agent.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nxtscape/webpilot/pkg/agent"
	"github.com/nxtscape/webpilot/pkg/browser"
	"github.com/nxtscape/webpilot/pkg/bus"
	"github.com/nxtscape/webpilot/pkg/config"
	"github.com/nxtscape/webpilot/pkg/llm/openai"
	"github.com/nxtscape/webpilot/pkg/logging"
	"github.com/nxtscape/webpilot/pkg/mcp"
)

const version = "0.1.0"

type cliFlags struct {
	task        string
	configFile  string
	model       string
	headless    bool
	timeout     time.Duration
	install     string
	uninstall   string
	listServers bool
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		fmt.Printf("webpilot v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nshutting down...")
		cancel()
	}()

	if err := run(ctx, flags); err != nil {
		fmt.Fprintf(os.Stderr, "webpilot: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() *cliFlags {
	flags := &cliFlags{}

	flag.StringVar(&flags.task, "task", "", "Task to run (required unless managing servers)")
	flag.StringVar(&flags.configFile, "config", "", "Path to configuration file (default ~/.webpilot/config.yaml)")
	flag.StringVar(&flags.model, "model", "", "Override the configured LLM model")
	flag.BoolVar(&flags.headless, "headless", true, "Run the browser without a visible window")
	flag.DurationVar(&flags.timeout, "timeout", 10*time.Minute, "Overall task timeout")
	flag.StringVar(&flags.install, "install", "", "Install an external tool server by name and exit")
	flag.StringVar(&flags.uninstall, "uninstall", "", "Uninstall an external tool server by instance id and exit")
	flag.BoolVar(&flags.listServers, "servers", false, "List available external tool servers and exit")
	flag.BoolVar(&flags.showVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "webpilot - autonomous browser task agent\n\n")
		fmt.Fprintf(os.Stderr, "Usage: webpilot [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  webpilot -task \"find the cheapest flight to Lisbon in October\"\n")
		fmt.Fprintf(os.Stderr, "  webpilot -servers\n")
		fmt.Fprintf(os.Stderr, "  webpilot -install gmail\n")
	}

	flag.Parse()
	return flags
}

func run(ctx context.Context, flags *cliFlags) error {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return err
	}
	if flags.model != "" {
		cfg.LLM.Model = flags.model
	}

	logger, err := logging.NewLogger("cli")
	if err == nil {
		defer logger.Close()
	}

	// Server management paths need no browser or LLM.
	if flags.listServers {
		return listServers(ctx, cfg)
	}
	if flags.uninstall != "" {
		return uninstallServer(ctx, cfg, flags.uninstall)
	}

	driver := browser.NewPlaywrightDriver(browser.WithHeadless(flags.headless))
	if err := driver.Start(); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer driver.Close()

	if flags.install != "" {
		return installServer(ctx, cfg, driver, flags.install)
	}

	if flags.task == "" {
		flag.Usage()
		return fmt.Errorf("no task given")
	}

	provider, err := openai.NewProvider(
		cfg.LLM.APIKey,
		openai.WithModel(cfg.LLM.Model),
		openai.WithBaseURL(cfg.LLM.BaseURL),
		openai.WithTemperature(cfg.LLM.Temperature),
	)
	if err != nil {
		return err
	}

	events := bus.New()
	events.Subscribe(newRenderer(os.Stdout).Handle)

	var opts []agent.Option
	if cfg.MCP.APIKey != "" {
		manager, err := newManager(cfg, driver)
		if err != nil {
			return err
		}
		client := mcp.NewClient(cfg.MCP.BaseURL, cfg.MCP.APIKey)
		opts = append(opts, agent.WithMCPTool(
			mcp.NewMCPTool(client, manager.GetUserID(), cfg.MCP.PlatformName)))
	}

	runCtx, cancel := context.WithTimeout(ctx, flags.timeout)
	defer cancel()

	return agent.New(driver, provider, events, opts...).Run(runCtx, flags.task)
}

func newManager(cfg *config.Config, driver browser.Driver) (*mcp.Manager, error) {
	store, err := mcp.NewFileIdentityStore("")
	if err != nil {
		return nil, err
	}
	client := mcp.NewClient(cfg.MCP.BaseURL, cfg.MCP.APIKey)
	return mcp.NewManager(client, store, driver, cfg.MCP.PlatformName), nil
}

func listServers(ctx context.Context, cfg *config.Config) error {
	client := mcp.NewClient(cfg.MCP.BaseURL, cfg.MCP.APIKey)
	servers, err := client.GetAvailableServers(ctx)
	if err != nil {
		return err
	}
	for _, server := range servers {
		auth := ""
		if server.AuthNeeded {
			auth = " (requires authorization)"
		}
		fmt.Printf("%-20s %s%s\n", server.Name, server.Description, auth)
	}
	return nil
}

func installServer(ctx context.Context, cfg *config.Config, driver browser.Driver, name string) error {
	policy, err := config.NewServerPolicy(cfg.ServerWhitelist)
	if err != nil {
		return err
	}
	if !policy.Allowed(name) {
		return fmt.Errorf("server %q is not in the configured whitelist", name)
	}

	manager, err := newManager(cfg, driver)
	if err != nil {
		return err
	}
	result, err := manager.InstallServer(ctx, name)
	if err != nil {
		return err
	}
	if !result.AuthSuccess {
		fmt.Printf("installed %s (instance %s), but authorization did not complete; rerun to retry\n", name, result.Instance.ID)
		return nil
	}
	fmt.Printf("installed %s (instance %s)\n", name, result.Instance.ID)
	return nil
}

func uninstallServer(ctx context.Context, cfg *config.Config, instanceID string) error {
	client := mcp.NewClient(cfg.MCP.BaseURL, cfg.MCP.APIKey)
	if err := client.DeleteInstance(ctx, instanceID); err != nil {
		return err
	}
	fmt.Printf("uninstalled instance %s\n", instanceID)
	return nil
}
