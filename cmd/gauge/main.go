// Command gauge runs agent evaluation suites and gates pull requests on
// the results.
//
//	gauge run      -config gauge.yaml -dir snapshots -commit <sha>
//	gauge compare  -config gauge.yaml -dir snapshots [-strict]
//	gauge baseline init    -config gauge.yaml -dir snapshots
//	gauge baseline promote -config gauge.yaml -dir snapshots [-expect <sha>]
//
// Secrets are read from the environment; a .env file in the working
// directory is loaded when present.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-gauge/infrastructure/evaluators"
	"github.com/ahrav/go-gauge/infrastructure/llm"
	"github.com/ahrav/go-gauge/infrastructure/middleware"
	"github.com/ahrav/go-gauge/infrastructure/report"
	"github.com/ahrav/go-gauge/infrastructure/storage"
	"github.com/ahrav/go-gauge/internal/application"
	"github.com/ahrav/go-gauge/internal/domain"
	"github.com/ahrav/go-gauge/internal/ports"
)

const (
	currentSnapshotName  = "current"
	baselineSnapshotName = "baseline"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// Missing .env is fine; CI injects secrets directly.
	_ = godotenv.Load()

	var err error
	switch os.Args[1] {
	case "run":
		err = cmdRun(os.Args[2:])
	case "compare":
		err = cmdCompare(os.Args[2:])
	case "baseline":
		err = cmdBaseline(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("gauge %s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: gauge <run|compare|baseline> [flags]")
	fmt.Fprintln(os.Stderr, "  run                execute the evaluation suite and store the current snapshot")
	fmt.Fprintln(os.Stderr, "  compare            compare the current snapshot against the baseline")
	fmt.Fprintln(os.Stderr, "  baseline init      establish the baseline from the current snapshot")
	fmt.Fprintln(os.Stderr, "  baseline promote   replace the baseline with the current snapshot")
}

// cmdRun executes the evaluation suite against the configured agent and
// stores the resulting snapshot as the current run.
func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "gauge.yaml", "Path to the configuration file")
	dir := fs.String("dir", "snapshots", "Directory for snapshot files")
	commit := fs.String("commit", "", "Commit SHA to stamp on the snapshot")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := application.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if len(cfg.Suite.Queries) == 0 {
		return errors.New("configuration declares no suite queries")
	}

	collector := middleware.NewPrometheusMetrics(nil)

	agentClient, err := buildLLMClient(cfg.Agent.JudgeConfig, collector)
	if err != nil {
		return fmt.Errorf("agent client: %w", err)
	}
	agent := llm.NewAgentAdapter(agentClient, cfg.Agent.SystemPrompt, map[string]any{
		"temperature": cfg.Agent.Temperature,
		"max_tokens":  cfg.Agent.MaxTokens,
	})

	judgeClient, err := buildLLMClient(cfg.Judge, collector)
	if err != nil {
		return fmt.Errorf("judge client: %w", err)
	}

	judgeConfig := evaluators.DefaultJudgeConfig()
	judgeConfig.Temperature = cfg.Judge.Temperature
	judgeConfig.MaxTokens = cfg.Judge.MaxTokens
	judge, err := evaluators.NewJudgeEvaluator(judgeClient, judgeConfig)
	if err != nil {
		return err
	}
	safety, err := evaluators.NewSafetyEvaluator(judgeClient, evaluators.DefaultJudgeConcurrency)
	if err != nil {
		return err
	}

	runner, err := evaluators.NewSuiteRunner(agent, []evaluators.Evaluator{
		judge,
		evaluators.NewSimilarityEvaluator(false),
		safety,
	}, cfg.Suite.MaxConcurrency)
	if err != nil {
		return err
	}

	queries := make([]evaluators.Query, len(cfg.Suite.Queries))
	for i, q := range cfg.Suite.Queries {
		queries[i] = evaluators.Query{Text: q.Query, GroundTruth: q.GroundTruth}
	}

	result, err := runner.Run(context.Background(), queries, *commit)
	if err != nil {
		return err
	}

	store, err := storage.NewFileSnapshotStore(*dir, currentSnapshotName)
	if err != nil {
		return err
	}
	if err := store.Replace(context.Background(), result.Snapshot, result.FullResults); err != nil {
		return err
	}

	fmt.Printf("Evaluated %d queries, %d metrics collected.\n", len(queries), result.Snapshot.Len())
	fmt.Printf("Snapshot written to %s\n", store.MetricsPath())
	return nil
}

// cmdCompare evaluates the gate: current snapshot against the stored
// baseline. Exit code 1 signals a failed gate when strict mode is on.
func cmdCompare(args []string) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	configPath := fs.String("config", "gauge.yaml", "Path to the configuration file")
	dir := fs.String("dir", "snapshots", "Directory for snapshot files")
	strict := fs.Bool("strict", false, "Exit nonzero when the gate fails (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := application.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	current, err := loadCurrentSnapshot(*dir)
	if err != nil {
		return err
	}

	service, err := buildGateService(cfg, *dir)
	if err != nil {
		return err
	}

	gateReport, err := service.Evaluate(context.Background(), current)
	if err != nil {
		return err
	}

	fmt.Println(gateReport.Report)

	if (cfg.Gate.Strict || *strict) && !gateReport.Verdict.Passed {
		os.Exit(1)
	}
	return nil
}

// cmdBaseline establishes or replaces the baseline from the current
// snapshot.
func cmdBaseline(args []string) error {
	if len(args) < 1 {
		return errors.New("baseline requires a subcommand: init or promote")
	}
	sub := args[0]

	fs := flag.NewFlagSet("baseline "+sub, flag.ExitOnError)
	configPath := fs.String("config", "gauge.yaml", "Path to the configuration file")
	dir := fs.String("dir", "snapshots", "Directory for snapshot files")
	expect := fs.String("expect", "", "Required stored baseline commit SHA (promote only)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := application.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	baselineStore, err := storage.NewFileSnapshotStore(*dir, baselineSnapshotName)
	if err != nil {
		return err
	}

	switch sub {
	case "init":
		if _, ok, err := baselineStore.Load(context.Background()); err != nil {
			return err
		} else if ok {
			return errors.New("baseline already exists; use 'baseline promote' to replace it")
		}
	case "promote":
	default:
		return fmt.Errorf("unknown baseline subcommand: %s", sub)
	}

	current, err := loadCurrentSnapshot(*dir)
	if err != nil {
		return err
	}

	// Archive the raw evaluation rows next to the new baseline when the
	// current run produced them.
	currentStore, err := storage.NewFileSnapshotStore(*dir, currentSnapshotName)
	if err != nil {
		return err
	}
	fullResults, err := os.ReadFile(currentStore.FullResultsPath())
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	service, err := buildGateService(cfg, *dir)
	if err != nil {
		return err
	}
	if err := service.PromoteBaseline(context.Background(), current, fullResults, *expect); err != nil {
		return err
	}

	fmt.Printf("Baseline set from commit %q with %d metrics.\n", current.CommitSHA(), current.Len())
	return nil
}

func loadCurrentSnapshot(dir string) (domain.MetricSnapshot, error) {
	store, err := storage.NewFileSnapshotStore(dir, currentSnapshotName)
	if err != nil {
		return domain.MetricSnapshot{}, err
	}
	snapshot, ok, err := store.Load(context.Background())
	if err != nil {
		return domain.MetricSnapshot{}, err
	}
	if !ok {
		return domain.MetricSnapshot{}, errors.New("no current snapshot found; run 'gauge run' first")
	}
	return snapshot, nil
}

func buildGateService(cfg application.Config, dir string) (*application.GateService, error) {
	comparator, err := cfg.Comparator()
	if err != nil {
		return nil, err
	}
	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	baselineStore, err := storage.NewFileSnapshotStore(dir, baselineSnapshotName)
	if err != nil {
		return nil, err
	}
	renderer := report.NewMarkdownRenderer(cfg.Gate.ThresholdPct)
	collector := middleware.NewPrometheusMetrics(nil)

	return application.NewGateService(comparator, registry, baselineStore, renderer, collector)
}

// buildLLMClient assembles a provider client with the configured
// middleware chain: rate limiting first, then retry, then metrics
// closest to the wire.
func buildLLMClient(cfg application.JudgeConfig, collector ports.MetricsCollector) (*llm.Client, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("environment variable %q holds no API key", cfg.APIKeyEnv)
	}

	var chain []llm.Middleware
	if cfg.RequestsPerSecond > 0 {
		chain = append(chain, llm.RateLimitMiddleware(rate.Limit(cfg.RequestsPerSecond), cfg.Burst))
	}
	if cfg.MaxRetries > 0 {
		chain = append(chain, llm.RetryMiddleware(cfg.MaxRetries, 500*time.Millisecond, 30*time.Second))
	}
	chain = append(chain, llm.MetricsMiddleware(collector))

	return llm.NewClient(cfg.Provider, llm.ClientConfig{
		APIKey:     apiKey,
		Model:      cfg.Model,
		BaseURL:    cfg.BaseURL,
		Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		Middleware: chain,
	})
}
