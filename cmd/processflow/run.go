package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/nao1215/processflow/internal/config"
	pflog "github.com/nao1215/processflow/internal/log"
	"github.com/nao1215/processflow/internal/model"
	"github.com/nao1215/processflow/internal/pagefilter"
	"github.com/nao1215/processflow/internal/pipeline"
	"github.com/nao1215/processflow/internal/report"
	"github.com/nao1215/processflow/internal/session"
	"github.com/nao1215/processflow/internal/stage"
	"github.com/nao1215/processflow/internal/worker"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run pipeline stages over one or more projects",
		Long: `Run executes the requested stages over the pages of each project.

Stages always run in canonical order, whatever order they are given in.
Every stage after the first one only receives the pages for which the
stage it depends on left output on disk. A project is a directory with
the page images in its "original" subdirectory.

Press Ctrl-C once to stop after the current stage, twice to terminate
the running stage, and a third time to abort immediately.

Examples:
  # Preprocess and segment every page of a project
  processflow run --project ./book --stages preprocessing,segmentation

  # Only process two pages, on grayscale images
  processflow run --project ./book --image-type Gray \
    --stages segmentation,regionExtraction --pages 0001,0002

  # Process several projects in parallel and write a Markdown report
  processflow run --project ./book1 --project ./book2 \
    --stages preprocessing --markdown -o report.md

Settings file (--settings) example:
  processSettings:
    despeckling:
      maxContourRemovalSize: 50
    recognition:
      cmdArgs: ["--model", "fraktur"]`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	// Input flags
	cmd.Flags().StringSliceP("project", "p", nil,
		"Project directory to process (repeatable)")
	cmd.Flags().StringP("image-type", "i", config.DefaultImageType,
		"Image type the stages work on (e.g. Binary, Gray)")
	cmd.Flags().StringSliceP("stages", "s", nil,
		"Stages to run, in any order (comma separated)")
	cmd.Flags().StringSlice("pages", nil,
		"Page ids to process (default: every page in the project's original directory)")
	cmd.Flags().String("settings", "",
		"YAML or JSON file with per-stage settings for this run")
	cmd.Flags().String("env-file", "",
		"Dotenv file with variables passed to every stage command")

	// Execution flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of projects processed at once")
	cmd.Flags().Int("filter-concurrency", config.DefaultFilterConcurrency,
		"Number of pages checked at once between stages")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .processflow in current or home directory)")

	cmd.Flags().Bool("log-json", false,
		"Write log records to stderr as JSON")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(os.Stderr, cfg)
	slog.SetDefault(logger)

	return runFlow(context.Background(), cfg, logger)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.ProjectDirs, err = cmd.Flags().GetStringSlice("project")
	if err != nil {
		return nil, err
	}

	cfg.ImageType, err = cmd.Flags().GetString("image-type")
	if err != nil {
		return nil, err
	}

	cfg.Stages, err = cmd.Flags().GetStringSlice("stages")
	if err != nil {
		return nil, err
	}

	cfg.PageIDs, err = cmd.Flags().GetStringSlice("pages")
	if err != nil {
		return nil, err
	}

	cfg.SettingsFile, err = cmd.Flags().GetString("settings")
	if err != nil {
		return nil, err
	}

	cfg.EnvFile, err = cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.FilterConcurrency, err = cmd.Flags().GetInt("filter-concurrency")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg.File, err = loadConfigFile(cfg.ConfigFilePath)
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.LogJSON, err = cmd.Flags().GetBool("log-json")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// newLogger creates the run logger in the format cfg asks for.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.LogJSON {
		return pflog.NewJSONLogger(w, cfg.Verbose)
	}
	return pflog.NewLogger(w, cfg.Verbose)
}

// runFlow builds the orchestrator, runs every project and writes the report.
func runFlow(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	processes, err := stage.ParseList(cfg.Stages)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	overrides, err := loadRunSettings(cfg.SettingsFile)
	if err != nil {
		return err
	}

	jobs, err := buildJobs(cfg, processes, overrides)
	if err != nil {
		return err
	}

	orch, err := buildOrchestrator(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sessions := make([]*model.Session, len(jobs))
	for i, job := range jobs {
		sessions[i] = job.Session
	}

	logger.Info("starting process flow",
		"projects", cfg.ProjectDirs,
		"stages", cfg.Stages,
		"concurrency", cfg.Concurrency,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	handler := newInterruptHandler(ctx, cancel, orch, sessions, logger)
	runner := pipeline.NewBatchRunner(orch,
		pipeline.WithBatchLogger(logger),
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithForgetFinished(),
	)

	done := make(chan struct{})
	var results []pipeline.Result

	g := new(errgroup.Group)
	g.Go(func() error {
		defer close(done)
		var runErr error
		results, runErr = runner.Run(ctx, jobs)
		return runErr
	})
	g.Go(func() error {
		handler.watch(sigCh, done)
		return nil
	})
	if !cfg.Verbose {
		g.Go(func() error {
			newProgress(os.Stderr, orch.CurrentStatus, sessions).run(done)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warn("process flow aborted", "error", err)
	}

	summary := report.NewSummary(getVersion(), results)
	printOutcomes(os.Stderr, summary)

	if err := outputReport(cfg, summary); err != nil {
		return err
	}

	if !summary.Succeeded() {
		return runError(summary)
	}
	return nil
}

// buildOrchestrator wires one command worker per stage, the page filter and
// the session store into an orchestrator.
func buildOrchestrator(cfg *config.Config, logger *slog.Logger) (*pipeline.Orchestrator, error) {
	env, err := config.LoadWorkerEnv(cfg.EnvFile)
	if err != nil {
		return nil, err
	}

	workers := make(map[stage.Stage]stage.Worker, len(stage.All()))
	for _, s := range stage.All() {
		w, err := worker.NewCommandWorker(s, cfg.File.WorkerCommand(s),
			worker.WithLogger(logger),
			worker.WithEnv(env...),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create worker: %w", err)
		}
		workers[s] = w
	}

	registry, err := stage.NewRegistry(workers)
	if err != nil {
		return nil, err
	}

	layout, err := cfg.File.PageLayout()
	if err != nil {
		return nil, err
	}
	filter, err := pagefilter.New(
		pagefilter.WithLayout(layout),
		pagefilter.WithConcurrency(cfg.FilterConcurrency),
		pagefilter.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create page filter: %w", err)
	}

	return pipeline.New(registry, session.NewStore(),
		pipeline.WithLogger(logger),
		pipeline.WithFilter(filter),
	)
}

// loadRunSettings reads the per-run settings file. An empty path yields no
// overrides. The file uses the processSettings section of a request document,
// so a saved request can be passed as is.
func loadRunSettings(path string) (map[stage.Stage]model.Settings, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // User-provided settings path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	return parseRunSettings(data)
}

// parseRunSettings decodes a YAML or JSON settings document after checking
// it against the settings schema.
func parseRunSettings(data []byte) (map[stage.Stage]model.Settings, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if raw == nil {
		return map[stage.Stage]model.Settings{}, nil
	}
	if err := config.ValidateSettingsDocument(raw); err != nil {
		return nil, fmt.Errorf("settings file: %w", err)
	}

	var doc pipeline.Data
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	settings := make(map[stage.Stage]model.Settings, len(doc.ProcessSettings))
	for name, bag := range doc.ProcessSettings {
		s, err := stage.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("settings file: %w", err)
		}
		settings[s] = bag
	}
	return settings, nil
}

// buildJobs creates one session and request per project directory.
// Every requested stage receives the configuration file's defaults merged
// under the run's overrides.
func buildJobs(cfg *config.Config, processes []stage.Stage, overrides map[stage.Stage]model.Settings) ([]pipeline.Job, error) {
	jobs := make([]pipeline.Job, 0, len(cfg.ProjectDirs))
	for _, dir := range cfg.ProjectDirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", dir, err)
		}

		pages := cfg.PageIDs
		if len(pages) == 0 {
			pages, err = pagefilter.DiscoverPages(abs)
			if err != nil {
				return nil, fmt.Errorf("project %s: %w", dir, err)
			}
		}

		settings := make(map[stage.Stage]model.Settings, len(processes))
		for _, s := range processes {
			settings[s] = cfg.File.StageSettings(s, overrides[s])
		}

		jobs = append(jobs, pipeline.Job{
			Session: model.NewSession(uuid.NewString(), abs, cfg.ImageType),
			Request: pipeline.Request{
				PageIDs:   append([]string{}, pages...),
				Processes: append([]stage.Stage{}, processes...),
				Settings:  settings,
			},
		})
	}
	return jobs, nil
}

// printOutcomes writes one colored line per session.
func printOutcomes(w io.Writer, summary *report.Summary) {
	for _, run := range summary.Runs {
		var c *color.Color
		switch run.Outcome {
		case report.OutcomeCompleted:
			c = color.New(color.FgGreen)
		case report.OutcomeCancelled:
			c = color.New(color.FgYellow)
		default:
			c = color.New(color.FgRed)
		}
		c.Fprintf(w, "%-9s", run.Outcome)
		fmt.Fprintf(w, " %s (%d stages, %d pages, %s)\n",
			run.ProjectDir, len(run.Stages), run.PagesProcessed(), run.Elapsed.Round(time.Millisecond))
		if run.Error != "" {
			fmt.Fprintf(w, "          %s\n", run.Error)
		}
	}
}

// runError summarizes the sessions that did not complete.
func runError(summary *report.Summary) error {
	for _, run := range summary.Runs {
		if run.Outcome == report.OutcomeCompleted {
			continue
		}
		return fmt.Errorf("%d of %d sessions did not complete (first: %s, %s with status %d)",
			len(summary.Runs)-summary.Count(report.OutcomeCompleted), len(summary.Runs),
			run.ProjectDir, run.Outcome, int(run.Status))
	}
	return nil
}

// outputReport writes the summary in the requested format.
func outputReport(cfg *config.Config, summary *report.Summary) error {
	var output io.Writer = os.Stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	_, err := newReportWriter(cfg, output).Write(summary)
	return err
}

// newReportWriter selects the writer for the configured report format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}
