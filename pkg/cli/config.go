package cli

import (
	"context"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/canopy/pkg/adapter"
	"github.com/m-mizutani/canopy/pkg/repository"
	"github.com/m-mizutani/canopy/pkg/ruleset"
	"github.com/m-mizutani/canopy/pkg/usecase/action"
	"github.com/m-mizutani/canopy/pkg/usecase/semantic"
	"github.com/m-mizutani/canopy/pkg/utils/logging"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel string

	// Repository
	project  string
	database string

	// Ruleset
	rulesPath string

	// Adapters
	geminiProject  string
	geminiLocation string
	geminiModel    string
	mediaBucket    string

	// Integrations
	policyDir string
	mcpConfig string
	bqDataset string
	bqTable   string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("CANOPY_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID, leave empty for the in-memory store",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "rules",
			Usage:       "Path to a YAML routing ruleset, leave empty for the built-in one",
			Sources:     cli.EnvVars("CANOPY_RULES"),
			Destination: &cfg.rulesPath,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Generative model name",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
		&cli.StringFlag{
			Name:        "mcp-config",
			Usage:       "Path to an MCP server configuration file",
			Sources:     cli.EnvVars("CANOPY_MCP_CONFIG"),
			Destination: &cfg.mcpConfig,
		},
	}
}

// executionFlags returns flags for the action execution side: policy,
// media storage and the event archive.
func executionFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "policy",
			Usage:       "Directory of Rego policies for confirmation rules",
			Sources:     cli.EnvVars("CANOPY_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
		&cli.StringFlag{
			Name:        "media-bucket",
			Usage:       "Cloud Storage bucket for captured media",
			Sources:     cli.EnvVars("CANOPY_MEDIA_BUCKET"),
			Destination: &cfg.mediaBucket,
		},
		&cli.StringFlag{
			Name:        "bigquery-dataset",
			Usage:       "BigQuery dataset for archived semantic events",
			Sources:     cli.EnvVars("CANOPY_BIGQUERY_DATASET"),
			Destination: &cfg.bqDataset,
		},
		&cli.StringFlag{
			Name:        "bigquery-table",
			Usage:       "BigQuery table for archived semantic events",
			Value:       "semantic_events",
			Sources:     cli.EnvVars("CANOPY_BIGQUERY_TABLE"),
			Destination: &cfg.bqTable,
		},
	}
}

// loggingContext injects a logger built from the configured level
func (cfg *config) loggingContext(ctx context.Context, w io.Writer) context.Context {
	logger := logging.New(cfg.logLevel, w)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newRules loads the routing ruleset, falling back to the built-in one
func (cfg *config) newRules() (*ruleset.Ruleset, error) {
	if cfg.rulesPath == "" {
		return ruleset.Default(), nil
	}

	f, err := os.Open(cfg.rulesPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open ruleset file", goerr.V("path", cfg.rulesPath))
	}
	defer f.Close()

	rules, err := ruleset.Load(f)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load ruleset", goerr.V("path", cfg.rulesPath))
	}
	return rules, nil
}

// newRepository creates a repository instance. Without a project it
// falls back to the in-memory store so the CLI works offline.
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	if cfg.project == "" {
		logging.From(ctx).Info("no project configured, using the in-memory store")
		return repository.NewMemory(), nil
	}

	repo, err := repository.New(ctx, cfg.project, cfg.database)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}

	var opts []adapter.GeminiOption
	if cfg.geminiModel != "" {
		opts = append(opts, adapter.WithGenerativeModel(cfg.geminiModel))
	}

	gemini, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini client")
	}
	return gemini, nil
}

// newEvents creates the semantic event recorder, with a BigQuery
// archive sink when a dataset is configured.
func (cfg *config) newEvents(ctx context.Context) (*semantic.Recorder, error) {
	var opts []semantic.RecorderOption
	if cfg.bqDataset != "" {
		if cfg.project == "" {
			return nil, goerr.New("project is required for the BigQuery sink")
		}
		sink, err := adapter.NewBigQuerySink(ctx, cfg.project, adapter.WithTable(cfg.bqDataset, cfg.bqTable))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create BigQuery sink")
		}
		opts = append(opts, semantic.WithSink(sink))
	}
	return semantic.NewRecorder(opts...), nil
}

// newExecutor creates the action executor with the optional policy and
// media storage wired in.
func (cfg *config) newExecutor(ctx context.Context, repo repository.Repository, rules *ruleset.Ruleset) (*action.Executor, error) {
	var opts []action.Option

	if cfg.policyDir != "" {
		policy, err := action.LoadPolicy(ctx, cfg.policyDir)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load confirmation policy", goerr.V("dir", cfg.policyDir))
		}
		opts = append(opts, action.WithPolicy(policy))
	}

	if cfg.mediaBucket != "" {
		storage, err := adapter.NewStorage(ctx, cfg.mediaBucket)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create media storage", goerr.V("bucket", cfg.mediaBucket))
		}
		opts = append(opts, action.WithMediaStorage(storage))
	}

	return action.New(repo, rules, opts...), nil
}
