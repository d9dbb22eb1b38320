package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spigell/signal-fusion/internal/ai"
	"github.com/spigell/signal-fusion/internal/ai/anthropic"
	"github.com/spigell/signal-fusion/internal/ai/gemini"
	"github.com/spigell/signal-fusion/internal/collectors"
	"github.com/spigell/signal-fusion/internal/fusion"
	"github.com/spigell/signal-fusion/internal/logger"
	"github.com/spigell/signal-fusion/internal/outreach"
	"github.com/spigell/signal-fusion/internal/secrets"
	"github.com/spigell/signal-fusion/internal/storage"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/signal-fusion/internal/storage/sqlite"
)

const (
	PromptOutreach         = "Draft outreach emails"
	PromptReportByCompany  = "Report by company"
	PromptCandidatesToFile = "Dump candidates to file"
	PromptExit             = "Exit"

	defaultDatabasePath = app + ".db"
	statusContacted     = "contacted"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptOutreach, PromptReportByCompany, PromptCandidatesToFile, PromptExit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the signal-fusion pipeline: collect, score and store candidates",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("industry", "i", "", "industry to search signals in (e.g. fintech)")
	runCmd.Flags().StringP("role-level", "r", "", "role level to target (e.g. VP, C-level)")
	runCmd.Flags().Float64P("min-score", "s", 0, "openness score threshold, candidates below it are dropped")
	runCmd.Flags().IntP("limit", "l", 0, "maximum number of candidates per run")
	runCmd.Flags().BoolP("non-interactive", "y", false, "print the run report and exit without the action prompt")

	viper.BindPFlag("search.industry", runCmd.Flags().Lookup("industry"))
	viper.BindPFlag("search.role-level", runCmd.Flags().Lookup("role-level"))
	viper.BindPFlag("fusion.min-score", runCmd.Flags().Lookup("min-score"))
	viper.BindPFlag("fusion.limit", runCmd.Flags().Lookup("limit"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the signal-fusion", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	if config.Search == nil || strings.TrimSpace(config.Search.Industry) == "" {
		logger.Fatal("industry is required under search.industry (or --industry) to collect signals")
	}

	store, err := sqlite.New(databasePath(config))
	if err != nil {
		logger.Fatal("opening the candidate database", zap.Error(err))
	}
	defer store.Close()

	generator, maxLogLength, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		logger.Warn("ai scoring unavailable, falling back to signal counting",
			zap.Error(err),
			zap.String("hint", "set ai.provider and the provider api-key-file in the configuration file"),
		)
	}

	scorer := ai.NewOpennessScorer(generator, logger, maxLogLength)
	engine := fusion.New(
		buildAggregator(config, logger),
		scorer,
		store,
		fusionConfig(config),
		logger,
	)

	logger.Info("starting the search",
		zap.String("industry", config.Search.Industry),
		zap.String("role_level", config.Search.RoleLevel),
	)

	summaries, err := engine.Run(ctx, fusion.Request{
		Industry:  config.Search.Industry,
		RoleLevel: config.Search.RoleLevel,
	})
	if err != nil {
		logger.Fatal("fusion run failed", zap.Error(err))
	}

	if len(summaries) == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates above the openness threshold"))
		return
	}

	report, _ := json.MarshalIndent(summaries, "", "  ")
	logger.Info(string(report), zap.Int("candidates count", len(summaries)))

	if cmd.Flag("non-interactive").Value.String() == "true" {
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(ctx, action, store, generator, maxLogLength, summaries, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(ctx context.Context, action string, store storage.Store, generator ai.Generator, maxLogLength int, summaries []fusion.CandidateSummary, logger *zap.Logger) error {
	switch action {
	case PromptOutreach:
		return draftOutreach(ctx, store, generator, maxLogLength, summaries, logger)
	case PromptReportByCompany:
		pretty, _ := json.MarshalIndent(reportByCompany(summaries), "", "  ")
		logger.Info(string(pretty), zap.Int("candidates count", len(summaries)))
		return nil
	case PromptCandidatesToFile:
		filename, err := dumpToTmpFile(summaries)
		if err != nil {
			return fmt.Errorf("dump candidates to file: %w", err)
		}
		logger.Info("dumping candidates to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// draftOutreach generates one email per stored candidate and advances the
// candidate to "contacted" so repeated runs can tell who was reached already.
func draftOutreach(ctx context.Context, store storage.Store, generator ai.Generator, maxLogLength int, summaries []fusion.CandidateSummary, logger *zap.Logger) error {
	gen := outreach.NewGenerator(generator, logger, maxLogLength)

	for _, summary := range summaries {
		candidate, err := store.GetCandidate(ctx, summary.CandidateID)
		if err != nil {
			return err
		}
		if candidate == nil {
			return fmt.Errorf("candidate %s vanished from the store", summary.CandidateID)
		}

		signals, err := store.GetSignalsByCandidate(ctx, candidate.ID)
		if err != nil {
			return err
		}

		email, err := gen.GenerateEmail(ctx, candidate, signals)
		if err != nil {
			return err
		}

		fmt.Printf("\n--- %s (score %.0f) ---\nSubject: %s\n\n%s\n", summary.Name, summary.OpennessScore, email.Subject, email.Body)

		if err := markContacted(ctx, store, candidate); err != nil {
			return err
		}

		logger.Info("drafted outreach email",
			zap.String("candidate_id", candidate.ID),
			zap.Bool("template_fallback", email.Fallback),
		)
	}

	return nil
}

func markContacted(ctx context.Context, store storage.Store, candidate *storage.Candidate) error {
	if candidate.Status == statusContacted {
		return nil
	}

	tx, err := store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	candidate.Status = statusContacted
	if err := tx.UpdateCandidate(ctx, candidate); err != nil {
		return err
	}

	return tx.Commit()
}

func reportByCompany(summaries []fusion.CandidateSummary) map[string][]string {
	report := make(map[string][]string)
	for _, summary := range summaries {
		company := summary.Company
		if company == "" {
			company = "unknown"
		}
		report[company] = append(report[company], summary.Name)
	}
	return report
}

func dumpToTmpFile(summaries []fusion.CandidateSummary) (string, error) {
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return "", err
	}

	file, err := os.CreateTemp("", app+"-candidates-*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return "", err
	}

	return file.Name(), nil
}

func databasePath(config *Config) string {
	if config.Database != nil && strings.TrimSpace(config.Database.Path) != "" {
		return strings.TrimSpace(config.Database.Path)
	}
	return defaultDatabasePath
}

func fusionConfig(config *Config) fusion.Config {
	if config.Fusion == nil {
		return fusion.Config{}
	}
	return fusion.Config{
		MinScore: config.Fusion.MinScore,
		Limit:    config.Fusion.Limit,
	}
}

// buildAggregator wires every collector whose credentials resolve. A missing
// secret skips that source instead of failing the whole run.
func buildAggregator(config *Config, lg *zap.Logger) *collectors.Aggregator {
	list := make([]collectors.Collector, 0, 4)

	cfg := config.Collectors
	if cfg != nil && cfg.Apify != nil {
		token, err := secrets.Load(secrets.Source{
			Name: "apify token",
			File: cfg.Apify.TokenFile,
		})
		if err != nil {
			lg.Warn("skipping linkedin collector", zap.Error(err))
		} else {
			list = append(list, collectors.NewLinkedInCollector(token, cfg.Apify.MaxResults, lg))
		}
	}

	if cfg != nil && cfg.ListenNotes != nil {
		apiKey, err := secrets.Load(secrets.Source{
			Name: "listen notes api key",
			File: cfg.ListenNotes.APIKeyFile,
		})
		if err != nil {
			lg.Warn("skipping podcast collector", zap.Error(err))
		} else {
			list = append(list, collectors.NewPodcastCollector(apiKey, cfg.ListenNotes.MaxResults, lg))
		}
	}

	list = append(list,
		collectors.NewContentCollector(lg),
		collectors.NewConferenceCollector(lg),
	)

	return collectors.NewAggregator(lg, list...)
}

// newGenerator builds the configured AI backend. The returned max log length
// follows the chosen provider's settings so response previews stay bounded.
func newGenerator(ctx context.Context, cfg *AIConfig, lg *zap.Logger) (ai.Generator, int, error) {
	if cfg == nil {
		return nil, 0, errors.New("ai section is not configured")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	switch provider {
	case "", "gemini":
		if cfg.Gemini == nil {
			return nil, 0, errors.New("gemini configuration is required under ai.gemini")
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: cfg.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
		}

		genLogger := logger.WithCommonFields(lg, "gemini", cfg.Gemini.Model)
		generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
		if err != nil {
			return nil, 0, err
		}
		return generator, cfg.Gemini.MaxLogLength, nil

	case "anthropic":
		if cfg.Anthropic == nil {
			return nil, 0, errors.New("anthropic configuration is required under ai.anthropic")
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name: "anthropic api key",
			File: cfg.Anthropic.APIKeyFile,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("%w (set ai.anthropic.api-key-file or ANTHROPIC_API_KEY_FILE)", err)
		}

		genLogger := logger.WithCommonFields(lg, "anthropic", cfg.Anthropic.Model)
		generator, err := anthropic.NewGenerator(apiKey, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, genLogger)
		if err != nil {
			return nil, 0, err
		}
		return generator, cfg.Anthropic.MaxLogLength, nil

	default:
		return nil, 0, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}
