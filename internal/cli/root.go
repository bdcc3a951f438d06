package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"mission-planner/internal/config"
	"mission-planner/internal/logger"
	"mission-planner/internal/planner"
)

// app carries what PersistentPreRunE resolved for the subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	log     *zap.Logger

	newGenerator func(cfg config.LLMConfig) (planner.Generator, string, error)
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{v: viper.New(), newGenerator: providerGenerator})
}

func newRootCmd(a *app) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "planner [instruction...]",
		Short: "Turn a natural-language instruction into a validated mission plan",
		Long: `planner asks a text generator for a mission plan, repairs malformed replies with
targeted corrections, and prints the first plan that passes validation.
Use --simulate to drive the rover through the plan afterwards.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			instruction := strings.TrimSpace(strings.Join(args, " "))
			if instruction == "" {
				return cmd.Help()
			}
			return a.runGenerate(cmd.Context(), cmd.OutOrStdout(), instruction, opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	pf.String("engine", config.BackendOllama, "text generator backend: ollama, gemini or openai")
	pf.String("model", "", "model name (backend default when empty)")
	pf.Int("max-attempts", 2, "generation attempts before giving up")
	pf.String("vocabulary", config.VocabularyStrict, "action vocabulary: strict or permissive")
	pf.String("registry", "", "JSON file with action definitions")
	pf.String("log-level", "info", "log level: debug, info, warn or error")

	for key, flag := range map[string]string{
		"llm.backend":           "engine",
		"llm.model":             "model",
		"planner.max_attempts":  "max-attempts",
		"planner.vocabulary":    "vocabulary",
		"planner.registry_file": "registry",
		"logger.level":          "log-level",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	f := cmd.Flags()
	f.StringVar(&opts.constraints, "constraints", "", "constraints block for the generator (default lists the arena)")
	f.BoolVar(&opts.simulate, "simulate", false, "run the plan on the simulated arena and print metrics")
	f.BoolVar(&opts.jsonOnly, "json", false, "print only the plan JSON")

	cmd.AddCommand(newSimulateCmd(a), newShellCmd(a))
	return cmd
}

// initialize reads the config file and PLANNER_* environment on top of the
// defaults, then sets up logging.
func (a *app) initialize() error {
	v := a.v
	config.SetDefaults(v)
	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := config.NewConfigFromViper(v)
	if err != nil {
		return err
	}
	log, err := logger.Init(cfg.Logger)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	a.log.Debug("Configuration loaded",
		zap.String("config_file", v.ConfigFileUsed()),
		zap.String("backend", cfg.LLM.Backend),
		zap.Int("max_attempts", cfg.Planner.MaxAttempts))
	return nil
}
