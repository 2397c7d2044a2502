// Package cli implements the continuity CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/continuity/internal/config"
	"github.com/rcliao/continuity/internal/embedding"
	"github.com/rcliao/continuity/internal/logging"
	"github.com/rcliao/continuity/internal/store"
)

var (
	dbPath     string
	formatFlag string
	configPath string
	userFlag   string
	verbose    bool

	cfg    = config.DefaultConfig()
	logger = zap.NewNop()
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "continuity",
	Short: "Continuity engine for a personal journal",
	Long: `Continuity reads a user's journal entries, claims, decisions, emotions and
will events, and derives contradictions, abandoned goals, arc shifts, identity and
thematic drift, emotional transitions and a long-horizon continuity profile.

Detections are observations, not judgments.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(getConfigPath())
		if err != nil {
			return err
		}
		cfg = loaded

		if formatFlag != "json" && formatFlag != "text" {
			return fmt.Errorf("invalid --format %q (valid: json, text)", formatFlag)
		}

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		l, err := logging.New(level, cfg.Log.Format)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $CONTINUITY_DB, config db_path or ~/.continuity/continuity.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $CONTINUITY_CONFIG or ~/.continuity/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "User id (default: $CONTINUITY_USER)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("CONTINUITY_CONFIG"); env != "" {
		return env
	}
	return config.DefaultPath()
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if cfg.DBPath != "" {
		return cfg.DBPath
	}
	return config.DefaultDBPath()
}

func userID() string {
	if userFlag != "" {
		return userFlag
	}
	return os.Getenv("CONTINUITY_USER")
}

// getUser returns the user id or exits when none is set.
func getUser() string {
	u := userID()
	if u == "" {
		exitErr("user", fmt.Errorf("--user or $CONTINUITY_USER is required"))
	}
	return u
}

func openStore() (*store.SQLiteStore, error) {
	emb, err := embedding.New(embedding.Config{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		BaseURL:  cfg.Embedding.BaseURL,
		APIKey:   cfg.Embedding.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	return store.NewSQLiteStore(getDBPath(), store.WithEmbedder(emb), store.WithLogger(logger))
}

func exitErr(msg string, err error) {
	logger.Debug("command failed", zap.String("op", msg), zap.Error(err))
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
