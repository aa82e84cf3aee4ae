package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"emotion-diary/internal/config"
	"emotion-diary/internal/db"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

type rootOptions struct {
	output      string
	envFile     string
	databaseURL string
	verbose     bool

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "diaryctl",
		Short:         "Operate the emotion diary pipeline from the command line",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.output, "output", "o", outputJSON, "Output format (json/yaml)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before reading configuration")
	flags.StringVar(&opts.databaseURL, "database-url", "", "Postgres URL (defaults to DATABASE_URL)")
	flags.BoolVar(&opts.verbose, "verbose", false, "Log at debug level")

	root.AddCommand(
		newAnalyzeCmd(opts),
		newPaletteCmd(opts),
		newBlendCmd(opts),
		newTokenCmd(opts),
		newCheckCmd(opts),
	)
	return root
}

func (o *rootOptions) init() error {
	switch o.output {
	case outputJSON, outputYAML:
	default:
		return fmt.Errorf("unknown output format %q", o.output)
	}
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file: %w", err)
		}
	}
	if o.databaseURL == "" {
		o.databaseURL = os.Getenv("DATABASE_URL")
	}
	logger, err := newCLILogger(o.verbose)
	if err != nil {
		return err
	}
	o.logger = logger
	return nil
}

// newCLILogger escribe en stderr; sin --verbose solo muestra advertencias y errores.
func newCLILogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func (o *rootOptions) analysisConfig() (*config.AnalysisConfig, error) {
	cfg, err := config.LoadAnalysisConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openPool abre y verifica la conexion; el llamador cierra el pool.
func (o *rootOptions) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if strings.TrimSpace(o.databaseURL) == "" {
		return nil, errors.New("database url not configured (set DATABASE_URL or --database-url)")
	}
	pool, err := db.NewPool(ctx, &config.Config{DatabaseURL: o.databaseURL})
	if err != nil {
		return nil, fmt.Errorf("db pool: %w", err)
	}
	if err := db.Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return pool, nil
}

func (o *rootOptions) write(w io.Writer, v any) error {
	return writeOutput(w, o.output, v)
}

func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
}
