package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/born-ml/synth/internal/config"
	"github.com/born-ml/synth/internal/logging"
	"github.com/born-ml/synth/internal/store"
	"github.com/born-ml/synth/internal/telemetry"
)

const appName = "synth"

// app carries the state shared by every subcommand.
type app struct {
	fs         afero.Fs
	configPath string
	logLevel   string
	debug      bool

	cfg      config.Config
	logger   *slog.Logger
	store    store.Store
	cleanups []func() error
}

func newApp() *app {
	return &app{fs: afero.NewOsFs()}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Fit and sample synthetic tabular data generators",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context(), cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Shorthand for --log-level debug")

	root.AddCommand(
		newListCmd(a),
		newFitCmd(a),
		newGenerateCmd(a),
		newInspectCmd(a),
		newModelsCmd(a),
		newVersionCmd(),
	)
	return root
}

// init loads configuration and builds the logger and trace pipeline.
func (a *app) init(ctx context.Context, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	if a.debug {
		level = "debug"
	}
	logger, closeLog, err := logging.New(logging.Options{
		Level:  logging.ParseLevel(level),
		Fs:     a.fs,
		File:   cfg.LogFile,
		Stderr: stderr,
	})
	if err != nil {
		return err
	}
	a.logger = logger
	a.cleanups = append(a.cleanups, closeLog)
	slog.SetDefault(logger)

	shutdown, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, appName)
	if err != nil {
		return err
	}
	a.cleanups = append(a.cleanups, func() error { return shutdown(context.Background()) })
	return nil
}

// context returns ctx carrying the app logger.
func (a *app) context(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if a.logger == nil {
		return ctx
	}
	return logging.WithLogger(ctx, a.logger)
}

// openStore opens the configured model store once.
func (a *app) openStore() (store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := store.Open(a.cfg.Store)
	if err != nil {
		return nil, err
	}
	a.store = s
	a.cleanups = append(a.cleanups, func() error {
		a.store = nil
		return s.Close()
	})
	return s, nil
}

// report prints a command failure through the logger once one exists.
func (a *app) report(err error) {
	if a.logger == nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return
	}
	logging.Error(context.Background(), a.logger, "command failed", err)
}

func (a *app) close() error {
	var errs []error
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		if err := a.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.cleanups = nil
	return errors.Join(errs...)
}
