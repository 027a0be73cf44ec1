package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nvandessel/simverify/internal/clierr"
	"github.com/nvandessel/simverify/internal/config"
	"github.com/nvandessel/simverify/internal/integrity"
	"github.com/nvandessel/simverify/internal/logging"
	"github.com/nvandessel/simverify/internal/manifest"
	"github.com/nvandessel/simverify/internal/metrics"
	"github.com/nvandessel/simverify/internal/report"
	"github.com/nvandessel/simverify/internal/runner"
	"github.com/nvandessel/simverify/internal/store"
	"github.com/nvandessel/simverify/internal/ux"
	"github.com/spf13/cobra"
)

// app is the per-invocation state shared by commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	stdout   io.Writer
	renderer *ux.Renderer
	jsonOut  bool
}

// loadApp resolves configuration (file, env, then flags) and builds the
// logger and renderer.
func loadApp(cmd *cobra.Command) (*app, error) {
	cfgPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if cfgPath != "" {
		cfg, err = config.LoadWithFile(cfgPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, clierr.NewConfigError(err)
	}

	flags := cmd.Flags()
	if flags.Changed("results-dir") {
		cfg.Results.Dir, _ = flags.GetString("results-dir")
	}
	if flags.Changed("threshold") {
		cfg.Threshold, _ = flags.GetFloat64("threshold")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("color") {
		cfg.Output.Color, _ = flags.GetString("color")
	}
	if flags.Changed("manifest") {
		cfg.Results.ManifestFile, _ = flags.GetString("manifest")
	}

	if err := cfg.Validate(); err != nil {
		return nil, clierr.NewConfigError(err)
	}

	jsonOut, _ := flags.GetBool("json")
	stdout := cmd.OutOrStdout()

	color := cfg.Output.Color == ux.ColorAlways
	if f, ok := stdout.(*os.File); ok {
		color = ux.ColorEnabled(cfg.Output.Color, f)
	}
	if jsonOut {
		color = false
	}

	return &app{
		cfg:      cfg,
		logger:   logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()),
		stdout:   stdout,
		renderer: ux.NewRenderer(stdout, color),
		jsonOut:  jsonOut,
	}, nil
}

// loadManifest returns the configured manifest file, or the built-in one.
func (a *app) loadManifest() (manifest.Manifest, error) {
	if a.cfg.Results.ManifestFile == "" {
		return manifest.Default(), nil
	}
	m, err := manifest.LoadFile(a.cfg.Results.ManifestFile)
	if err != nil {
		return manifest.Manifest{}, clierr.NewConfigError(err)
	}
	return m, nil
}

// preflight enforces the directory-level preconditions: the results
// directory exists and, when configured, passes integrity verification.
func (a *app) preflight() error {
	dir := a.cfg.Results.Dir
	if err := report.CheckDir(dir); err != nil {
		return clierr.WrapResultsError(err, dir)
	}

	if !a.cfg.Integrity.Enabled() {
		return nil
	}
	rep, err := integrity.NewVerifier(dir, integrity.Options{
		ChecksumsFile: a.cfg.Integrity.ChecksumsFile,
		SignatureFile: a.cfg.Integrity.SignatureFile,
		Keyring:       a.cfg.Integrity.Keyring,
	}).Verify()
	if err != nil {
		return clierr.WrapResultsError(err, dir)
	}
	a.logger.Info("results integrity verified",
		"files", rep.Files, "signed", a.cfg.Integrity.SignatureEnabled(), "signer", rep.Signer)
	return nil
}

// observers opens the configured history store and metrics exporter. The
// returned cleanup closes whatever was opened. Failures to open are logged
// and the observer is skipped.
func (a *app) observers() ([]runner.Observer, func()) {
	var obs []runner.Observer
	cleanup := func() {}

	if a.cfg.History.Enabled {
		dir := a.cfg.HistoryDir()
		hs, err := store.NewHistoryStore(dir)
		if err != nil {
			a.logger.Warn("run history disabled", "dir", dir, "error", err)
		} else {
			hs.SetRetention(a.retention())
			obs = append(obs, hs)
			cleanup = func() { hs.Close() }
		}
	}

	if a.cfg.Metrics.Textfile != "" {
		obs = append(obs, metrics.NewExporter(a.cfg.Metrics.Textfile))
	}

	return obs, cleanup
}

// retention returns the configured history retention policy, or nil.
func (a *app) retention() store.RetentionPolicy {
	return store.NewRetentionPolicy(a.cfg.History.MaxRuns, a.cfg.History.MaxAgeDuration())
}

// check performs one full validation run.
func (a *app) check(ctx context.Context) (runner.Summary, error) {
	if err := a.preflight(); err != nil {
		return runner.Summary{}, err
	}

	m, err := a.loadManifest()
	if err != nil {
		return runner.Summary{}, err
	}

	obs, closeObs := a.observers()
	defer closeObs()

	var verdicts *logging.VerdictLogger
	if stateDir := config.StateDir(); stateDir != "" {
		verdicts = logging.NewVerdictLogger(stateDir, a.cfg.Logging.Level)
		defer verdicts.Close()
	}

	out := a.stdout
	if a.jsonOut {
		out = io.Discard
	}

	r := runner.New(report.NewReader(a.cfg.Results.Dir), m, runner.Options{
		Threshold:  a.cfg.Threshold,
		Out:        out,
		Renderer:   a.renderer,
		Logger:     a.logger,
		Verdicts:   verdicts,
		Observers:  obs,
		ResultsDir: a.cfg.Results.Dir,
	})

	s, runErr := r.Run(ctx)
	if a.jsonOut {
		if err := a.writeJSON(s); err != nil {
			return s, err
		}
	}
	return s, runErr
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

// exitStatus converts a finished run into the command's error.
func exitStatus(s runner.Summary, runErr error) error {
	code := s.ExitCode()
	if code == 0 {
		return nil
	}
	return &clierr.Error{Err: runErr, Code: code}
}
