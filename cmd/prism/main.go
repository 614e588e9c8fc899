// Command prism scores assessment sessions and serves the scoring API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/config"
	"github.com/danielpatrickdp/prism-engine/internal/engine"
	"github.com/danielpatrickdp/prism-engine/internal/logging"
	"github.com/danielpatrickdp/prism-engine/internal/profile"
	"github.com/danielpatrickdp/prism-engine/internal/reliability"
)

// #region main
func main() {
	a := &app{}
	err := newRootCommand(a).Execute()
	a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitError carries a specific process exit code.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func exitCode(err error) int {
	if e, ok := err.(*exitError); ok {
		return e.code
	}
	return 1
}

// #endregion main

// #region app
// app holds the resources shared by subcommands. Opened lazily by open().
type app struct {
	cfgPath  string
	dbPath   string
	logLevel string

	cfg    config.Config
	logger *zap.Logger
	store  *profile.Store
	reg    *catalog.Registry
	cat    *catalog.Catalog
	audit  *reliability.Auditor
}

func (a *app) open() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	a.logger, err = logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.reg, err = cfg.Registry()
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}
	a.cat, err = a.reg.Latest()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	a.store, err = profile.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	return nil
}

func (a *app) close() {
	if a.audit != nil {
		a.audit.Wait()
	}
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// auditor returns the shared auditor so close can wait for background refreshes.
func (a *app) auditor() *reliability.Auditor {
	if a.audit == nil {
		a.audit = reliability.NewAuditor(a.store, a.store.DB(), a.cat, engine.Version, a.cfg.ReliabilityConfig(), a.logger)
	}
	return a.audit
}

// engine wires the scoring engine with provenance and reliability hooks.
func (a *app) engine(trigger string) *engine.Engine {
	cfg := a.cfg.Engine(trigger)
	return engine.New(a.store, a.reg, profile.NewGate(a.store), cfg, a.logger,
		engine.ProvenanceHook(a.store.DB(), cfg.Trigger),
		engine.ReliabilityHook(a.auditor()))
}

// #endregion app

// #region root
func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "prism",
		Short:         "PRISM typing and confidence scoring engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "config file (default ./prism.yaml)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (overrides config)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newScoreCommand(a),
		newBackfillCommand(a),
		newServeCommand(a),
		newAuditCommand(a),
		newInspectCommand(a),
		newReplayCommand(a),
		newSeedCommand(a),
	)
	return root
}

// #endregion root
