// Package cli implements the planner command line: a device that keeps its
// plan on disk and syncs it with the cloud service when signed in.
package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/writer"
	"github.com/spf13/cobra"

	"github.com/2beens/gymplanner/internal/catalog"
	"github.com/2beens/gymplanner/internal/localstore"
	"github.com/2beens/gymplanner/internal/logging"
	"github.com/2beens/gymplanner/internal/plan"
	"github.com/2beens/gymplanner/internal/prefs"
	"github.com/2beens/gymplanner/internal/reconcile"
	"github.com/2beens/gymplanner/internal/remote"
	"github.com/2beens/gymplanner/internal/stamp"
	"github.com/2beens/gymplanner/internal/telemetry/metrics"
)

const logFileName = "planner.log"

type Options struct {
	// HTTPClient is used for the cloud service and catalog downloads; nil means the instrumented default
	HTTPClient *http.Client
	// SetupLogging routes logs to the data dir and stderr
	SetupLogging bool
}

type app struct {
	opts Options

	prefsPath   string
	dataDir     string
	catalogLoc  string
	verbose     bool
	pushTimeout time.Duration

	prefs          prefs.Prefs
	registry       *prometheus.Registry
	metricsManager *metrics.Manager
}

// session is one opened plan: local data loaded, and reconciled with the cloud when signed in.
type session struct {
	reconciler *reconcile.Reconciler
	model      *plan.Model
	outcome    reconcile.Outcome
	startErr   error
}

func NewRootCmd(opts Options) *cobra.Command {
	registry := prometheus.NewRegistry()
	a := &app{
		opts:           opts,
		registry:       registry,
		metricsManager: metrics.NewManager("gymplanner", "device", registry),
	}

	root := &cobra.Command{
		Use:           "planner",
		Short:         "Weekly workout planner with cloud sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.prefsPath, "prefs", prefs.DefaultPath(), "preferences file")
	flags.StringVar(&a.dataDir, "data-dir", "", "local data directory (overrides prefs)")
	flags.StringVar(&a.catalogLoc, "catalog", "", "exercise catalog file or url (overrides prefs)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log to stderr and print sync metrics")
	flags.DurationVar(&a.pushTimeout, "push-timeout", reconcile.DefaultPushTimeout, "max wait for cloud pushes before exiting")

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.syncCmd(),
		a.showCmd(),
		a.templateCmd(),
		a.dayCmd(),
		a.exerciseCmd(),
		a.setCmd(),
		a.favCmd(),
		a.customCmd(),
		a.libraryCmd(),
	)

	return root
}

func (a *app) setup() error {
	a.prefs = prefs.Load(a.prefsPath)
	if a.dataDir != "" {
		a.prefs.DataDir = a.dataDir
	}
	if a.catalogLoc != "" {
		a.prefs.Catalog = a.catalogLoc
	}

	dataDir, err := prefs.ExpandPath(a.prefs.DataDir)
	if err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	a.prefs.DataDir = dataDir

	if a.opts.SetupLogging {
		a.setupLogging()
	}
	return nil
}

func (a *app) setupLogging() {
	level := a.prefs.LogLevel
	if a.verbose {
		level = "debug"
	}
	logging.Setup(logging.LoggerSetupParams{
		LogFileName: filepath.Join(a.prefs.DataDir, logFileName),
		LogToStdout: a.verbose,
		LogLevel:    level,
		Stdout:      os.Stderr,
	})
	if !a.verbose {
		log.AddHook(&writer.Hook{
			Writer:    os.Stderr,
			LogLevels: []log.Level{log.PanicLevel, log.FatalLevel, log.ErrorLevel, log.WarnLevel},
		})
	}
}

func (a *app) savePrefs() error {
	return prefs.Save(a.prefsPath, a.prefs)
}

func (a *app) client() *remote.Client {
	return remote.NewClient(a.prefs.ServerURL, a.opts.HTTPClient)
}

func (a *app) newReconciler() (*reconcile.Reconciler, error) {
	clock := stamp.NewClock()
	store, err := localstore.NewDiskStore(a.prefs.DataDir, clock, localstore.DefaultMaxBytes)
	if err != nil {
		return nil, err
	}
	return reconcile.New(reconcile.Params{
		Local:       store,
		Remote:      a.client(),
		Clock:       clock,
		Metrics:     a.metricsManager,
		PushTimeout: a.pushTimeout,
	}), nil
}

// openLocal loads the plan without touching the network; mutations are
// stored locally only.
func (a *app) openLocal() (*session, error) {
	r, err := a.newReconciler()
	if err != nil {
		return nil, err
	}
	return &session{reconciler: r, model: r.Open()}, nil
}

// open loads the plan and runs the session start protocol when signed in.
// A failed start leaves a usable local session.
func (a *app) open(ctx context.Context) (*session, error) {
	s, err := a.openLocal()
	if err != nil {
		return nil, err
	}

	s.outcome, s.startErr = s.reconciler.Start(ctx, a.prefs.Identity())
	if s.startErr != nil {
		log.Warnf("sync: %s", s.startErr)
	}
	return s, nil
}

// close waits for the detached pushes, bounded by the push timeout.
func (a *app) close(cmd *cobra.Command, s *session) {
	ctx, cancel := context.WithTimeout(cmd.Context(), a.pushTimeout)
	defer cancel()

	if err := s.reconciler.Wait(ctx); err != nil {
		log.Warnf("cloud push still running after %s, it will be retried with the next change", a.pushTimeout)
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: changes saved locally, cloud push did not finish")
	}

	if a.verbose {
		a.printSyncSummary(cmd.ErrOrStderr())
	}
}

// mutate opens a session, applies fn to the model and waits for the push.
func (a *app) mutate(cmd *cobra.Command, fn func(m *plan.Model) error) error {
	s, err := a.open(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close(cmd, s)

	return fn(s.model)
}

func (a *app) selectedTemplate(m *plan.Model, flagValue int) (int, error) {
	index := a.prefs.Template
	if flagValue > 0 {
		index = flagValue - 1
	}
	templates := m.Snapshot().Templates
	if index < 0 || index >= len(templates) {
		if flagValue > 0 {
			return 0, fmt.Errorf("template %d: %w", flagValue, plan.ErrOutOfRange)
		}
		index = 0
	}
	return index, nil
}

func (a *app) library(ctx context.Context, data plan.Collections) *catalog.Library {
	httpClient := a.opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return catalog.NewLibrary(catalog.LoadOrEmpty(ctx, httpClient, a.prefs.Catalog), data)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
