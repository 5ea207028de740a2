package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/vango-dev/tracked/internal/config"
	"github.com/vango-dev/tracked/internal/errors"
	"github.com/vango-dev/tracked/pkg/instrument"
	"github.com/vango-dev/tracked/pkg/liveserver"
	"github.com/vango-dev/tracked/pkg/observable"
	"github.com/vango-dev/tracked/pkg/snapshot"
)

const shutdownTimeout = 5 * time.Second

type serveOptions struct {
	configPath     string
	addr           string
	maxDepth       int
	snapshotDriver string
	snapshotDir    string
	snapshotBucket string
	noMetrics      bool
	tracing        bool
}

func serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a tracked store over HTTP and WebSocket",
		Long: `Serve one tracked store.

The initial store comes from the "state" object in tracked.json. Every
write through PUT /state/{key} notifies reactions and is broadcast to
WebSocket clients on /ws.

Examples:
  tracked serve
  tracked serve --addr=127.0.0.1:9000
  tracked serve --snapshot=file --snapshot-dir=./snapshots`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServeConfig(cmd, opts)
			if err != nil {
				return err
			}
			configureLogging(cmd, cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg)
		},
	}

	addServeFlags(cmd, &opts)

	return cmd
}

func addServeFlags(cmd *cobra.Command, opts *serveOptions) {
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to tracked.json (default ./tracked.json if present)")
	cmd.Flags().StringVarP(&opts.addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 0, "Notification depth limit, 0 for unbounded")
	cmd.Flags().StringVar(&opts.snapshotDriver, "snapshot", "", "Snapshot driver (none, file, s3)")
	cmd.Flags().StringVar(&opts.snapshotDir, "snapshot-dir", "", "Directory for the file snapshot driver")
	cmd.Flags().StringVar(&opts.snapshotBucket, "snapshot-bucket", "", "Bucket for the s3 snapshot driver")
	cmd.Flags().BoolVar(&opts.noMetrics, "no-metrics", false, "Disable the Prometheus /metrics endpoint")
	cmd.Flags().BoolVar(&opts.tracing, "tracing", false, "Emit OpenTelemetry spans for tracking passes")
}

// loadServeConfig loads tracked.json and applies flag overrides.
func loadServeConfig(cmd *cobra.Command, opts serveOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case opts.configPath != "":
		cfg, err = config.LoadFile(opts.configPath)
	case config.Exists("."):
		cfg, err = config.Load(".")
	default:
		cfg = config.New()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	if flags.Changed("max-depth") {
		depth := opts.maxDepth
		cfg.Runtime.MaxDepth = &depth
	}
	if opts.snapshotDriver != "" {
		cfg.Snapshot.Driver = opts.snapshotDriver
	}
	if opts.snapshotDir != "" {
		cfg.Snapshot.Dir = opts.snapshotDir
	}
	if opts.snapshotBucket != "" {
		cfg.Snapshot.Bucket = opts.snapshotBucket
	}
	if cfg.Snapshot.Region == "" {
		cfg.Snapshot.Region = os.Getenv("AWS_REGION")
	}
	if opts.noMetrics {
		cfg.Metrics.Enabled = false
	}
	if opts.tracing {
		cfg.Tracing.Enabled = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configureLogging installs the logger described by the config's log
// section unless --log-level or --log-json already chose one.
func configureLogging(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") || flags.Changed("log-json") {
		return
	}
	slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg.LogLevel(), cfg.Log.JSON))
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := slog.Default()

	var (
		hooks    observable.MultiHooks
		gatherer prometheus.Gatherer
	)
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		hooks = append(hooks, instrument.Prometheus(
			instrument.WithNamespace(cfg.Metrics.Namespace),
			instrument.WithRegistry(registry),
		))
		gatherer = registry
	}
	if cfg.Tracing.Enabled {
		hooks = append(hooks, instrument.OpenTelemetry(
			instrument.WithTracerName(cfg.Tracing.TracerName),
		))
	}

	rtOpts := []observable.Option{
		observable.WithMaxDepth(cfg.MaxDepth()),
		observable.WithLogger(logger.With("component", "observable")),
	}
	if len(hooks) > 0 {
		rtOpts = append(rtOpts, observable.WithHooks(hooks))
	}
	rt := observable.NewRuntime(rtOpts...)
	obj := rt.Wrap(cfg.State)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		name := cfg.Snapshot.Name
		restored, err := snapshot.Restore(ctx, obj, store, name)
		switch {
		case stderrors.Is(err, snapshot.ErrNotFound):
			logger.Info("no snapshot to restore", "name", name)
		case err != nil:
			return errors.New("E150").Wrap(err)
		default:
			logger.Info("snapshot restored", "name", name, "fields", restored)
		}

		if cfg.Snapshot.Autosave {
			saver := snapshot.Autosave(ctx, obj, store, name, func(err error) {
				logger.Error("autosave failed", "name", name, "error", err)
			})
			defer saver.Dispose()
		}
	}

	srv := liveserver.New(obj, liveserver.Config{
		Addr:     cfg.Server.Addr,
		Gatherer: gatherer,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || cfg.OriginAllowed(origin)
		},
		Logger: logger,
	})

	out := os.Stdout
	success(out, "Serving %d fields on %s", len(obj.Keys()), cfg.Server.Addr)
	info(out, "State:   http://%s/state", displayAddr(cfg.Server.Addr))
	info(out, "Live:    ws://%s/ws", displayAddr(cfg.Server.Addr))
	if gatherer != nil {
		info(out, "Metrics: http://%s/metrics", displayAddr(cfg.Server.Addr))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.New("E200").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Fprintln(out, "\n  Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", "error", err)
	}
	if store != nil {
		if err := store.Save(shutdownCtx, cfg.Snapshot.Name, obj.Snapshot()); err != nil {
			return errors.New("E151").Wrap(err)
		}
	}
	return nil
}

// openStore returns the configured snapshot store, or nil for driver none.
func openStore(cfg *config.Config) (snapshot.Store, error) {
	switch cfg.Snapshot.Driver {
	case config.DriverFile:
		return snapshot.NewFileStore(cfg.SnapshotDir()), nil
	case config.DriverS3:
		return snapshot.NewS3Store(newS3Client(cfg.Snapshot), cfg.Snapshot.Bucket, cfg.Snapshot.Prefix), nil
	case config.DriverNone:
		return nil, nil
	}
	return nil, errors.New("E104").WithDetail("Unknown snapshot driver " + cfg.Snapshot.Driver)
}

// newS3Client builds an S3 client from the snapshot settings and the
// standard AWS credential environment variables.
func newS3Client(sc config.SnapshotConfig) *s3.Client {
	opts := s3.Options{
		Region: sc.Region,
	}
	if key := os.Getenv("AWS_ACCESS_KEY_ID"); key != "" {
		creds := aws.Credentials{
			AccessKeyID:     key,
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "Environment",
		}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	}
	if sc.Endpoint != "" {
		opts.BaseEndpoint = aws.String(sc.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

// displayAddr turns a bare ":port" into "localhost:port".
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
