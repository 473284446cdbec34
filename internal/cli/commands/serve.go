package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/internal/metrics"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/internal/server"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/internal/store"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/logging"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/pipeline"
)

// ServeOptions holds command-line options for the serve command.
type ServeOptions struct {
	ListenAddr string
	DBPath     string
}

// NewServeCommand creates the serve command.
func NewServeCommand(g *GlobalOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ACC HTTP API",
		Long: `Run the HTTP API: text parsing, batch parsing and the task store.

Endpoints:
  GET    /                    Service index
  GET    /health              Liveness and store check
  POST   /parse               Parse {"text": "..."}
  POST   /parse/batch         Parse {"texts": [...]}
  POST   /tasks               Create a task from text
  GET    /tasks               List tasks (?status=pending)
  GET    /tasks/{id}          Fetch a task
  PUT    /tasks/{id}          Update a task
  DELETE /tasks/{id}          Delete a task
  POST   /tasks/{id}/complete Mark a task completed
  GET    /metrics             Prometheus metrics

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ListenAddr, "listen", "l", "", "Listen address (overrides server.listen_addr)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "Task database path (overrides store.path)")

	return cmd
}

func runServe(cmd *cobra.Command, g *GlobalOptions, opts *ServeOptions) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, g)
	if err != nil {
		return err
	}
	if opts.ListenAddr != "" {
		cfg.Server.ListenAddr = opts.ListenAddr
	}
	if opts.DBPath != "" {
		cfg.Store.Path = opts.DBPath
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	m, err := metrics.New(true)
	if err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}

	st, err := store.NewStore(store.Config{DBPath: cfg.Store.Path})
	if err != nil {
		return fmt.Errorf("opening task store: %w", err)
	}
	defer st.Close()

	p := newPipeline(cfg, logger, pipeline.WithObserver(m))

	srv, err := server.New(cfg.Server, server.Deps{
		Parser:      p,
		Store:       st,
		Metrics:     m,
		Logger:      logger.Named("http"),
		MaxBatch:    cfg.Limits.MaxBatch,
		Workers:     cfg.Limits.Workers,
		CORSOrigins: cfg.Server.CORSOrigins,
		Version:     Version,
	})
	if err != nil {
		return err
	}

	logger.Info("starting acc api",
		logging.String("version", Version),
		logging.String("timezone", cfg.Location().String()),
		logging.String("db", st.Path()))

	return srv.Run(ctx)
}
