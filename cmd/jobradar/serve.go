package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jobradar/jobradar/internal/events"
	"github.com/jobradar/jobradar/internal/httpapi"
	"github.com/jobradar/jobradar/internal/metrics"
	"github.com/jobradar/jobradar/internal/pipeline"
	"github.com/jobradar/jobradar/internal/scheduler"
	"github.com/jobradar/jobradar/internal/store"
)

const shutdownGrace = 10 * time.Second

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		addr     string
		schedule string
		runFirst bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the artifact over HTTP and optionally run on a schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Serve.Addr = addr
			}
			if schedule != "" {
				cfg.Serve.Schedule = schedule
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hub := events.NewHub()
			m := metrics.New().WithRuntime()
			b, err := pipeline.Build(ctx, cfg, m, publishRun(hub))
			if err != nil {
				return err
			}
			defer b.Close()

			sched, err := scheduler.New("pipeline", cfg.Serve.Schedule, func(ctx context.Context) error {
				_, err := b.Run(ctx)
				return err
			})
			if err != nil {
				return err
			}

			deps := httpapi.Deps{
				ArtifactPath: cfg.OutputPath,
				Runner:       sched,
				Hub:          hub,
				Metrics:      m.Handler(),
				CORSOrigins:  cfg.Serve.CORSOrigins,
				RunContext:   ctx,
			}
			if b.History != nil {
				deps.History = b.History
			}

			srv := &http.Server{
				Addr:              cfg.Serve.Addr,
				Handler:           httpapi.NewRouter(deps),
				ReadHeaderTimeout: 5 * time.Second,
				// event streams end with the process context
				BaseContext: func(net.Listener) context.Context { return ctx },
			}

			schedDone := make(chan struct{})
			go func() {
				defer close(schedDone)
				sched.Start(ctx)
			}()
			if runFirst {
				go func() { _ = sched.RunNow(ctx) }()
			}

			errc := make(chan error, 1)
			go func() {
				logrus.Infof("[serve] listening on %s", cfg.Serve.Addr)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err = <-errc:
			case <-ctx.Done():
				logrus.Info("[serve] shutting down")
				sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()
				err = srv.Shutdown(sctx)
			}
			stop()
			<-schedDone
			if errors.Is(err, http.ErrServerClosed) {
				err = nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides serve.addr)")
	cmd.Flags().StringVar(&schedule, "schedule", "", `cron expression, e.g. "@every 6h" (overrides serve.schedule)`)
	cmd.Flags().BoolVar(&runFirst, "run", false, "run the pipeline once at startup")
	return cmd
}

// publishRun turns finished runs into run_finished events.
func publishRun(hub *events.Hub) func(pipeline.Result, error) {
	return func(res pipeline.Result, err error) {
		ev := events.RunFinished{
			RunID:     res.RunID,
			Status:    store.StatusOK,
			FetchedAt: res.Artifact.FetchedAt,
			TotalJobs: res.TotalJobs,
		}
		if err != nil {
			ev.Status = store.StatusFailed
			ev.Error = err.Error()
		}
		n := hub.Publish(events.New(events.TypeRunFinished, ev))
		logrus.Debugf("[serve] run_finished delivered to %d clients", n)
	}
}
