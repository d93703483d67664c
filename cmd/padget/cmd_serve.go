package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"padget/internal/api"
	"padget/internal/poller"
	"padget/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalogue over HTTP",
	Long: `Starts the JSON API, the change poller and the activity log.

Routes:
  GET    /slides               list with stats
  POST   /slides               add
  GET    /slides/:index        one record
  PATCH  /slides/:index        edit fields
  POST   /slides/:index/touch  bump last-modified
  DELETE /slides/:index        remove
  GET    /slides/stats         totals
  POST   /slides/reload        re-read the document
  GET    /history              recent activity
  GET    /events               server-sent change events
  GET    /status               store and poller state`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the document and print changes made by other sessions",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}

// newPoller builds the configured poller, or nil when sync is disabled.
func newPoller(st *store.Store) *poller.Poller {
	if !cfg.Sync.Enabled {
		return nil
	}
	var opts []poller.Option
	if cfg.Sync.Watch {
		opts = append(opts, poller.WithWatch(cfg.GetDebounce()))
	}
	return poller.New(st, cfg.GetPollInterval(), opts...)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore()
	if err != nil {
		return err
	}

	opts := []api.Option{
		api.WithLogger(logger.Named("http")),
		api.WithHeartbeat(cfg.GetHeartbeat()),
		api.WithHistoryLimit(cfg.History.Limit),
	}

	if activity != nil {
		opts = append(opts, api.WithHistory(activity))
	}

	p := newPoller(st)
	if p != nil {
		opts = append(opts, api.WithPoller(p))
	}

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := api.New(st, opts...)

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Serving", zap.String("addr", addr), zap.String("store", st.Path()))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if p != nil {
		if err := p.Start(gctx); err != nil {
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			p.Stop()
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		srv.Hub().Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func runWatch(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st.OnChange(func(c store.Change) {
		fmt.Fprintf(out, "%s %s\n", c.At.Format(time.TimeOnly), describeChange(c))
	})

	interval := cfg.GetPollInterval()
	p := poller.New(st, interval, poller.WithWatch(cfg.GetDebounce()))
	if err := p.Start(ctx); err != nil {
		return err
	}
	defer p.Stop()

	fmt.Fprintf(out, "Watching %s (%d records, every %s). Ctrl+C to stop.\n", st.Path(), st.Len(), interval)
	<-ctx.Done()
	return nil
}
