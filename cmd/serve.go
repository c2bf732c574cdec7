package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vista360/internal/cache"
	"github.com/sells-group/vista360/internal/dashboard"
	"github.com/sells-group/vista360/internal/metrics"
	"github.com/sells-group/vista360/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the published result set over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		table, err := loadTable()
		if err != nil {
			return err
		}
		st, err := openStore(ctx, table)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		handler, closeFn, err := buildHandler(ctx, st)
		if err != nil {
			return err
		}
		defer closeFn()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// buildHandler assembles the dashboard API over the result reader. The
// returned func releases the cache.
func buildHandler(ctx context.Context, results store.ResultReader) (http.Handler, func(), error) {
	c, err := cache.New(ctx, cache.Config{
		TTL:      time.Duration(cfg.Cache.TTLSecs) * time.Second,
		Size:     cfg.Cache.Size,
		RedisURL: cfg.Cache.RedisURL,
	})
	if err != nil {
		return nil, nil, err
	}
	rec := metrics.New()
	svc := dashboard.NewService(results, c, rec)
	h := dashboard.NewRouter(svc, dashboard.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        rec.Handler(),
	})
	return h, func() { _ = c.Close() }, nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
