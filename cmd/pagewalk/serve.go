package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/apicore/internal/testutil"
	"github.com/Sternrassler/apicore/pkg/metrics"
)

var serveMaxAge time.Duration

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a demo transactions API with all four pagination schemes",
	Long: `serve starts a local API with 20 transactions paged five at a time:

  /transactions/cursor   /transactions/offset
  /transactions/page     /transactions/links

together with /health and the Prometheus /metrics endpoint.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&serveMaxAge, "max-age", 0, "Cache-Control max-age of paged responses (0 = not cacheable)")
}

func newServeMux(api *testutil.MockAPI) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", api)
	return mux
}

func runServe(cmd *cobra.Command, args []string) error {
	api := testutil.NewMockAPI()
	api.SetMaxAge(serveMaxAge)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newServeMux(api),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", cfg.Server.Addr).Msg("Starting demo API server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}
