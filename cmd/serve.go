package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanpawarit/laia-quote-agent/api"
	"golang.org/x/sync/errgroup"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if addr != "" {
				a.cfg.Addr = addr
			}
			handler, err := api.NewRouter(api.Deps{
				Chat:     a.chat,
				Checkout: a.checkout,
				Observer: a.metrics,
				Metrics:  a.metrics.Handler(),
			}, api.Config{
				AgentToken:     a.cfg.AgentToken,
				MaxBodyBytes:   a.cfg.MaxBodyBytes,
				RequestTimeout: a.cfg.RequestTimeout,
				Apology:        a.prompts.Apology,
			})
			if err != nil {
				return err
			}
			if a.cfg.AgentToken == "" {
				log.Warn().Msg("LAIA_AGENT_TOKEN is not set, /api routes will answer 500")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a.cfg.Addr, handler, a.cfg.ShutdownTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides LAIA_ADDR)")
	return cmd
}

// serve runs handler on addr until ctx is done, then drains in-flight
// requests for at most grace.
func serve(ctx context.Context, addr string, handler http.Handler, grace time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return serveListener(ctx, ln, handler, grace)
}

func serveListener(ctx context.Context, ln net.Listener, handler http.Handler, grace time.Duration) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		log.Info().Msg("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
