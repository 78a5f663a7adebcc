package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"heimdall/internal/engine"
	"heimdall/internal/net"
)

func main() {
	var (
		feedAddr    = flag.String("feed-addr", "0.0.0.0", "feed listener address")
		feedPort    = flag.Int("feed-port", 9001, "feed listener port")
		metricsAddr = flag.String("metrics-addr", ":9102", "prometheus metrics address")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	// Wire the reconciliation engine to the feed listener.
	manager := engine.NewBookManager()
	srv := net.New(*feedAddr, *feedPort, manager)

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	go srv.Run(ctx)
	// Block on running the feed server.
	<-ctx.Done()
}
