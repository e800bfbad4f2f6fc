package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/brain-ml/brain/internal/metrics"
	"github.com/brain-ml/brain/internal/nn"
)

type predictRequest struct {
	Input []float64 `json:"input"`
}

type predictResponse struct {
	Output []float64 `json:"output"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newServeCmd() *cobra.Command {
	var network, settings, weights, addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions of a trained network over HTTP",
		Long: `Serve predictions of a trained network over HTTP.

Routes:
  POST /predict   {"input":[...]} -> {"output":[...]}
  GET  /metrics   Prometheus metrics
  GET  /healthz   liveness probe`,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector())
			observer := metrics.NewObserver(registry)

			net, _, err := loadNetwork(network, settings, weights, 0, nn.WithObserver(observer))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, addr, newRouter(net, registry))
		},
	}

	cmd.Flags().StringVar(&network, "network", "", "network descriptor (.xml, .yaml)")
	cmd.Flags().StringVar(&settings, "settings", "", "settings descriptor, for layers without an activation stored in the weights")
	cmd.Flags().StringVar(&weights, "weights", "", "weights file (.xml or binary)")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	for _, name := range []string{"network", "weights"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newRouter(net *nn.Network, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/predict", predictHandler(net)).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	return r
}

func predictHandler(net *nn.Network) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req predictRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
			return
		}

		out, err := net.PredictRaw(req.Input)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, nn.ErrInputSize) {
				status = http.StatusBadRequest
			}
			writeJSON(w, status, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, predictResponse{Output: out})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

// serve runs the HTTP server until ctx is done.
func serve(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("serving predictions")
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
