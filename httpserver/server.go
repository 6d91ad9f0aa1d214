package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/atomic"

	"github.com/sarcophagus-org/sarco-engine/metrics"
)

type HTTPServerConfig struct {
	ListenAddr  string
	MetricsAddr string
	EnablePprof bool
	Log         *slog.Logger

	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
}

type Server struct {
	cfg     *HTTPServerConfig
	isReady atomic.Bool
	log     *slog.Logger

	srv        *http.Server
	metricsSrv *metrics.MetricsServer
	handler    *Handler
}

func New(cfg *HTTPServerConfig, handler *Handler) (srv *Server, err error) {
	var metricsSrv *metrics.MetricsServer
	if cfg.MetricsAddr != "" {
		metricsSrv, err = metrics.New("sarco", cfg.MetricsAddr)
		if err != nil {
			return nil, err
		}
	}

	srv = &Server{
		cfg:        cfg,
		log:        cfg.Log,
		metricsSrv: metricsSrv,
		handler:    handler,
	}
	if handler.metrics == nil {
		handler.metrics = metricsSrv
	}
	srv.isReady.Store(true)

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.getRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return srv, nil
}

func (srv *Server) getRouter() http.Handler {
	mux := chi.NewRouter()

	mux.With(srv.httpLogger, srv.requestMetrics).Route("/api", func(r chi.Router) {
		r.Post("/archaeologists", srv.handler.HandleRegisterArchaeologist)
		r.Put("/archaeologists", srv.handler.HandleUpdateArchaeologist)
		r.Get("/archaeologists/{address}", srv.handler.HandleArchaeologist)
		r.Post("/archaeologists/{address}/bond/deposit", srv.handler.HandleDepositFreeBond)
		r.Post("/archaeologists/{address}/bond/withdraw", srv.handler.HandleWithdrawFreeBond)
		r.Post("/archaeologists/{address}/reward/withdraw", srv.handler.HandleWithdrawReward)
		r.Get("/archaeologists/{address}/sarcophagi", srv.handler.HandleSarcophagiByArchaeologist)

		r.Post("/sarcophagi", srv.handler.HandleCreateSarcophagus)
		r.Get("/sarcophagi/{id}", srv.handler.HandleSarcophagus)
		r.Get("/sarcophagi/{id}/events", srv.handler.HandleEvents)
		r.Post("/sarcophagi/{id}/rewrap", srv.handler.HandleRewrap)
		r.Post("/sarcophagi/{id}/bury", srv.handler.HandleBury)
		r.Post("/sarcophagi/{id}/publish", srv.handler.HandlePublish)
		r.Post("/sarcophagi/{id}/accuse", srv.handler.HandleAccuse)
		r.Post("/sarcophagi/{id}/clean", srv.handler.HandleClean)

		r.Get("/embalmers/{address}/sarcophagi", srv.handler.HandleSarcophagiByEmbalmer)
		r.Get("/recipients/{address}/sarcophagi", srv.handler.HandleSarcophagiByRecipient)

		r.Get("/admin/config", srv.handler.HandleProtocolConfig)
		r.Post("/admin/config", srv.handler.HandleSetProtocolConfig)
		r.Post("/admin/transfer", srv.handler.HandleTransferAdmin)
		r.Post("/admin/fees/withdraw", srv.handler.HandleWithdrawProtocolFees)
	})

	// Health and diagnostic endpoints
	mux.With(srv.httpLogger).Get("/livez", srv.handleLivenessCheck)
	mux.With(srv.httpLogger).Get("/readyz", srv.handleReadinessCheck)
	mux.With(srv.httpLogger).Get("/drain", srv.handleDrain)
	mux.With(srv.httpLogger).Get("/undrain", srv.handleUndrain)

	if srv.cfg.EnablePprof {
		srv.log.Info("pprof API enabled")
		mux.Mount("/debug", middleware.Profiler())
	}
	return mux
}

func (srv *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.log, next)
}

func (srv *Server) requestMetrics(next http.Handler) http.Handler {
	if srv.metricsSrv == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		srv.metricsSrv.ObserveRequest(chi.RouteContext(r.Context()).RoutePattern(), time.Since(start))
	})
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"alive"}`))
}

func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (srv *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Swap(false) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"already draining"}`))
		return
	}

	srv.log.Info("Server marked as not ready")

	// Wait out the drain duration in the background so load balancers can
	// pick up the readiness change without blocking this request.
	go func() {
		time.Sleep(srv.cfg.DrainDuration)
		srv.log.Info("Drain period completed")
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"draining"}`))
}

func (srv *Server) handleUndrain(w http.ResponseWriter, r *http.Request) {
	if srv.isReady.Swap(true) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"already ready"}`))
		return
	}

	srv.log.Info("Server marked as ready")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (srv *Server) RunInBackground() {
	// metrics
	if srv.metricsSrv != nil {
		go func() {
			srv.log.With("metricsAddress", srv.cfg.MetricsAddr).Info("Starting metrics server")
			err := srv.metricsSrv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				srv.log.Error("HTTP server failed", "err", err)
			}
		}()
	}

	// api
	go func() {
		srv.log.Info("Starting HTTP server", "listenAddress", srv.cfg.ListenAddr)
		if err := srv.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.log.Error("HTTP server failed", "err", err)
		}
	}()
}

func (srv *Server) Shutdown() {
	// api
	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		srv.log.Error("Graceful HTTP server shutdown failed", "err", err)
	} else {
		srv.log.Info("HTTP server gracefully stopped")
	}

	// metrics
	if srv.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
		defer cancel()

		if err := srv.metricsSrv.Shutdown(ctx); err != nil {
			srv.log.Error("Graceful metrics server shutdown failed", "err", err)
		} else {
			srv.log.Info("Metrics server gracefully stopped")
		}
	}
}
