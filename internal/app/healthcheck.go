package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/specialistvlad/treeplug/internal/catalogsync"
	"github.com/specialistvlad/treeplug/internal/ctxlog"
	"github.com/specialistvlad/treeplug/internal/model"
)

// healthHandler reports liveness and the number of installed modules.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctxlog.FromContext(a.ctx).Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK %d modules\n", a.registry.Len())
}

// modulesHandler serves the catalog as a JSON array of summaries. The
// optional kind and q query parameters narrow it like `treeplug list`.
func (a *App) modulesHandler(w http.ResponseWriter, r *http.Request) {
	kinds := model.Kinds
	if name := r.URL.Query().Get("kind"); name != "" {
		k, err := model.ParseKind(name)
		if err != nil || k == model.KindUnknown {
			http.Error(w, fmt.Sprintf("unknown kind %q", name), http.StatusBadRequest)
			return
		}
		kinds = []model.Kind{k}
	}

	query := r.URL.Query().Get("q")
	out := []catalogsync.Summary{}
	for _, k := range kinds {
		for _, d := range a.registry.Filter(k, query) {
			out = append(out, catalogsync.Summarize(d))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		ctxlog.FromContext(a.ctx).Warn("Writing catalog response failed.", "error", err)
	}
}

// startStatusServer serves /health and /modules on HealthcheckPort. A port
// of zero leaves it disabled.
func (a *App) startStatusServer() {
	logger := ctxlog.FromContext(a.ctx)
	if a.config.HealthcheckPort <= 0 {
		logger.Debug("Status server not started: disabled")
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.HandleFunc("GET /modules", a.modulesHandler)

	addr := fmt.Sprintf(":%d", a.config.HealthcheckPort)
	a.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("🩺 Status server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Status server failed unexpectedly", "error", err)
		}
	}()
}

func (a *App) stopStatusServer() error {
	if a.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	ctxlog.FromContext(a.ctx).Debug("Status server shut down gracefully.")
	return nil
}
