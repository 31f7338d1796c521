package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/data"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
)

type ctxKey int

const actorKey ctxKey = iota

// HTTPAdapter exposes the mindmap and history operations as a REST API.
// Every /mindmaps route requires HTTP Basic credentials.
type HTTPAdapter struct {
	dataManager *data.DataManager
	resolver    data.IdentityResolver
	router      chi.Router
	logger      *log.Logger
}

// NewHTTPAdapter builds the router. /metrics is mounted when metrics are enabled in cfg.
func NewHTTPAdapter(dm *data.DataManager, logger *log.Logger) (*HTTPAdapter, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	if dm == nil {
		return nil, fmt.Errorf("dataManager not initialized")
	}

	a := &HTTPAdapter{
		dataManager: dm,
		resolver:    dm.UserManager,
		logger:      logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.requestLog)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if dm.Config != nil && dm.Config.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/mindmaps", func(r chi.Router) {
		r.Use(a.authenticate)

		r.Post("/", a.handleMindmapAdd)
		r.Get("/", a.handleMindmapList)
		r.Get("/favorites", a.handleMindmapFavorites)
		r.Get("/archived", a.handleMindmapArchived)
		r.Get("/search", a.handleMindmapSearch)
		r.Get("/category/{category}", a.handleMindmapCategory)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.handleMindmapGet)
			r.Put("/", a.handleMindmapUpdate)
			r.Delete("/", a.viewHandler(dm.MindmapManager.MindmapDelete))
			r.Delete("/permanent", a.handleMindmapPurge)
			r.Post("/toggle-favorite", a.viewHandler(dm.MindmapManager.MindmapFavoriteToggle))
			r.Post("/archive", a.viewHandler(dm.MindmapManager.MindmapArchive))
			r.Post("/unarchive", a.viewHandler(dm.MindmapManager.MindmapUnarchive))
			r.Post("/duplicate", a.handleMindmapDuplicate)
			r.Post("/undo", a.historyHandler(dm.HistoryManager.HistoryUndo))
			r.Post("/redo", a.historyHandler(dm.HistoryManager.HistoryRedo))
			r.Get("/history", a.handleHistoryList)
			r.Get("/history/status", a.handleHistoryStatus)
		})
	})

	a.router = r
	return a, nil
}

// Handler returns the router.
func (a *HTTPAdapter) Handler() http.Handler {
	return a.router
}

// AdapterStart serves on addr until ctx is cancelled, then shuts down gracefully.
func (a *HTTPAdapter) AdapterStart(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info(ctx, "HTTP adapter listening", log.Fields{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve http: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.logger.Info(shutdownCtx, "HTTP adapter stopping", nil)
		return srv.Shutdown(shutdownCtx)
	}
}

func (a *HTTPAdapter) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.logger.Info(r.Context(), "HTTP request", log.Fields{
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    ww.Status(),
			"duration":  time.Since(start).String(),
			"requestID": middleware.GetReqID(r.Context()),
		})
	})
}

// authenticate resolves Basic credentials to the actor id.
func (a *HTTPAdapter) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="riverflow"`)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
		actorID, err := a.resolver.UserResolve(r.Context(), username, password)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="riverflow"`)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actorID)))
	})
}

func actorFrom(r *http.Request) string {
	id, _ := r.Context().Value(actorKey).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorWrite maps the data layer error taxonomy onto HTTP statuses.
func (a *HTTPAdapter) errorWrite(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, data.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, data.ErrAccessDenied):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, data.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	default:
		a.logger.Error(r.Context(), "Request failed", log.Fields{"path": r.URL.Path, "error": err})
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", data.ErrInvalidInput, err)
	}
	return nil
}

func (a *HTTPAdapter) handleMindmapAdd(w http.ResponseWriter, r *http.Request) {
	var info model.MindmapCreateInfo
	if err := decodeBody(r, &info); err != nil {
		a.errorWrite(w, r, err)
		return
	}
	view, err := a.dataManager.MindmapManager.MindmapAdd(r.Context(), actorFrom(r), info)
	if err != nil {
		a.errorWrite(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (a *HTTPAdapter) handleMindmapGet(w http.ResponseWriter, r *http.Request) {
	m, err := a.dataManager.MindmapManager.MindmapGet(r.Context(), chi.URLParam(r, "id"), actorFrom(r))
	if err != nil {
		a.errorWrite(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *HTTPAdapter) handleMindmapUpdate(w http.ResponseWriter, r *http.Request) {
	var info model.MindmapUpdateInfo
	if err := decodeBody(r, &info); err != nil {
		a.errorWrite(w, r, err)
		return
	}
	view, err := a.dataManager.MindmapManager.MindmapUpdate(r.Context(), chi.URLParam(r, "id"), actorFrom(r), info)
	if err != nil {
		a.errorWrite(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *HTTPAdapter) handleMindmapDuplicate(w http.ResponseWriter, r *http.Request) {
	view, err := a.dataManager.MindmapManager.MindmapDuplicate(r.Context(), chi.URLParam(r, "id"), actorFrom(r))
	if err != nil {
		a.errorWrite(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (a *HTTPAdapter) handleMindmapPurge(w http.ResponseWriter, r *http.Request) {
	if err := a.dataManager.MindmapManager.MindmapPurge(r.Context(), chi.URLParam(r, "id"), actorFrom(r)); err != nil {
		a.errorWrite(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type viewFunc func(ctx context.Context, id, actorID string) (*model.MindmapView, error)

func (a *HTTPAdapter) viewHandler(fn viewFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := fn(r.Context(), chi.URLParam(r, "id"), actorFrom(r))
		if err != nil {
			a.errorWrite(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// historyResponse reports whether an undo or redo changed anything.
// Mindmap is null after undoing a creation.
type historyResponse struct {
	Applied bool           `json:"applied"`
	Mindmap *model.Mindmap `json:"mindmap,omitempty"`
	CanUndo bool           `json:"canUndo"`
	CanRedo bool           `json:"canRedo"`
}

// historyHandler answers a step with nothing to undo or redo with 200 and
// applied=false rather than an error status.
func (a *HTTPAdapter) historyHandler(fn viewFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, actorID := chi.URLParam(r, "id"), actorFrom(r)
		view, err := fn(r.Context(), id, actorID)
		if data.IsNoop(err) {
			status, serr := a.dataManager.HistoryManager.HistoryStatus(r.Context(), id, actorID)
			if serr != nil {
				a.errorWrite(w, r, serr)
				return
			}
			writeJSON(w, http.StatusOK, historyResponse{CanUndo: status.CanUndo, CanRedo: status.CanRedo})
			return
		}
		if err != nil {
			a.errorWrite(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, historyResponse{Applied: true, Mindmap: view.Mindmap, CanUndo: view.CanUndo, CanRedo: view.CanRedo})
	}
}

func (a *HTTPAdapter) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	entries, err := a.dataManager.HistoryManager.HistoryList(r.Context(), chi.URLParam(r, "id"), actorFrom(r))
	if err != nil {
		a.errorWrite(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *HTTPAdapter) handleHistoryStatus(w http.ResponseWriter, r *http.Request) {
	status, err := a.dataManager.HistoryManager.HistoryStatus(r.Context(), chi.URLParam(r, "id"), actorFrom(r))
	if err != nil {
		a.errorWrite(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *HTTPAdapter) listWrite(w http.ResponseWriter, r *http.Request, list []*model.Mindmap, err error) {
	if err != nil {
		a.errorWrite(w, r, err)
		return
	}
	if list == nil {
		list = []*model.Mindmap{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *HTTPAdapter) handleMindmapList(w http.ResponseWriter, r *http.Request) {
	list, err := a.dataManager.MindmapManager.MindmapList(r.Context(), actorFrom(r))
	a.listWrite(w, r, list, err)
}

func (a *HTTPAdapter) handleMindmapFavorites(w http.ResponseWriter, r *http.Request) {
	list, err := a.dataManager.MindmapManager.MindmapListFavorites(r.Context(), actorFrom(r))
	a.listWrite(w, r, list, err)
}

func (a *HTTPAdapter) handleMindmapArchived(w http.ResponseWriter, r *http.Request) {
	list, err := a.dataManager.MindmapManager.MindmapListArchived(r.Context(), actorFrom(r))
	a.listWrite(w, r, list, err)
}

func (a *HTTPAdapter) handleMindmapSearch(w http.ResponseWriter, r *http.Request) {
	list, err := a.dataManager.MindmapManager.MindmapSearch(r.Context(), actorFrom(r), r.URL.Query().Get("q"))
	a.listWrite(w, r, list, err)
}

func (a *HTTPAdapter) handleMindmapCategory(w http.ResponseWriter, r *http.Request) {
	list, err := a.dataManager.MindmapManager.MindmapListByCategory(r.Context(), actorFrom(r), chi.URLParam(r, "category"))
	a.listWrite(w, r, list, err)
}
