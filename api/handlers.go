package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	logging "github.com/ipfs/go-log/v2"
	"github.com/openstat/go-wbdata/apierror"
	"github.com/openstat/go-wbdata/dataset"
	"github.com/openstat/go-wbdata/export"
)

var log = logging.Logger("api")

// DatasetBuilder builds the joined dataset for an indicator and controls the
// result cache behind it.
type DatasetBuilder interface {
	Build(ctx context.Context, indicator string) ([]dataset.Row, error)
	InvalidateCache()
}

// SnapshotStore persists dataset builds. It is optional; without one the
// snapshot endpoints respond 404.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, indicator string, fetchedAt time.Time, rows []dataset.Row) (int64, error)
	LatestSnapshot(ctx context.Context, indicator string) (*dataset.Snapshot, error)
}

// Handler implements the HTTP endpoints.
type Handler struct {
	builder DatasetBuilder
	store   SnapshotStore
	metrics *Metrics
	now     func() time.Time
}

// NewHandler creates a Handler. store and metrics may be nil.
func NewHandler(builder DatasetBuilder, store SnapshotStore, metrics *Metrics) *Handler {
	return &Handler{
		builder: builder,
		store:   store,
		metrics: metrics,
		now:     time.Now,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetDataset builds and returns the joined dataset for the indicator in the
// path. Optional region and income query parameters filter rows by group
// name and income tier.
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.build(w, r)
	if !ok {
		return
	}
	rows = filterRows(rows, r.URL.Query().Get("region"), r.URL.Query().Get("income"))
	writeJSON(w, http.StatusOK, rows)
}

// ExportCSV builds the dataset and streams it as a CSV attachment.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.build(w, r)
	if !ok {
		return
	}
	rows = filterRows(rows, r.URL.Query().Get("region"), r.URL.Query().Get("income"))

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="dataset.csv"`)
	if err := export.WriteCSV(w, rows); err != nil {
		// Headers are already written; nothing to do but log.
		log.Errorw("Cannot write csv", "err", err)
	}
}

// SaveSnapshot builds the dataset and persists it as a snapshot.
func (h *Handler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "snapshot store not configured")
		return
	}
	indicator := chi.URLParam(r, "indicator")
	rows, ok := h.build(w, r)
	if !ok {
		return
	}
	id, err := h.store.SaveSnapshot(r.Context(), indicator, h.now(), rows)
	if err != nil {
		log.Errorw("Cannot save snapshot", "indicator", indicator, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"snapshot_id": id})
}

// LatestSnapshot returns the most recently persisted snapshot for the
// indicator, without touching the upstream API.
func (h *Handler) LatestSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "snapshot store not configured")
		return
	}
	indicator := chi.URLParam(r, "indicator")
	snap, err := h.store.LatestSnapshot(r.Context(), indicator)
	if err != nil {
		log.Errorw("Cannot load snapshot", "indicator", indicator, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "no snapshot for indicator")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// RefreshCache drops all memoized payloads so the next build re-fetches.
func (h *Handler) RefreshCache(w http.ResponseWriter, r *http.Request) {
	h.builder.InvalidateCache()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cache cleared"})
}

func (h *Handler) build(w http.ResponseWriter, r *http.Request) ([]dataset.Row, bool) {
	indicator := chi.URLParam(r, "indicator")
	if h.metrics != nil {
		h.metrics.Builds.Inc()
	}
	rows, err := h.builder.Build(r.Context(), indicator)
	if err != nil {
		kind := apierror.KindOf(err)
		if h.metrics != nil {
			h.metrics.BuildErrors.WithLabelValues(string(kind)).Inc()
		}
		log.Errorw("Cannot build dataset", "indicator", indicator, "kind", kind, "err", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusForKind(kind))
		w.Write(apierror.EncodeError(err))
		return nil, false
	}
	return rows, true
}

// statusForKind maps upstream failure kinds onto gateway statuses: the
// failure is the upstream's, not this server's.
func statusForKind(kind apierror.Kind) int {
	switch kind {
	case apierror.KindTimeout:
		return http.StatusGatewayTimeout
	case apierror.KindTransport, apierror.KindMalformed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func filterRows(rows []dataset.Row, region, income string) []dataset.Row {
	if region == "" && income == "" {
		return rows
	}
	filtered := make([]dataset.Row, 0, len(rows))
	for _, row := range rows {
		if region != "" && row.RegionName != region {
			continue
		}
		if income != "" && row.IncomeLevel != income {
			continue
		}
		filtered = append(filtered, row)
	}
	return filtered
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorw("Cannot encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apierror.ErrorMessage{Message: msg, Status: status})
}
