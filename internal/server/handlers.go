package server

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/crimson-sun/clientpulse/internal/engine/aggregator"
	"github.com/crimson-sun/clientpulse/internal/model"
	"github.com/crimson-sun/clientpulse/internal/pipeline"
)

const maxPageSize = 1000

type metricsResponse struct {
	DatasetID string           `json:"dataset_id"`
	Filter    model.Filter     `json:"filter"`
	Metrics   model.Metrics    `json:"metrics"`
	Fallbacks []model.Fallback `json:"fallbacks,omitempty"`
}

type clientsResponse struct {
	DatasetID string         `json:"dataset_id"`
	Filter    model.Filter   `json:"filter"`
	Total     int            `json:"total"`
	Offset    int            `json:"offset"`
	Records   []model.Record `json:"records"`
}

type monthCount struct {
	Month     string `json:"month"`
	Contracts int    `json:"contracts"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.reader.Dataset() == nil {
		writeError(w, http.StatusServiceUnavailable, "NOT_READY", "no dataset loaded yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	f, ok := filterParam(w, r)
	if !ok {
		return
	}
	ds, ok := s.dataset(w)
	if !ok {
		return
	}
	m, fallbacks, err := s.reader.Summary(f)
	if errors.Is(err, pipeline.ErrNoDataset) {
		writeError(w, http.StatusServiceUnavailable, "NOT_READY", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	writeSuccess(w, metricsResponse{DatasetID: ds.ID, Filter: f, Metrics: m, Fallbacks: fallbacks})
}

func (s *Server) clients(w http.ResponseWriter, r *http.Request) {
	f, ok := filterParam(w, r)
	if !ok {
		return
	}
	limit, ok := intParam(w, r, "limit", 100)
	if !ok {
		return
	}
	offset, ok := intParam(w, r, "offset", 0)
	if !ok {
		return
	}
	ds, ok := s.dataset(w)
	if !ok {
		return
	}

	recs := f.Apply(ds.Records)
	total := len(recs)
	limit = min(limit, maxPageSize)
	start := min(offset, total)
	end := min(start+limit, total)
	writeSuccess(w, clientsResponse{
		DatasetID: ds.ID,
		Filter:    f,
		Total:     total,
		Offset:    start,
		Records:   recs[start:end],
	})
}

func (s *Server) top(c model.Cluster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, ok := intParam(w, r, "limit", s.topN)
		if !ok {
			return
		}
		ds, ok := s.dataset(w)
		if !ok {
			return
		}
		recs := aggregator.Top(ds.Records, c, min(n, maxPageSize))
		writeSuccess(w, clientsResponse{
			DatasetID: ds.ID,
			Filter:    model.Filter(c),
			Total:     len(recs),
			Records:   recs,
		})
	}
}

func (s *Server) trend(w http.ResponseWriter, r *http.Request) {
	f, ok := filterParam(w, r)
	if !ok {
		return
	}
	if _, ok := s.dataset(w); !ok {
		return
	}
	m, _, err := s.reader.Summary(f)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "NOT_READY", err.Error())
		return
	}
	months := make([]monthCount, 0, len(m.SignedByMonth))
	for month, n := range m.SignedByMonth {
		months = append(months, monthCount{Month: month, Contracts: n})
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })
	writeSuccess(w, months)
}

func (s *Server) dataset(w http.ResponseWriter) (*model.Dataset, bool) {
	ds := s.reader.Dataset()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, "NOT_READY", "no dataset loaded yet")
		return nil, false
	}
	return ds, true
}

func filterParam(w http.ResponseWriter, r *http.Request) (model.Filter, bool) {
	f, err := model.ParseFilter(r.URL.Query().Get("cluster"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FILTER", err.Error())
		return "", false
	}
	return f, true
}

func intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PARAMETER", name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
