// Package server exposes a table over a JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oda/rowdb"
)

// RequestIDHeader carries the id assigned to each request.
const RequestIDHeader = "X-Request-ID"

// Table is the part of *rowdb.Table the server uses.
type Table interface {
	Insert(rowdb.Row) error
	Read(int) (rowdb.Row, error)
	NumRows() int
	Flush() error
	Stats() rowdb.Stats
}

// Server serializes all table access behind one mutex; the table itself
// is not safe for concurrent use, and reads move pages through its cache.
type Server struct {
	table Table
	mu    sync.Mutex
	log   *slog.Logger
}

// Response is the envelope of every JSON reply.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StatusResponse contains table status information.
type StatusResponse struct {
	Connected bool   `json:"connected"`
	Path      string `json:"path,omitempty"`
	Count     int    `json:"count"`
	MaxRows   int    `json:"maxRows"`
}

// InsertResponse reports where an inserted row landed.
type InsertResponse struct {
	Index int       `json:"index"`
	Row   rowdb.Row `json:"row"`
}

// RowsResult is one page of rows.
type RowsResult struct {
	Offset int         `json:"offset"`
	Rows   []rowdb.Row `json:"rows"`
	Count  int         `json:"count"`
	Total  int         `json:"total"`
}

// BenchmarkRequest is the request body for benchmark operations.
type BenchmarkRequest struct {
	Count int `json:"count"` // Number of rows to append
}

// BenchmarkResult contains benchmark timing results.
type BenchmarkResult struct {
	InsertCount     int     `json:"insertCount"`
	InsertTotalMs   float64 `json:"insertTotalMs"`
	InsertAvgUs     float64 `json:"insertAvgUs"`
	InsertOpsPerSec float64 `json:"insertOpsPerSec"`
	ReadCount       int     `json:"readCount"`
	ReadTotalMs     float64 `json:"readTotalMs"`
	ReadAvgUs       float64 `json:"readAvgUs"`
	ReadOpsPerSec   float64 `json:"readOpsPerSec"`
	FinalCount      int     `json:"finalCount"`
}

const defaultBenchmarkCount = 1000

// New returns a server over t. A nil logger discards events.
func New(t Table, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Server{table: t, log: log}
}

// Handler returns the API routes wrapped in CORS and request id middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/rows", s.handleList)
	mux.HandleFunc("POST /api/rows", s.handleInsert)
	mux.HandleFunc("GET /api/rows/{index}", s.handleRead)
	mux.HandleFunc("POST /api/flush", s.handleFlush)
	mux.HandleFunc("POST /api/benchmark", s.handleBenchmark)
	return s.requestID(cors(mux))
}

func cors(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) requestID(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		h.ServeHTTP(w, r)
		s.log.Debug("request", "id", id, "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// statusFor maps table errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, rowdb.ErrOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, rowdb.ErrInvalidRow):
		return http.StatusBadRequest
	case errors.Is(err, rowdb.ErrCapacityExceeded):
		return http.StatusInsufficientStorage
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error(op+" failed", "id", w.Header().Get(RequestIDHeader), "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, Response{Error: fmt.Sprintf("%s failed: %v", op, err)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.table.Stats()
	writeJSON(w, http.StatusOK, Response{Success: true, Data: StatusResponse{
		Connected: true,
		Path:      st.Path,
		Count:     st.Rows,
		MaxRows:   st.MaxRows,
	}})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, Response{Success: true, Data: s.table.Stats()})
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var req rowdb.Row
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.table.Insert(req); err != nil {
		s.fail(w, r, "insert", err)
		return
	}

	writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    InsertResponse{Index: s.table.NumRows() - 1, Row: req},
	})
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "invalid index format"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := s.table.Read(index)
	if err != nil {
		s.fail(w, r, "read", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: row})
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: err.Error()})
		return
	}
	limit, err := queryInt(r, "limit", -1)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.table.NumRows()
	end := total
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}

	rows := []rowdb.Row{}
	for i := offset; i < end; i++ {
		row, err := s.table.Read(i)
		if err != nil {
			s.fail(w, r, "list", err)
			return
		}
		rows = append(rows, row)
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    RowsResult{Offset: offset, Rows: rows, Count: len(rows), Total: total},
	})
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.table.Flush(); err != nil {
		s.fail(w, r, "flush", err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true})
}

// handleBenchmark appends generated rows and reads them back. The count is
// clamped to the remaining capacity.
func (s *Server) handleBenchmark(w http.ResponseWriter, r *http.Request) {
	var req BenchmarkRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Error: "invalid request body"})
			return
		}
	}
	if req.Count <= 0 {
		req.Count = defaultBenchmarkCount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	first := s.table.NumRows()
	remaining := s.table.Stats().MaxRows - first
	if remaining <= 0 {
		s.fail(w, r, "benchmark", fmt.Errorf("%w: table is full", rowdb.ErrCapacityExceeded))
		return
	}
	req.Count = min(req.Count, remaining)

	insertStart := time.Now()
	for i := range req.Count {
		row := rowdb.Row{
			ID:       rand.Uint32(),
			Username: fmt.Sprintf("bench%d", first+i),
			Email:    fmt.Sprintf("bench%d@example.com", first+i),
		}
		if err := s.table.Insert(row); err != nil {
			s.fail(w, r, fmt.Sprintf("benchmark insert at %d", i), err)
			return
		}
	}
	insertDuration := time.Since(insertStart)

	readStart := time.Now()
	for i := first; i < first+req.Count; i++ {
		if _, err := s.table.Read(i); err != nil {
			s.fail(w, r, "benchmark read", err)
			return
		}
	}
	readDuration := time.Since(readStart)

	n := float64(req.Count)
	writeJSON(w, http.StatusOK, Response{Success: true, Data: BenchmarkResult{
		InsertCount:     req.Count,
		InsertTotalMs:   float64(insertDuration.Microseconds()) / 1000.0,
		InsertAvgUs:     float64(insertDuration.Microseconds()) / n,
		InsertOpsPerSec: perSecond(n, insertDuration),
		ReadCount:       req.Count,
		ReadTotalMs:     float64(readDuration.Microseconds()) / 1000.0,
		ReadAvgUs:       float64(readDuration.Microseconds()) / n,
		ReadOpsPerSec:   perSecond(n, readDuration),
		FinalCount:      s.table.NumRows(),
	}})
}

func perSecond(n float64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return n / d.Seconds()
}
