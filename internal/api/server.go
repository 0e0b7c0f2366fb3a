// Package api exposes the transform query surface of the fusion daemon over
// HTTP. All state access goes through the service layer, which serializes
// graph reads and writes.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/frame.fusion/internal/eventlog"
	"github.com/banshee-data/frame.fusion/internal/fusion"
	"github.com/banshee-data/frame.fusion/internal/httputil"
	"github.com/banshee-data/frame.fusion/internal/ingest"
	"github.com/banshee-data/frame.fusion/internal/service"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server handles the HTTP query API.
type Server struct {
	svc *service.Service
	log *eventlog.Log // optional
}

// NewServer creates an API server over the given fusion service. The event
// log may be nil, in which case history endpoints report 404.
func NewServer(svc *service.Service, eventLog *eventlog.Log) *Server {
	return &Server{svc: svc, log: eventLog}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// logRequest wraps a handler with request logging.
func logRequest(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(lrw, r)
		log.Printf("%s%s%s %s %s %v", colorCyan, r.Method, colorReset, r.URL.Path,
			statusCodeColor(lrw.statusCode), time.Since(start))
	}
}

// Routes returns the API route table.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/transform", logRequest(s.handleTransform))
	mux.HandleFunc("/api/transform/smoothed", logRequest(s.handleSmoothedTransform))
	mux.HandleFunc("/api/reach", logRequest(s.handleReach))
	mux.HandleFunc("/api/frames", logRequest(s.handleFrames))
	mux.HandleFunc("/api/graph/stats", logRequest(s.handleStats))
	mux.HandleFunc("/api/measurements", logRequest(s.handleMeasurements))
	mux.HandleFunc("/api/measurements/recent", logRequest(s.handleRecentMeasurements))
	return mux
}

// framePair pulls the from/to query parameters, writing a 400 and returning
// false when either is missing.
func framePair(w http.ResponseWriter, r *http.Request) (from, to string, ok bool) {
	from = r.URL.Query().Get("from")
	to = r.URL.Query().Get("to")
	if from == "" || to == "" {
		httputil.BadRequest(w, "missing 'from' or 'to' parameter")
		return "", "", false
	}
	return from, to, true
}

type transformResponse struct {
	Found  bool       `json:"found"`
	Rot    [4]float64 `json:"rot,omitempty"`
	Origin [3]float64 `json:"origin,omitempty"`
	Path   []string   `json:"path,omitempty"`
}

func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	from, to, ok := framePair(w, r)
	if !ok {
		return
	}

	res, path, err := s.svc.ResolveTransform(from, to)
	if err != nil {
		// Inconsistent graph state must never surface as a fabricated pose.
		httputil.InternalServerError(w, err.Error())
		return
	}
	if !res.Found {
		httputil.WriteJSONOK(w, transformResponse{Found: false})
		return
	}

	t := res.Transform
	httputil.WriteJSONOK(w, transformResponse{
		Found:  true,
		Rot:    [4]float64{t.Rotation.X, t.Rotation.Y, t.Rotation.Z, t.Rotation.W},
		Origin: [3]float64{t.Origin.X, t.Origin.Y, t.Origin.Z},
		Path:   path,
	})
}

func (s *Server) handleSmoothedTransform(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	from, to, ok := framePair(w, r)
	if !ok {
		return
	}

	pose, found, err := s.svc.SmoothedPose(from, to)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, transformResponse{
		Found:  found,
		Rot:    [4]float64{pose.Rotation.X, pose.Rotation.Y, pose.Rotation.Z, pose.Rotation.W},
		Origin: [3]float64{pose.Origin.X, pose.Origin.Y, pose.Origin.Z},
	})
}

func (s *Server) handleReach(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	from, to, ok := framePair(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, map[string]bool{"reachable": s.svc.CanReach(from, to)})
}

func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string][]string{"frames": s.svc.Frames()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	frames, edges := s.svc.Stats()
	httputil.WriteJSONOK(w, map[string]int{"frames": frames, "edges": edges})
}

// handleMeasurements applies one measurement event (POST) or removes all
// edges for a measurement key (DELETE with ?key=).
func (s *Server) handleMeasurements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			httputil.BadRequest(w, "failed to read request body")
			return
		}
		var ev ingest.Event
		if err := json.Unmarshal(body, &ev); err != nil {
			httputil.BadRequest(w, "invalid event JSON: "+err.Error())
			return
		}
		if err := ev.Validate(); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if err := s.svc.ApplyMeasurement(ev); err != nil {
			if errors.Is(err, fusion.ErrUnknownFrame) {
				httputil.NotFound(w, err.Error())
			} else {
				httputil.BadRequest(w, err.Error())
			}
			return
		}
		if s.log != nil {
			if err := s.log.RecordMeasurement(ev.From, ev.To, ev.Key, ev.Rot, ev.Origin, ev.Weight, ev.TimestampNanos); err != nil {
				log.Printf("failed to record measurement: %v", err)
			}
		}
		httputil.WriteJSONOK(w, map[string]string{"status": "applied"})

	case http.MethodDelete:
		key := r.URL.Query().Get("key")
		if key == "" {
			httputil.BadRequest(w, "missing 'key' parameter")
			return
		}
		s.svc.RemoveByKey(key)
		httputil.WriteJSONOK(w, map[string]string{"status": "removed"})

	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleRecentMeasurements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.log == nil {
		httputil.NotFound(w, "event log not enabled")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = n
	}

	entries, err := s.log.RecentMeasurements(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{"measurements": entries})
}
