// Package web exposes the read-only HTTP surface: a health probe, the
// upcoming-occurrence view as JSON, and an iCalendar feed.
package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tidings-app/tidings/internal/aggregate"
	"github.com/tidings-app/tidings/internal/feed"
	"github.com/tidings-app/tidings/internal/holiday"
	"github.com/tidings-app/tidings/internal/models"
	"github.com/tidings-app/tidings/internal/timezone"
)

const (
	defaultUpcoming = 10
	maxUpcoming     = 200
	feedSize        = 50
)

// ScheduleSource lists the schedules the views are built from.
type ScheduleSource interface {
	ListEnabledWithGroup(ctx context.Context) ([]models.ScheduleWithGroup, error)
}

// Server provides the HTTP API. All endpoints are read-only; writes go
// through the repositories directly.
type Server struct {
	schedules ScheduleSource
	agg       *aggregate.Aggregator
	feedName  string
	defaultN  int
	loc       *time.Location
	log       zerolog.Logger
	mux       *http.ServeMux
	now       func() time.Time
}

func NewServer(schedules ScheduleSource, agg *aggregate.Aggregator, feedName, defaultZone string, upcomingLimit int, log zerolog.Logger) *Server {
	if upcomingLimit <= 0 {
		upcomingLimit = defaultUpcoming
	}
	loc, err := timezone.Location(defaultZone)
	if err != nil {
		log.Warn().Err(err).Msg("falling back to local zone for display labels")
		loc = time.Local
	}
	s := &Server{
		schedules: schedules,
		agg:       agg,
		feedName:  feedName,
		defaultN:  upcomingLimit,
		loc:       loc,
		log:       log,
		mux:       http.NewServeMux(),
		now:       time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/upcoming", s.handleUpcoming)
	s.mux.HandleFunc("/api/holidays", s.handleHolidays)
	s.mux.HandleFunc("/feed.ics", s.handleFeed)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleUpcoming returns the next n occurrences across every enabled
// schedule, merged and time-ordered.
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	n := parseIntDefault(r.URL.Query().Get("n"), s.defaultN)
	if n <= 0 {
		n = s.defaultN
	}
	if n > maxUpcoming {
		n = maxUpcoming
	}

	occurrences, err := s.upcoming(r.Context(), n)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list schedules for upcoming view")
		writeError(w, http.StatusInternalServerError, "failed to resolve upcoming occurrences")
		return
	}

	now := s.now()
	entries := make([]upcomingEntry, len(occurrences))
	for i, o := range occurrences {
		entries[i] = upcomingEntry{
			Occurrence: o,
			When:       timezone.Describe(o.At, now, s.loc),
		}
	}
	writeJSON(w, http.StatusOK, entries)
}

// upcomingEntry decorates an occurrence with a relative label ("Today",
// "In 2 weeks") in the server's display zone.
type upcomingEntry struct {
	models.Occurrence
	When string `json:"when"`
}

type holidayEntry struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Date  string `json:"date"`
}

// handleHolidays resolves every known holiday. With ?year= the dates are for
// that calendar year; without it each date is the next upcoming one.
func (s *Server) handleHolidays(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	year := parseIntDefault(r.URL.Query().Get("year"), 0)
	now := s.now()

	entries := make([]holidayEntry, 0, len(holiday.Keys()))
	for _, key := range holiday.Keys() {
		var (
			d   time.Time
			err error
		)
		if year > 0 {
			d, err = holiday.Resolve(key, year)
		} else {
			d, err = holiday.Next(key, now)
		}
		if err != nil {
			s.log.Error().Err(err).Str("holiday", string(key)).Msg("failed to resolve holiday")
			writeError(w, http.StatusInternalServerError, "failed to resolve holidays")
			return
		}
		entries = append(entries, holidayEntry{
			Key:   string(key),
			Label: holiday.Label(key),
			Date:  d.Format(timezone.DateLayout),
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleFeed serves the same view as an iCalendar document for calendar
// clients to subscribe to.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	occurrences, err := s.upcoming(r.Context(), feedSize)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list schedules for feed")
		writeError(w, http.StatusInternalServerError, "failed to build feed")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, feed.Calendar(s.feedName, occurrences, s.now()))
}

func (s *Server) upcoming(ctx context.Context, n int) ([]models.Occurrence, error) {
	schedules, err := s.schedules.ListEnabledWithGroup(ctx)
	if err != nil {
		return nil, err
	}
	return s.agg.Upcoming(schedules, s.now(), n), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
