package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/christophergentle/ratingchart-bsky/internal/config"
	"github.com/christophergentle/ratingchart-bsky/internal/formatter"
	"github.com/christophergentle/ratingchart-bsky/internal/history"
	"github.com/christophergentle/ratingchart-bsky/internal/metrics"
	"github.com/christophergentle/ratingchart-bsky/internal/pipeline"
	"github.com/christophergentle/ratingchart-bsky/internal/rating"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server renders charts on request. Nothing it renders is kept.
type Server struct {
	config   *config.Config
	store    history.Store
	renderer *pipeline.Renderer
	metrics  *metrics.Manager
}

// New creates a server over store. A nil m gets a fresh Manager.
func New(cfg *config.Config, store history.Store, m *metrics.Manager) *Server {
	if m == nil {
		m = metrics.NewManager()
	}
	return &Server{
		config:   cfg,
		store:    store,
		renderer: pipeline.NewRenderer(cfg, m),
		metrics:  m,
	}
}

// Router registers every endpoint
func (s *Server) Router() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /chart.png", WithLogging("/chart.png", s.metrics, s.Chart))
	mux.HandleFunc("GET /standings", WithLogging("/standings", s.metrics, s.Standings))

	return mux
}

// Chart handles GET /chart.png?view=<name>&user=<name>. Both parameters
// repeat or take comma separated lists; without them every configured
// view and user is drawn.
func (s *Server) Chart(w http.ResponseWriter, r *http.Request) {
	histories, ok := s.loadHistories(w, r)
	if !ok {
		return
	}

	data, _, err := s.renderer.RenderPNG(queryList(r, "view"), histories)
	if err != nil {
		switch {
		case errors.Is(err, rating.ErrEmptyHistory):
			WriteError(w, http.StatusNotFound, "no rated contests to draw")
		case errors.Is(err, config.ErrUnknownView):
			WriteError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("Failed to render chart: %v", err)
			WriteError(w, http.StatusInternalServerError, "failed to render chart")
		}
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// StandingsResponse is the body of GET /standings
type StandingsResponse struct {
	Contest string             `json:"contest"`
	Text    string             `json:"text"`
	Changes []formatter.Change `json:"changes"`
}

// Standings handles GET /standings?user=<name>, returning the rating
// changes of the latest contest and the post text they format to
func (s *Server) Standings(w http.ResponseWriter, r *http.Request) {
	histories, ok := s.loadHistories(w, r)
	if !ok {
		return
	}

	contest, changes, found := formatter.LatestChanges(histories)
	if !found {
		WriteError(w, http.StatusNotFound, "no rated contests")
		return
	}
	JSONResponse(w, http.StatusOK, StandingsResponse{
		Contest: contest.ContestLabel,
		Text:    formatter.FormatRatingUpdate(contest.ContestLabel, changes, 0),
		Changes: changes,
	})
}

func (s *Server) loadHistories(w http.ResponseWriter, r *http.Request) ([]history.UserHistory, bool) {
	users := queryList(r, "user")
	if len(users) == 0 {
		users = s.config.Users
	}

	histories, err := history.LoadAll(r.Context(), s.store, users)
	if err != nil {
		log.Printf("Failed to load histories: %v", err)
		if s.metrics != nil {
			s.metrics.RecordError("load")
		}
		WriteError(w, http.StatusInternalServerError, "failed to load histories")
		return nil, false
	}
	return histories, true
}

// queryList collects a repeated, comma separated query parameter
func queryList(r *http.Request, key string) []string {
	var items []string
	for _, value := range r.URL.Query()[key] {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
	}
	return items
}
