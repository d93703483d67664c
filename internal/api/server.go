// Package api exposes the record store over JSON/HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"padget/internal/history"
	"padget/internal/logging"
	"padget/internal/poller"
	"padget/internal/slides"
	"padget/internal/store"
)

// Server wires HTTP handlers to the store and its companions.
type Server struct {
	store   *store.Store
	history *history.Log
	poller  *poller.Poller
	hub     *Hub
	logger  *zap.Logger
	limit   int
}

// Option configures a Server.
type Option func(*Server)

// WithHistory serves /history from l.
func WithHistory(l *history.Log) Option { return func(s *Server) { s.history = l } }

// WithPoller reports poller counters on /status.
func WithPoller(p *poller.Poller) Option { return func(s *Server) { s.poller = p } }

// WithLogger sets the access logger.
func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.logger = l } }

// WithHeartbeat sets the SSE ping period.
func WithHeartbeat(d time.Duration) Option { return func(s *Server) { s.hub = NewHub(d) } }

// WithHistoryLimit caps /history responses when no limit is given.
func WithHistoryLimit(n int) Option { return func(s *Server) { s.limit = n } }

// New builds a server and subscribes its event hub to st.
func New(st *store.Store, opts ...Option) *Server {
	s := &Server{
		store:  st,
		hub:    NewHub(0),
		logger: zap.NewNop(),
		limit:  50,
	}
	for _, opt := range opts {
		opt(s)
	}
	st.OnChange(s.hub.Broadcast)
	return s
}

// Hub returns the event hub, closed by the owner on shutdown.
func (s *Server) Hub() *Hub { return s.hub }

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.logger))

	r.GET("/events", s.hub.Serve)
	r.GET("/status", s.status)
	r.GET("/history", s.recentHistory)

	g := r.Group("/slides")
	g.GET("", s.listSlides)
	g.POST("", s.createSlide)
	g.GET("/stats", s.stats)
	g.POST("/reload", s.reload)
	g.GET("/:index", s.getSlide)
	g.PATCH("/:index", s.updateSlide)
	g.POST("/:index/touch", s.touchSlide)
	g.DELETE("/:index", s.deleteSlide)

	return r
}

// SlideView is a record plus what a client needs to display it.
type SlideView struct {
	Index int `json:"index"`
	slides.Record
	KindLabel string `json:"kind_label"`
	EmbedURL  string `json:"embed_url,omitempty"`
	Platform  string `json:"platform,omitempty"`
}

func viewOf(index int, r slides.Record) SlideView {
	v := SlideView{Index: index, Record: r, KindLabel: r.Kind.Label()}
	if u, ok := slides.EmbedURL(r); ok {
		v.EmbedURL = u
	}
	if p, ok := slides.PlatformFor(r.URL); ok {
		v.Platform = p.Name
	}
	return v
}

type createReq struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Uploader    string `json:"uploader"`
	Type        string `json:"type"`
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrIndexOutOfRange):
		status = http.StatusNotFound
	case errors.Is(err, slides.ErrEmptyURL), errors.Is(err, slides.ErrUnknownField),
		errors.Is(err, store.ErrNoFields):
		status = http.StatusBadRequest
	}
	if status >= 500 {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func indexParam(c *gin.Context) (int, bool) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be an integer"})
		return 0, false
	}
	return i, true
}

func (s *Server) listSlides(c *gin.Context) {
	records := s.store.List()
	views := make([]SlideView, 0, len(records))
	for i, r := range records {
		views = append(views, viewOf(i, r))
	}
	c.JSON(http.StatusOK, gin.H{
		"slides": views,
		"stats":  slides.ComputeStats(records),
	})
}

func (s *Server) getSlide(c *gin.Context) {
	i, ok := indexParam(c)
	if !ok {
		return
	}
	r, err := s.store.Get(i)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(i, r))
}

func (s *Server) createSlide(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	kind, err := slides.ParseKind(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	index, rec, err := s.store.Append(slides.Draft{
		URL:         req.URL,
		Title:       req.Title,
		Description: req.Description,
		Uploader:    req.Uploader,
		Kind:        kind,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	logging.API("created id=%d title=%q", rec.ID, rec.Title)
	c.JSON(http.StatusCreated, viewOf(index, rec))
}

// updateSlide applies a JSON object of field/value pairs as one save. An
// unknown field rejects the whole object.
func (s *Server) updateSlide(c *gin.Context) {
	i, ok := indexParam(c)
	if !ok {
		return
	}
	var req map[string]string
	if err := c.ShouldBindJSON(&req); err != nil || len(req) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected a JSON object of fields"})
		return
	}
	rec, err := s.store.UpdateFields(i, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(i, rec))
}

func (s *Server) touchSlide(c *gin.Context) {
	i, ok := indexParam(c)
	if !ok {
		return
	}
	rec, err := s.store.Touch(i)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(i, rec))
}

func (s *Server) deleteSlide(c *gin.Context) {
	i, ok := indexParam(c)
	if !ok {
		return
	}
	rec, err := s.store.RemoveAt(i)
	if err != nil {
		writeError(c, err)
		return
	}
	logging.API("deleted index=%d id=%d", i, rec.ID)
	c.JSON(http.StatusOK, gin.H{"deleted": rec, "count": s.store.Len()})
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Stats())
}

// reload re-reads the document unconditionally, like the dashboard's refresh
// button. A document that fails to parse leaves the current list in place.
func (s *Server) reload(c *gin.Context) {
	changed, err := s.store.Reload()
	if err != nil {
		writeError(c, err)
		return
	}
	logging.APIDebug("reload changed=%t count=%d", changed, s.store.Len())
	c.JSON(http.StatusOK, s.store.Stats())
}

func (s *Server) recentHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history disabled"})
		return
	}
	limit := s.limit
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	entries, err := s.history.Recent(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	type item struct {
		history.Entry
		Message string `json:"message"`
	}
	out := make([]item, 0, len(entries))
	for _, e := range entries {
		out = append(out, item{Entry: e, Message: e.Message()})
	}
	c.JSON(http.StatusOK, gin.H{"history": out})
}

func (s *Server) status(c *gin.Context) {
	resp := gin.H{
		"path":          s.store.Path(),
		"records":       s.store.Len(),
		"last_observed": s.store.LastObserved(),
		"subscribers":   s.hub.Clients(),
	}
	if s.poller != nil {
		resp["poller"] = s.poller.Stats()
		resp["watching"] = s.poller.Watching()
	}
	c.JSON(http.StatusOK, resp)
}
