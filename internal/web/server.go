// Package web serves an Environment over HTTP with gin, and streams script
// output over a websocket.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"glob1env/internal/environment"
	"glob1env/internal/mailbox"
	"glob1env/internal/model"
	"glob1env/internal/vfs"
)

//go:embed static/*
var staticFS embed.FS

//go:embed help.md
var helpMD string

// FrameInterval is how often the mailbox is drained.
const FrameInterval = 100 * time.Millisecond

const shutdownTimeout = 5 * time.Second

// Server owns one Environment and serialises every access to it.
type Server struct {
	mu  sync.Mutex
	env *environment.Environment

	engine   *gin.Engine
	upgrader websocket.Upgrader
	logger   *zap.Logger
	addr     string

	// ctx outlives requests; script runs derive from it.
	ctx context.Context
}

// NewServer builds the router. Nothing listens until Run.
func NewServer(env *environment.Environment, addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		env:    env,
		addr:   addr,
		logger: logger,
		ctx:    context.Background(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	subFS, _ := fs.Sub(staticFS, "static")
	engine.StaticFS("/ui", http.FS(subFS))
	engine.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/ui/") })

	api := engine.Group("/api")
	api.GET("/ls", s.handleLs)
	api.GET("/file", s.handleReadFile)
	api.PUT("/file", s.handleWriteFile)
	api.POST("/entries", s.handleInsert)
	api.POST("/run", s.handleRun)
	api.GET("/messages", s.handleMessages)
	api.GET("/messages/ws", s.handleMessagesWS)
	api.GET("/help", s.handleHelp)

	s.engine = engine
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx ends, draining the mailbox every frame.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	s.ctx = gctx
	srv := &http.Server{Addr: s.addr, Handler: s.engine}

	g.Go(func() error {
		s.logger.Info("Web server listening", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		s.frameLoop(gctx)
		return nil
	})
	return g.Wait()
}

func (s *Server) frameLoop(ctx context.Context) {
	ticker := time.NewTicker(FrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll()
		}
	}
}

func (s *Server) poll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.env.Poll(); n > 0 {
		s.logger.Debug("Mailbox drained", zap.Int("new", n))
	}
}

// EntryJSON is a listing row.
type EntryJSON struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Path   string `json:"path"`
	Icon   string `json:"icon"`
	System bool   `json:"system"`
}

// MessageJSON is one script output message.
type MessageJSON struct {
	Kind    string `json:"kind"`
	Text    string `json:"text,omitempty"`
	Service string `json:"service,omitempty"`
	Secret  string `json:"secret,omitempty"`
	Wire    string `json:"wire"`
}

func messageJSON(m mailbox.Message) MessageJSON {
	return MessageJSON{
		Kind:    m.Kind.String(),
		Text:    m.Text,
		Service: m.Service,
		Secret:  m.Secret,
		Wire:    m.String(),
	}
}

// statusOf maps tree errors to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, vfs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, vfs.ErrInvalidPath), errors.Is(err, vfs.ErrEmptyPath):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func abortWith(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (s *Server) handleLs(c *gin.Context) {
	p := c.DefaultQuery("path", "/")

	s.mu.Lock()
	entries, err := s.env.ListPath(p)
	s.mu.Unlock()
	if err != nil {
		abortWith(c, statusOf(err), err)
		return
	}

	out := make([]EntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryJSON{
			Name:   e.Name,
			Kind:   e.Kind.String(),
			Path:   vfs.Join(p, e.Name),
			Icon:   model.IconFor(e),
			System: e.System,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleReadFile(c *gin.Context) {
	p := c.Query("path")
	if p == "" {
		abortWith(c, http.StatusBadRequest, errors.New("path is required"))
		return
	}

	s.mu.Lock()
	content, err := s.env.Read(p)
	s.mu.Unlock()
	if err != nil {
		abortWith(c, statusOf(err), err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(content))
}

func (s *Server) handleWriteFile(c *gin.Context) {
	p := c.Query("path")
	if p == "" {
		abortWith(c, http.StatusBadRequest, errors.New("path is required"))
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		abortWith(c, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	err = s.env.Write(p, string(body))
	s.mu.Unlock()
	if err != nil {
		abortWith(c, statusOf(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleInsert(c *gin.Context) {
	p := c.DefaultQuery("path", "/")
	var entry model.Entry
	if err := c.ShouldBindJSON(&entry); err != nil {
		abortWith(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(entry.Name) == "" {
		abortWith(c, http.StatusBadRequest, errors.New("entry name is required"))
		return
	}

	s.mu.Lock()
	err := s.env.Insert(p, entry)
	s.mu.Unlock()
	if err != nil {
		abortWith(c, statusOf(err), err)
		return
	}
	c.JSON(http.StatusCreated, EntryJSON{
		Name:   entry.Name,
		Kind:   entry.Kind.String(),
		Path:   vfs.Join(p, entry.Name),
		Icon:   model.IconFor(entry),
		System: entry.System,
	})
}

func (s *Server) handleRun(c *gin.Context) {
	p := c.Query("path")
	if p == "" {
		abortWith(c, http.StatusBadRequest, errors.New("path is required"))
		return
	}
	if model.DocumentOf(p) != model.DocumentScript {
		abortWith(c, http.StatusBadRequest, fmt.Errorf("%s is not a script (expected *%s)", p, model.ScriptSuffix))
		return
	}

	s.mu.Lock()
	started := s.env.Execute(s.ctx, p)
	state := s.env.ExecutionState()
	s.mu.Unlock()

	status := http.StatusAccepted
	if !started {
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"started": started, "state": state.String()})
}

func (s *Server) handleMessages(c *gin.Context) {
	since, err := strconv.Atoi(c.DefaultQuery("since", "0"))
	if err != nil || since < 0 {
		abortWith(c, http.StatusBadRequest, errors.New("since must be a non-negative integer"))
		return
	}

	s.mu.Lock()
	s.env.Poll()
	msgs := s.env.MessagesSince(since)
	next := s.env.MessageCount()
	state := s.env.ExecutionState()
	s.mu.Unlock()

	out := make([]MessageJSON, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageJSON(m))
	}
	c.JSON(http.StatusOK, gin.H{"messages": out, "next": next, "state": state.String()})
}

// handleMessagesWS sends every buffered message, then each new one as it is
// recorded, as JSON text frames.
func (s *Server) handleMessagesWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Reader goroutine - notices the client going away
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(4096)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(FrameInterval)
	defer ticker.Stop()

	sent := 0
	for {
		s.mu.Lock()
		s.env.Poll()
		msgs := s.env.MessagesSince(sent)
		s.mu.Unlock()

		for _, m := range msgs {
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(messageJSON(m)); err != nil {
				s.logger.Debug("Websocket write failed", zap.Error(err))
				return
			}
			sent++
		}

		select {
		case <-c.Request.Context().Done():
			return
		case <-s.ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) handleHelp(c *gin.Context) {
	text := strings.ReplaceAll(helpMD, "{{VERSION}}", model.Version)
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(text))
}
