// Package api serves model handles over HTTP: create and inspect handles,
// process raw float32 audio, and stream blocks over a WebSocket.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/namcore/internal/audio"
	"github.com/samcharles93/namcore/internal/logger"
	"github.com/samcharles93/namcore/internal/version"
	"github.com/samcharles93/namcore/pkg/nam"
)

const (
	// DefaultMaxBodyBytes bounds a single process request, about 87 s of
	// 48 kHz audio.
	DefaultMaxBodyBytes = 16 << 20

	mimeOctetStream = "application/octet-stream"
	headerFrames    = "X-Nam-Frames"
)

type Config struct {
	Resolver     *ModelResolver
	Store        *HandleStore
	Logger       logger.Logger
	MaxBodyBytes int64
	// CheckOrigin filters WebSocket upgrades. Nil accepts every origin.
	CheckOrigin func(r *http.Request) bool
	// Load defaults to nam.Load.
	Load func(path string) (*nam.Handle, error)
}

type Server struct {
	resolver *ModelResolver
	store    *HandleStore
	log      logger.Logger
	maxBody  int64
	upgrader websocket.Upgrader
	load     func(path string) (*nam.Handle, error)
}

func NewServer(cfg Config) *Server {
	s := &Server{
		resolver: cfg.Resolver,
		store:    cfg.Store,
		log:      cfg.Logger,
		maxBody:  cfg.MaxBodyBytes,
		load:     cfg.Load,
	}
	if s.resolver == nil {
		s.resolver = NewModelResolver(ModelResolverConfig{})
	}
	if s.store == nil {
		s.store = NewHandleStore()
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	if s.load == nil {
		s.load = nam.Load
	}
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  32 << 10,
		WriteBufferSize: 32 << 10,
		CheckOrigin:     checkOrigin,
	}
	return s
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/models", s.handleListModels)

	e.POST("/v1/handles", s.handleCreateHandle)
	e.GET("/v1/handles", s.handleListHandles)
	e.GET("/v1/handles/:id", s.handleGetHandle)
	e.DELETE("/v1/handles/:id", s.handleDeleteHandle)
	e.POST("/v1/handles/:id/process", s.handleProcess)
	e.POST("/v1/handles/:id/reset", s.handleReset)
	e.GET("/v1/handles/:id/stream", s.handleStream)
}

// Close releases every handle the server created.
func (s *Server) Close() {
	s.store.Close()
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version.String(),
		"handles": s.store.Len(),
	})
}

func (s *Server) handleListModels(c *echo.Context) error {
	models, err := s.resolver.ListModels()
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "")
	}
	return c.JSON(http.StatusOK, ListResponse[ModelInfo]{Object: "list", Data: models})
}

func (s *Server) handleCreateHandle(c *echo.Context) error {
	req, err := decodeJSON[CreateHandleRequest](c.Request().Body)
	if err != nil {
		return writeFailure(c, err)
	}
	if req.MaxBlockSize < 0 {
		return writeBadRequest(c, "max_block_size must not be negative")
	}
	path, err := s.resolver.Resolve(req.Model)
	if err != nil {
		return writeFailure(c, err)
	}
	h, err := s.load(path)
	if err != nil {
		s.log.Warn("model load failed", "model", req.Model, "path", path, "error", err)
		return writeLoadError(c, err)
	}
	info := s.store.Add(req.Model, path, h, req.MaxBlockSize)
	s.log.Info("handle created", "id", info.ID, "path", path,
		"arch", info.Architecture, "sample_rate", info.SampleRate)
	return c.JSON(http.StatusCreated, info)
}

func writeLoadError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, nam.ErrNullInput):
		return writeError(c, http.StatusBadRequest, "invalid_request_error", err.Error(), "null_input")
	case errors.Is(err, nam.ErrFileNotFound):
		return writeError(c, http.StatusNotFound, "not_found_error", err.Error(), "file_not_found")
	case errors.Is(err, nam.ErrParseOrConstruction):
		return writeError(c, http.StatusUnprocessableEntity, "invalid_model_error", err.Error(), "parse_or_construction_failure")
	default:
		return writeFailure(c, err)
	}
}

func (s *Server) handleListHandles(c *echo.Context) error {
	return c.JSON(http.StatusOK, ListResponse[HandleInfo]{Object: "list", Data: s.store.List()})
}

func (s *Server) handleGetHandle(c *echo.Context) error {
	info, err := s.store.Get(c.Param("id"))
	if err != nil {
		return writeFailure(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) handleDeleteHandle(c *echo.Context) error {
	id := c.Param("id")
	if !s.store.Delete(id) {
		return writeNotFound(c, fmt.Sprintf("handle %s not found", id))
	}
	s.log.Info("handle released", "id", id)
	return c.JSON(http.StatusOK, DeleteResponse{ID: id, Object: "handle.deleted", Deleted: true})
}

func (s *Server) handleReset(c *echo.Context) error {
	id := c.Param("id")
	if err := s.store.Reset(id); err != nil {
		return writeFailure(c, err)
	}
	info, err := s.store.Get(id)
	if err != nil {
		return writeFailure(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

// handleProcess reads little-endian float32 samples and answers with the
// same number of processed samples.
func (s *Server) handleProcess(c *echo.Context) error {
	id := c.Param("id")
	if _, err := s.store.Get(id); err != nil {
		return writeFailure(c, err)
	}
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, s.maxBody+1))
	if err != nil {
		return writeBadRequest(c, fmt.Sprintf("read body: %v", err))
	}
	if int64(len(body)) > s.maxBody {
		return writeError(c, http.StatusRequestEntityTooLarge, "invalid_request_error",
			fmt.Sprintf("body exceeds %d bytes", s.maxBody), "body_too_large")
	}
	in, err := audio.DecodeFloat32LE(body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if err := c.Request().Context().Err(); err != nil {
		return err
	}
	out, err := s.store.Process(id, in)
	if err != nil {
		return writeFailure(c, err)
	}
	c.Response().Header().Set(headerFrames, strconv.Itoa(len(out)))
	return c.Blob(http.StatusOK, mimeOctetStream, audio.EncodeFloat32LE(make([]byte, 0, 4*len(out)), out))
}
