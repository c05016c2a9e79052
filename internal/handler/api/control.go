package api

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"SensorStream/internal/domain/models"
	domrepo "SensorStream/internal/domain/repository"
	xhttp "SensorStream/pkg/http"
	"SensorStream/pkg/http/middleware"
	xlogger "SensorStream/pkg/logger"
	"SensorStream/pkg/util"

	"github.com/labstack/echo/v4"
)

// Acquisition is the acquisition surface driven by the control endpoints.
type Acquisition interface {
	Start()
	Stop()
	Active() bool
	Len() int
	Flush(ctx context.Context) (string, error)
}

// SubscriberCounter reports connected visualization clients.
type SubscriberCounter interface {
	Len() int
}

// HealthCheck probes one backing service for /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// ControlConfig holds the static paths, throttle settings and health probes.
type ControlConfig struct {
	StaticDir   string
	TemplateDir string
	RPS         float64
	Burst       int
	Checks      []HealthCheck
}

const healthTimeout = 2 * time.Second

// ControlHandler serves acquisition control, persistence, video upload and
// the dashboard page.
type ControlHandler struct {
	acq    Acquisition
	subs   SubscriberCounter
	videos domrepo.VideoStore
	index  domrepo.VideoIndex
	cfg    ControlConfig
	clock  func() time.Time
	logger *xlogger.Logger
}

func NewControlHandler(
	logger *xlogger.Logger,
	acq Acquisition,
	subs SubscriberCounter,
	videos domrepo.VideoStore,
	index domrepo.VideoIndex,
	cfg ControlConfig,
) *ControlHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &ControlHandler{
		acq:    acq,
		subs:   subs,
		videos: videos,
		index:  index,
		cfg:    cfg,
		clock:  time.Now,
		logger: logger,
	}
}

func (h *ControlHandler) RegisterRoutes(e *echo.Echo) {
	// Each route gets its own bucket so uploads cannot starve /stop.
	throttle := func() echo.MiddlewareFunc { return middleware.Throttle(h.cfg.RPS, h.cfg.Burst) }

	e.POST("/start", h.Start, throttle())
	e.POST("/stop", h.Stop, throttle())
	e.POST("/save", h.Save, throttle())
	e.POST("/upload_video", h.UploadVideo, throttle())
	e.GET("/status", h.Status)
	e.GET("/healthz", h.Health)
	e.GET("/videos/:filename", h.Video)
	e.GET("/", h.Index)
	if h.cfg.StaticDir != "" {
		e.Static("/static", h.cfg.StaticDir)
	}
}

func (h *ControlHandler) Start(c echo.Context) error {
	h.acq.Start()
	return c.JSON(http.StatusOK, models.ControlResponse{Status: "Acquisition started"})
}

func (h *ControlHandler) Stop(c echo.Context) error {
	h.acq.Stop()
	return c.JSON(http.StatusOK, models.ControlResponse{Status: "Acquisition stopped"})
}

func (h *ControlHandler) Save(c echo.Context) error {
	name, err := h.acq.Flush(c.Request().Context())
	if err != nil {
		h.logger.Error("save usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c,
			xhttp.InternalError("An error occurred while saving data.").WithError(err))
	}
	return c.JSON(http.StatusOK, models.ControlResponse{Status: "Data saved", Filename: name})
}

func (h *ControlHandler) Status(c echo.Context) error {
	state := models.StateStopped
	if h.acq.Active() {
		state = models.StateStarted
	}
	return c.JSON(http.StatusOK, models.StatusResponse{
		State:       state,
		Buffered:    h.acq.Len(),
		Subscribers: h.subs.Len(),
	})
}

// Health runs the configured probes and answers 503 naming the ones that failed.
func (h *ControlHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	failed := map[string]string{}
	for _, hc := range h.cfg.Checks {
		if err := hc.Check(ctx); err != nil {
			h.logger.Warn("health check failed", xlogger.String("check", hc.Name), xlogger.Error(err))
			failed[hc.Name] = err.Error()
		}
	}
	if len(failed) > 0 {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"status": "degraded", "failed": failed})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// UploadVideo stores the multipart "file" field as recorded_video_<unix>.<ext>.
// Only the extension of the client name is kept.
func (h *ControlHandler) UploadVideo(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.RequiredError("file").WithError(err))
	}

	now := h.clock()
	name := util.TimestampedName("recorded_video", now, util.Extension(fh.Filename, "bin"))

	stored, size, err := h.saveUpload(c.Request().Context(), name, fh)
	if err != nil {
		h.logger.Error("error saving video", xlogger.String("filename", name), xlogger.Error(err))
		return xhttp.AppErrorResponse(c,
			xhttp.InternalError("An error occurred while saving the video.").WithError(err))
	}

	meta := models.VideoMeta{
		Filename:    stored,
		Original:    filepath.Base(fh.Filename),
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        size,
		UploadedAt:  now.UTC(),
	}
	if err := h.index.Put(c.Request().Context(), meta); err != nil {
		h.logger.Warn("video index put failed", xlogger.String("filename", stored), xlogger.Error(err))
	}

	h.logger.Info("video saved", xlogger.String("filename", stored), xlogger.Int64("bytes", size))
	return c.JSON(http.StatusOK, models.ControlResponse{Status: "Video uploaded", Filename: stored})
}

func (h *ControlHandler) saveUpload(ctx context.Context, name string, fh *multipart.FileHeader) (string, int64, error) {
	src, err := fh.Open()
	if err != nil {
		return "", 0, err
	}
	defer src.Close()
	return h.videos.Save(ctx, name, src)
}

// Video serves a stored upload. The indexed content type is used when known.
func (h *ControlHandler) Video(c echo.Context) error {
	req := &models.VideoRequest{}
	if verrs := xhttp.ReadAndValidateRequest(c, req); len(verrs) > 0 {
		return xhttp.BadRequestResponse(c, verrs)
	}

	path, err := h.videos.Path(req.Filename)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrVideoNotFound), errors.Is(err, models.ErrInvalidName):
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("Video not found").WithParam("filename", req.Filename))
		default:
			h.logger.Error("video lookup error", xlogger.String("filename", req.Filename), xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.InternalError("video lookup failed").WithError(err))
		}
	}

	if meta, err := h.index.Get(c.Request().Context(), req.Filename); err == nil && meta.ContentType != "" {
		c.Response().Header().Set(echo.HeaderContentType, meta.ContentType)
	}
	return c.File(path)
}

func (h *ControlHandler) Index(c echo.Context) error {
	return c.File(filepath.Join(h.cfg.TemplateDir, "index.html"))
}
