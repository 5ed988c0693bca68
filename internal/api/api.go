// Package api is the HTTP surface used by the browser extension and local
// tools: apply tasks, their status, the applicant profile, the tracked
// applications and the command channel websocket.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/peebo/peebo/internal/app/apply"
	"github.com/peebo/peebo/internal/app/list"
	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
)

// TaskService runs and tracks apply tasks. apply.Service satisfies it.
type TaskService interface {
	Apply(ctx context.Context, req apply.Request) (model.Task, error)
	Get(ctx context.Context, id string) (model.Task, error)
	Cancel(ctx context.Context, id string) (model.Task, error)
}

// ApplicationLister lists tracked applications. list.Service satisfies it.
type ApplicationLister interface {
	Run(ctx context.Context, req list.Request) ([]model.Application, error)
}

// HandlerConfig is the configuration for the API handler.
type HandlerConfig struct {
	Tasks        TaskService
	Applications ApplicationLister
	Applicant    model.Applicant
	// Channel serves /ws when set.
	Channel http.Handler
	// AllowedOrigins are extra CORS origins, chrome extensions are always allowed.
	AllowedOrigins []string
	TimeNow        func() time.Time
	Logger         log.Logger
}

func (c *HandlerConfig) defaults() error {
	if c.Tasks == nil {
		return fmt.Errorf("task service is required")
	}

	if c.Applications == nil {
		return fmt.Errorf("application lister is required")
	}

	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "api.Handler"})

	return nil
}

type handler struct {
	tasks     TaskService
	apps      ApplicationLister
	applicant model.Applicant
	timeNow   func() time.Time
	logger    log.Logger
}

// NewHandler returns the HTTP handler of the API.
func NewHandler(cfg HandlerConfig) (http.Handler, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	h := handler{
		tasks:     cfg.Tasks,
		apps:      cfg.Applications,
		applicant: cfg.Applicant,
		timeNow:   cfg.TimeNow,
		logger:    cfg.Logger,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), h.logRequests())
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	r.GET("/health", h.health)

	api := r.Group("/api")
	{
		api.POST("/apply", h.apply)
		api.GET("/status/:id", h.status)
		api.POST("/cancel/:id", h.cancel)
		api.GET("/applicant", h.getApplicant)
		api.GET("/applications", h.listApplications)
	}

	if cfg.Channel != nil {
		r.GET("/ws", gin.WrapH(cfg.Channel))
	}

	return r, nil
}

func corsConfig(extra []string) cors.Config {
	allowed := map[string]struct{}{}
	for _, o := range extra {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}

	cfg := cors.DefaultConfig()
	cfg.AllowOriginFunc = func(origin string) bool {
		if strings.HasPrefix(origin, "chrome-extension://") {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	return cfg
}

func (h handler) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.WithValues(log.Kv{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		}).Debugf("Request served in %s", time.Since(start))
	}
}

func (h handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": h.timeNow().UTC().Format(time.RFC3339),
	})
}

type applyRequest struct {
	JobURL     string `json:"job_url" binding:"required"`
	Company    string `json:"company"`
	Role       string `json:"role"`
	ResumeText string `json:"resume_text"`
}

func (h handler) apply(c *gin.Context) {
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request: " + err.Error()})
		return
	}

	task, err := h.tasks.Apply(c.Request.Context(), apply.Request{
		JobURL:     req.JobURL,
		Company:    req.Company,
		Role:       req.Role,
		ResumeText: req.ResumeText,
	})
	switch {
	case errors.Is(err, model.ErrAlreadyRunning):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   "another application is already running",
			"task":    task,
		})
		return
	case err != nil:
		h.fail(c, err)
		return
	}

	resp := gin.H{
		"success": task.Status != model.TaskStatusFailed,
		"task_id": task.ID,
		"status":  task.Status,
		"company": task.Company,
	}
	if task.Error != "" {
		resp["error"] = task.Error
	}
	c.JSON(http.StatusOK, resp)
}

func (h handler) status(c *gin.Context) {
	task, err := h.tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h handler) cancel(c *gin.Context) {
	task, err := h.tasks.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h handler) getApplicant(c *gin.Context) {
	a := h.applicant
	c.JSON(http.StatusOK, gin.H{
		"name":                  a.Name,
		"email":                 a.Email,
		"phone":                 a.Phone,
		"location":              a.Location,
		"linkedin":              a.LinkedIn,
		"has_resume":            a.ResumeText != "" || a.ResumePath != "",
		"authorized_to_work_us": a.AuthorizedToWorkUS,
		"requires_sponsorship":  a.RequiresSponsorship,
	})
}

func (h handler) listApplications(c *gin.Context) {
	req := list.Request{Company: c.Query("company")}
	if s := c.Query("status"); s != "" {
		st := model.ApplicationStatus(s)
		req.StatusFilter = &st
	}

	apps, err := h.apps.Run(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	if apps == nil {
		apps = []model.Application{}
	}
	c.JSON(http.StatusOK, apps)
}

// fail writes the error with the status code of its kind.
func (h handler) fail(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, model.ErrNotValid):
		code = http.StatusBadRequest
	case errors.Is(err, model.ErrAlreadyRunning):
		code = http.StatusConflict
	}
	if code == http.StatusInternalServerError {
		h.logger.Errorf("Request %s %s failed: %s", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(code, gin.H{"success": false, "error": err.Error()})
}
