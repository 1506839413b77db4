package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/rent-estimator/internal/domain/property"
	"github.com/yanqian/rent-estimator/internal/domain/rentform"
	apperrors "github.com/yanqian/rent-estimator/pkg/errors"
)

// Handler wires the HTTP transport to the estimator views.
type Handler struct {
	svc      rentform.Service
	settings PageSettings
	logger   *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(svc rentform.Service, settings PageSettings, logger *slog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		settings: settings,
		logger:   logger.With("component", "http.handler"),
	}
}

// Home mounts a fresh view and renders the page.
func (h *Handler) Home(c *gin.Context) {
	snap, err := h.svc.Mount(c.Request.Context())
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	h.renderPage(c, http.StatusOK, snap)
}

// ShowView re-renders an existing view. Unknown views start over.
func (h *Handler) ShowView(c *gin.Context) {
	snap, err := h.svc.View(c.Request.Context(), c.Param("id"))
	if err != nil {
		if apperrors.IsCode(err, rentform.CodeViewNotFound) {
			c.Redirect(http.StatusSeeOther, "/")
			return
		}
		abortWithError(c, fromDomainError(err))
		return
	}
	h.renderPage(c, http.StatusOK, snap)
}

// SubmitForm handles the browser form post: apply the fields, submit, render.
func (h *Handler) SubmitForm(c *gin.Context) {
	id := c.Param("id")
	if err := c.Request.ParseForm(); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	edit, err := property.ParseEdit(func(key string) (string, bool) {
		values, ok := c.Request.PostForm[key]
		if !ok || len(values) == 0 {
			return "", false
		}
		return values[0], true
	})
	if err != nil {
		h.renderInvalid(c, id, err)
		return
	}

	snap, err := h.svc.Estimate(c.Request.Context(), id, edit)
	switch {
	case err == nil:
		h.renderPage(c, http.StatusOK, snap)
	case apperrors.IsCode(err, rentform.CodeInvalidInput):
		snap.Notice = &rentform.Notice{Kind: rentform.NoticeInvalid, Message: apperrors.MessageOf(err)}
		h.renderPage(c, http.StatusUnprocessableEntity, snap)
	case apperrors.IsCode(err, rentform.CodeInFlight):
		h.renderPage(c, http.StatusConflict, snap)
	case apperrors.IsCode(err, rentform.CodeViewNotFound):
		c.Redirect(http.StatusSeeOther, "/")
	default:
		abortWithError(c, fromDomainError(err))
	}
}

// CloseView tears a view down; browsers call it through sendBeacon.
func (h *Handler) CloseView(c *gin.Context) {
	if err := h.svc.Close(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// GetView returns a JSON snapshot of a view.
func (h *Handler) GetView(c *gin.Context) {
	snap, err := h.svc.View(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, buildViewResponse(h.settings, snap))
}

// MountView creates a view through the JSON API.
func (h *Handler) MountView(c *gin.Context) {
	snap, err := h.svc.Mount(c.Request.Context())
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusCreated, buildViewResponse(h.settings, snap))
}

// Estimate applies a JSON edit and submits the view.
func (h *Handler) Estimate(c *gin.Context) {
	var edit property.Edit
	if err := c.ShouldBindJSON(&edit); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	snap, err := h.svc.Estimate(c.Request.Context(), c.Param("id"), edit)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, buildViewResponse(h.settings, snap))
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) renderInvalid(c *gin.Context, id string, cause error) {
	snap, err := h.svc.View(c.Request.Context(), id)
	if err != nil {
		if apperrors.IsCode(err, rentform.CodeViewNotFound) {
			c.Redirect(http.StatusSeeOther, "/")
			return
		}
		abortWithError(c, fromDomainError(err))
		return
	}
	snap.Notice = &rentform.Notice{Kind: rentform.NoticeInvalid, Message: apperrors.MessageOf(cause)}
	h.renderPage(c, http.StatusUnprocessableEntity, snap)
}

func (h *Handler) renderPage(c *gin.Context, status int, snap rentform.Snapshot) {
	c.Header("Cache-Control", "no-store")
	c.HTML(status, "page", buildPageView(h.settings, snap))
}
