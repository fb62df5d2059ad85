package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/captcha/captcha"
	"github.com/cppla/captcha/middleware"
	"github.com/cppla/captcha/utils"
)

// CaptchaController exposes captcha sessions over HTTP.
type CaptchaController struct {
	registry *utils.SessionRegistry
}

// NewCaptchaController creates a controller backed by registry.
func NewCaptchaController(registry *utils.SessionRegistry) *CaptchaController {
	return &CaptchaController{registry: registry}
}

type captchaPayload struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	Image     string `json:"image,omitempty"`
	ExpiresIn int    `json:"expires_in"`
}

func (c *CaptchaController) payload(id string, s *captcha.Session) (captchaPayload, error) {
	uri, err := s.Render()
	if err != nil {
		return captchaPayload{}, err
	}
	return captchaPayload{
		ID:        id,
		State:     s.State().String(),
		Image:     uri,
		ExpiresIn: int(c.registry.SessionTTL().Seconds()),
	}, nil
}

// Create starts a session with a fresh answer and returns its image.
func (c *CaptchaController) Create(ctx *gin.Context) {
	id, err := c.registry.Create()
	if err != nil {
		utils.Sugar.Errorf("create captcha session: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to create captcha")
		return
	}
	var out captchaPayload
	err = c.registry.With(id, func(s *captcha.Session) error {
		s.Refresh()
		var err error
		out, err = c.payload(id, s)
		return err
	})
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ctx.Set(middleware.IssueEventKey, middleware.EventCreated)
	utils.Success(ctx, out)
}

// Get returns the current image of a session without regenerating it.
func (c *CaptchaController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	var out captchaPayload
	err := c.registry.With(id, func(s *captcha.Session) error {
		var err error
		out, err = c.payload(id, s)
		return err
	})
	if err != nil {
		c.fail(ctx, err)
		return
	}
	utils.Success(ctx, out)
}

// Image writes the encoded image bytes with their content type.
func (c *CaptchaController) Image(ctx *gin.Context) {
	var img *captcha.Image
	err := c.registry.With(ctx.Param("id"), func(s *captcha.Session) error {
		var err error
		img, err = s.RenderImage()
		return err
	})
	if err != nil {
		c.fail(ctx, err)
		return
	}
	if img == nil {
		utils.Error(ctx, http.StatusNotFound, 40402, "captcha has no answer")
		return
	}
	ctx.Header("Cache-Control", "no-store")
	ctx.Data(http.StatusOK, img.ContentType, img.Data)
}

// Refresh regenerates a session with a new answer.
func (c *CaptchaController) Refresh(ctx *gin.Context) {
	id := ctx.Param("id")
	var out captchaPayload
	err := c.registry.With(id, func(s *captcha.Session) error {
		s.Refresh()
		var err error
		out, err = c.payload(id, s)
		return err
	})
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ctx.Set(middleware.IssueEventKey, middleware.EventRefreshed)
	utils.Success(ctx, out)
}

// SetAnswer assigns an explicit answer; an empty answer clears the session.
// It is mounted behind AdminRequired only.
func (c *CaptchaController) SetAnswer(ctx *gin.Context) {
	var req struct {
		Answer *string `json:"answer" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40061, "invalid request")
		return
	}
	id := ctx.Param("id")
	var out captchaPayload
	err := c.registry.With(id, func(s *captcha.Session) error {
		if err := s.SetAnswer(*req.Answer); err != nil {
			return err
		}
		var err error
		out, err = c.payload(id, s)
		return err
	})
	if err != nil {
		c.fail(ctx, err)
		return
	}
	if *req.Answer == "" {
		c.registry.Forget(ctx.Request.Context(), id)
	}
	ctx.Set(middleware.IssueEventKey, middleware.EventAssigned)
	utils.Success(ctx, out)
}

// Verify checks a submitted answer. Every attempt consumes the stored answer;
// on a miss the session is refreshed and the new image returned.
func (c *CaptchaController) Verify(ctx *gin.Context) {
	var req struct {
		ID     string `json:"captcha_id"`
		Answer string `json:"captcha_answer"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40061, "invalid request")
		return
	}
	id := strings.TrimSpace(req.ID)
	ok, err := c.registry.Store().Verify(ctx.Request.Context(), id, strings.TrimSpace(req.Answer), true)
	if err != nil {
		utils.Sugar.Errorf("verify captcha id=%s: %v", id, err)
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to verify captcha")
		return
	}
	if ok {
		c.registry.Delete(ctx.Request.Context(), id)
		ctx.Set(middleware.IssueEventKey, middleware.EventVerified)
		utils.Success(ctx, gin.H{"ok": true})
		return
	}

	ctx.Set(middleware.IssueEventKey, middleware.EventFailed)
	var out captchaPayload
	err = c.registry.With(id, func(s *captcha.Session) error {
		s.Refresh()
		var err error
		out, err = c.payload(id, s)
		return err
	})
	if err != nil && !errors.Is(err, utils.ErrSessionNotFound) {
		c.fail(ctx, err)
		return
	}
	var data any
	if err == nil {
		data = out
	}
	utils.Respond(ctx, http.StatusBadRequest, 40062, "captcha mismatch", data)
}

func (c *CaptchaController) fail(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrSessionNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, "captcha session not found")
	case errors.Is(err, captcha.ErrAnswerLength):
		utils.Error(ctx, http.StatusBadRequest, 40063, err.Error())
	default:
		utils.Sugar.Errorf("render captcha: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to render captcha")
	}
}
