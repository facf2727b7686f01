package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpet-studio/internal/apperr"
	"carpet-studio/internal/scene"
	"carpet-studio/internal/session"
	"carpet-studio/internal/studio"
)

const manualMaskHint = "open the mask brush and paint the product instead"

type apiError struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

func statusFor(err error) int {
	var upstream *apperr.UpstreamError
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, studio.ErrUnknownOutput):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInputMissing),
		errors.Is(err, apperr.ErrMaskEmpty),
		errors.Is(err, apperr.ErrCutoutMissing),
		errors.Is(err, studio.ErrNoVariants):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrAuth):
		return http.StatusUnauthorized
	case errors.As(err, &upstream),
		errors.Is(err, apperr.ErrNoImageReturned),
		errors.Is(err, apperr.ErrRemovalFailed):
		return http.StatusBadGateway
	case errors.Is(err, scene.ErrInvalid), errors.Is(err, studio.ErrBadImage):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := apiError{Error: apperr.Message(err)}
	if errors.Is(err, apperr.ErrRemovalFailed) {
		body.Hint = manualMaskHint
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Request.URL.Path, "err", err)
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, apiError{Error: msg})
}
