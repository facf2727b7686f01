package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrInputMissing    = errors.New("no source image loaded")
	ErrMaskEmpty       = errors.New("no mask painted: open mask mode first")
	ErrCutoutMissing   = errors.New("no cutout yet: run auto removal or manual mask first")
	ErrAuth            = errors.New("gemini API key is not configured")
	ErrNoImageReturned = errors.New("gemini returned no image data")
	ErrRemovalFailed   = errors.New("background removal failed, use the manual mask brush instead")
)

// UpstreamError carries a non-2xx generative API response as-is so the body
// can be shown to the user.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gemini error %d: %s", e.Status, e.Body)
}

// Message renders err for end users. Removal failures keep the hint to switch
// to manual masking in front.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var upstream *UpstreamError
	switch {
	case errors.As(err, &upstream):
		return upstream.Error()
	case errors.Is(err, ErrRemovalFailed):
		return ErrRemovalFailed.Error()
	}
	return err.Error()
}
