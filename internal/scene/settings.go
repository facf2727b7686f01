package scene

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrInvalid = errors.New("invalid scene settings")

// Settings is the full set of user-chosen scene attributes. Build values with
// New so the enumerations and ranges are checked once, up front.
type Settings struct {
	CarpetColor    string    `json:"carpetColor" validate:"choice=color"`
	CarpetColorHex string    `json:"carpetColorHex" validate:"omitempty,hexcolor"`
	CarpetType     string    `json:"carpetType" validate:"choice=material"`
	Ornaments      Ornaments `json:"ornaments" validate:"min=1,dive,required,max=80"`
	Mood           string    `json:"mood" validate:"choice=mood"`
	Light          string    `json:"light" validate:"choice=light"`
	LightIntensity int       `json:"lightIntensity" validate:"min=0,max=100"`
	CameraPos      string    `json:"cameraPos" validate:"choice=camera_position"`
	CameraType     string    `json:"cameraType" validate:"choice=camera_type"`
	CameraCustom   string    `json:"cameraCustom" validate:"max=120"`
	AspectRatio    string    `json:"ratio" validate:"choice=aspect"`
	Resolution     int       `json:"res" validate:"oneof=1024 1536 2048"`
	Stylization    int       `json:"stylize" validate:"min=0,max=100"`
	Watermark      bool      `json:"watermark"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("choice", func(fl validator.FieldLevel) bool {
		return IsChoice(fl.Param(), fl.Field().String())
	})
	return v
}

// New normalizes s and validates it. The custom hex and custom camera text are
// only kept when their selector is set to "custom".
func New(s Settings) (Settings, error) {
	s.CarpetColor = strings.TrimSpace(s.CarpetColor)
	s.CarpetType = strings.TrimSpace(s.CarpetType)
	s.Mood = strings.TrimSpace(s.Mood)
	s.Light = strings.TrimSpace(s.Light)
	s.CameraPos = strings.TrimSpace(s.CameraPos)
	s.CameraType = strings.TrimSpace(s.CameraType)
	s.AspectRatio = strings.TrimSpace(s.AspectRatio)

	s.CarpetColorHex = strings.TrimSpace(s.CarpetColorHex)
	if s.CarpetColor != ColorCustom {
		s.CarpetColorHex = ""
	} else if s.CarpetColorHex != "" && !strings.HasPrefix(s.CarpetColorHex, "#") {
		s.CarpetColorHex = "#" + s.CarpetColorHex
	}

	s.CameraCustom = strings.TrimSpace(s.CameraCustom)
	if s.CameraType != CameraCustom {
		s.CameraCustom = ""
	}

	s.Ornaments = s.Ornaments.normalize()

	if err := validate.Struct(s); err != nil {
		return Settings{}, fmt.Errorf("%w: %s", ErrInvalid, describe(err))
	}
	return s, nil
}

// Defaults mirrors the first-run state of the form.
func Defaults() Settings {
	return Settings{
		CarpetColor:    "cream",
		CarpetType:     "short pile fluffy carpet",
		Ornaments:      NoOrnaments(),
		Mood:           "clean studio",
		Light:          "window soft daylight",
		LightIntensity: 60,
		CameraPos:      "top-down 90 degrees, straight overhead, flat lay",
		CameraType:     "iPhone 15 Pro",
		AspectRatio:    "4:5",
		Resolution:     1536,
		Stylization:    30,
	}
}

// WithOrnaments returns a copy of s whose ornament set is produced by fn.
func (s Settings) WithOrnaments(fn func(Ornaments) Ornaments) Settings {
	s.Ornaments = fn(append(Ornaments(nil), s.Ornaments...))
	return s
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s fails %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s fails %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
