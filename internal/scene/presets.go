package scene

import "fmt"

type preset struct {
	Name           string
	CarpetColor    string
	CarpetType     string
	Ornaments      Ornaments
	Mood           string
	Light          string
	LightIntensity int
	CameraPos      string
	CameraType     string
}

var presets = map[string]preset{
	"p1": {
		Name:           "Cream flat lay",
		CarpetColor:    "cream",
		CarpetType:     "light shaggy carpet",
		Ornaments:      Ornaments{"small green potted plant"},
		Mood:           "clean studio",
		Light:          "window soft daylight",
		LightIntensity: 65,
		CameraPos:      "top-down 90 degrees, straight overhead, flat lay",
		CameraType:     "iPhone 15 Pro",
	},
	"p2": {
		Name:           "Beige velvet golden hour",
		CarpetColor:    "beige",
		CarpetType:     "smooth velvet carpet",
		Ornaments:      Ornaments{"aesthetic magazine"},
		Mood:           "luxury calm",
		Light:          "golden hour warm",
		LightIntensity: 70,
		CameraPos:      "45 degree angle, slightly elevated",
		CameraType:     "Sony A7IV with 50mm lens",
	},
	"p3": {
		Name:           "Grey woven softbox",
		CarpetColor:    "light grey",
		CarpetType:     "woven carpet",
		Ornaments:      NoOrnaments(),
		Mood:           "clean studio",
		Light:          "diffused studio softbox",
		LightIntensity: 60,
		CameraPos:      "top-down 90 degrees, straight overhead, flat lay",
		CameraType:     "Canon R6 with 35mm lens",
	},
}

func Presets() []NamedOption {
	out := make([]NamedOption, 0, len(presets))
	for _, key := range []string{"p1", "p2", "p3"} {
		out = append(out, NamedOption{Key: key, Name: presets[key].Name})
	}
	return out
}

// ApplyPreset overwrites the scene attributes of s with the named preset.
// Output ratio, resolution, stylization and watermark are left as they are.
func ApplyPreset(s Settings, name string) (Settings, error) {
	p, ok := presets[name]
	if !ok {
		return Settings{}, fmt.Errorf("%w: unknown preset %q", ErrInvalid, name)
	}
	s.CarpetColor = p.CarpetColor
	s.CarpetColorHex = ""
	s.CarpetType = p.CarpetType
	s.Ornaments = append(Ornaments(nil), p.Ornaments...)
	s.Mood = p.Mood
	s.Light = p.Light
	s.LightIntensity = p.LightIntensity
	s.CameraPos = p.CameraPos
	s.CameraType = p.CameraType
	s.CameraCustom = ""
	return New(s)
}
