package prompt

import (
	"strings"

	"carpet-studio/internal/scene"
)

const (
	LabelA = "A"
	LabelB = "B"
)

var negatives = []string{
	"product",
	"logo",
	"text",
	"watermark overlay graphics",
	"weird objects",
	"extra limbs",
	"blur",
	"distortion",
}

// StylizationLevel buckets the 0-100 stylization slider.
func StylizationLevel(v int) string {
	switch {
	case v <= 10:
		return "very low"
	case v <= 30:
		return "low"
	case v <= 60:
		return "medium"
	default:
		return "high"
	}
}

// LightLevel buckets the 0-100 light intensity slider.
func LightLevel(v int) string {
	switch {
	case v <= 25:
		return "subtle"
	case v <= 55:
		return "balanced"
	case v <= 80:
		return "bright"
	default:
		return "very bright"
	}
}

func ColorPhrase(s scene.Settings) string {
	if s.CarpetColor != scene.ColorCustom {
		return s.CarpetColor
	}
	if hex := strings.TrimSpace(s.CarpetColorHex); hex != "" {
		return "custom carpet color (" + hex + ")"
	}
	return "custom carpet color"
}

func OrnamentPhrase(o scene.Ornaments) string {
	if o.IsNone() {
		return "no ornaments, no extra props"
	}
	return strings.Join(o.Items(), ", ")
}

func CameraPhrase(s scene.Settings) string {
	if s.CameraType != scene.CameraCustom {
		return s.CameraType
	}
	if custom := strings.TrimSpace(s.CameraCustom); custom != "" {
		return custom
	}
	return "custom camera"
}

// Build renders the background-only scene prompt for one variant. The output
// depends only on s and label; A and B prompts differ in the label token alone.
func Build(s scene.Settings, label string) string {
	var b strings.Builder
	b.Grow(1024)

	b.WriteString("Generate a photorealistic product photography BACKGROUND ONLY (no product, no hands, no humans).\n")
	b.WriteString("Scene: an aesthetic " + ColorPhrase(s) + " " + s.CarpetType + " surface, " + s.Mood + " vibe.\n")
	b.WriteString("Props/ornaments: " + OrnamentPhrase(s.Ornaments) + ".\n")
	b.WriteString("Lighting: " + s.Light + ", " + LightLevel(s.LightIntensity) + " light intensity. Natural soft shadows on carpet fibers, realistic highlights.\n")
	b.WriteString("Camera: " + CameraPhrase(s) + ", " + s.CameraPos + ". Sharp focus, clean, realistic texture.\n")
	b.WriteString("Style constraints: ultra realistic, no AI artifacts, crisp details, clean composition, " + StylizationLevel(s.Stylization) + " stylization.\n")
	b.WriteString("Variant: " + label + " (slightly different prop arrangement and carpet pattern randomness, but same mood and color family).\n")
	b.WriteString("Negative: " + strings.Join(negatives, ", ") + ".")

	return b.String()
}

func BuildPair(s scene.Settings) (string, string) {
	return Build(s, LabelA), Build(s, LabelB)
}
