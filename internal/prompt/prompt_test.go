package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpet-studio/internal/scene"
)

func TestStylizationLevel(t *testing.T) {
	cases := map[int]string{
		0:   "very low",
		10:  "very low",
		11:  "low",
		30:  "low",
		31:  "medium",
		60:  "medium",
		61:  "high",
		100: "high",
	}
	for in, want := range cases {
		assert.Equal(t, want, StylizationLevel(in), "input %d", in)
	}
}

func TestLightLevel(t *testing.T) {
	cases := map[int]string{
		0:   "subtle",
		25:  "subtle",
		26:  "balanced",
		55:  "balanced",
		56:  "bright",
		80:  "bright",
		81:  "very bright",
		100: "very bright",
	}
	for in, want := range cases {
		assert.Equal(t, want, LightLevel(in), "input %d", in)
	}
}

func TestColorPhrase(t *testing.T) {
	s := scene.Defaults()
	assert.Equal(t, "cream", ColorPhrase(s))

	s.CarpetColor = scene.ColorCustom
	assert.Equal(t, "custom carpet color", ColorPhrase(s))

	s.CarpetColorHex = "#d8c3a5"
	assert.Equal(t, "custom carpet color (#d8c3a5)", ColorPhrase(s))
}

func TestOrnamentPhrase(t *testing.T) {
	assert.Equal(t, "no ornaments, no extra props", OrnamentPhrase(scene.NoOrnaments()))

	o := scene.NoOrnaments().Add("small vase").Add("coffee mug")
	assert.Equal(t, "small vase, coffee mug", OrnamentPhrase(o))
}

func TestCameraPhrase(t *testing.T) {
	s := scene.Defaults()
	assert.Equal(t, "iPhone 15 Pro", CameraPhrase(s))

	s.CameraType = scene.CameraCustom
	assert.Equal(t, "custom camera", CameraPhrase(s))

	s.CameraCustom = "Leica Q3"
	assert.Equal(t, "Leica Q3", CameraPhrase(s))
}

func TestBuildIsDeterministic(t *testing.T) {
	s := scene.Defaults()
	assert.Equal(t, Build(s, LabelA), Build(s, LabelA))
}

func TestBuildVariantsDifferOnlyInLabel(t *testing.T) {
	s, err := scene.New(scene.Settings{
		CarpetColor:    "beige",
		CarpetType:     "woven carpet",
		Ornaments:      scene.Ornaments{"dried flowers", "glasses"},
		Mood:           "luxury calm",
		Light:          "golden hour warm",
		LightIntensity: 90,
		CameraPos:      "45 degree angle, slightly elevated",
		CameraType:     "Sony A7IV with 50mm lens",
		AspectRatio:    "1:1",
		Resolution:     1024,
		Stylization:    45,
	})
	require.NoError(t, err)

	a, b := BuildPair(s)
	require.NotEqual(t, a, b)
	assert.Equal(t, a, strings.Replace(b, "Variant: B ", "Variant: A ", 1))
	assert.Equal(t, len(a), len(b))
}

func TestBuildRendersEveryAttribute(t *testing.T) {
	s := scene.Defaults()
	s.Ornaments = s.Ornaments.Add("coffee mug")
	s.LightIntensity = 90
	s.Stylization = 5

	p := Build(s, LabelA)
	for _, want := range []string{
		"BACKGROUND ONLY (no product, no hands, no humans)",
		"cream short pile fluffy carpet",
		"clean studio vibe",
		"Props/ornaments: coffee mug.",
		"window soft daylight, very bright light intensity",
		"iPhone 15 Pro, top-down 90 degrees",
		"very low stylization",
		"Variant: A ",
		"Negative: product, logo, text",
	} {
		assert.Contains(t, p, want)
	}
}
