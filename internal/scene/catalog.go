package scene

type NamedOption struct {
	Key  string
	Name string
}

const (
	ColorCustom  = "custom"
	CameraCustom = "custom"
	OrnamentNone = "none"
)

const (
	catalogColor          = "color"
	catalogMaterial       = "material"
	catalogMood           = "mood"
	catalogLight          = "light"
	catalogCameraPosition = "camera_position"
	catalogCameraType     = "camera_type"
	catalogAspect         = "aspect"
)

var catalogs = map[string][]string{
	catalogColor: {
		"cream",
		"beige",
		"light grey",
		"white",
		"soft pink",
		"sage green",
		"terracotta",
		"charcoal",
		ColorCustom,
	},
	catalogMaterial: {
		"short pile fluffy carpet",
		"light shaggy carpet",
		"smooth velvet carpet",
		"woven carpet",
		"boucle textured rug",
		"natural jute rug",
	},
	catalogMood: {
		"clean studio",
		"luxury calm",
		"cozy warm home",
		"scandinavian minimal",
		"playful pastel",
	},
	catalogLight: {
		"window soft daylight",
		"golden hour warm",
		"diffused studio softbox",
		"overcast cool daylight",
		"warm lamp evening",
	},
	catalogCameraPosition: {
		"top-down 90 degrees, straight overhead, flat lay",
		"45 degree angle, slightly elevated",
		"eye level, low angle close to carpet",
	},
	catalogCameraType: {
		"iPhone 15 Pro",
		"Sony A7IV with 50mm lens",
		"Canon R6 with 35mm lens",
		"Fujifilm X-T5 with 23mm lens",
		CameraCustom,
	},
	catalogAspect: {
		"1:1",
		"4:5",
		"3:4",
		"9:16",
		"16:9",
	},
}

var resolutions = []int{1024, 1536, 2048}

var ornamentOptions = []string{
	"small green potted plant",
	"minimal notebook",
	"slim laptop",
	"aesthetic magazine",
	"coffee mug",
	"small vase",
	"dried flowers",
	"aromatherapy candle",
	"glasses",
	OrnamentNone,
}

var models = []NamedOption{
	{Key: "gemini-3-pro-image-preview", Name: "Gemini 3 Pro Image (HD)"},
	{Key: "gemini-2.5-flash-image", Name: "Gemini 2.5 Flash Image"},
}

func CarpetColors() []string    { return choices(catalogColor) }
func CarpetMaterials() []string { return choices(catalogMaterial) }
func Moods() []string           { return choices(catalogMood) }
func Lights() []string          { return choices(catalogLight) }
func CameraPositions() []string { return choices(catalogCameraPosition) }
func CameraTypes() []string     { return choices(catalogCameraType) }
func AspectRatios() []string    { return choices(catalogAspect) }

func Resolutions() []int {
	return append([]int(nil), resolutions...)
}

func OrnamentOptions() []string {
	return append([]string(nil), ornamentOptions...)
}

func Models() []NamedOption {
	return append([]NamedOption(nil), models...)
}

// IsChoice reports whether value is one of the legal values of catalog.
func IsChoice(catalog, value string) bool {
	for _, v := range catalogs[catalog] {
		if v == value {
			return true
		}
	}
	return false
}

func choices(catalog string) []string {
	return append([]string(nil), catalogs[catalog]...)
}
