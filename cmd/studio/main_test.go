package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(w, h, c), imaging.PNG))
	return buf.Bytes()
}

// writeConfig points settings and exports at a temp dir and Gemini at url.
func writeConfig(t *testing.T, geminiURL string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	yaml := fmt.Sprintf(`log_level: error
gemini:
  api_key: test-key
  base_url: %q
settings:
  backend: file
  dir: %q
export:
  dir: %q
`, geminiURL, filepath.Join(dir, "settings"), filepath.Join(dir, "exports"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path, dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := &cli{}
	root := c.root()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	require.NoError(t, c.close())
	return out.String(), err
}

func TestSettingsCommandsPersist(t *testing.T) {
	cfg, _ := writeConfig(t, "http://127.0.0.1:1")

	_, err := execute(t, "--config", cfg, "settings", "preset", "p2")
	require.NoError(t, err)
	_, err = execute(t, "--config", cfg, "settings", "set", "--ratio", "9:16", "--watermark", "--ornament", "glasses")
	require.NoError(t, err)

	out, err := execute(t, "--config", cfg, "settings", "show")
	require.NoError(t, err)

	var shown map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, "beige", shown["carpetColor"])
	assert.Equal(t, "9:16", shown["ratio"])
	assert.Equal(t, true, shown["watermark"])
	assert.Equal(t, []any{"glasses"}, shown["ornaments"])
	assert.Equal(t, "", shown["apiKey"])

	out, err = execute(t, "--config", cfg, "settings", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, `"ratio": "4:5"`)
}

func TestSettingsRejectInvalidValues(t *testing.T) {
	cfg, _ := writeConfig(t, "http://127.0.0.1:1")

	_, err := execute(t, "--config", cfg, "settings", "preset", "p9")
	assert.ErrorContains(t, err, "unknown preset")

	_, err = execute(t, "--config", cfg, "settings", "set", "--res", "999")
	assert.ErrorContains(t, err, "invalid scene settings")
}

func TestPromptVariant(t *testing.T) {
	cfg, _ := writeConfig(t, "http://127.0.0.1:1")

	out, err := execute(t, "--config", cfg, "prompt", "--variant", "b")
	require.NoError(t, err)
	assert.Contains(t, out, "Variant: B")
	assert.NotContains(t, out, "Variant: A")

	out, err = execute(t, "--config", cfg, "prompt")
	require.NoError(t, err)
	assert.Contains(t, out, "# Variant A")
	assert.Contains(t, out, "# Variant B")
}

func TestGenerateWithStrokes(t *testing.T) {
	bg := base64.StdEncoding.EncodeToString(pngBytes(t, 64, 64, color.NRGBA{R: 230, G: 220, B: 200, A: 255}))
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"))
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":%q}}]}}]}`, bg)
	}))
	defer srv.Close()

	cfg, dir := writeConfig(t, srv.URL)
	photo := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(photo, pngBytes(t, 200, 200, color.NRGBA{R: 200, G: 30, B: 30, A: 255}), 0o644))
	strokes := filepath.Join(dir, "strokes.json")
	require.NoError(t, os.WriteFile(strokes, []byte(`[{"points":[{"x":300,"y":512},{"x":700,"y":512}],"radius":120}]`), 0o644))
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, "--config", cfg, "generate", "--image", photo, "--strokes", strokes, "--out", outDir)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	for _, name := range []string{"cutout.png", "variant-a.png", "variant-b.png"} {
		assert.Contains(t, out, name)
		assert.FileExists(t, filepath.Join(outDir, name))
	}
}

func TestGenerateRequiresImage(t *testing.T) {
	cfg, _ := writeConfig(t, "http://127.0.0.1:1")

	_, err := execute(t, "--config", cfg, "generate")
	assert.ErrorContains(t, err, `required flag(s) "image" not set`)
}
