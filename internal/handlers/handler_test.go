package handlers

import (
	"bytes"
	"context"
	"image/color"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpet-studio/internal/album"
	"carpet-studio/internal/apperr"
	"carpet-studio/internal/gemini"
	"carpet-studio/internal/removal"
	"carpet-studio/internal/settings"
	"carpet-studio/internal/studio"
)

const (
	testChat  = int64(7)
	testOwner = int64(42)
)

type fakeMessenger struct {
	mu        sync.Mutex
	texts     []string
	docs      []string
	keyboards int
	edits     int
	answers   []string
	downloads []string
	photo     []byte
}

func (m *fakeMessenger) SendText(_ int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}

func (m *fakeMessenger) SendTextWithKeyboard(_ int64, text string, _ tgbotapi.InlineKeyboardMarkup) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	m.keyboards++
	return 100, nil
}

func (m *fakeMessenger) EditTextWithKeyboard(int64, int, string, tgbotapi.InlineKeyboardMarkup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits++
	return nil
}

func (m *fakeMessenger) AnswerCallback(_ string, text string, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, text)
	return nil
}

func (m *fakeMessenger) SendDocument(_ int64, name string, _ []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, name)
	return nil
}

func (m *fakeMessenger) SendTyping(int64) {}

func (m *fakeMessenger) DownloadFile(_ context.Context, fileID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads = append(m.downloads, fileID)
	return m.photo, nil
}

func (m *fakeMessenger) allText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.texts, "\n---\n")
}

type stubGenerator struct{ image []byte }

func (g stubGenerator) Generate(context.Context, gemini.ImageRequest) ([]byte, error) {
	return g.image, nil
}

type stubRemover struct {
	out []byte
	err error
}

func (r stubRemover) Remove(context.Context, []byte, chan<- removal.Progress) ([]byte, error) {
	return r.out, r.err
}

func (stubRemover) Model() string { return "isnet" }

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(w, h, c), imaging.PNG))
	return buf.Bytes()
}

func newHandler(t *testing.T, remErr error) (*Handler, *fakeMessenger, *studio.Service) {
	t.Helper()
	tg := &fakeMessenger{photo: pngBytes(t, 48, 48, color.NRGBA{R: 200, G: 40, B: 40, A: 255})}
	svc := studio.New(studio.Options{
		Generator: stubGenerator{image: pngBytes(t, 64, 64, color.NRGBA{R: 230, G: 220, B: 200, A: 255})},
		Remover:   stubRemover{out: pngBytes(t, 48, 48, color.NRGBA{R: 200, A: 255}), err: remErr},
	})
	return New(Options{Telegram: tg, Studio: svc}), tg, svc
}

func photoUpdate(caption string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:    &tgbotapi.Chat{ID: testChat},
		From:    &tgbotapi.User{ID: testOwner},
		Photo:   []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "big"}},
		Caption: caption,
	}}
}

func commandUpdate(text string) tgbotapi.Update {
	name, _, _ := strings.Cut(text, " ")
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: testChat},
		From:     &tgbotapi.User{ID: testOwner},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func callbackUpdate(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{MessageID: 100, Chat: &tgbotapi.Chat{ID: testChat}},
		Data:    data,
	}}
}

func TestPhotoProducesCutoutAndVariants(t *testing.T) {
	h, tg, svc := newHandler(t, nil)
	ctx := context.Background()

	require.NoError(t, h.HandleUpdate(ctx, photoUpdate("p2 9:16 1024")))

	assert.Equal(t, []string{"big"}, tg.downloads)
	assert.Equal(t, []string{studio.FileCutout, studio.FileVariantA, studio.FileVariantB}, tg.docs)
	assert.Contains(t, tg.allText(), "Generating variant A background")
	assert.Contains(t, tg.allText(), "Generating variant B background")

	snap, err := svc.Settings(ctx, SessionID(testChat))
	require.NoError(t, err)
	assert.Equal(t, "9:16", snap.AspectRatio)
	assert.Equal(t, 1024, snap.Resolution)
	assert.Equal(t, "beige", snap.CarpetColor)

	variant, err := svc.Output(ctx, SessionID(testChat), studio.FileVariantA)
	require.NoError(t, err)
	img, err := imaging.Decode(bytes.NewReader(variant))
	require.NoError(t, err)
	assert.Equal(t, 576, img.Bounds().Dx())
	assert.Equal(t, 1024, img.Bounds().Dy())
}

func TestRemovalFailureSuggestsManualMask(t *testing.T) {
	h, tg, _ := newHandler(t, apperr.ErrRemovalFailed)

	require.NoError(t, h.HandleUpdate(context.Background(), photoUpdate("")))

	assert.Empty(t, tg.docs)
	assert.Contains(t, tg.allText(), apperr.ErrRemovalFailed.Error())
	assert.Contains(t, tg.allText(), removalFallbackHint)
}

func TestSettingCommands(t *testing.T) {
	h, tg, svc := newHandler(t, nil)
	ctx := context.Background()

	require.NoError(t, h.HandleUpdate(ctx, commandUpdate("/ratio 16:9")))
	require.NoError(t, h.HandleUpdate(ctx, commandUpdate("/ornament add small vase")))
	require.NoError(t, h.HandleUpdate(ctx, commandUpdate("/watermark on")))
	require.NoError(t, h.HandleUpdate(ctx, commandUpdate("/color #abc123")))

	snap, err := svc.Settings(ctx, SessionID(testChat))
	require.NoError(t, err)
	assert.Equal(t, "16:9", snap.AspectRatio)
	assert.Equal(t, []string{"small vase"}, snap.Ornaments.Items())
	assert.True(t, snap.Watermark)
	assert.Equal(t, "custom", snap.CarpetColor)
	assert.Equal(t, "#abc123", snap.CarpetColorHex)
	assert.Contains(t, tg.allText(), "✅ Saved.")

	require.NoError(t, h.HandleUpdate(ctx, commandUpdate("/res big")))
	assert.Contains(t, tg.allText(), "Usage: /res 1536")

	require.NoError(t, h.HandleUpdate(ctx, commandUpdate("/ratio 2:1")))
	assert.Contains(t, tg.allText(), "❌ invalid scene settings")

	snap, err = svc.Settings(ctx, SessionID(testChat))
	require.NoError(t, err)
	assert.Equal(t, "16:9", snap.AspectRatio)
}

func TestRegenWithoutPhoto(t *testing.T) {
	h, tg, _ := newHandler(t, nil)

	require.NoError(t, h.HandleUpdate(context.Background(), commandUpdate("/regen")))
	assert.Contains(t, tg.allText(), "Send a product photo first.")
	assert.Empty(t, tg.docs)
}

func TestPromptCommandShowsBothVariants(t *testing.T) {
	h, tg, _ := newHandler(t, nil)

	require.NoError(t, h.HandleUpdate(context.Background(), commandUpdate("/prompt")))
	text := tg.allText()
	assert.Contains(t, text, "Variant: A")
	assert.Contains(t, text, "Variant: B")
}

func TestSettingsKeyboardCallbacks(t *testing.T) {
	h, tg, svc := newHandler(t, nil)
	ctx := context.Background()

	require.NoError(t, h.HandleUpdate(ctx, commandUpdate("/settings")))
	assert.Equal(t, 1, tg.keyboards)

	require.NoError(t, h.HandleUpdate(ctx, callbackUpdate(99, cb(testOwner, "ratio", "3:4"))))
	assert.Equal(t, []string{"This menu belongs to someone else."}, tg.answers)

	require.NoError(t, h.HandleUpdate(ctx, callbackUpdate(testOwner, cb(testOwner, "ratio", "3:4"))))
	require.NoError(t, h.HandleUpdate(ctx, callbackUpdate(testOwner, cb(testOwner, "wm"))))
	require.NoError(t, h.HandleUpdate(ctx, callbackUpdate(testOwner, cb(testOwner, "model", "1"))))
	assert.Equal(t, 3, tg.edits)

	snap, err := svc.Settings(ctx, SessionID(testChat))
	require.NoError(t, err)
	assert.Equal(t, "3:4", snap.AspectRatio)
	assert.True(t, snap.Watermark)
	assert.Equal(t, gemini.FlashModel, snap.Model)

	require.NoError(t, h.HandleUpdate(ctx, callbackUpdate(testOwner, cb(testOwner, "reset"))))
	snap, err = svc.Settings(ctx, SessionID(testChat))
	require.NoError(t, err)
	assert.Equal(t, settings.Defaults(), snap)
}

func TestAlbumPhotosAreCollected(t *testing.T) {
	h, tg, _ := newHandler(t, nil)
	collector := album.New(album.Options{Debounce: time.Hour})
	h.SetAlbumCollector(collector)

	up := photoUpdate("")
	up.Message.MediaGroupID = "g1"
	require.NoError(t, h.HandleUpdate(context.Background(), up))
	assert.Equal(t, 1, collector.Pending())
	assert.Empty(t, tg.downloads)

	h.HandleAlbum(context.Background(), album.Batch{ChatID: testChat, FileIDs: []string{"one", "two"}})
	assert.Equal(t, []string{"one", "two"}, tg.downloads)
	assert.Len(t, tg.docs, 6)
}

func TestParseCallback(t *testing.T) {
	c, ok := parseCallback(cb(5, "ratio", "9:16"))
	require.True(t, ok)
	assert.Equal(t, callback{ownerID: 5, action: "ratio", value: "9:16"}, c)

	c, ok = parseCallback(cb(5, "wm"))
	require.True(t, ok)
	assert.Equal(t, "", c.value)

	_, ok = parseCallback("pv:5:ratio")
	assert.False(t, ok)
	_, ok = parseCallback("cs:x:ratio")
	assert.False(t, ok)
}

func TestApplyCaption(t *testing.T) {
	snap, err := applyCaption(settings.Defaults(), "P3 please 1:1 2048 999")
	require.NoError(t, err)
	assert.Equal(t, "light grey", snap.CarpetColor)
	assert.Equal(t, "1:1", snap.AspectRatio)
	assert.Equal(t, 2048, snap.Resolution)
}

func TestMissingKeyIsReported(t *testing.T) {
	tg := &fakeMessenger{photo: pngBytes(t, 32, 32, color.NRGBA{R: 200, A: 255})}
	svc := studio.New(studio.Options{
		Remover: stubRemover{out: pngBytes(t, 32, 32, color.NRGBA{R: 200, A: 255})},
	})
	h := New(Options{Telegram: tg, Studio: svc})

	require.NoError(t, h.HandleUpdate(context.Background(), photoUpdate("")))
	assert.Contains(t, tg.allText(), authHint)
	assert.Empty(t, tg.docs)
}
