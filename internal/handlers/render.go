package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"carpet-studio/internal/apperr"
	"carpet-studio/internal/gemini"
	"carpet-studio/internal/scene"
	"carpet-studio/internal/settings"
	"carpet-studio/internal/studio"
)

const (
	removalFallbackHint = "Try a photo with a plainer background, or paint the mask by hand in the web studio."
	authHint            = "The image API key is missing or was rejected. Ask the bot owner to check GEMINI_API_KEY."
)

func (h *Handler) processPhoto(ctx context.Context, chatID int64, fileID, caption string) error {
	id := SessionID(chatID)
	if err := h.studio.Ensure(ctx, id); err != nil {
		return err
	}

	if caption = strings.TrimSpace(caption); caption != "" {
		if _, err := h.studio.UpdateSettings(ctx, id, func(s settings.Snapshot) (settings.Snapshot, error) {
			return applyCaption(s, caption)
		}); err != nil {
			return h.replyError(chatID, err)
		}
	}

	h.tg.SendTyping(chatID)
	raw, err := h.tg.DownloadFile(ctx, fileID)
	if err != nil {
		h.logger.Error("photo download failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, "❌ Could not download the photo. Please send it again.")
	}

	if err := h.studio.LoadSource(ctx, id, raw); err != nil {
		return h.replyError(chatID, err)
	}

	_ = h.tg.SendText(chatID, "✂️ Removing background...")
	if err := h.studio.AutoRemove(ctx, id, nil); err != nil {
		return h.replyError(chatID, err)
	}

	return h.render(ctx, chatID, id)
}

// render generates both variants for the session's cutout and sends every
// output as a lossless document.
func (h *Handler) render(ctx context.Context, chatID int64, id string) error {
	events, stop := h.forwardProgress(chatID)
	err := h.studio.Generate(ctx, id, events)
	stop()
	if err != nil {
		return h.replyError(chatID, err)
	}
	return h.sendOutputs(ctx, chatID, id)
}

func (h *Handler) sendOutputs(ctx context.Context, chatID int64, id string) error {
	files, err := h.studio.Outputs(ctx, id)
	if err != nil {
		return h.replyError(chatID, err)
	}

	snap, _ := h.studio.Settings(ctx, id)
	captions := map[string]string{
		studio.FileCutout:   "Cutout",
		studio.FileVariantA: "Variant A · " + snap.AspectRatio + " · " + strconv.Itoa(snap.Resolution),
		studio.FileVariantB: "Variant B · " + snap.AspectRatio + " · " + strconv.Itoa(snap.Resolution),
	}

	h.tg.SendTyping(chatID)
	for _, f := range files {
		if err := h.tg.SendDocument(chatID, f.Name, f.Data, captions[f.Name]); err != nil {
			return err
		}
	}
	return nil
}

// forwardProgress relays the per-variant generation steps to the chat. The
// returned stop func must be called once the operation returns.
func (h *Handler) forwardProgress(chatID int64) (chan<- studio.Event, func()) {
	events := make(chan studio.Event, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if ev.Stage != studio.StageGenerate {
				continue
			}
			h.tg.SendTyping(chatID)
			_ = h.tg.SendText(chatID, "🎨 "+ev.Message)
		}
	}()
	return events, func() {
		close(events)
		<-done
	}
}

func (h *Handler) replyError(chatID int64, err error) error {
	text := "❌ " + apperr.Message(err)
	switch {
	case errors.Is(err, apperr.ErrRemovalFailed):
		text += "\n" + removalFallbackHint
	case gemini.IsAuthError(err):
		text += "\n" + authHint
	case errors.Is(err, apperr.ErrCutoutMissing), errors.Is(err, apperr.ErrInputMissing):
		text = "❌ Send a product photo first."
	case errors.Is(err, studio.ErrBadImage):
		text = "❌ That file is not an image I can read. Send a JPEG, PNG or WebP photo."
	}
	h.logger.Warn("bot request failed", "chat_id", chatID, "err", err)
	return h.tg.SendText(chatID, text)
}

// applyCaption reads a photo caption as quick settings: a preset key, an
// aspect ratio and a resolution, in any order. Other words are ignored.
func applyCaption(s settings.Snapshot, caption string) (settings.Snapshot, error) {
	for _, word := range strings.Fields(strings.ToLower(caption)) {
		switch {
		case isPreset(word):
			next, err := scene.ApplyPreset(s.Settings, word)
			if err != nil {
				return s, err
			}
			s.Settings = next
		case isAspect(word):
			s.AspectRatio = word
		default:
			if n, err := strconv.Atoi(word); err == nil && isResolution(n) {
				s.Resolution = n
			}
		}
	}
	return s, nil
}

func isPreset(key string) bool {
	for _, p := range scene.Presets() {
		if p.Key == key {
			return true
		}
	}
	return false
}

func isAspect(ratio string) bool {
	for _, r := range scene.AspectRatios() {
		if r == ratio {
			return true
		}
	}
	return false
}

func isResolution(n int) bool {
	for _, r := range scene.Resolutions() {
		if r == n {
			return true
		}
	}
	return false
}
