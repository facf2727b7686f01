package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"carpet-studio/internal/scene"
	"carpet-studio/internal/settings"
)

const callbackPrefix = "cs"

// cb builds callback data "cs:<owner>:<action>[:<value>]". Values may contain
// colons, as aspect ratios do.
func cb(ownerID int64, action string, value ...string) string {
	data := fmt.Sprintf("%s:%d:%s", callbackPrefix, ownerID, action)
	if len(value) > 0 {
		data += ":" + value[0]
	}
	return data
}

type callback struct {
	ownerID int64
	action  string
	value   string
}

func parseCallback(data string) (callback, bool) {
	parts := strings.SplitN(strings.TrimSpace(data), ":", 4)
	if len(parts) < 3 || parts[0] != callbackPrefix {
		return callback{}, false
	}
	ownerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return callback{}, false
	}
	c := callback{ownerID: ownerID, action: parts[2]}
	if len(parts) == 4 {
		c.value = parts[3]
	}
	return c, true
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil || q.From == nil {
		return nil
	}
	c, ok := parseCallback(q.Data)
	if !ok {
		return nil
	}
	if c.ownerID != q.From.ID {
		_ = h.tg.AnswerCallback(q.ID, "This menu belongs to someone else.", true)
		return nil
	}

	chatID := q.Message.Chat.ID
	id := SessionID(chatID)
	if err := h.studio.Ensure(ctx, id); err != nil {
		return err
	}

	switch c.action {
	case "prompt":
		_ = h.tg.AnswerCallback(q.ID, "", false)
		a, b, err := h.studio.Prompts(ctx, id)
		if err != nil {
			return h.replyError(chatID, err)
		}
		return h.tg.SendText(chatID, "Variant A:\n"+a+"\n\nVariant B:\n"+b)
	case "regen":
		_ = h.tg.AnswerCallback(q.ID, "Generating…", false)
		return h.render(ctx, chatID, id)
	case "reset":
		snap, err := h.studio.ResetSettings(ctx, id)
		if err != nil {
			_ = h.tg.AnswerCallback(q.ID, err.Error(), true)
			return nil
		}
		_ = h.tg.AnswerCallback(q.ID, "Settings reset", false)
		return h.redraw(chatID, q.Message.MessageID, c.ownerID, snap)
	}

	snap, err := h.studio.UpdateSettings(ctx, id, func(s settings.Snapshot) (settings.Snapshot, error) {
		return applyCallback(s, c)
	})
	if err != nil {
		_ = h.tg.AnswerCallback(q.ID, err.Error(), true)
		return nil
	}
	_ = h.tg.AnswerCallback(q.ID, "Saved", false)
	return h.redraw(chatID, q.Message.MessageID, c.ownerID, snap)
}

func (h *Handler) redraw(chatID int64, messageID int, ownerID int64, snap settings.Snapshot) error {
	if err := h.tg.EditTextWithKeyboard(chatID, messageID, summary(snap), settingsKeyboard(ownerID, snap)); err != nil {
		// Telegram rejects edits that change nothing.
		h.logger.Debug("settings message edit failed", "chat_id", chatID, "err", err)
	}
	return nil
}

func applyCallback(s settings.Snapshot, c callback) (settings.Snapshot, error) {
	switch c.action {
	case "preset":
		next, err := scene.ApplyPreset(s.Settings, c.value)
		if err != nil {
			return s, err
		}
		s.Settings = next
	case "ratio":
		s.AspectRatio = c.value
	case "res":
		n, err := strconv.Atoi(c.value)
		if err != nil {
			return s, fmt.Errorf("%w: resolution %q", scene.ErrInvalid, c.value)
		}
		s.Resolution = n
	case "wm":
		s.Watermark = !s.Watermark
	case "model":
		models := scene.Models()
		i, err := strconv.Atoi(c.value)
		if err != nil || i < 0 || i >= len(models) {
			return s, fmt.Errorf("%w: model %q", scene.ErrInvalid, c.value)
		}
		s.Model = models[i].Key
	default:
		return s, fmt.Errorf("%w: unknown action %q", scene.ErrInvalid, c.action)
	}
	return s, nil
}

func settingsKeyboard(ownerID int64, s settings.Snapshot) tgbotapi.InlineKeyboardMarkup {
	rows := presetKeyboard(ownerID).InlineKeyboard
	rows = append(rows, ratioKeyboard(ownerID, s.AspectRatio).InlineKeyboard...)

	var resRow []tgbotapi.InlineKeyboardButton
	for _, r := range scene.Resolutions() {
		label := mark(strconv.Itoa(r), r == s.Resolution)
		resRow = append(resRow, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "res", strconv.Itoa(r))))
	}
	rows = append(rows, resRow)

	var modelRow []tgbotapi.InlineKeyboardButton
	for i, m := range scene.Models() {
		modelRow = append(modelRow, tgbotapi.NewInlineKeyboardButtonData(mark(m.Name, m.Key == s.Model), cb(ownerID, "model", strconv.Itoa(i))))
	}
	rows = append(rows, modelRow)

	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Watermark: "+onOff(s.Watermark), cb(ownerID, "wm")),
			tgbotapi.NewInlineKeyboardButtonData("📄 Prompt", cb(ownerID, "prompt")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎨 Regenerate", cb(ownerID, "regen")),
			tgbotapi.NewInlineKeyboardButtonData("Reset", cb(ownerID, "reset")),
		),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func presetKeyboard(ownerID int64) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range scene.Presets() {
		label := strings.ToUpper(p.Key) + " · " + p.Name
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "preset", p.Key)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func ratioKeyboard(ownerID int64, current string) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, r := range scene.AspectRatios() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(mark(r, r == current), cb(ownerID, "ratio", r)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func mark(label string, selected bool) string {
	if selected {
		return "✓ " + label
	}
	return label
}
