package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"carpet-studio/internal/scene"
	"carpet-studio/internal/settings"
)

const helpText = "🧶 Carpet Studio\n\n" +
	"Send a product photo and I will cut it out, place it on a carpet scene and send back the cutout plus variants A and B as PNG files.\n" +
	"A caption such as \"p2 9:16 2048\" picks a preset, ratio and resolution for that photo. Albums are rendered photo by photo.\n\n" +
	"Commands:\n" +
	"/settings - current scene with quick buttons\n" +
	"/preset p1|p2|p3 - apply a preset\n" +
	"/ratio 1:1|4:5|3:4|9:16|16:9 - output aspect ratio\n" +
	"/res 1024|1536|2048 - long side in pixels\n" +
	"/stylize 0-100 - creative freedom\n" +
	"/light 0-100 - light intensity\n" +
	"/color <name or #hex> - carpet color\n" +
	"/ornament add <item> | remove <item> | none\n" +
	"/watermark on|off\n" +
	"/prompt - show the prompts for A and B\n" +
	"/regen - new variants from the last cutout\n" +
	"/files - send the last outputs again\n" +
	"/reset - back to the default scene"

var errUsage = errors.New("usage")

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	id := SessionID(chatID)
	if err := h.studio.Ensure(ctx, id); err != nil {
		return err
	}
	args := strings.TrimSpace(msg.CommandArguments())
	ownerID := int64(0)
	if msg.From != nil {
		ownerID = msg.From.ID
	}

	switch msg.Command() {
	case "start", "help":
		return h.tg.SendText(chatID, helpText)
	case "settings":
		return h.showSettings(ctx, chatID, ownerID)
	case "preset":
		if args == "" {
			_, err := h.tg.SendTextWithKeyboard(chatID, "Pick a preset:", presetKeyboard(ownerID))
			return err
		}
		return h.change(ctx, chatID, "/preset p1", func(s *settings.Snapshot) error {
			next, err := scene.ApplyPreset(s.Settings, strings.ToLower(args))
			s.Settings = next
			return err
		})
	case "ratio":
		if args == "" {
			_, err := h.tg.SendTextWithKeyboard(chatID, "Pick an aspect ratio:", ratioKeyboard(ownerID, ""))
			return err
		}
		return h.change(ctx, chatID, "/ratio 4:5", func(s *settings.Snapshot) error {
			s.AspectRatio = args
			return nil
		})
	case "res":
		return h.change(ctx, chatID, "/res 1536", func(s *settings.Snapshot) error {
			n, err := strconv.Atoi(args)
			s.Resolution = n
			return usage(err)
		})
	case "stylize":
		return h.change(ctx, chatID, "/stylize 30", func(s *settings.Snapshot) error {
			n, err := strconv.Atoi(args)
			s.Stylization = n
			return usage(err)
		})
	case "light":
		return h.change(ctx, chatID, "/light 60", func(s *settings.Snapshot) error {
			n, err := strconv.Atoi(args)
			s.LightIntensity = n
			return usage(err)
		})
	case "color":
		return h.change(ctx, chatID, "/color beige or /color #d8c3a5", func(s *settings.Snapshot) error {
			if args == "" {
				return errUsage
			}
			if strings.HasPrefix(args, "#") {
				s.CarpetColor = scene.ColorCustom
				s.CarpetColorHex = args
				return nil
			}
			s.CarpetColor = strings.ToLower(args)
			return nil
		})
	case "ornament":
		return h.change(ctx, chatID, "/ornament add small vase", func(s *settings.Snapshot) error {
			return applyOrnament(s, args)
		})
	case "watermark":
		return h.change(ctx, chatID, "/watermark on", func(s *settings.Snapshot) error {
			switch strings.ToLower(args) {
			case "on":
				s.Watermark = true
			case "off":
				s.Watermark = false
			default:
				return errUsage
			}
			return nil
		})
	case "reset":
		snap, err := h.studio.ResetSettings(ctx, id)
		if err != nil {
			return h.replyError(chatID, err)
		}
		return h.tg.SendText(chatID, "✅ Settings reset.\n\n"+summary(snap))
	case "prompt":
		a, b, err := h.studio.Prompts(ctx, id)
		if err != nil {
			return h.replyError(chatID, err)
		}
		return h.tg.SendText(chatID, "Variant A:\n"+a+"\n\nVariant B:\n"+b)
	case "regen":
		return h.render(ctx, chatID, id)
	case "files":
		return h.sendOutputs(ctx, chatID, id)
	default:
		return h.tg.SendText(chatID, "❌ Unknown command. Use /help.")
	}
}

// change applies fn to the chat's settings and reports the result. errUsage
// from fn turns into a usage hint built from example.
func (h *Handler) change(ctx context.Context, chatID int64, example string, fn func(*settings.Snapshot) error) error {
	snap, err := h.studio.UpdateSettings(ctx, SessionID(chatID), func(s settings.Snapshot) (settings.Snapshot, error) {
		err := fn(&s)
		return s, err
	})
	if errors.Is(err, errUsage) {
		return h.tg.SendText(chatID, "Usage: "+example)
	}
	if err != nil {
		return h.replyError(chatID, err)
	}
	return h.tg.SendText(chatID, "✅ Saved.\n\n"+summary(snap))
}

func (h *Handler) showSettings(ctx context.Context, chatID, ownerID int64) error {
	snap, err := h.studio.Settings(ctx, SessionID(chatID))
	if err != nil {
		return h.replyError(chatID, err)
	}
	_, err = h.tg.SendTextWithKeyboard(chatID, summary(snap), settingsKeyboard(ownerID, snap))
	return err
}

func applyOrnament(s *settings.Snapshot, args string) error {
	verb, item, _ := strings.Cut(args, " ")
	item = strings.TrimSpace(item)
	switch strings.ToLower(verb) {
	case "none":
		s.Settings = s.WithOrnaments(scene.Ornaments.SetNone)
	case "add":
		if item == "" {
			return errUsage
		}
		s.Settings = s.WithOrnaments(func(o scene.Ornaments) scene.Ornaments { return o.Add(item) })
	case "remove":
		if item == "" {
			return errUsage
		}
		s.Settings = s.WithOrnaments(func(o scene.Ornaments) scene.Ornaments { return o.Remove(item) })
	default:
		return errUsage
	}
	return nil
}

func usage(err error) error {
	if err != nil {
		return errUsage
	}
	return nil
}

func summary(s settings.Snapshot) string {
	color := s.CarpetColor
	if s.CarpetColorHex != "" {
		color = s.CarpetColorHex
	}
	camera := s.CameraType
	if s.CameraCustom != "" {
		camera = s.CameraCustom
	}
	return fmt.Sprintf(
		"Carpet: %s %s\nOrnaments: %s\nMood: %s\nLight: %s (%d%%)\nCamera: %s, %s\nOutput: %s · %d px · stylize %d · watermark %s\nModel: %s",
		color, s.CarpetType,
		strings.Join(s.Ornaments.Items(), ", "),
		s.Mood,
		s.Light, s.LightIntensity,
		s.CameraPos, camera,
		s.AspectRatio, s.Resolution, s.Stylization, onOff(s.Watermark),
		s.Model,
	)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
