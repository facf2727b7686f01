package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"carpet-studio/internal/album"
	"carpet-studio/internal/studio"
	"carpet-studio/internal/telegram"
)

// Messenger is the slice of the Telegram client the bot talks through.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendTextWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (int, error)
	EditTextWithKeyboard(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(callbackID, text string, alert bool) error
	SendDocument(chatID int64, name string, data []byte, caption string) error
	SendTyping(chatID int64)
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

type Options struct {
	Telegram Messenger
	Studio   *studio.Service
	Logger   *slog.Logger
}

type Handler struct {
	tg     Messenger
	studio *studio.Service
	logger *slog.Logger
	albums *album.Collector
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Handler{
		tg:     opts.Telegram,
		studio: opts.Studio,
		logger: logger,
	}
}

func (h *Handler) SetAlbumCollector(c *album.Collector) {
	h.albums = c
}

// SessionID is the studio session a chat works in. Each chat keeps one
// session, so settings and the last photo survive between messages.
func SessionID(chatID int64) string {
	return fmt.Sprintf("tg:%d", chatID)
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, msg)
	}

	fileID := photoFileID(msg)
	if fileID == "" {
		if strings.TrimSpace(msg.Text) != "" {
			return h.tg.SendText(chatID, "Send me a product photo, or /help for the commands.")
		}
		return nil
	}

	if msg.MediaGroupID != "" && h.albums != nil {
		h.albums.Add(album.Item{
			ChatID:  chatID,
			AlbumID: msg.MediaGroupID,
			Caption: msg.Caption,
			FileID:  fileID,
		})
		return nil
	}

	return h.processPhoto(ctx, chatID, fileID, msg.Caption)
}

// HandleAlbum renders every photo of an album in turn with the chat's
// settings. A failed photo does not stop the rest.
func (h *Handler) HandleAlbum(ctx context.Context, batch album.Batch) {
	for i, fileID := range batch.FileIDs {
		caption := ""
		if i == 0 {
			caption = batch.Caption
		}
		if err := h.processPhoto(ctx, batch.ChatID, fileID, caption); err != nil {
			h.logger.Error("album photo failed", "chat_id", batch.ChatID, "index", i, "err", err)
		}
	}
}

// photoFileID picks the largest photo size, or an image sent as a file.
func photoFileID(msg *tgbotapi.Message) string {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return msg.Document.FileID
	}
	return ""
}
