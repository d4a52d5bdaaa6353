package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"

	"QuoteChat/entity"
	"QuoteChat/internal/lib/sl"
)

// StatusSetter is the relay operation behind the approve and reject buttons.
type StatusSetter interface {
	SetStatus(ctx context.Context, actor *entity.Actor, threadID string, status entity.ThreadStatus) error
}

// TgBot posts staff alerts to a Telegram chat.
type TgBot struct {
	log         *slog.Logger
	api         *tgbotapi.Bot
	botUsername string
	staffChat   int64
	statuses    StatusSetter
	staffUserID int64
}

func NewTgBot(botName, apiKey string, staffChat int64, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		log:         log.With(sl.Module("tgbot")),
		staffChat:   staffChat,
		botUsername: botName,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

// SetStatusHandler enables approve and reject buttons on lead notifications.
// Button presses act as the staff account staffUserID.
func (t *TgBot) SetStatusHandler(statuses StatusSetter, staffUserID int64) {
	if staffUserID <= 0 {
		return
	}
	t.statuses = statuses
	t.staffUserID = staffUserID
}

// Start polls for updates. /start and /chatid reply with the chat id, which is
// what staff_chat must be set to; status buttons are handled when enabled.
func (t *TgBot) Start() error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Warn("handling update", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	updater := ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("start", t.handleChatID))
	dispatcher.AddHandler(handlers.NewCommand("chatid", t.handleChatID))
	dispatcher.AddHandler(handlers.NewCallback(t.statusCallbackFilter, t.handleStatusCallback))

	err := updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	t.log.Info("telegram bot started", slog.String("username", t.botUsername))
	updater.Idle()
	return nil
}

func (t *TgBot) handleChatID(bot *tgbotapi.Bot, ctx *ext.Context) error {
	_, err := ctx.EffectiveMessage.Reply(bot, fmt.Sprintf("chat id: %d", ctx.EffectiveChat.Id), nil)
	return err
}

func (t *TgBot) statusCallbackFilter(cq *tgbotapi.CallbackQuery) bool {
	return IsStatusCallback(cq.Data)
}

func (t *TgBot) handleStatusCallback(bot *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	reply, err := t.applyStatus(context.Background(), ctx.EffectiveChat.Id, cq.Data)
	if err != nil {
		t.log.With(
			slog.String("data", cq.Data),
			slog.Int64("from", cq.From.Id),
		).Warn("status callback", sl.Err(err))
		reply = "No se pudo actualizar: " + err.Error()
	} else if ctx.EffectiveMessage != nil {
		// drop the buttons once the decision is recorded
		_, _, _ = ctx.EffectiveMessage.EditReplyMarkup(bot, &tgbotapi.EditMessageReplyMarkupOpts{})
	}
	_, err = cq.Answer(bot, &tgbotapi.AnswerCallbackQueryOpts{Text: reply})
	return err
}

// applyStatus validates a button press from chatID and sets the status.
func (t *TgBot) applyStatus(ctx context.Context, chatID int64, data string) (string, error) {
	if t.statuses == nil {
		return "", fmt.Errorf("status buttons are disabled")
	}
	if chatID != t.staffChat {
		return "", fmt.Errorf("chat %d is not the staff chat", chatID)
	}
	cb := ParseCallback(data)
	if cb == nil {
		return "", fmt.Errorf("invalid callback data")
	}

	actor := &entity.Actor{ID: t.staffUserID, Username: t.botUsername, IsStaff: true}
	if err := t.statuses.SetStatus(ctx, actor, cb.ThreadID, cb.Status); err != nil {
		return "", err
	}
	return fmt.Sprintf("Cotización %s", statusLabel(cb.Status)), nil
}

// NotifyLeadReady tells staff that a thread has all quote data.
func (t *TgBot) NotifyLeadReady(_ context.Context, thread *entity.Thread, productName string) error {
	if t.staffChat == 0 {
		return fmt.Errorf("staff chat not configured")
	}
	var markup tgbotapi.ReplyMarkup
	if t.statuses != nil {
		markup = StatusKeyboard(thread.ID)
	}
	return t.send(t.staffChat, leadText(thread, productName), markup)
}

// SendMessage posts a plain alert to the staff chat; used by the log handler.
func (t *TgBot) SendMessage(msg string) {
	if t.staffChat == 0 {
		return
	}
	if err := t.send(t.staffChat, msg, nil); err != nil {
		t.log.With(
			slog.Int64("id", t.staffChat),
		).Debug("sending alert", sl.Err(err))
	}
}

func leadText(thread *entity.Thread, productName string) string {
	var b strings.Builder
	b.WriteString("🟢 Nueva cotización lista\n\n")
	fmt.Fprintf(&b, "Producto: %s\n", productName)
	fmt.Fprintf(&b, "Cliente: #%d\n", thread.CustomerID)
	f := thread.Fields
	fmt.Fprintf(&b, "Nombre: %s\n", f.Name.Value)
	fmt.Fprintf(&b, "Correo: %s\n", f.Email.Value)
	fmt.Fprintf(&b, "Teléfono: %s\n", f.Phone.Value)
	fmt.Fprintf(&b, "Región: %s\n", f.Region.Value)
	fmt.Fprintf(&b, "Proyecto: %s\n\n", f.Description.Value)
	fmt.Fprintf(&b, "Hilo: %s", thread.ID)
	return b.String()
}

// send tries MarkdownV2 first and falls back to plain text.
func (t *TgBot) send(chatId int64, text string, markup tgbotapi.ReplyMarkup) error {
	sanitized := sanitize(text)
	if sanitized == "" {
		t.log.With(
			slog.Int64("id", chatId),
		).Debug("empty message")
		return nil
	}

	_, err := t.api.SendMessage(chatId, sanitized, &tgbotapi.SendMessageOpts{
		ParseMode:   "MarkdownV2",
		ReplyMarkup: markup,
	})
	if err == nil {
		return nil
	}
	t.log.With(
		slog.Int64("id", chatId),
	).Warn("sending message", sl.Err(err))

	if _, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{ReplyMarkup: markup}); err != nil {
		return fmt.Errorf("sending plain message: %w", err)
	}
	return nil
}

// sanitize escapes the characters MarkdownV2 reserves.
func sanitize(input string) string {
	const reservedChars = "\\`_*{}[]()#+-=.!|~>"

	var b strings.Builder
	b.Grow(len(input))
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			b.WriteRune('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
