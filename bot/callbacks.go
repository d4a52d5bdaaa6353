package bot

import (
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"QuoteChat/entity"
)

// CallbackPrefix marks status buttons on lead notifications.
// Format: "st:<status>:<thread id>", well under Telegram's 64 byte limit.
const CallbackPrefix = "st:"

// CallbackData is a parsed status button press.
type CallbackData struct {
	Status   entity.ThreadStatus
	ThreadID string
}

// ParseCallback returns nil for data that is not a valid status button.
func ParseCallback(data string) *CallbackData {
	if !IsStatusCallback(data) {
		return nil
	}
	status, threadID, ok := strings.Cut(strings.TrimPrefix(data, CallbackPrefix), ":")
	if !ok || threadID == "" {
		return nil
	}
	cb := &CallbackData{
		Status:   entity.ThreadStatus(status),
		ThreadID: threadID,
	}
	if !cb.Status.Valid() {
		return nil
	}
	return cb
}

func IsStatusCallback(data string) bool {
	return strings.HasPrefix(data, CallbackPrefix)
}

func BuildCallback(status entity.ThreadStatus, threadID string) string {
	return CallbackPrefix + string(status) + ":" + threadID
}

// StatusKeyboard offers approve and reject for a thread.
func StatusKeyboard(threadID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			{
				{Text: "✅ Aprobar", CallbackData: BuildCallback(entity.StatusApproved, threadID)},
				{Text: "❌ Rechazar", CallbackData: BuildCallback(entity.StatusRejected, threadID)},
			},
		},
	}
}

func statusLabel(status entity.ThreadStatus) string {
	switch status {
	case entity.StatusApproved:
		return "aprobada"
	case entity.StatusRejected:
		return "rechazada"
	case entity.StatusInProgress:
		return "en curso"
	}
	return "pendiente"
}
