package bot

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuoteChat/entity"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hola", "hola"},
		{"juan.perez@example.com", `juan\.perez@example\.com`},
		{"+56 9 1234-5678", `\+56 9 1234\-5678`},
		{"(Valparaíso)", `\(Valparaíso\)`},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitize(tt.in), tt.in)
	}
}

func TestLeadText(t *testing.T) {
	thread := entity.NewThread(7, 3)
	thread.Fields = entity.CollectedFields{
		Name:        entity.Confirmed("Juan Perez"),
		Email:       entity.Confirmed("juan@example.com"),
		Phone:       entity.Confirmed("+56 9 1234 5678"),
		Region:      entity.Confirmed("Valparaíso, Viña del Mar"),
		Description: entity.Confirmed("Casa con consumo de 300 kWh al mes"),
	}

	text := leadText(thread, "Kit Solar 5kW")

	assert.Contains(t, text, "Producto: Kit Solar 5kW")
	assert.Contains(t, text, "Cliente: #7")
	assert.Contains(t, text, "Correo: juan@example.com")
	assert.Contains(t, text, "Hilo: "+thread.ID)
}

type statusRecorder struct {
	actor    *entity.Actor
	threadID string
	status   entity.ThreadStatus
}

func (s *statusRecorder) SetStatus(_ context.Context, actor *entity.Actor, threadID string, status entity.ThreadStatus) error {
	s.actor, s.threadID, s.status = actor, threadID, status
	return nil
}

func TestParseCallback(t *testing.T) {
	data := BuildCallback(entity.StatusApproved, "b3b1d6a2-1c1e-4d5b-9a57-0f4b8f1b2c3d")
	assert.LessOrEqual(t, len(data), 64)

	cb := ParseCallback(data)
	require.NotNil(t, cb)
	assert.Equal(t, entity.StatusApproved, cb.Status)
	assert.Equal(t, "b3b1d6a2-1c1e-4d5b-9a57-0f4b8f1b2c3d", cb.ThreadID)

	assert.Nil(t, ParseCallback("wf:yes"))
	assert.Nil(t, ParseCallback("st:archived:abc"))
	assert.Nil(t, ParseCallback("st:approved:"))
}

func TestStatusKeyboard(t *testing.T) {
	kb := StatusKeyboard("abc")
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 2)
	assert.Equal(t, "st:approved:abc", kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "st:rejected:abc", kb.InlineKeyboard[0][1].CallbackData)
}

func TestApplyStatus(t *testing.T) {
	rec := &statusRecorder{}
	tg := &TgBot{log: slog.Default(), staffChat: -100, botUsername: "QuoteChatBot"}

	_, err := tg.applyStatus(context.Background(), -100, "st:approved:abc")
	assert.Error(t, err, "buttons disabled")

	tg.SetStatusHandler(rec, 0)
	assert.Nil(t, tg.statuses, "no staff account, no buttons")

	tg.SetStatusHandler(rec, 100)
	_, err = tg.applyStatus(context.Background(), 555, "st:approved:abc")
	assert.Error(t, err, "foreign chat")

	reply, err := tg.applyStatus(context.Background(), -100, "st:rejected:abc")
	require.NoError(t, err)
	assert.Equal(t, "Cotización rechazada", reply)
	assert.Equal(t, "abc", rec.threadID)
	assert.Equal(t, entity.StatusRejected, rec.status)
	require.NotNil(t, rec.actor)
	assert.Equal(t, int64(100), rec.actor.ID)
	assert.True(t, rec.actor.IsStaff)
}
