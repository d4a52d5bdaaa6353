package quote

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuoteChat/entity"
)

func newMachine() *Machine {
	return NewMachine(NewQuoteWorkflow())
}

func fullProfile() *entity.Profile {
	return &entity.Profile{
		CustomerID: 7,
		Username:   "jperez",
		Name:       "Juan Perez",
		Email:      "juan@example.com",
		Phone:      "+56 9 1234 5678",
	}
}

// feed runs the messages through the machine and returns the last decision.
func feed(t *testing.T, m *Machine, thread *entity.Thread, profile *entity.Profile, msgs ...string) Decision {
	t.Helper()
	var d Decision
	for _, msg := range msgs {
		d = m.Decide(thread, profile, msg)
		thread = d.Thread
	}
	return d
}

func TestDecide_FreshThreadWithoutProfile(t *testing.T) {
	m := newMachine()
	thread := entity.NewThread(7, 3)

	d := m.Decide(thread, nil, "Juan Perez")

	assert.Equal(t, entity.Confirmed("Juan Perez"), d.Thread.Fields.Name)
	assert.Equal(t, promptEmail, d.Reply)
	assert.True(t, thread.Fields.Name.IsUnset(), "input thread must not be modified")

	state, awaiting := m.State(d.Thread)
	assert.Equal(t, StateCollectingEmail, state)
	assert.False(t, awaiting)
}

func TestDecide_FreshThreadWithProfileGoesToManualEntry(t *testing.T) {
	m := newMachine()
	thread := entity.NewThread(7, 3)
	profile := &entity.Profile{CustomerID: 7, Name: "Juana Soto"}

	opening := m.Opening(thread, profile, "Juana", "Kit On-Grid 3 kW")
	require.True(t, thread.Fields.Name.IsAwaitingConfirmation())
	assert.Contains(t, opening, "Kit On-Grid 3 kW")
	assert.Contains(t, opening, "Juana Soto")

	d := m.Decide(thread, profile, "Juan Perez")
	assert.Equal(t, entity.AwaitingEntry(), d.Thread.Fields.Name)
	assert.Contains(t, d.Reply, promptName)

	d = m.Decide(d.Thread, profile, "Juan Perez")
	assert.Equal(t, entity.Confirmed("Juan Perez"), d.Thread.Fields.Name)
	assert.Equal(t, promptEmail, d.Reply)
}

func TestDecide_ConfirmationFlow(t *testing.T) {
	m := newMachine()
	thread := entity.NewThread(7, 3)
	profile := fullProfile()
	m.Opening(thread, profile, "Juan", "Kit Off-Grid 5 kW")

	d := m.Decide(thread, profile, "sí")
	assert.Equal(t, entity.Confirmed("Juan Perez"), d.Thread.Fields.Name)
	assert.Equal(t, entity.AwaitingConfirmation("juan@example.com"), d.Thread.Fields.Email)
	assert.Contains(t, d.Reply, "juan@example.com")

	state, awaiting := m.State(d.Thread)
	assert.Equal(t, StateCollectingEmail, state)
	assert.True(t, awaiting)

	// Declining never reuses the declining text as the value.
	d = m.Decide(d.Thread, profile, "no")
	assert.Equal(t, entity.AwaitingEntry(), d.Thread.Fields.Email)
	assert.Contains(t, d.Reply, promptEmail)

	d = m.Decide(d.Thread, profile, "otro@example.cl")
	assert.Equal(t, entity.Confirmed("otro@example.cl"), d.Thread.Fields.Email)
	assert.Equal(t, entity.AwaitingConfirmation("+56 9 1234 5678"), d.Thread.Fields.Phone)
}

func TestDecide_OtherTextAtConfirmationDeclines(t *testing.T) {
	m := newMachine()
	thread := entity.NewThread(7, 3)
	profile := fullProfile()
	m.Opening(thread, profile, "Juan", "Kit")

	d := m.Decide(thread, profile, "juan.perez@otro.cl")
	assert.Equal(t, entity.AwaitingEntry(), d.Thread.Fields.Name)
}

func TestDecide_EmailValidation(t *testing.T) {
	m := newMachine()
	thread := entity.NewThread(7, 3)
	d := feed(t, m, thread, nil, "Juan Perez")
	require.Equal(t, promptEmail, d.Reply)

	d = m.Decide(d.Thread, nil, "not-an-email")
	assert.True(t, d.Thread.Fields.Email.IsUnset())
	assert.Equal(t, invalidEmail, d.Reply)

	d = m.Decide(d.Thread, nil, "juan@example.com")
	assert.Equal(t, entity.Confirmed("juan@example.com"), d.Thread.Fields.Email)
	assert.Equal(t, promptPhone, d.Reply)
}

func TestDecide_Rejections(t *testing.T) {
	m := newMachine()
	long := strings.Repeat("a", 600)

	tests := []struct {
		name   string
		before []string
		input  string
		reply  string
	}{
		{"too long at name", nil, long, msgTooLong},
		{"too long at email", []string{"Juan Perez"}, long, msgTooLong},
		{"too long at description", []string{"Juan Perez", "juan@example.com", "+56912345678", "Maule, Talca"}, long, msgTooLong},
		{"too short", nil, "J", msgTooShort},
		{"name without surname", nil, "Juanito", invalidName},
		{"phone with few digits", []string{"Juan Perez", "juan@example.com"}, "1234", invalidPhone},
		{"short region", []string{"Juan Perez", "juan@example.com", "+56912345678"}, "RM", invalidRegion},
		{"short description", []string{"Juan Perez", "juan@example.com", "+56912345678", "Maule, Talca"}, "paneles", invalidDescription},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thread := entity.NewThread(7, 3)
			if len(tt.before) > 0 {
				thread = feed(t, m, thread, nil, tt.before...).Thread
			}

			d := m.Decide(thread, nil, tt.input)

			assert.Equal(t, thread.Fields, d.Thread.Fields, "fields must not change")
			assert.Equal(t, entity.StatusPending, d.Thread.Status)
			assert.True(t, strings.HasPrefix(d.Reply, tt.reply), d.Reply)
		})
	}
}

func TestDecide_TooLongAtConfirmationKeepsCandidate(t *testing.T) {
	m := newMachine()
	thread := entity.NewThread(7, 3)
	profile := fullProfile()
	m.Opening(thread, profile, "Juan", "Kit")

	d := m.Decide(thread, profile, strings.Repeat("x", 501))

	assert.Equal(t, entity.AwaitingConfirmation("Juan Perez"), d.Thread.Fields.Name)
	assert.Contains(t, d.Reply, "Juan Perez")
}

func TestDecide_CompletionSilencesBot(t *testing.T) {
	m := newMachine()
	thread := entity.NewThread(7, 3)

	d := feed(t, m, thread, nil,
		"Juan Perez",
		"juan@example.com",
		"+56 9 1234 5678",
		"Valparaíso, Viña del Mar",
		"Casa con consumo de 350 kWh al mes",
	)

	assert.True(t, d.Completed)
	assert.Equal(t, msgComplete, d.Reply)
	assert.Equal(t, entity.StatusInProgress, d.Thread.Status)
	assert.True(t, d.Thread.Fields.AllConfirmed())

	state, _ := m.State(d.Thread)
	assert.Equal(t, StateAwaitingStaff, state)

	after := m.Decide(d.Thread, nil, "¿Hola? ¿Alguien ahí?")
	assert.False(t, after.HasReply())
	assert.False(t, after.Completed)
	assert.Equal(t, d.Thread.Fields, after.Thread.Fields)
}

func TestDecide_NonPendingThreadIsSilent(t *testing.T) {
	m := newMachine()
	for _, status := range []entity.ThreadStatus{entity.StatusInProgress, entity.StatusApproved, entity.StatusRejected} {
		thread := entity.NewThread(7, 3)
		thread.Status = status

		d := m.Decide(thread, nil, "Juan Perez")

		assert.False(t, d.HasReply(), status)
		assert.True(t, d.Thread.Fields.Name.IsUnset(), status)
	}
}

func TestDecide_ConfirmedFieldsNeverOverwritten(t *testing.T) {
	m := newMachine()
	thread := entity.NewThread(7, 3)
	profile := &entity.Profile{Name: "Otro Nombre", Email: "otro@example.com"}

	// Name was typed by hand, so the profile name is never offered.
	d := feed(t, m, thread, profile, "Juan Perez", "sí")

	assert.Equal(t, entity.Confirmed("Juan Perez"), d.Thread.Fields.Name)
	assert.Equal(t, entity.Confirmed("otro@example.com"), d.Thread.Fields.Email)
}
