package handoff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"QuoteChat/entity"
)

func msg(role entity.AuthorRole, isBot bool) entity.Message {
	return entity.Message{AuthorRole: role, IsBot: isBot, Text: "hola"}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		messages []entity.Message
		want     bool
	}{
		{"empty log", nil, false},
		{"bot and customer only", []entity.Message{msg(entity.RoleBot, true), msg(entity.RoleCustomer, false)}, false},
		{"staff message", []entity.Message{msg(entity.RoleBot, true), msg(entity.RoleStaff, false)}, true},
		{"bot flagged staff message", []entity.Message{msg(entity.RoleStaff, true)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.messages))
		})
	}
}

func TestApply(t *testing.T) {
	log := []entity.Message{msg(entity.RoleCustomer, false), msg(entity.RoleStaff, false)}

	pending := entity.NewThread(7, 3)
	silenced, changed := Apply(pending, log)
	assert.True(t, silenced)
	assert.True(t, changed)
	assert.Equal(t, entity.StatusInProgress, pending.Status)
	assert.True(t, pending.HandedOff)

	// Already advanced: still silenced, no second transition.
	silenced, changed = Apply(pending, log)
	assert.True(t, silenced)
	assert.False(t, changed)

	// Staff moved it back by hand; the handoff does not override that.
	pending.Status = entity.StatusPending
	silenced, changed = Apply(pending, log)
	assert.True(t, silenced)
	assert.False(t, changed)
	assert.Equal(t, entity.StatusPending, pending.Status)

	approved := entity.NewThread(7, 4)
	approved.Status = entity.StatusApproved
	silenced, changed = Apply(approved, log)
	assert.True(t, silenced)
	assert.False(t, changed)
	assert.Equal(t, entity.StatusApproved, approved.Status)
	assert.True(t, approved.HandedOff)

	quiet := entity.NewThread(7, 5)
	silenced, changed = Apply(quiet, log[:1])
	assert.False(t, silenced)
	assert.False(t, changed)
	assert.Equal(t, entity.StatusPending, quiet.Status)
	assert.False(t, quiet.HandedOff)
}
