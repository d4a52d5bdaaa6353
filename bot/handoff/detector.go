// Package handoff decides when staff has taken over a thread. Detection is
// derived from the append-only message log, so once a thread is handed off it
// stays handed off.
package handoff

import "QuoteChat/entity"

// Detect reports whether any staff member has written in the thread.
func Detect(messages []entity.Message) bool {
	for _, msg := range messages {
		if msg.AuthorRole == entity.RoleStaff && !msg.IsBot {
			return true
		}
	}
	return false
}

// Apply silences the bot for a handed-off thread. The first time a handoff
// is observed it marks the thread and advances pending to in_progress; later
// calls leave the status to staff. It reports whether the status changed.
func Apply(thread *entity.Thread, messages []entity.Message) (silenced, statusChanged bool) {
	if !Detect(messages) {
		return false, false
	}
	if thread.HandedOff {
		return true, false
	}
	thread.HandedOff = true
	if thread.Status == entity.StatusPending {
		thread.Status = entity.StatusInProgress
		return true, true
	}
	return true, false
}
