package quote

import (
	"strings"

	"QuoteChat/entity"
)

// State is the dialogue position derived from a thread.
type State string

const (
	StateCollectingName        State = "collecting_name"
	StateCollectingEmail       State = "collecting_email"
	StateCollectingPhone       State = "collecting_phone"
	StateCollectingRegion      State = "collecting_region"
	StateCollectingDescription State = "collecting_description"
	StateAwaitingStaff         State = "awaiting_staff"
)

var collecting = map[entity.Field]State{
	entity.FieldName:        StateCollectingName,
	entity.FieldEmail:       StateCollectingEmail,
	entity.FieldPhone:       StateCollectingPhone,
	entity.FieldRegion:      StateCollectingRegion,
	entity.FieldDescription: StateCollectingDescription,
}

// Decision is the outcome of one customer message.
type Decision struct {
	// Thread is the updated copy; the input thread is never modified.
	Thread *entity.Thread
	// Reply is empty when the bot stays silent.
	Reply string
	// Completed is set on the turn that confirmed the last field.
	Completed bool
}

func (d Decision) HasReply() bool {
	return d.Reply != ""
}

// Machine decides the bot's next action. It holds no per-thread state and is
// safe for concurrent use.
type Machine struct {
	workflow Workflow
}

func NewMachine(workflow Workflow) *Machine {
	return &Machine{workflow: workflow}
}

// State derives the dialogue position of a thread. awaiting reports the
// confirmation sub-state of the current field.
func (m *Machine) State(thread *entity.Thread) (state State, awaiting bool) {
	step, ok := m.current(thread)
	if !ok || thread.Status != entity.StatusPending {
		return StateAwaitingStaff, false
	}
	return collecting[step.Field()], thread.Fields.Get(step.Field()).IsAwaitingConfirmation()
}

// Opening builds the seed message for a new thread and prepares the first
// field, possibly placing it in awaiting confirmation.
func (m *Machine) Opening(thread *entity.Thread, profile *entity.Profile, customerName, productName string) string {
	greeting := welcome(customerName, productName)
	step, ok := m.current(thread)
	if !ok {
		return greeting
	}
	return greeting + "\n\n" + m.enter(thread, step, profile)
}

// Decide processes one customer message against the thread state.
func (m *Machine) Decide(thread *entity.Thread, profile *entity.Profile, text string) Decision {
	next := thread.Clone()
	d := Decision{Thread: next}

	if next.Status != entity.StatusPending {
		return d
	}
	step, ok := m.current(next)
	if !ok {
		return d
	}

	field := step.Field()
	state := next.Fields.Get(field)
	text = strings.TrimSpace(text)

	if Length(text) > MaxMessageLength {
		d.Reply = msgTooLong + "\n\n" + m.question(step, state)
		return d
	}

	if state.IsAwaitingConfirmation() {
		if IsYes(text) {
			next.Fields.Set(field, entity.Confirmed(state.Value))
			return m.advance(d, profile)
		}
		// Any other answer declines the candidate; the value comes next turn.
		next.Fields.Set(field, entity.AwaitingEntry())
		d.Reply = msgDeclined + " " + step.Prompt()
		return d
	}

	if Length(text) < MinMessageLength {
		d.Reply = msgTooShort + " " + step.Prompt()
		return d
	}
	if !step.Validate(text) {
		d.Reply = step.Invalid()
		return d
	}

	next.Fields.Set(field, entity.Confirmed(text))
	return m.advance(d, profile)
}

// advance prompts the next unconfirmed field or completes the dialogue.
func (m *Machine) advance(d Decision, profile *entity.Profile) Decision {
	step, ok := m.current(d.Thread)
	if !ok {
		d.Thread.Status = entity.StatusInProgress
		d.Completed = true
		d.Reply = msgComplete
		return d
	}
	d.Reply = m.enter(d.Thread, step, profile)
	return d
}

// enter moves an unset field into awaiting confirmation when the profile has
// a plausible candidate and returns the question for the field.
func (m *Machine) enter(thread *entity.Thread, step Step, profile *entity.Profile) string {
	field := step.Field()
	if thread.Fields.Get(field).IsUnset() {
		if candidate := step.Candidate(profile); candidate != "" {
			thread.Fields.Set(field, entity.AwaitingConfirmation(candidate))
		}
	}
	return m.question(step, thread.Fields.Get(field))
}

func (m *Machine) question(step Step, state entity.FieldState) string {
	if state.IsAwaitingConfirmation() {
		return confirmQuestion(state.Value)
	}
	return step.Prompt()
}

// current returns the first step whose field is not confirmed.
func (m *Machine) current(thread *entity.Thread) (Step, bool) {
	for _, step := range m.workflow.Steps() {
		if !thread.Fields.Get(step.Field()).IsConfirmed() {
			return step, true
		}
	}
	return nil, false
}
