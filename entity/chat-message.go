package entity

import (
	"time"

	"github.com/google/uuid"
)

type AuthorRole string

const (
	RoleCustomer AuthorRole = "customer"
	RoleStaff    AuthorRole = "staff"
	RoleBot      AuthorRole = "bot"
)

// Bot identity used as the author of automated messages.
const (
	BotAuthorID   int64 = 0
	BotAuthorName       = "SIEERBot"
)

// Message is a single append-only entry in a thread log.
type Message struct {
	ID         string      `json:"id" bson:"_id"`
	ThreadID   string      `json:"thread_id" bson:"thread_id"`
	AuthorID   int64       `json:"author_id" bson:"author_id"`
	AuthorName string      `json:"author_name" bson:"author_name"`
	AuthorRole AuthorRole  `json:"author_role" bson:"author_role"`
	IsBot      bool        `json:"is_bot" bson:"is_bot"`
	Text       string      `json:"text" bson:"text"`
	Attachment *Attachment `json:"attachment,omitempty" bson:"attachment,omitempty"`
	CreatedAt  time.Time   `json:"created_at" bson:"created_at"` // assigned by the store on commit
}

// NewActorMessage builds a message authored by a customer or staff member.
func NewActorMessage(threadID string, actor *Actor, role AuthorRole, text string) *Message {
	return &Message{
		ID:         uuid.NewString(),
		ThreadID:   threadID,
		AuthorID:   actor.ID,
		AuthorName: actor.DisplayName(),
		AuthorRole: role,
		Text:       text,
	}
}

func NewBotMessage(threadID, text string) *Message {
	return &Message{
		ID:         uuid.NewString(),
		ThreadID:   threadID,
		AuthorID:   BotAuthorID,
		AuthorName: BotAuthorName,
		AuthorRole: RoleBot,
		IsBot:      true,
		Text:       text,
	}
}

// MessageView is the wire form of a message relative to the caller.
type MessageView struct {
	ID            string    `json:"id"`
	Author        string    `json:"author"`
	Text          string    `json:"text"`
	AttachmentURL *string   `json:"attachment_url"`
	IsBot         bool      `json:"is_bot"`
	IsMine        bool      `json:"is_mine"`
	Timestamp     time.Time `json:"timestamp"`
}

// MessageTimeResolution is the granularity every store can persist exactly.
const MessageTimeResolution = time.Millisecond

// NextMessageTime returns a timestamp strictly after last, as close to now
// as the store resolution allows.
func NextMessageTime(last, now time.Time) time.Time {
	ts := now.UTC().Truncate(MessageTimeResolution)
	if !ts.After(last) {
		ts = last.UTC().Truncate(MessageTimeResolution).Add(MessageTimeResolution)
	}
	return ts
}

// StampMessages assigns strictly increasing timestamps after last and returns
// the timestamp of the final message.
func StampMessages(last, now time.Time, msgs []*Message) time.Time {
	for _, msg := range msgs {
		msg.CreatedAt = NextMessageTime(last, now)
		last = msg.CreatedAt
	}
	return last
}
