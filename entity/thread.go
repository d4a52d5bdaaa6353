package entity

import (
	"time"

	"github.com/google/uuid"
)

type ThreadStatus string

const (
	StatusPending    ThreadStatus = "pending"
	StatusInProgress ThreadStatus = "in_progress"
	StatusApproved   ThreadStatus = "approved"
	StatusRejected   ThreadStatus = "rejected"
)

// Valid reports whether s is one of the fixed thread statuses.
func (s ThreadStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Field identifies one of the collected quote fields.
type Field string

const (
	FieldName        Field = "name"
	FieldEmail       Field = "email"
	FieldPhone       Field = "phone"
	FieldRegion      Field = "region"
	FieldDescription Field = "description"
)

// FieldOrder is the order in which the dialogue collects fields.
var FieldOrder = []Field{FieldName, FieldEmail, FieldPhone, FieldRegion, FieldDescription}

type FieldKind string

const (
	FieldUnset                FieldKind = "unset"
	FieldAwaitingConfirmation FieldKind = "awaiting_confirmation"
	FieldAwaitingEntry        FieldKind = "awaiting_entry"
	FieldConfirmed            FieldKind = "confirmed"
)

// FieldState is the tagged state of a collected field. Value holds the
// candidate while awaiting confirmation and the final value once confirmed.
type FieldState struct {
	Kind  FieldKind `json:"kind" bson:"kind"`
	Value string    `json:"value,omitempty" bson:"value,omitempty"`
}

func Unset() FieldState {
	return FieldState{Kind: FieldUnset}
}

func AwaitingConfirmation(candidate string) FieldState {
	return FieldState{Kind: FieldAwaitingConfirmation, Value: candidate}
}

func AwaitingEntry() FieldState {
	return FieldState{Kind: FieldAwaitingEntry}
}

func Confirmed(value string) FieldState {
	return FieldState{Kind: FieldConfirmed, Value: value}
}

// IsUnset treats the zero value as unset so that documents written without
// the field decode correctly.
func (f FieldState) IsUnset() bool {
	return f.Kind == "" || f.Kind == FieldUnset
}

func (f FieldState) IsConfirmed() bool {
	return f.Kind == FieldConfirmed
}

func (f FieldState) IsAwaitingConfirmation() bool {
	return f.Kind == FieldAwaitingConfirmation
}

// CollectedFields holds the five fields gathered before handoff.
type CollectedFields struct {
	Name        FieldState `json:"name" bson:"name"`
	Email       FieldState `json:"email" bson:"email"`
	Phone       FieldState `json:"phone" bson:"phone"`
	Region      FieldState `json:"region" bson:"region"`
	Description FieldState `json:"description" bson:"description"`
}

func NewCollectedFields() CollectedFields {
	return CollectedFields{
		Name:        Unset(),
		Email:       Unset(),
		Phone:       Unset(),
		Region:      Unset(),
		Description: Unset(),
	}
}

func (c *CollectedFields) Get(field Field) FieldState {
	switch field {
	case FieldName:
		return c.Name
	case FieldEmail:
		return c.Email
	case FieldPhone:
		return c.Phone
	case FieldRegion:
		return c.Region
	case FieldDescription:
		return c.Description
	}
	return Unset()
}

func (c *CollectedFields) Set(field Field, state FieldState) {
	switch field {
	case FieldName:
		c.Name = state
	case FieldEmail:
		c.Email = state
	case FieldPhone:
		c.Phone = state
	case FieldRegion:
		c.Region = state
	case FieldDescription:
		c.Description = state
	}
}

// AllConfirmed reports whether every collected field is confirmed.
func (c *CollectedFields) AllConfirmed() bool {
	for _, f := range FieldOrder {
		if !c.Get(f).IsConfirmed() {
			return false
		}
	}
	return true
}

// Thread is one customer-product quotation conversation.
type Thread struct {
	ID            string          `json:"id" bson:"_id"`
	CustomerID    int64           `json:"customer_id" bson:"customer_id"`
	ProductID     int64           `json:"product_id" bson:"product_id"`
	StaffID       int64           `json:"staff_id,omitempty" bson:"staff_id"` // 0 while unassigned
	Fields        CollectedFields `json:"fields" bson:"fields"`
	Status        ThreadStatus    `json:"status" bson:"status"`
	HandedOff     bool            `json:"handed_off" bson:"handed_off"` // set once staff has taken over
	Version       int64           `json:"-" bson:"version"`
	LastMessageAt time.Time       `json:"last_message_at" bson:"last_message_at"`
	CreatedAt     time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" bson:"updated_at"`
}

func NewThread(customerID, productID int64) *Thread {
	now := time.Now().UTC()
	return &Thread{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		ProductID:  productID,
		Fields:     NewCollectedFields(),
		Status:     StatusPending,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Clone returns an independent copy; Thread holds no reference fields.
func (t *Thread) Clone() *Thread {
	c := *t
	return &c
}

// ThreadFilter narrows ListThreads results. Zero values mean "any".
type ThreadFilter struct {
	CustomerID int64
	Status     ThreadStatus
	Limit      int
}

// ThreadSummary is a thread row in the staff inbox.
type ThreadSummary struct {
	ID            string       `json:"id"`
	CustomerID    int64        `json:"customer_id"`
	ProductID     int64        `json:"product_id"`
	ProductName   string       `json:"product_name"`
	StaffID       int64        `json:"staff_id,omitempty"`
	Status        ThreadStatus `json:"status"`
	LastMessageAt time.Time    `json:"last_message_at"`
	CreatedAt     time.Time    `json:"created_at"`
}

func (t *Thread) Summary(productName string) ThreadSummary {
	return ThreadSummary{
		ID:            t.ID,
		CustomerID:    t.CustomerID,
		ProductID:     t.ProductID,
		ProductName:   productName,
		StaffID:       t.StaffID,
		Status:        t.Status,
		LastMessageAt: t.LastMessageAt,
		CreatedAt:     t.CreatedAt,
	}
}
