package entity

import (
	"fmt"
	"net/http"

	"QuoteChat/internal/lib/validate"
)

// Actor is the authenticated caller as reported by the identity service.
type Actor struct {
	ID       int64  `json:"id" validate:"required,gt=0"`
	Username string `json:"username" validate:"required"`
	Name     string `json:"name" validate:"omitempty"`
	IsStaff  bool   `json:"is_staff"`
}

func (a *Actor) Bind(_ *http.Request) error {
	return validate.Struct(a)
}

// DisplayName falls back to the account identifier when no name is set.
func (a *Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	if a.Username != "" {
		return a.Username
	}
	return fmt.Sprintf("#%d", a.ID)
}
