package entity

import "fmt"

// Profile is the customer data held by the account system. It only feeds
// confirmation candidates; the dialogue never writes it back.
type Profile struct {
	CustomerID int64  `json:"customer_id" bson:"_id"`
	Username   string `json:"username" bson:"username"`
	Name       string `json:"name" bson:"name"`
	Email      string `json:"email" bson:"email"`
	Phone      string `json:"phone" bson:"phone"`
	Address    string `json:"address" bson:"address"`
}

func (p *Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Username != "" {
		return p.Username
	}
	return fmt.Sprintf("#%d", p.CustomerID)
}
