package models

import (
	"errors"
	"strings"
	"time"
)

type UserStatus string

const (
	UserActive UserStatus = "ACTIVE"
	UserFrozen UserStatus = "FROZEN"
)

type CardProvider string

const (
	ProviderVisa       CardProvider = "VISA"
	ProviderMastercard CardProvider = "MASTERCARD"
	ProviderAmex       CardProvider = "AMEX"
)

// Card is an authorization instrument. It has no balance of its own; every
// movement targets the owner's MainBalance.
type Card struct {
	Number    string       `json:"number"`
	CVVHash   string       `json:"-"`
	Expiry    string       `json:"expiry"`
	Provider  CardProvider `json:"provider"`
	CreatedAt time.Time    `json:"created_at"`
}

// Masked renders the card as **** **** **** 1234.
func (c Card) Masked() string {
	if len(c.Number) <= 4 {
		return c.Number
	}
	return "**** **** **** " + c.Number[len(c.Number)-4:]
}

// User is a payer.
type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"display_name,omitempty"`
	AccountNumber string     `json:"account_number"`
	PINHash       string     `json:"-"`
	MainBalance   Money      `json:"main_balance"`
	Status        UserStatus `json:"status"`
	Cards         []Card     `json:"cards"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (u *User) Validate() error {
	if !strings.Contains(u.Email, "@") {
		return errors.New("invalid email")
	}
	if u.Status == "" {
		u.Status = UserActive
	}
	return nil
}

func (u User) Card(number string) (Card, bool) {
	for _, c := range u.Cards {
		if c.Number == number {
			return c, true
		}
	}
	return Card{}, false
}
