package order

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"net/mail"
	"strings"
)

type Buyer struct {
	email string
	name  string
	phone string
}

var ErrInvalidEmail = errors.New("invalid buyer email address")

func NewBuyer(email, name, phone string) (Buyer, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Buyer{}, ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return Buyer{}, ErrInvalidEmail
	}
	return Buyer{email: email, name: strings.TrimSpace(name), phone: strings.TrimSpace(phone)}, nil
}

func (b Buyer) Email() string { return b.email }
func (b Buyer) Name() string  { return b.name }
func (b Buyer) Phone() string { return b.phone }

var orderNumberEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewOrderNumber returns a human-readable identifier like ORD-K7Q2M....
// Uniqueness is enforced by the database index; callers retry once on a
// duplicate-key conflict.
func NewOrderNumber() string {
	var buf [10]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("order: crypto/rand unavailable: " + err.Error())
	}
	return "ORD-" + orderNumberEncoding.EncodeToString(buf[:])
}
