package attendee

import (
	"crypto/rand"
	"encoding/base32"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// Attendee is one ticket unit, materialized only after payment completes.
// A full refund cancels attendees instead of deleting them.
type Attendee struct {
	id           uuid.UUID
	orderID      uuid.UUID
	orderNumber  string
	eventID      uuid.UUID
	ticketTypeID uuid.UUID
	ticketNumber string
	buyerEmail   string
	buyerName    string
	status       Status
}

func New(orderID uuid.UUID, orderNumber string, eventID, ticketTypeID uuid.UUID, buyerEmail, buyerName string) *Attendee {
	return &Attendee{
		id:           uuid.New(),
		orderID:      orderID,
		orderNumber:  orderNumber,
		eventID:      eventID,
		ticketTypeID: ticketTypeID,
		ticketNumber: newTicketNumber(),
		buyerEmail:   buyerEmail,
		buyerName:    buyerName,
		status:       StatusActive,
	}
}

var ticketNumberEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func newTicketNumber() string {
	var buf [10]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("attendee: crypto/rand unavailable: " + err.Error())
	}
	return "TKT-" + ticketNumberEncoding.EncodeToString(buf[:])
}

func (a *Attendee) ID() uuid.UUID           { return a.id }
func (a *Attendee) OrderID() uuid.UUID      { return a.orderID }
func (a *Attendee) OrderNumber() string     { return a.orderNumber }
func (a *Attendee) EventID() uuid.UUID      { return a.eventID }
func (a *Attendee) TicketTypeID() uuid.UUID { return a.ticketTypeID }
func (a *Attendee) TicketNumber() string    { return a.ticketNumber }
func (a *Attendee) BuyerEmail() string      { return a.buyerEmail }
func (a *Attendee) BuyerName() string       { return a.buyerName }
func (a *Attendee) Status() Status          { return a.status }
