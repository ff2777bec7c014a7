package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Escrow ticket statuses and purposes. Held funds leave a ticket through
// exactly one of release (to a counterparty) or refund (back to the poster);
// lease tickets release partially (rent) and keep the deposit held.
const (
	TicketStatusHeld     = "held"
	TicketStatusReleased = "released"
	TicketStatusRefunded = "refunded"

	TicketPurposeBid          = "bid"
	TicketPurposeLease        = "lease"
	TicketPurposeRevenueRound = "revenue_round"
)

// CashAccount is a holder's spendable balance in one payment unit.
type CashAccount struct {
	AccountID   uuid.UUID `gorm:"column:account_id;type:uuid;primaryKey" json:"account_id"`
	Address     string    `gorm:"column:address;type:char(64);not null;uniqueIndex:idx_cash_addr_unit" json:"address"`
	PaymentUnit string    `gorm:"column:payment_unit;type:varchar(12);not null;uniqueIndex:idx_cash_addr_unit" json:"payment_unit"`
	Amount      int64     `gorm:"column:amount;not null;default:0" json:"amount"`
	CreatedAt   time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (CashAccount) TableName() string {
	return "CashAccounts"
}

func (a *CashAccount) BeforeCreate(tx *gorm.DB) error {
	if a.AccountID == uuid.Nil {
		a.AccountID = uuid.New()
	}
	return nil
}

// EscrowTicket is one arena slot in the vault. Bids, leases and revenue
// rounds reference tickets by id only, never the other way around.
type EscrowTicket struct {
	TicketID       uuid.UUID  `gorm:"column:ticket_id;type:uuid;primaryKey" json:"ticket_id"`
	PosterAddress  string     `gorm:"column:poster_address;type:char(64);not null" json:"poster_address"`
	PaymentUnit    string     `gorm:"column:payment_unit;type:varchar(12);not null" json:"payment_unit"`
	Amount         int64      `gorm:"column:amount;not null" json:"amount"`
	ReleasedAmount int64      `gorm:"column:released_amount;not null;default:0" json:"released_amount"`
	Purpose        string     `gorm:"column:purpose;type:varchar(20);not null" json:"purpose"`
	RefID          *uuid.UUID `gorm:"column:ref_id;type:uuid" json:"ref_id"`
	Status         string     `gorm:"column:status;type:varchar(20);default:'held'" json:"status"`
	CreatedAt      time.Time  `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"column:updatedAt" json:"updatedAt"`
}

func (EscrowTicket) TableName() string {
	return "EscrowTickets"
}

func (t *EscrowTicket) BeforeCreate(tx *gorm.DB) error {
	if t.TicketID == uuid.Nil {
		t.TicketID = uuid.New()
	}
	return nil
}
