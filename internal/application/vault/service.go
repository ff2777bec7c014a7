package vault

import (
	"context"

	"fracshare-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service owns cash accounts and escrow tickets. Settlement paths (salebook,
// revenue) call the *Tx methods on their own transaction so fund movement
// commits or aborts together with the rest of the operation.
type Service struct {
	DB *gorm.DB
}

// CreditTx adds amount to a cash account, creating the row on first use.
func (s *Service) CreditTx(tx *gorm.DB, address, paymentUnit string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	var acct domain.CashAccount
	err := tx.Where("address = ? AND payment_unit = ?", address, paymentUnit).First(&acct).Error
	if err == gorm.ErrRecordNotFound {
		acct = domain.CashAccount{Address: address, PaymentUnit: paymentUnit, Amount: amount}
		return tx.Create(&acct).Error
	}
	if err != nil {
		return err
	}
	acct.Amount += amount
	return tx.Save(&acct).Error
}

// DebitTx removes amount from a cash account.
func (s *Service) DebitTx(tx *gorm.DB, address, paymentUnit string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	var acct domain.CashAccount
	if err := tx.Where("address = ? AND payment_unit = ?", address, paymentUnit).First(&acct).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrInsufficientFunds
		}
		return err
	}
	if acct.Amount < amount {
		return ErrInsufficientFunds
	}
	acct.Amount -= amount
	return tx.Save(&acct).Error
}

// CaptureTx debits the poster's cash account and opens a held ticket.
func (s *Service) CaptureTx(tx *gorm.DB, poster, paymentUnit string, amount int64, purpose string, refID *uuid.UUID) (*domain.EscrowTicket, error) {
	if err := s.DebitTx(tx, poster, paymentUnit, amount); err != nil {
		return nil, err
	}
	ticket := domain.EscrowTicket{
		PosterAddress: poster,
		PaymentUnit:   paymentUnit,
		Amount:        amount,
		Purpose:       purpose,
		RefID:         refID,
		Status:        domain.TicketStatusHeld,
	}
	if err := tx.Create(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ReleaseTx pays the full remaining ticket amount to a counterparty and
// closes the ticket.
func (s *Service) ReleaseTx(tx *gorm.DB, ticketID uuid.UUID, to string) error {
	ticket, err := s.heldTicketTx(tx, ticketID)
	if err != nil {
		return err
	}
	remaining := ticket.Amount - ticket.ReleasedAmount
	if remaining <= 0 {
		return ErrTicketShort
	}
	ticket.ReleasedAmount = ticket.Amount
	ticket.Status = domain.TicketStatusReleased
	if err := tx.Save(ticket).Error; err != nil {
		return err
	}
	return s.CreditTx(tx, to, ticket.PaymentUnit, remaining)
}

// PayoutTx pays part of a held ticket to a counterparty. The ticket stays
// held until fully drained, so a revenue round can pay many claimants; dust
// left after integer division keeps the ticket held indefinitely.
func (s *Service) PayoutTx(tx *gorm.DB, ticketID uuid.UUID, to string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	ticket, err := s.heldTicketTx(tx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Amount-ticket.ReleasedAmount < amount {
		return ErrTicketShort
	}
	ticket.ReleasedAmount += amount
	if ticket.ReleasedAmount == ticket.Amount {
		ticket.Status = domain.TicketStatusReleased
	}
	if err := tx.Save(ticket).Error; err != nil {
		return err
	}
	return s.CreditTx(tx, to, ticket.PaymentUnit, amount)
}

// CarveTx moves part of a held ticket into a new held ticket (rent carved
// out of a lease escrow while the deposit stays behind). The source ticket
// closes as released if nothing remains held in it.
func (s *Service) CarveTx(tx *gorm.DB, ticketID uuid.UUID, amount int64, purpose string, refID *uuid.UUID) (*domain.EscrowTicket, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	ticket, err := s.heldTicketTx(tx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Amount-ticket.ReleasedAmount < amount {
		return nil, ErrTicketShort
	}
	ticket.ReleasedAmount += amount
	if ticket.ReleasedAmount == ticket.Amount {
		ticket.Status = domain.TicketStatusReleased
	}
	if err := tx.Save(ticket).Error; err != nil {
		return nil, err
	}
	carved := domain.EscrowTicket{
		PosterAddress: ticket.PosterAddress,
		PaymentUnit:   ticket.PaymentUnit,
		Amount:        amount,
		Purpose:       purpose,
		RefID:         refID,
		Status:        domain.TicketStatusHeld,
	}
	if err := tx.Create(&carved).Error; err != nil {
		return nil, err
	}
	return &carved, nil
}

// RefundTx returns the remaining held funds to the poster and closes the
// ticket as refunded.
func (s *Service) RefundTx(tx *gorm.DB, ticketID uuid.UUID) error {
	ticket, err := s.heldTicketTx(tx, ticketID)
	if err != nil {
		return err
	}
	remaining := ticket.Amount - ticket.ReleasedAmount
	if remaining <= 0 {
		return ErrTicketShort
	}
	ticket.ReleasedAmount = ticket.Amount
	ticket.Status = domain.TicketStatusRefunded
	if err := tx.Save(ticket).Error; err != nil {
		return err
	}
	return s.CreditTx(tx, ticket.PosterAddress, ticket.PaymentUnit, remaining)
}

func (s *Service) heldTicketTx(tx *gorm.DB, ticketID uuid.UUID) (*domain.EscrowTicket, error) {
	var ticket domain.EscrowTicket
	if err := tx.Where("ticket_id = ?", ticketID).First(&ticket).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	if ticket.Status != domain.TicketStatusHeld {
		return nil, ErrTicketNotHeld
	}
	return &ticket, nil
}

// Deposit credits a cash account outside any settlement (faucet/on-ramp).
func (s *Service) Deposit(ctx context.Context, address, paymentUnit string, amount int64) (int64, error) {
	var balance int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.CreditTx(tx, address, paymentUnit, amount); err != nil {
			return err
		}
		var acct domain.CashAccount
		if err := tx.Where("address = ? AND payment_unit = ?", address, paymentUnit).First(&acct).Error; err != nil {
			return err
		}
		balance = acct.Amount
		return nil
	})
	return balance, err
}

// Withdraw debits a cash account.
func (s *Service) Withdraw(ctx context.Context, address, paymentUnit string, amount int64) (int64, error) {
	var balance int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.DebitTx(tx, address, paymentUnit, amount); err != nil {
			return err
		}
		var acct domain.CashAccount
		if err := tx.Where("address = ? AND payment_unit = ?", address, paymentUnit).First(&acct).Error; err != nil {
			return err
		}
		balance = acct.Amount
		return nil
	})
	return balance, err
}

// CashBalance returns the current spendable balance (0 for unknown accounts).
func (s *Service) CashBalance(ctx context.Context, address, paymentUnit string) (int64, error) {
	var acct domain.CashAccount
	err := s.DB.WithContext(ctx).Where("address = ? AND payment_unit = ?", address, paymentUnit).First(&acct).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acct.Amount, nil
}

// GetTicket returns one escrow ticket for audit.
func (s *Service) GetTicket(ctx context.Context, ticketID uuid.UUID) (*domain.EscrowTicket, error) {
	var ticket domain.EscrowTicket
	if err := s.DB.WithContext(ctx).Where("ticket_id = ?", ticketID).First(&ticket).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}
