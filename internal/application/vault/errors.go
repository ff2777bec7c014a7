package vault

import "errors"

var (
	ErrInvalidAmount     = errors.New("Amount must be a positive number")
	ErrInsufficientFunds = errors.New("Insufficient funds")
	ErrTicketNotFound    = errors.New("Escrow ticket not found")
	ErrTicketNotHeld     = errors.New("Escrow ticket is not held")
	ErrTicketShort       = errors.New("Escrow ticket has insufficient remaining funds")
)
