package revenue

import "errors"

var (
	ErrRoundNotFound  = errors.New("Revenue round not found")
	ErrAlreadyClaimed = errors.New("Revenue already claimed for this round")
	ErrNoBalance      = errors.New("No claimable balance at the round checkpoint")
	ErrInvalidAmount  = errors.New("Amount must be a positive number")
)
