package salebook

import "errors"

var (
	ErrListingNotFound = errors.New("Listing not found")
	ErrListingClosed   = errors.New("Listing is no longer open")
	ErrBidNotFound     = errors.New("Bid not found")
	ErrBidNotOpen      = errors.New("Bid is no longer open")
	ErrInvalidAmount   = errors.New("Amount must be a positive number")
	ErrNotSeller       = errors.New("Caller is not the listing seller")
	ErrNotBidder       = errors.New("Caller is not the bidder")
	ErrWrongKind       = errors.New("Operation does not match the listing kind")
	ErrIntentMismatch  = errors.New("Lease intent terms do not match the listing")
)
