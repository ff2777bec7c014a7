package leaseintent

import "errors"

var (
	ErrIntentExpired    = errors.New("Lease intent deadline has passed")
	ErrNonceUsed        = errors.New("Lease intent nonce already consumed")
	ErrSchemaMismatch   = errors.New("Lease intent schema hash does not match the asset type")
	ErrBadTiming        = errors.New("Lease start time must be before end time")
	ErrInvalidSignature = errors.New("Invalid lease intent signature")
	ErrLeaseNotFound    = errors.New("Lease not found")
)
