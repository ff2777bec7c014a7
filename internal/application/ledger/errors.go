package ledger

import "errors"

var (
	ErrAssetNotFound          = errors.New("Asset not found")
	ErrInvalidAmount          = errors.New("Amount must be a positive number")
	ErrInsufficientBalance    = errors.New("Insufficient balance")
	ErrUnknownCheckpoint      = errors.New("Unknown checkpoint")
	ErrNotCheckpointAuthority = errors.New("Caller is not the checkpoint authority")
	ErrSelfTransfer           = errors.New("Cannot transfer to the same address")
)
