package validation

import "regexp"

// Addresses are lowercase hex ed25519 public keys (32 bytes).
var addressRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Content hashes (schema, metadata, legal doc) are hex sha256 digests.
var hashRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Signatures are hex ed25519 signatures (64 bytes).
var signatureRe = regexp.MustCompile(`^[0-9a-f]{128}$`)

func IsValidAddress(address string) bool {
	return addressRe.MatchString(address)
}

func IsValidHash(hash string) bool {
	return hashRe.MatchString(hash)
}

func IsValidSignature(sig string) bool {
	return signatureRe.MatchString(sig)
}
