package leaseintent

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/google/uuid"
)

// domainTag separates lease-intent digests from any other signed payload in
// the system. Bump the suffix if the field set ever changes.
const domainTag = "fracshare.lease-intent.v1"

// Intent is the dual-party lease proposal both parties sign. Times are unix
// seconds; addresses are hex ed25519 public keys; hashes are hex sha256.
type Intent struct {
	Lessor          string    `json:"lessor"`
	Lessee          string    `json:"lessee"`
	AssetID         uuid.UUID `json:"asset_id"`
	PaymentUnit     string    `json:"payment_unit"`
	RentAmount      int64     `json:"rent_amount"`
	RentPeriodSecs  int64     `json:"rent_period_secs"`
	SecurityDeposit int64     `json:"security_deposit"`
	StartTime       int64     `json:"start_time"`
	EndTime         int64     `json:"end_time"`
	MetadataHash    string    `json:"metadata_hash"`
	LegalDocHash    string    `json:"legal_doc_hash"`
	Nonce           uint64    `json:"nonce"`
	Deadline        int64     `json:"deadline"`
	TermsVersion    int       `json:"terms_version"`
	SchemaHash      string    `json:"schema_hash"`
}

// HashIntent produces the digest both signatures must cover: sha256 over the
// domain tag and every field in fixed order, strings length-delimited so no
// two field layouts can collide.
func HashIntent(intent Intent) [32]byte {
	h := sha256.New()
	writeString(h, domainTag)
	writeString(h, intent.Lessor)
	writeString(h, intent.Lessee)
	h.Write(intent.AssetID[:])
	writeString(h, intent.PaymentUnit)
	writeInt(h, uint64(intent.RentAmount))
	writeInt(h, uint64(intent.RentPeriodSecs))
	writeInt(h, uint64(intent.SecurityDeposit))
	writeInt(h, uint64(intent.StartTime))
	writeInt(h, uint64(intent.EndTime))
	writeString(h, intent.MetadataHash)
	writeString(h, intent.LegalDocHash)
	writeInt(h, intent.Nonce)
	writeInt(h, uint64(intent.Deadline))
	writeInt(h, uint64(intent.TermsVersion))
	writeString(h, intent.SchemaHash)

	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

func writeString(h interface{ Write([]byte) (int, error) }, s string) {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(s)))
	h.Write(l[:])
	h.Write([]byte(s))
}

func writeInt(h interface{ Write([]byte) (int, error) }, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	h.Write(b[:])
}
