package constants

// DefaultPaymentUnit is the cash unit used when a request does not name one.
// Amounts in that unit are integer cents.
const DefaultPaymentUnit = "usd_cents"
