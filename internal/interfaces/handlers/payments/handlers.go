package payments

import (
	"strconv"

	"fracshare-backend/internal/middleware"
	"fracshare-backend/internal/pkg/constants"
	"fracshare-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

type Handlers struct {
	StripeCreator StripePaymentIntentCreator
}

// StripePaymentIntentCreator abstracts Stripe PaymentIntent creation for testability.
type StripePaymentIntentCreator interface {
	Create(amountCents int64, currency string, metadata map[string]string) (*StripePaymentIntentResult, error)
}

type StripePaymentIntentResult struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// RealStripeCreator uses the Stripe Go SDK to create PaymentIntents.
type RealStripeCreator struct {
	SecretKey string
}

func (r *RealStripeCreator) Create(amountCents int64, currency string, metadata map[string]string) (*StripePaymentIntentResult, error) {
	if r.SecretKey == "" {
		return nil, fiber.NewError(501, "Stripe integration pending")
	}
	stripe.Key = r.SecretKey
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		Metadata: metadata,
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	return &StripePaymentIntentResult{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
	}, nil
}

// CreateDepositIntent POST /api/v1/payments/deposit-intent — only creates the
// Stripe PaymentIntent; the cash account is credited by the webhook once the
// payment succeeds.
func (h *Handlers) CreateDepositIntent(c *fiber.Ctx) error {
	var body struct {
		Amount      int64  `json:"amount"`
		PaymentUnit string `json:"payment_unit"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if body.Amount <= 0 {
		return response.Error(c, "Amount must be a positive number", 400, nil)
	}
	address := middleware.GetUserAddress(c)
	if address == "" {
		return response.Error(c, "No address in session", 403, nil)
	}
	if body.PaymentUnit == "" {
		body.PaymentUnit = constants.DefaultPaymentUnit
	}
	if h.StripeCreator == nil {
		return response.Error(c, "Stripe not configured", 500, nil)
	}

	pi, err := h.StripeCreator.Create(body.Amount, "usd", map[string]string{
		"payer_address": address,
		"payment_unit":  body.PaymentUnit,
		"amount":        strconv.FormatInt(body.Amount, 10),
	})
	if err != nil {
		code := 500
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}
		return response.Error(c, err.Error(), code, nil)
	}

	return response.Success(c, "Payment intent created", fiber.Map{
		"payment_intent_id": pi.ID,
		"client_secret":     pi.ClientSecret,
	}, nil)
}
