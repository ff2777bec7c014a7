package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	eventssvc "fracshare-backend/internal/application/events"
	vaultsvc "fracshare-backend/internal/application/vault"
	"fracshare-backend/internal/domain"
	"fracshare-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type WebhookHandler struct {
	DB            *gorm.DB
	Vault         *vaultsvc.Service
	Events        *eventssvc.Service
	WebhookSecret string
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type paymentIntentObject struct {
	ID             string            `json:"id"`
	AmountReceived int64             `json:"amount_received"`
	Currency       string            `json:"currency"`
	Status         string            `json:"status"`
	Metadata       map[string]string `json:"metadata"`
}

// HandleWebhook POST /api/v1/stripe/webhook — raw body, signature verification, then process.
func (wh *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	rawBody := c.BodyRaw()
	// Stripe sends "Stripe-Signature"; Fiber's Get is case-insensitive
	sig := c.Get("Stripe-Signature")

	if len(rawBody) == 0 {
		log.Warn().Msg("Stripe webhook received empty body (ensure no global body parser consumes the webhook body)")
		return c.Status(400).SendString("Webhook Error: empty body")
	}

	if err := verifyStripeSignature(rawBody, sig, wh.WebhookSecret); err != nil {
		log.Warn().Err(err).Bool("has_sig", sig != "").Bool("has_secret", wh.WebhookSecret != "").Msg("Stripe webhook signature verification failed")
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	var event stripeEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		log.Warn().Err(err).Msg("Stripe webhook JSON parse failed")
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	if event.Type == "payment_intent.succeeded" {
		var pi paymentIntentObject
		if err := json.Unmarshal(event.Data.Object, &pi); err != nil {
			return c.Status(200).SendString("ok")
		}

		ev, err := wh.handlePaymentIntentSucceeded(c.UserContext(), pi, event.ID, rawBody)
		if err != nil {
			// Always 200 for domain errors too, to avoid Stripe retries.
			log.Warn().Err(err).Str("payment_intent", pi.ID).Msg("Stripe deposit not credited")
			return c.Status(200).SendString("ok")
		}
		if ev != nil {
			wh.Events.Publish(c.UserContext(), ev)
		}
	}

	return c.Status(200).SendString("ok")
}

// handlePaymentIntentSucceeded credits the payer's cash account with the
// received amount. Metadata must name the payer address and payment unit the
// deposit-intent endpoint attached.
func (wh *WebhookHandler) handlePaymentIntentSucceeded(ctx context.Context, pi paymentIntentObject, eventID string, rawBody []byte) (*domain.MarketEvent, error) {
	payerAddress := pi.Metadata["payer_address"]
	paymentUnit := pi.Metadata["payment_unit"]

	if !validation.IsValidAddress(payerAddress) || paymentUnit == "" {
		return nil, nil // not one of ours, skip silently
	}
	if pi.AmountReceived <= 0 {
		return nil, nil
	}

	var ev *domain.MarketEvent
	err := wh.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Idempotency: a retried event must not credit twice.
		var existing domain.Payment
		if err := tx.Where("stripe_payment_intent_id = ?", pi.ID).First(&existing).Error; err == nil {
			return nil
		} else if err != gorm.ErrRecordNotFound {
			return err
		}

		payment := domain.Payment{
			StripePaymentIntentID: pi.ID,
			StripeEventID:         eventID,
			PayerAddress:          payerAddress,
			PaymentUnit:           paymentUnit,
			Amount:                pi.AmountReceived,
			Status:                pi.Status,
			RawPaymentIntent:      rawBody,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		if err := wh.Vault.CreditTx(tx, payerAddress, paymentUnit, pi.AmountReceived); err != nil {
			return err
		}
		// Deposits are not tied to an asset; the zero asset id groups them.
		var err error
		ev, err = wh.Events.EmitTx(tx, uuid.Nil, domain.EventDepositCredited, payerAddress, &payment.ID, map[string]interface{}{
			"payment_intent": pi.ID,
			"payment_unit":   paymentUnit,
			"amount":         pi.AmountReceived,
		})
		return err
	})
	return ev, err
}

// verifyStripeSignature verifies the Stripe-Signature header using the webhook secret.
func verifyStripeSignature(payload []byte, sigHeader, secret string) error {
	if sigHeader == "" || secret == "" {
		return errors.New("missing signature or secret")
	}

	var timestamp string
	var signatures []string

	parts := strings.Split(sigHeader, ",")
	for _, part := range parts {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return errors.New("invalid signature format")
	}

	signedPayload := timestamp + "." + string(payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	expectedSig := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expectedSig)) {
			// Check tolerance (5 minutes)
			ts, err := strconv.ParseInt(timestamp, 10, 64)
			if err != nil {
				return errors.New("invalid timestamp")
			}
			diff := time.Now().Unix() - ts
			if diff < 0 {
				diff = -diff
			}
			if diff > 300 {
				return errors.New("timestamp too old")
			}
			return nil
		}
	}

	return errors.New("signature mismatch")
}
