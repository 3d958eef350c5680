package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/linkfolio/linkfolio/pkg/apperr"
)

const (
	StripeSignatureHeader = "Stripe-Signature"
	// StripeTolerance bounds the age of a signed timestamp.
	StripeTolerance = 5 * time.Minute
)

// Stripe verifies Stripe-style webhooks: the Stripe-Signature header carries
// "t=<unix>,v1=<hex hmac-sha256 of t.body>".
type Stripe struct {
	secret []byte
}

func NewStripe(secret string) *Stripe {
	return &Stripe{secret: []byte(secret)}
}

func (s *Stripe) Name() string { return "stripe" }

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string `json:"id"`
			ClientReferenceID string `json:"client_reference_id"`
			AmountTotal       int64  `json:"amount_total"`
			Currency          string `json:"currency"`
			PaymentStatus     string `json:"payment_status"`
			Metadata          struct {
				Reference string `json:"reference"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

func (s *Stripe) ParseWebhook(header http.Header, body []byte, now time.Time) (*Completion, error) {
	if err := s.verify(header.Get(StripeSignatureHeader), body, now); err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidSignature, "stripe signature", err)
	}

	var ev stripeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, "malformed stripe event", err)
	}
	obj := ev.Data.Object

	c := &Completion{
		Outcome:    OutcomeIgnored,
		Reference:  obj.ClientReferenceID,
		ExternalID: ev.ID,
		Amount:     obj.AmountTotal,
		Currency:   strings.ToUpper(obj.Currency),
	}
	if c.Reference == "" {
		c.Reference = obj.Metadata.Reference
	}
	if raw, err := rawPayload(body); err == nil {
		c.Raw = raw
	}

	switch ev.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		if obj.PaymentStatus == "paid" {
			c.Outcome = OutcomePaid
		}
	case "checkout.session.async_payment_failed", "checkout.session.expired", "payment_intent.payment_failed":
		c.Outcome = OutcomeFailed
	}
	return c, nil
}

func (s *Stripe) verify(header string, body []byte, now time.Time) error {
	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return fmt.Errorf("missing timestamp or v1 signature")
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}
	age := now.Sub(time.Unix(unix, 0))
	if age > StripeTolerance || age < -StripeTolerance {
		return fmt.Errorf("timestamp outside tolerance")
	}

	expected := s.Sign(timestamp, body)
	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return fmt.Errorf("signature mismatch")
}

// Sign returns the hex v1 signature of body at timestamp.
func (s *Stripe) Sign(timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader builds a complete Stripe-Signature header value.
func (s *Stripe) SignatureHeader(at time.Time, body []byte) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return "t=" + ts + ",v1=" + s.Sign(ts, body)
}
