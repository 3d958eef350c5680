package payments

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/linkfolio/linkfolio/pkg/apperr"
)

const PaystackSignatureHeader = "X-Paystack-Signature"

// Paystack verifies Paystack-style webhooks: X-Paystack-Signature is the hex
// HMAC-SHA512 of the raw body.
type Paystack struct {
	secret []byte
}

func NewPaystack(secret string) *Paystack {
	return &Paystack{secret: []byte(secret)}
}

func (p *Paystack) Name() string { return "paystack" }

type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID        json.Number `json:"id"`
		Reference string      `json:"reference"`
		Amount    int64       `json:"amount"`
		Currency  string      `json:"currency"`
		Status    string      `json:"status"`
	} `json:"data"`
}

func (p *Paystack) ParseWebhook(header http.Header, body []byte, now time.Time) (*Completion, error) {
	expected := p.Sign(body)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(header.Get(PaystackSignatureHeader)))) {
		return nil, apperr.Wrap(apperr.CodeInvalidSignature, "paystack signature", fmt.Errorf("signature mismatch"))
	}

	var ev paystackEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, "malformed paystack event", err)
	}

	c := &Completion{
		Outcome:    OutcomeIgnored,
		Reference:  ev.Data.Reference,
		ExternalID: ev.Data.ID.String(),
		Amount:     ev.Data.Amount,
		Currency:   strings.ToUpper(ev.Data.Currency),
	}
	if c.ExternalID == "" {
		c.ExternalID = ev.Event + ":" + ev.Data.Reference + ":" + strconv.FormatInt(now.Unix(), 10)
	}
	if raw, err := rawPayload(body); err == nil {
		c.Raw = raw
	}

	switch {
	case ev.Event == "charge.success" && ev.Data.Status == "success":
		c.Outcome = OutcomePaid
	case ev.Data.Status == "failed" || ev.Data.Status == "abandoned":
		c.Outcome = OutcomeFailed
	}
	return c, nil
}

// Sign returns the hex signature of body.
func (p *Paystack) Sign(body []byte) string {
	mac := hmac.New(sha512.New, p.secret)
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
