// Package payments verifies payment-gateway callbacks and settles checkouts.
//
// Each [Gateway] turns a signed webhook into a [Completion]. [Service.HandleWebhook] then
// looks up the checkout by reference and, inside one store transaction, moves it from pending
// to paid, records a transaction and fulfils what was bought. Redirect URLs, refunds and
// other outbound gateway API calls are out of scope; checkouts are settled by callbacks only.
package payments

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/linkfolio/linkfolio/pkg/models"
)

// Outcome is what a callback says about a payment.
type Outcome string

const (
	OutcomePaid    Outcome = "paid"
	OutcomeFailed  Outcome = "failed"
	OutcomeIgnored Outcome = "ignored"
)

// Completion is a verified gateway callback.
type Completion struct {
	Outcome    Outcome
	Reference  string
	ExternalID string
	// Amount is in minor units.
	Amount   int64
	Currency string
	Raw      models.JSONMap
}

// Gateway verifies and decodes callbacks of one payment provider.
type Gateway interface {
	Name() string
	// ParseWebhook checks the signature of body and decodes it. A bad signature yields an
	// error matching apperr.ErrInvalidSignature.
	ParseWebhook(header http.Header, body []byte, now time.Time) (*Completion, error)
}

// rawPayload keeps the decoded callback for the transaction record.
func rawPayload(body []byte) (models.JSONMap, error) {
	var raw models.JSONMap
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
