package event

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"subscription-activation/internal/domain"
	"subscription-activation/internal/domain/model"
)

// Field paths probed for each logical value, in priority order. Upstream
// webhook senders disagree about where these live, so normalization happens
// once here and nowhere else.
var (
	subscriptionIDPaths = []string{"id", "subscription_id", "subscription.id", "data.id"}
	orderIDPaths        = []string{"order_id", "subscription.order_id", "data.order_id"}
	customerEmailPaths  = []string{"email", "customer.email", "data.email"}
)

// Normalize maps an arbitrary upstream "subscription created" payload to
// the canonical event triple. It returns domain.ErrInvalidPayload when the
// body is not JSON or no subscription id can be extracted; both are
// terminal and the sender must not retry.
func Normalize(body []byte) (model.SubscriptionEvent, error) {
	if !gjson.ValidBytes(body) {
		return model.SubscriptionEvent{}, fmt.Errorf("%w: body is not valid JSON", domain.ErrInvalidPayload)
	}
	root := gjson.ParseBytes(body)

	subID := firstString(root, subscriptionIDPaths)
	if subID == "" {
		return model.SubscriptionEvent{}, fmt.Errorf("%w: missing subscription id", domain.ErrInvalidPayload)
	}

	return model.SubscriptionEvent{
		SubscriptionID: subID,
		OrderID:        firstString(root, orderIDPaths),
		CustomerEmail:  firstString(root, customerEmailPaths),
	}, nil
}

// firstString returns the first non-empty value among paths. Numeric ids
// are rendered as their decimal string.
func firstString(root gjson.Result, paths []string) string {
	for _, p := range paths {
		if v := root.Get(p); v.Exists() {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}
