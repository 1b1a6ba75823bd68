package model

import (
	"time"
)

type ActivationStatus string

const (
	ActivationStatusUnused ActivationStatus = "unused"
	ActivationStatusUsed   ActivationStatus = "used"
)

// ActivationRecord is a single-use activation code bound to one subscription.
// The code is the primary key; re-issuing the same code overwrites every
// field and resets the record to unused.
type ActivationRecord struct {
	Code           string
	SubscriptionID string
	Status         ActivationStatus
	IssuedAt       time.Time
	UsedAt         *time.Time // nil until the unused->used transition
	CustomerEmail  string
	OrderID        string
	ActivateURL    string
	QRDataURL      string
}

// Redeemable reports whether the record can still be consumed.
func (r *ActivationRecord) Redeemable() bool {
	return r.Status == ActivationStatusUnused
}

// SubscriptionEvent is the canonical shape of an upstream
// "subscription created" webhook after boundary normalization.
type SubscriptionEvent struct {
	SubscriptionID string
	OrderID        string
	CustomerEmail  string
}

// ActivationFilter narrows a listing query. Zero values mean "no filter".
// The To bounds are inclusive.
type ActivationFilter struct {
	Query      string           // free-text over code, subscription id, email
	Status     ActivationStatus // empty matches both
	IssuedFrom *time.Time
	IssuedTo   *time.Time
	UsedFrom   *time.Time
	UsedTo     *time.Time
	Limit      int
	Offset     int
}

// ActivationTotals are aggregate counts over the filtered set, not the page.
type ActivationTotals struct {
	Total  int
	Used   int
	Unused int
}
