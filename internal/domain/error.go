package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")

	// Activation lifecycle errors
	ErrCodeNotFound    = errors.New("activation code not found")
	ErrCodeMismatch    = errors.New("activation code does not belong to this subscription")
	ErrCodeAlreadyUsed = errors.New("activation code already used")

	// ErrInvalidPayload marks an upstream event from which no subscription id
	// could be extracted. Terminal: the sender must not retry.
	ErrInvalidPayload = errors.New("invalid event payload")

	// Subscription Control call failures. Unavailable is transient (network,
	// 5xx); Rejected is permanent (auth/config) and must not be retried.
	ErrUpstreamUnavailable = errors.New("subscription control unavailable")
	ErrUpstreamRejected    = errors.New("subscription control rejected the request")

	// ErrMarkUsedFailed reports that a subscription was resumed but the
	// record could not be transitioned to used. The record stays redeemable
	// until the reconciler repairs it.
	ErrMarkUsedFailed = errors.New("activation record not marked used")
)
