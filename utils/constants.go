package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the default time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// EmailVerificationTTL is how long an email verification link stays valid
	EmailVerificationTTL = 24 * time.Hour

	// PasswordResetTTL is how long a password reset link stays valid
	PasswordResetTTL = time.Hour

	// VerificationTokenBytes is the number of random bytes behind a verification token
	VerificationTokenBytes = 32
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400

	// DefaultBcryptCost matches the cost used for passwords created before the Go service
	DefaultBcryptCost = 10
)

// Catalog constants
const (
	// UmkmCounter and DestinationCounter name the sequence counters for record ids
	UmkmCounter        = "umkm"
	DestinationCounter = "destinations"

	// WriteBatchSize caps the number of operations committed together
	WriteBatchSize = 400

	// BrowseLimit caps the rows returned by the destination browse endpoint
	BrowseLimit = 500
)

// Chatbot constants
const (
	// ChatHistoryPrimingEntries is the number of fixed entries at the head of every conversation
	ChatHistoryPrimingEntries = 2

	// ChatHistoryMaxEntries keeps the priming entries plus the 20 most recent turns
	ChatHistoryMaxEntries = 22
)
