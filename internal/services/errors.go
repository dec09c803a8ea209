// Package services defines the business logic of the trainer: handle
// verification, daily assignments, streak bookkeeping and the daily jobs.
// This file centralizes the service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing replies or HTTP status codes is performed by
// the bot and handler layers.
package services

import "errors"

// Registration and lookup errors.
var (
	// ErrInvalidHandle is returned when a handle argument is empty or
	// contains characters the catalog never uses in handles.
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrNotRegistered indicates that the handle (or chat) has not completed
	// verification and is unknown to the user directory.
	ErrNotRegistered = errors.New("handle is not registered")

	// ErrDuplicateUser is returned when verification succeeds but the handle
	// or the chat is already registered. The existing record is untouched.
	ErrDuplicateUser = errors.New("handle or chat already registered")
)

// Verification errors.
var (
	// ErrCatalogUnavailable is returned by Begin when no challenge problem
	// can be chosen because the catalog is empty or could not be fetched.
	ErrCatalogUnavailable = errors.New("problem catalog unavailable")

	// ErrNoPendingVerification indicates that Complete was called without a
	// prior Begin for the handle (or after the entry was consumed).
	ErrNoPendingVerification = errors.New("no pending verification")

	// ErrVerificationExpired indicates that the challenge deadline passed.
	// The pending entry has been deleted.
	ErrVerificationExpired = errors.New("verification expired")

	// ErrVerificationNotYetSatisfied indicates that no compilation-error
	// submission on the challenge problem was found yet. The pending entry
	// is kept so the user can retry.
	ErrVerificationNotYetSatisfied = errors.New("verification not yet satisfied")
)
