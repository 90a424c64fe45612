// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to perform an operation on a resource owned by
// someone else, while ErrConflict signals that an operation
// lost a conditional update race (e.g. two restaurants advancing
// the same order concurrently, or two riders claiming a delivery).
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a conditional update affected zero
// rows because the row no longer matched the expected state: a
// concurrent status change, an already-claimed delivery, or a
// double completion. Handlers should translate this into an HTTP
// 409 response.
var ErrConflict = errors.New("conflict")

// ErrInsufficientPoints is returned when a redemption or debit
// adjustment would push the spendable balance below zero. The
// ledger and the cached balance are left untouched.
var ErrInsufficientPoints = errors.New("insufficient points")

// ErrRewardInactive is returned when redeeming a reward whose
// active flag has been cleared by an admin. Distinct from a
// missing reward, which surfaces as sql.ErrNoRows.
var ErrRewardInactive = errors.New("reward inactive")
