package biddingerrors

import (
	"errors"
	"fmt"
)

// Error classes. Every specific error below wraps exactly one of these so
// callers can branch with errors.Is on the class.
var (
	ErrValidation   = errors.New("validation error")
	ErrPermission   = errors.New("permission denied")
	ErrConflict     = errors.New("concurrency conflict")
	ErrState        = errors.New("invalid auction state")
	ErrNotFound     = errors.New("not found")
	ErrConnectivity = errors.New("store unreachable")
)

// Repository-level errors
var (
	ErrPathNotFound = fmt.Errorf("path %w", ErrNotFound)
	ErrTxAborted    = errors.New("conditional write aborted")
	ErrRetryAborted = fmt.Errorf("conditional write retries abandoned: %w", ErrConflict)
)

// business logic errors
var (
	ErrInvalidBid    = fmt.Errorf("invalid bid: %w", ErrValidation)
	ErrInvalidPrice  = fmt.Errorf("invalid price: %w", ErrValidation)
	ErrInvalidWindow = fmt.Errorf("invalid time window: %w", ErrValidation)
	ErrInvalidInput  = fmt.Errorf("invalid input: %w", ErrValidation)

	ErrNotHost      = fmt.Errorf("host role required: %w", ErrPermission)
	ErrNotStaff     = fmt.Errorf("host or moderator role required: %w", ErrPermission)
	ErrNotViewer    = fmt.Errorf("only viewers may bid: %w", ErrPermission)
	ErrBidBanned    = fmt.Errorf("session is banned from bidding: %w", ErrPermission)
	ErrKicked       = fmt.Errorf("session was kicked: %w", ErrPermission)
	ErrMuted        = fmt.Errorf("session is muted: %w", ErrPermission)
	ErrHostPresence = fmt.Errorf("hosts do not register presence: %w", ErrPermission)

	ErrAuctionActive  = fmt.Errorf("auction is active: %w", ErrState)
	ErrAuctionIdle    = fmt.Errorf("auction is not active: %w", ErrState)
	ErrNotExpired     = fmt.Errorf("auction has not expired: %w", ErrState)
	ErrAuctionClosing = fmt.Errorf("auction round is still being recorded: %w", ErrState)

	ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)
	ErrRoomNotFound    = fmt.Errorf("room %w", ErrNotFound)
)
