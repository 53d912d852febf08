package vesting

import "errors"

var (
	ErrUnauthorized             = errors.New("vesting: unauthorized")
	ErrInvalidDuration          = errors.New("vesting: duration must be > 0")
	ErrTimestampOverflow        = errors.New("vesting: start plus cliff or duration overflows")
	ErrInvalidSlicePeriod       = errors.New("vesting: slicePeriodSeconds must be >= 1")
	ErrInvalidAmount            = errors.New("vesting: amount must be > 0")
	ErrInsufficientFunds        = errors.New("vesting: insufficient withdrawable funds")
	ErrInsufficientVestedAmount = errors.New("vesting: not enough vested tokens")
	ErrNotRevocable             = errors.New("vesting: schedule is not revocable")
	ErrInsufficientBankBalance  = errors.New("vesting: amount exceeds TGE bank balance")
	ErrScheduleNotFound         = errors.New("vesting: schedule not found")
	ErrScheduleRevoked          = errors.New("vesting: schedule revoked")
	ErrInvalidCategory          = errors.New("vesting: invalid category")
	ErrInvalidPercent           = errors.New("vesting: TGE percent must be <= 100")
	ErrOwnerMismatch            = errors.New("vesting: stored owner differs from configured owner")
	ErrNotInitialized           = errors.New("vesting: engine not initialised")
	ErrTransferFailed           = errors.New("vesting: transfer failed")
)
