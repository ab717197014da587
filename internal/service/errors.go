package service

import (
	"fmt"

	"github.com/go-faster/errors"

	"github.com/d60-Lab/eazyeats/internal/admission"
)

var (
	ErrPickupInPast      = errors.New("pickup time in the past")
	ErrOutsideHours      = errors.New("outside cafeteria hours")
	ErrSlotFull          = admission.ErrSlotFull
	ErrMenuUnavailable   = errors.New("menu unavailable")
	ErrInvalidItem       = errors.New("invalid item")
	ErrEmptyOrder        = errors.New("order has no items")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStatusConflict    = errors.New("order status changed concurrently")
	ErrOrderNotFound     = errors.New("order not found")
	ErrForbidden         = errors.New("forbidden")

	ErrPaymentsDisabled = errors.New("payments not configured")
	ErrAmountTooSmall   = errors.New("amount too small")
	ErrUploadsDisabled  = errors.New("cloudinary not configured")

	ErrNoActiveMenu  = errors.New("no active menu")
	ErrItemNotFound  = errors.New("item not found")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidRole        = errors.New("invalid role")
)

// AmountTooSmallError 订单金额低于支付下限（单位：分）
type AmountTooSmallError struct {
	Amount  int64
	Minimum int64
}

func (e *AmountTooSmallError) Error() string {
	return fmt.Sprintf("amount %d below minimum %d", e.Amount, e.Minimum)
}

func (e *AmountTooSmallError) Is(target error) bool { return target == ErrAmountTooSmall }
