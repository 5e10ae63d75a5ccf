package sales

import "errors"

var (
	// ErrInvalidWindow is returned when a date window cannot be built or is empty.
	ErrInvalidWindow = errors.New("sales: invalid date window")
	// ErrNoOrders is the "nothing to do" outcome when the window holds no orders.
	ErrNoOrders = errors.New("sales: no orders in window")
	// ErrNoRows is the "nothing to do" outcome when no top-level item qualifies.
	ErrNoRows = errors.New("sales: no report rows produced")
	// ErrPageLimitExceeded is returned when pagination does not converge.
	ErrPageLimitExceeded = errors.New("sales: order page limit exceeded")
	// ErrNotFound marks a catalog resource the platform does not know.
	ErrNotFound = errors.New("sales: resource not found")
)

// IsNothingToDo reports whether err is one of the clean empty-run outcomes.
func IsNothingToDo(err error) bool {
	return errors.Is(err, ErrNoOrders) || errors.Is(err, ErrNoRows)
}

var (
	ErrInvalidPage     = errors.New("sales: page must be at least 1")
	ErrInvalidPageSize = errors.New("sales: page size out of range")
)

// MaxPageSize is the largest page the platform serves.
const MaxPageSize = 500
