package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// Optional Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Optional is an explicitly present-or-absent value. Filters such as track,
// rejection reason and pagination key their behavior off absence, so the zero
// value of T is never used as a stand-in for "not given".
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns a present Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// FromPtr converts a nil-able pointer into an Optional.
func FromPtr[T any](p *T) Optional[T] {
	if p == nil {
		return None[T]()
	}
	return Some(*p)
}

// IsSet reports whether a value is present.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// OrElse returns the value, or def when absent.
func (o Optional[T]) OrElse(def T) T {
	if o.set {
		return o.value
	}
	return def
}

// Ptr returns a pointer to a copy of the value, or nil when absent.
func (o Optional[T]) Ptr() *T {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsUUID reports whether s looks like a canonical UUID.
func IsUUID(s string) bool {
	return uuidRegex.MatchString(s)
}

// NormalizeID lowercases and trims an identifier.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// ═══════════════════════════════════════════════════════════════════════════
// Page Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Page is a skip/take window over an ordered result. Both bounds are
// optional: absent Skip starts at the first row, absent Take is unbounded.
type Page struct {
	Skip Optional[int]
	Take Optional[int]
}

// Validate rejects negative bounds.
func (p Page) Validate() error {
	if s, ok := p.Skip.Get(); ok && s < 0 {
		return ErrInvalidPage
	}
	if t, ok := p.Take.Get(); ok && t < 0 {
		return ErrInvalidPage
	}
	return nil
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return p.Skip.OrElse(0)
}

// Window applies the page to n ordered items and returns the [start, end)
// bounds into them.
func (p Page) Window(n int) (start, end int) {
	start = p.Offset()
	if start > n {
		start = n
	}
	end = n
	// t < end-start, not start+t < end: take may be as large as MaxInt.
	if t, ok := p.Take.Get(); ok && t < end-start {
		end = start + t
	}
	return start, end
}
