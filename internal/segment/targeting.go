package segment

import (
	"errors"
	"strings"
)

// Selector values accepted as a broadcast target.
const (
	SelectorAll     = "all"
	SelectorVIP     = "VIP"
	SelectorRegular = "Постоянные"
	SelectorNew     = "Новички"
)

// ErrUnknownSelector is returned by ParseSelector for anything outside the
// four known selectors.
var ErrUnknownSelector = errors.New("unknown segment selector")

// Selector is a validated broadcast target.  The zero value is not valid;
// obtain one through ParseSelector.
type Selector string

// ParseSelector validates a raw selector string.  Surrounding whitespace is
// ignored, "all" is case-insensitive and the singular label "Новичок" is
// accepted as an alias of "Новички".
func ParseSelector(raw string) (Selector, error) {
	s := strings.TrimSpace(raw)
	switch {
	case strings.EqualFold(s, SelectorAll):
		return SelectorAll, nil
	case s == SelectorVIP:
		return SelectorVIP, nil
	case s == SelectorRegular:
		return SelectorRegular, nil
	case s == SelectorNew || s == New:
		return SelectorNew, nil
	}
	return "", ErrUnknownSelector
}

// Label returns the tier label the selector targets, or "" for "all".
func (s Selector) Label() string {
	switch s {
	case SelectorVIP:
		return VIP
	case SelectorRegular:
		return Regular
	case SelectorNew:
		return New
	}
	return ""
}

// Matches reports whether a guest carrying the given label is targeted.
func (s Selector) Matches(label string) bool {
	if s == SelectorAll {
		return true
	}
	return s.Label() == label
}

// Recipient is the view of a guest the resolver needs.
type Recipient interface {
	SegmentLabel() string
	OptedOut() bool
}

// Resolve returns the members of guests targeted by the selector, skipping
// everyone who opted out of broadcasts.  Order is preserved.  Call it at
// delivery time: the result must reflect opt-outs made after a campaign was
// created.
func Resolve[T Recipient](sel Selector, guests []T) []T {
	out := make([]T, 0, len(guests))
	for _, g := range guests {
		if g.OptedOut() {
			continue
		}
		if !sel.Matches(g.SegmentLabel()) {
			continue
		}
		out = append(out, g)
	}
	return out
}
