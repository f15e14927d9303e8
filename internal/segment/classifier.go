// Package segment maps a guest's visit count onto a loyalty tier and resolves
// broadcast audiences from a segment selector.  The functions here are pure:
// they never read settings or storage themselves, callers pass the current
// thresholds in.
package segment

import (
	"errors"
	"fmt"
)

// Tier labels as they are stored on guests and shown to staff.
const (
	New     = "Новичок"
	Regular = "Постоянные"
	VIP     = "VIP"
)

// Default thresholds used when the settings row is first created.
const (
	DefaultRegularThreshold = 5
	DefaultVIPThreshold     = 10
)

// ErrInvalidThresholds is returned by Thresholds.Validate.
var ErrInvalidThresholds = errors.New("invalid segment thresholds")

// Thresholds holds the two visit counts at which a guest is promoted.
// Regular is the first count that earns the "Постоянные" label, VIP the
// first count that earns "VIP".
type Thresholds struct {
	Regular int `json:"segment_regular_threshold"`
	VIP     int `json:"segment_vip_threshold"`
}

// DefaultThresholds returns the thresholds a fresh installation starts with.
func DefaultThresholds() Thresholds {
	return Thresholds{Regular: DefaultRegularThreshold, VIP: DefaultVIPThreshold}
}

// Validate checks that both thresholds are non-negative and that the VIP
// threshold is not below the regular one.
func (t Thresholds) Validate() error {
	if t.Regular < 0 {
		return fmt.Errorf("%w: regular threshold must be >= 0, got %d", ErrInvalidThresholds, t.Regular)
	}
	if t.VIP < 0 {
		return fmt.Errorf("%w: vip threshold must be >= 0, got %d", ErrInvalidThresholds, t.VIP)
	}
	if t.VIP < t.Regular {
		return fmt.Errorf("%w: vip threshold (%d) must not be below regular threshold (%d)", ErrInvalidThresholds, t.VIP, t.Regular)
	}
	return nil
}

// Classify returns the tier label for the given visit count.  A guest with
// no visits is always new.  Otherwise thresholds are evaluated from highest
// to lowest, so when both thresholds are equal a guest at that count is VIP.
// Negative counts are treated as zero.
func Classify(visits int, t Thresholds) string {
	if visits <= 0 {
		return New
	}
	if visits >= t.VIP {
		return VIP
	}
	if visits >= t.Regular {
		return Regular
	}
	return New
}

// Labels lists every label Classify can return, lowest tier first.
func Labels() []string {
	return []string{New, Regular, VIP}
}

// IsLabel reports whether s is one of the tier labels.
func IsLabel(s string) bool {
	switch s {
	case New, Regular, VIP:
		return true
	}
	return false
}
