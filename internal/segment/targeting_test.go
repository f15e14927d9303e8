package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGuest struct {
	id     int
	label  string
	optOut bool
}

func (g fakeGuest) SegmentLabel() string { return g.label }
func (g fakeGuest) OptedOut() bool       { return g.optOut }

func ids(gs []fakeGuest) []int {
	out := make([]int, 0, len(gs))
	for _, g := range gs {
		out = append(out, g.id)
	}
	return out
}

func TestParseSelector(t *testing.T) {
	cases := map[string]Selector{
		"all":        SelectorAll,
		" ALL ":      SelectorAll,
		"VIP":        SelectorVIP,
		"Постоянные": SelectorRegular,
		"Новички":    SelectorNew,
		"Новичок":    SelectorNew,
	}
	for raw, want := range cases {
		got, err := ParseSelector(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"", "vip", "regular", "Гости"} {
		_, err := ParseSelector(raw)
		assert.ErrorIs(t, err, ErrUnknownSelector, raw)
	}
}

func TestResolve_FiltersBySegmentAndOptOut(t *testing.T) {
	guests := []fakeGuest{
		{id: 1, label: New},
		{id: 2, label: VIP},
		{id: 3, label: VIP, optOut: true},
		{id: 4, label: Regular},
		{id: 5, label: New, optOut: true},
	}

	assert.Equal(t, []int{1, 2, 4}, ids(Resolve(SelectorAll, guests)))
	assert.Equal(t, []int{2}, ids(Resolve(SelectorVIP, guests)))
	assert.Equal(t, []int{4}, ids(Resolve(SelectorRegular, guests)))
	assert.Equal(t, []int{1}, ids(Resolve(SelectorNew, guests)))
}

func TestResolve_OptOutExcludedEvenForAll(t *testing.T) {
	guests := []fakeGuest{{id: 1, label: VIP, optOut: true}, {id: 2, label: Regular, optOut: true}}
	assert.Empty(t, Resolve(SelectorAll, guests))
}

func TestResolve_ReflectsOptOutAtResolutionTime(t *testing.T) {
	guests := []fakeGuest{{id: 7, label: VIP}}
	sel, err := ParseSelector("VIP")
	require.NoError(t, err)

	assert.Equal(t, []int{7}, ids(Resolve(sel, guests)))

	// guest opts out after the campaign was queued
	guests[0].optOut = true
	assert.Empty(t, Resolve(sel, guests))
}
