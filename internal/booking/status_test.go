package booking

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_Allowed(t *testing.T) {
	cases := []struct {
		from, to  Status
		confirmed bool
	}{
		{Pending, Confirmed, true},
		{Pending, NoShow, false},
		{Pending, Canceled, false},
		{Confirmed, NoShow, false},
		{Confirmed, Canceled, false},
	}
	for _, tc := range cases {
		out, err := Transition(tc.from, tc.to)
		require.NoError(t, err, "%s -> %s", tc.from, tc.to)
		assert.True(t, out.Changed)
		assert.Equal(t, tc.confirmed, out.CountsConfirmation, "%s -> %s", tc.from, tc.to)
	}
}

func TestTransition_SameStatusIsNoop(t *testing.T) {
	for _, s := range Statuses() {
		out, err := Transition(s, s)
		require.NoError(t, err)
		assert.False(t, out.Changed)
		assert.False(t, out.CountsConfirmation, "re-confirming must not count twice")
	}
}

func TestTransition_NoShowCannotReturnToPending(t *testing.T) {
	out, err := Transition(Pending, NoShow)
	require.NoError(t, err)
	require.True(t, out.Changed)

	_, err = Transition(NoShow, Pending)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, NoShow, te.From)
	assert.Equal(t, Pending, te.To)
}

func TestTransition_TerminalStatesRejectEverything(t *testing.T) {
	for _, from := range []Status{NoShow, Canceled} {
		assert.True(t, from.Terminal())
		for _, to := range Statuses() {
			if to == from {
				continue
			}
			_, err := Transition(from, to)
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", from, to)
		}
	}
	assert.False(t, Pending.Terminal())
	assert.False(t, Confirmed.Terminal())
}

func TestTransition_ConfirmedCannotGoBackToPending(t *testing.T) {
	_, err := Transition(Confirmed, Pending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

// confirmed_bookings_count is cumulative: leaving confirmed does not undo it.
func TestTransition_ConfirmationCounterAsymmetry(t *testing.T) {
	count := 0
	apply := func(from, to Status) Status {
		out, err := Transition(from, to)
		require.NoError(t, err)
		if out.CountsConfirmation {
			count++
		}
		return to
	}

	first := apply(Pending, Confirmed)
	apply(first, Canceled)
	assert.Equal(t, 1, count)

	second := apply(Pending, Confirmed)
	apply(second, Confirmed)
	assert.Equal(t, 2, count)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" Confirmed ")
	require.NoError(t, err)
	assert.Equal(t, Confirmed, s)

	s, err = ParseStatus("no_show")
	require.NoError(t, err)
	assert.Equal(t, NoShow, s)

	_, err = ParseStatus("cancelled")
	assert.ErrorIs(t, err, ErrUnknownStatus)
	_, err = ParseStatus("")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}
