package segment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_DefaultThresholds(t *testing.T) {
	th := Thresholds{Regular: 5, VIP: 10}
	cases := []struct {
		visits int
		want   string
	}{
		{0, New},
		{1, New},
		{4, New},
		{5, Regular},
		{9, Regular},
		{10, VIP},
		{250, VIP},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.visits, th), "visits=%d", tc.visits)
	}
}

func TestClassify_EqualThresholdsPreferVIP(t *testing.T) {
	th := Thresholds{Regular: 3, VIP: 3}
	assert.Equal(t, New, Classify(2, th))
	assert.Equal(t, VIP, Classify(3, th))
	assert.Equal(t, VIP, Classify(4, th))
}

func TestClassify_ZeroVisitsAlwaysNew(t *testing.T) {
	assert.Equal(t, New, Classify(0, Thresholds{Regular: 0, VIP: 0}))
	assert.Equal(t, VIP, Classify(1, Thresholds{Regular: 0, VIP: 0}))
	assert.Equal(t, Regular, Classify(1, Thresholds{Regular: 0, VIP: 2}))
	assert.Equal(t, New, Classify(-3, Thresholds{Regular: 5, VIP: 10}))
}

func TestClassify_NeverDowngradesAsVisitsGrow(t *testing.T) {
	rank := map[string]int{New: 0, Regular: 1, VIP: 2}
	for regular := 0; regular <= 12; regular++ {
		for vip := regular; vip <= 15; vip++ {
			th := Thresholds{Regular: regular, VIP: vip}
			prev := -1
			for visits := 0; visits <= 30; visits++ {
				label := Classify(visits, th)
				require.True(t, IsLabel(label), "unexpected label %q", label)
				r := rank[label]
				require.GreaterOrEqual(t, r, prev, "downgrade at visits=%d thresholds=%+v", visits, th)
				prev = r
			}
		}
	}
}

func TestThresholds_Validate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())
	require.NoError(t, Thresholds{Regular: 4, VIP: 4}.Validate())

	for _, th := range []Thresholds{{Regular: -1, VIP: 3}, {Regular: 1, VIP: -1}, {Regular: 8, VIP: 5}} {
		err := th.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidThresholds))
	}
}
