package client

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/iliyamo/chinor-crm/internal/model"
)

// Autocomplete runs debounced guest lookups for a search box.  Every call
// to Search takes a sequence number; a call that has been superseded by a
// newer one before its response arrives reports ok=false and its result
// must be ignored.
type Autocomplete struct {
	c     *Client
	delay time.Duration
	limit int
	seq   atomic.Uint64
}

// NewAutocomplete returns an Autocomplete that waits delay after the last
// keystroke and asks for at most limit guests.
func NewAutocomplete(c *Client, delay time.Duration, limit int) *Autocomplete {
	return &Autocomplete{c: c, delay: delay, limit: limit}
}

// Search looks up guests matching query.  It returns ok=false without
// error when a newer Search started while this one was waiting or in
// flight.
func (a *Autocomplete) Search(ctx context.Context, query string) (guests []model.Guest, ok bool, err error) {
	n := a.seq.Add(1)
	if a.delay > 0 {
		t := time.NewTimer(a.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, false, ctx.Err()
		case <-t.C:
		}
		if a.seq.Load() != n {
			return nil, false, nil
		}
	}
	page, err := a.c.ListGuests(ctx, query, 1, a.limit)
	if a.seq.Load() != n {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return page.Items, true, nil
}
