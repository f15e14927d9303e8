// Package client is a typed client for the CRM REST API.  The bearer token
// comes from a SessionStore; a 401 clears the store and surfaces as
// ErrUnauthorized.  Requests are not retried and carry no timeout of their
// own: cancel through the context.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/iliyamo/chinor-crm/internal/model"
	"github.com/iliyamo/chinor-crm/internal/service"
)

// Client talks to one CRM server.
type Client struct {
	http  *resty.Client
	store SessionStore
}

// New returns a client for the server at baseURL, for example
// "http://localhost:8080".  A nil store keeps the session in memory.
func New(baseURL string, store SessionStore) *Client {
	if store == nil {
		store = &MemorySessionStore{}
	}
	hc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/api").
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "chinor-crm-client/1.0")
	return &Client{http: hc, store: store}
}

// Session returns the stored session.
func (c *Client) Session() (Session, error) { return c.store.Load() }

// loginPath answers 401 for bad credentials, which is not an expired
// session.
const loginPath = "/auth/login"

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, out any) (*resty.Response, error) {
	sess, err := c.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var eb errorBody
	req := c.http.R().SetContext(ctx).SetError(&eb)
	if sess.Token != "" {
		req.SetAuthToken(sess.Token)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	switch {
	case resp.StatusCode() == http.StatusUnauthorized && path != loginPath:
		if err := c.store.Clear(); err != nil {
			return resp, fmt.Errorf("clear session: %w", err)
		}
		return resp, ErrUnauthorized
	case resp.IsError():
		msg := eb.message()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		return resp, &APIError{Status: resp.StatusCode(), Detail: msg}
	}
	return resp, nil
}

func pageQuery(search string, page, limit int) map[string]string {
	q := map[string]string{}
	if search != "" {
		q["search"] = search
	}
	if page > 0 {
		q["page"] = strconv.Itoa(page)
	}
	if limit > 0 {
		q["limit"] = strconv.Itoa(limit)
	}
	return q
}

func idPath(format string, id uint64) string {
	return fmt.Sprintf(format, id)
}

// Login signs in and stores the session.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var res service.LoginResult
	if _, err := c.do(ctx, http.MethodPost, loginPath, nil, service.LoginInput{Email: email, Password: password}, &res); err != nil {
		return Session{}, err
	}
	sess := Session{Token: res.AccessToken, User: &res.User}
	if err := c.store.Save(sess); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// Logout forgets the stored session.  Tokens are stateless so the server
// is not contacted.
func (c *Client) Logout() error { return c.store.Clear() }

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var u model.User
	_, err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &u)
	return u, err
}

// ---- Guests ----

func (c *Client) ListGuests(ctx context.Context, search string, page, limit int) (model.Page[model.Guest], error) {
	var p model.Page[model.Guest]
	_, err := c.do(ctx, http.MethodGet, "/guests", pageQuery(search, page, limit), nil, &p)
	return p, err
}

func (c *Client) GetGuest(ctx context.Context, id uint64) (model.Guest, error) {
	var g model.Guest
	_, err := c.do(ctx, http.MethodGet, idPath("/guests/%d", id), nil, nil, &g)
	return g, err
}

func (c *Client) CreateGuest(ctx context.Context, in service.GuestInput) (model.Guest, error) {
	var g model.Guest
	_, err := c.do(ctx, http.MethodPost, "/guests", nil, in, &g)
	return g, err
}

func (c *Client) UpdateGuest(ctx context.Context, id uint64, p service.GuestPatch) (model.Guest, error) {
	var g model.Guest
	_, err := c.do(ctx, http.MethodPatch, idPath("/guests/%d", id), nil, p, &g)
	return g, err
}

// RecordVisit adds one visit to the guest and returns the updated card.
func (c *Client) RecordVisit(ctx context.Context, id uint64) (model.Guest, error) {
	var g model.Guest
	_, err := c.do(ctx, http.MethodPost, idPath("/guests/%d/visits", id), nil, nil, &g)
	return g, err
}

func (c *Client) GuestStats(ctx context.Context) (model.GuestStats, error) {
	var st model.GuestStats
	_, err := c.do(ctx, http.MethodGet, "/guests/stats", nil, nil, &st)
	return st, err
}

// ExportGuests downloads the guest list as csv or xlsx.
func (c *Client) ExportGuests(ctx context.Context, format, search string) ([]byte, error) {
	q := map[string]string{"format": format}
	if search != "" {
		q["search"] = search
	}
	resp, err := c.do(ctx, http.MethodGet, "/guests/export", q, nil, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// ---- Bookings ----

// ListBookings lists bookings; date is YYYY-MM-DD or empty.
func (c *Client) ListBookings(ctx context.Context, search, date string, page, limit int) (model.Page[model.Booking], error) {
	q := pageQuery(search, page, limit)
	if date != "" {
		q["date"] = date
	}
	var p model.Page[model.Booking]
	_, err := c.do(ctx, http.MethodGet, "/bookings", q, nil, &p)
	return p, err
}

func (c *Client) GetBooking(ctx context.Context, id uint64) (model.Booking, error) {
	var b model.Booking
	_, err := c.do(ctx, http.MethodGet, idPath("/bookings/%d", id), nil, nil, &b)
	return b, err
}

func (c *Client) CreateBooking(ctx context.Context, in service.BookingInput) (model.Booking, error) {
	var b model.Booking
	_, err := c.do(ctx, http.MethodPost, "/bookings", nil, in, &b)
	return b, err
}

// SetBookingStatus moves a booking to status.  A disallowed change is an
// *APIError with status 409.
func (c *Client) SetBookingStatus(ctx context.Context, id uint64, status string) (model.Booking, error) {
	var b model.Booking
	_, err := c.do(ctx, http.MethodPatch, idPath("/bookings/%d/status", id), nil, service.StatusInput{Status: status}, &b)
	return b, err
}

// ---- Broadcasts ----

func (c *Client) CreateBroadcast(ctx context.Context, in service.BroadcastInput) (model.Campaign, error) {
	var camp model.Campaign
	_, err := c.do(ctx, http.MethodPost, "/broadcasts", nil, in, &camp)
	return camp, err
}

func (c *Client) BroadcastStats(ctx context.Context) (model.BroadcastStats, error) {
	var st model.BroadcastStats
	_, err := c.do(ctx, http.MethodGet, "/broadcasts/stats", nil, nil, &st)
	return st, err
}

func (c *Client) BroadcastHistory(ctx context.Context) ([]model.BroadcastHistoryItem, error) {
	var items []model.BroadcastHistoryItem
	_, err := c.do(ctx, http.MethodGet, "/broadcasts/history", nil, nil, &items)
	return items, err
}

// ---- Settings ----

func (c *Client) Settings(ctx context.Context) (model.Settings, error) {
	var st model.Settings
	_, err := c.do(ctx, http.MethodGet, "/settings", nil, nil, &st)
	return st, err
}

func (c *Client) UpdateSettings(ctx context.Context, p model.SettingsPatch) (model.Settings, error) {
	var st model.Settings
	_, err := c.do(ctx, http.MethodPatch, "/settings", nil, p, &st)
	return st, err
}

// RecalculateSegments re-classifies every guest with the current
// thresholds.
func (c *Client) RecalculateSegments(ctx context.Context) (model.RecalcResult, error) {
	var res model.RecalcResult
	_, err := c.do(ctx, http.MethodPost, "/settings/recalc-segments", nil, nil, &res)
	return res, err
}

// ---- Dashboard ----

func (c *Client) DashboardStats(ctx context.Context) (model.DashboardStats, error) {
	var st model.DashboardStats
	_, err := c.do(ctx, http.MethodGet, "/dashboard/stats", nil, nil, &st)
	return st, err
}

func (c *Client) DashboardOverview(ctx context.Context, days int) (model.DashboardOverview, error) {
	var ov model.DashboardOverview
	_, err := c.do(ctx, http.MethodGet, "/dashboard/overview", map[string]string{"days": strconv.Itoa(days)}, nil, &ov)
	return ov, err
}

// ---- Public QR forms ----

// PublicCreateGuest registers a guest without signing in.  Use IsConflict
// to detect an already registered phone.
func (c *Client) PublicCreateGuest(ctx context.Context, in service.GuestInput) (model.Guest, error) {
	var g model.Guest
	_, err := c.do(ctx, http.MethodPost, "/public/guest", nil, in, &g)
	return g, err
}

func (c *Client) PublicCreateBooking(ctx context.Context, in service.BookingInput) (model.Booking, error) {
	var b model.Booking
	_, err := c.do(ctx, http.MethodPost, "/public/booking", nil, in, &b)
	return b, err
}
