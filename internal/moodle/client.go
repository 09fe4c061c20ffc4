package moodle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
)

// Client talks to one Moodle portal on behalf of one authenticated user. It
// owns the login session cookie jar, the webservice token and the page-turn
// sesskey; nothing about the session lives in package state.
type Client struct {
	domain string
	token  string
	log    *slog.Logger

	http       *http.Client // follows redirects, shares the cookie jar
	noRedirect *http.Client

	userID  int64
	sesskey string

	retryMax   uint64
	retryDelay time.Duration
}

type ClientOption func(*Client)

func WithLogger(l *slog.Logger) ClientOption { return func(c *Client) { c.log = l } }

// WithRetry bounds the transient-failure retries around every round trip.
func WithRetry(max int, delay time.Duration) ClientOption {
	return func(c *Client) {
		if max >= 0 {
			c.retryMax = uint64(max)
		}
		if delay > 0 {
			c.retryDelay = delay
		}
	}
}

// New builds a client for the given portal. Login must be called before any
// page submissions; webservice reads only need the token.
func New(domain, token string, opts ...ClientOption) (*Client, error) {
	domain = strings.TrimRight(domain, "/")
	if domain == "" {
		return nil, fmt.Errorf("moodle: empty domain")
	}
	if token == "" {
		return nil, fmt.Errorf("moodle: empty token")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		domain:     domain,
		token:      token,
		log:        slog.Default(),
		retryMax:   3,
		retryDelay: 500 * time.Millisecond,
	}
	c.http = &http.Client{Jar: jar, Timeout: 30 * time.Second}
	c.noRedirect = &http.Client{
		Jar:     jar,
		Timeout: 30 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// UserID is valid after Login.
func (c *Client) UserID() int64 { return c.userID }

// Login scrapes the portal login form, replays its hidden fields with the
// credentials, and resolves the acting user id. Failed credentials are fatal,
// never retried.
func (c *Client) Login(ctx context.Context, username, password string) error {
	loginURL := c.domain + "/login/index.php"

	c.log.Info("fetching login form")
	body, err := c.get(ctx, c.http, "login form", loginURL)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("login form: %w", err)
	}
	form := hiddenInputs(doc)
	form.Set("username", username)
	form.Set("password", password)

	c.log.Info("signing in", "user", username)
	body, err = c.postForm(ctx, c.http, "login", loginURL, form)
	if err != nil {
		return err
	}
	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
		// A successful login never lands back on a password prompt.
		if doc.Find(`input[type="password"]`).Length() > 0 {
			return ErrAuthFailed
		}
	}

	var info siteInfoResp
	if err := c.callWS(ctx, "core_webservice_get_site_info", nil, &info); err != nil {
		return fmt.Errorf("site info: %w", err)
	}
	c.userID = info.UserID
	c.log.Info("signed in", "userid", info.UserID, "site", info.SiteName)
	return nil
}

// callWS performs a REST webservice call and decodes the JSON body into out,
// after checking for the exception envelope the portal uses for every
// application-level failure.
func (c *Client) callWS(ctx context.Context, fn string, params url.Values, out any) error {
	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("wstoken", c.token)
	q.Set("wsfunction", fn)
	q.Set("moodlewsrestformat", "json")

	body, err := c.get(ctx, c.http, fn, c.domain+"/webservice/rest/server.php?"+q.Encode())
	if err != nil {
		return err
	}

	var fault wsFault
	if err := json.Unmarshal(body, &fault); err == nil && fault.Exception != "" {
		return &RemoteError{Exception: fault.Exception, ErrorCode: fault.ErrorCode, Message: fault.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode: %w", fn, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, hc *http.Client, op, rawurl string) ([]byte, error) {
	return c.roundTrip(ctx, hc, op, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	})
}

func (c *Client) postForm(ctx context.Context, hc *http.Client, op, rawurl string, form url.Values) ([]byte, error) {
	encoded := form.Encode()
	return c.roundTrip(ctx, hc, op, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawurl, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
}

// roundTrip runs one request under the transient-failure policy: network
// errors and 5xx responses back off and retry, anything else returns at once.
func (c *Client) roundTrip(ctx context.Context, hc *http.Client, op string, build func() (*http.Request, error)) ([]byte, error) {
	attempt := func() ([]byte, error) {
		req, err := build()
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := hc.Do(req)
		if err != nil {
			c.log.Warn("request failed, will retry", "op", op, "err", err)
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode/100 != 2 && resp.StatusCode/100 != 3 {
			herr := &HTTPError{Op: op, Status: resp.Status, StatusCode: resp.StatusCode}
			if !herr.Temporary() {
				return nil, backoff.Permanent(error(herr))
			}
			c.log.Warn("portal error, will retry", "op", op, "status", resp.Status)
			return nil, herr
		}
		return body, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryDelay
	return backoff.RetryWithData(attempt, backoff.WithContext(backoff.WithMaxRetries(bo, c.retryMax), ctx))
}
