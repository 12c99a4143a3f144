// Package cardservice is the HTTP client of the remote Card Service.
//
// It normalizes the service's list responses into cardcache pages, falls back to
// full-set retrieval with client-side search and slicing when the service does not
// report a total, and implements cardcache.CardService.
package cardservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/cardcache"
	"github.com/unkn0wn-root/cardcache/codec"
	"github.com/unkn0wn-root/cardcache/provider"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultMaxBodyBytes = 8 << 20
	defaultMemoTTL      = 5 * time.Second
	defaultPath         = "/cards"
)

type Options struct {
	// Required
	BaseURL string

	CollectionPath string       // "" => "/cards"
	HTTPClient     *http.Client // nil => http.Client with Timeout
	Timeout        time.Duration
	MaxBodyBytes   int // 0 => 8 MiB

	// Token returns the session token; empty means anonymous.
	Token func() string
	// OnUnauthorized runs on 401 and 403 answers.
	OnUnauthorized func()
	// OnServerError runs on network failures (status 0) and 5xx answers.
	OnServerError func(status int, message string)

	// Memo keeps the unfiltered collection between fallback reads. nil disables it.
	Memo    provider.Provider
	MemoTTL time.Duration // 0 => 5s

	Logger cardcache.Logger // nil => NopLogger
}

type Client struct {
	base    *url.URL
	path    string
	hc      *http.Client
	maxBody int

	token          func() string
	onUnauthorized func()
	onServerError  func(int, string)

	memo    provider.Provider
	memoTTL time.Duration
	memoKey string
	memoGen atomic.Uint64

	log cardcache.Logger
}

var _ cardcache.CardService = (*Client)(nil)

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("cardservice: BaseURL is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("cardservice: BaseURL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("cardservice: BaseURL %q is not absolute", opts.BaseURL)
	}
	path := "/" + strings.Trim(coalesce(opts.CollectionPath, defaultPath), "/")

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: coalesce(opts.Timeout, defaultTimeout)}
	}
	var log cardcache.Logger = cardcache.NopLogger{}
	if opts.Logger != nil {
		log = opts.Logger
	}

	c := &Client{
		base:           base,
		path:           path,
		hc:             hc,
		maxBody:        coalesce(opts.MaxBodyBytes, defaultMaxBodyBytes),
		token:          opts.Token,
		onUnauthorized: opts.OnUnauthorized,
		onServerError:  opts.OnServerError,
		memo:           opts.Memo,
		memoTTL:        coalesce(opts.MemoTTL, defaultMemoTTL),
		memoKey:        "cardservice:full:" + base.String() + path,
		log:            log,
	}
	return c, nil
}

type response struct {
	status      int
	contentType string
	body        []byte
}

func (c *Client) url(elem string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + c.path
	u.RawPath = ""
	if elem != "" {
		u.Path += "/" + elem
		u.RawPath = strings.TrimRight(c.base.EscapedPath(), "/") + c.path + "/" + url.PathEscape(elem)
	}
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// do performs one request. Non-2xx answers come back as *StatusError after the
// transport callbacks ran.
func (c *Client) do(ctx context.Context, method, elem string, q url.Values, body any) (*response, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("cardservice: encode %s body: %w", method, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(elem, q), rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", codec.Accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if t := c.token(); t != "" {
			req.Header.Set("Authorization", "Bearer "+t)
			req.Header.Set("x-auth-token", t)
		}
	}

	res, err := c.hc.Do(req)
	if err != nil {
		// a cancelled caller is not a service outage
		if ctx.Err() == nil {
			c.serverError(0, err.Error())
		}
		return nil, err
	}
	defer res.Body.Close()

	// one byte past the limit so codec.Limit can tell oversized bodies apart
	b, err := io.ReadAll(io.LimitReader(res.Body, int64(c.maxBody)+1))
	if err != nil {
		if ctx.Err() == nil {
			c.serverError(0, err.Error())
		}
		return nil, err
	}
	r := &response{status: res.StatusCode, contentType: res.Header.Get("Content-Type"), body: b}

	if r.status < 200 || r.status > 299 {
		se := &StatusError{Code: r.status, Message: errorMessage(r)}
		switch {
		case se.Unauthorized():
			if c.onUnauthorized != nil {
				c.onUnauthorized()
			}
		case r.status >= 500:
			c.serverError(r.status, se.Message)
		}
		c.log.Debug("card service answered with an error", cardcache.Fields{
			"method": method, "status": r.status, "msg": se.Message,
		})
		return nil, se
	}
	return r, nil
}

func (c *Client) serverError(status int, msg string) {
	if c.onServerError != nil {
		c.onServerError(status, msg)
	}
}

// errorMessage prefers the body's "message", then "error", then its short text.
func errorMessage(r *response) string {
	var m struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if len(r.body) == 0 {
		return ""
	}
	if f, _ := codec.FormatOf(r.contentType); f != codec.FormatJSON {
		if v, err := codec.For[map[string]any](f).Decode(r.body); err == nil {
			m.Message, _ = v["message"].(string)
			m.Error, _ = v["error"].(string)
		}
	} else if json.Unmarshal(r.body, &m) != nil {
		s := strings.TrimSpace(string(r.body))
		if len(s) > 200 {
			s = s[:200]
		}
		return s
	}
	return coalesce(m.Message, m.Error)
}

// decode picks the codec from the response Content-Type.
func decode[V any](r *response, maxBytes int) (V, error) {
	f, _ := codec.FormatOf(r.contentType)
	return codec.Limit[V]{Inner: codec.For[V](f), MaxDecode: maxBytes}.Decode(r.body)
}

func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
