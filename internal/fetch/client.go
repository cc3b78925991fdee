// Package fetch implements the Fetch Client: a single-threaded HTTP
// client wrapping a persistent connection pool and cookie jar, paced
// by a Rate Governor, rotating identities from a UA Pool, and dialing
// TLS with a Chrome fingerprint via utls to resist passive fingerprint
// blocking.
package fetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	utls "github.com/refraction-networking/utls"

	"github.com/use-agent/leadforge/internal/proxypool"
	"github.com/use-agent/leadforge/internal/ratelimit"
	"github.com/use-agent/leadforge/internal/uapool"
)

// Response is the normalized result of one request, mirroring the
// original client's HTTPResponse dataclass.
type Response struct {
	Success      bool
	StatusCode   int
	Body         string
	URL          string
	FinalURL     string
	Headers      map[string]string
	ElapsedMS    int64
	Err          string
}

// WasRedirected reports whether the final URL differs from the
// requested one.
func (r Response) WasRedirected() bool { return r.URL != "" && r.FinalURL != "" && r.URL != r.FinalURL }

// Client is the Fetch Client. One instance is single-user: it must
// not be shared across concurrently-running callers.
type Client struct {
	governor  *ratelimit.Governor
	uaPool    *uapool.Pool
	proxies   *proxypool.Pool
	client    *http.Client
	connect   time.Duration
	read      time.Duration
	rotateEvery int
	requestCount int
	identity     string
}

// Config tunes a Client.
type Config struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	RotateUAEvery  int
}

// DefaultConfig mirrors the documented defaults: 10s connect, 30s read,
// UA rotation every 10 requests.
func DefaultConfig() Config {
	return Config{ConnectTimeout: 10 * time.Second, ReadTimeout: 30 * time.Second, RotateUAEvery: 10}
}

// New builds a Client. governor and uaPool must not be nil; proxies
// may be nil (meaning no proxy support).
func New(cfg Config, governor *ratelimit.Governor, uaPool *uapool.Pool, proxies *proxypool.Pool) *Client {
	if cfg.RotateUAEvery <= 0 {
		cfg.RotateUAEvery = 10
	}
	jar, _ := cookiejar.New(nil)

	c := &Client{
		governor:    governor,
		uaPool:      uaPool,
		proxies:     proxies,
		connect:     cfg.ConnectTimeout,
		read:        cfg.ReadTimeout,
		rotateEvery: cfg.RotateUAEvery,
	}

	c.client = &http.Client{
		Jar:     jar,
		Timeout: cfg.ReadTimeout,
		Transport: &http.Transport{
			DialTLSContext: c.dialTLSChrome,
		},
	}
	return c
}

// currentIdentity returns the UA string to use for this request,
// rotating every rotateEvery requests.
func (c *Client) currentIdentity() string {
	if c.identity == "" || c.requestCount%c.rotateEvery == 0 {
		c.identity = c.uaPool.Next()
	}
	return c.identity
}

func (c *Client) currentProxy() *proxypool.Proxy {
	if c.proxies == nil {
		return nil
	}
	return c.proxies.Next()
}

func (c *Client) dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: c.connect}

	rawConn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := utls.UClient(rawConn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// Get performs a single GET request, applying the Rate Governor's
// Acquire before issuing it.
func (c *Client) Get(ctx context.Context, target string, class ratelimit.HostClass) (Response, error) {
	return c.do(ctx, http.MethodGet, target, class)
}

// Head performs a single HEAD request.
func (c *Client) Head(ctx context.Context, target string, class ratelimit.HostClass) (Response, error) {
	return c.do(ctx, http.MethodHead, target, class)
}

func (c *Client) do(ctx context.Context, method, target string, class ratelimit.HostClass) (Response, error) {
	u, err := url.Parse(target)
	if err != nil {
		return Response{Success: false, URL: target, Err: err.Error()}, nil
	}

	if _, err := c.governor.Acquire(ctx, u.Host, class); err != nil {
		return Response{}, err
	}

	identity := c.currentIdentity()
	c.requestCount++

	proxy := c.currentProxy()
	transport := c.client.Transport.(*http.Transport)
	if proxy != nil {
		proxyURL, parseErr := url.Parse(proxy.URL())
		if parseErr == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	} else {
		transport.Proxy = nil
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return Response{Success: false, URL: target, Err: err.Error()}, nil
	}
	for k, v := range uapool.Headers(identity) {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		c.governor.ReportError(u.Host, 0)
		if proxy != nil {
			c.proxies.ReportFailure(proxy, false)
		}
		return Response{
			Success:   false,
			StatusCode: 0,
			URL:       target,
			ElapsedMS: elapsed.Milliseconds(),
			Err:       err.Error(),
		}, nil
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))

	headers := map[string]string{}
	for k := range resp.Header {
		headers[strings.ToLower(k)] = resp.Header.Get(k)
	}

	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	success := resp.StatusCode < 400 && readErr == nil
	if success {
		c.governor.ReportSuccess(u.Host)
		if proxy != nil {
			c.proxies.ReportSuccess(proxy)
		}
	} else {
		c.governor.ReportError(u.Host, resp.StatusCode)
		if proxy != nil {
			c.proxies.ReportFailure(proxy, false)
		}
	}

	errStr := ""
	if readErr != nil {
		errStr = readErr.Error()
	}

	return Response{
		Success:    success,
		StatusCode: resp.StatusCode,
		Body:       string(bodyBytes),
		URL:        target,
		FinalURL:   finalURL,
		Headers:    headers,
		ElapsedMS:  elapsed.Milliseconds(),
		Err:        errStr,
	}, nil
}

// GetWithRetry composes Get with the Rate Governor's retry policy: on
// a non-success response where ShouldRetry holds, it sleeps RetryDelay
// and re-issues, up to MaxRetries retries after the first attempt.
func (c *Client) GetWithRetry(ctx context.Context, target string, class ratelimit.HostClass) (Response, error) {
	var resp Response
	for attempt := 0; ; attempt++ {
		var err error
		resp, err = c.Get(ctx, target, class)
		if err != nil {
			return resp, err
		}
		if resp.Success {
			return resp, nil
		}
		if !c.governor.ShouldRetry(resp.StatusCode, attempt) {
			return resp, nil
		}

		delay := c.governor.RetryDelay(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return resp, ctx.Err()
		case <-timer.C:
		}
	}
}

// Close releases idle connections held by the underlying transport.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}
