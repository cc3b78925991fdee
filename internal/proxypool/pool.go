// Package proxypool rotates outbound proxies for the Fetch Client and
// Browser Capability. Proxy use is entirely optional; a Pool with zero
// loaded proxies reports itself disabled.
package proxypool

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Scheme is a supported proxy transport.
type Scheme string

const (
	SchemeHTTP   Scheme = "http"
	SchemeHTTPS  Scheme = "https"
	SchemeSocks5 Scheme = "socks5"
)

// Proxy is one rotation entry with running success/failure counters.
type Proxy struct {
	Host     string
	Port     int
	Scheme   Scheme
	Username string
	Password string

	successCount int
	failureCount int
	blocked      bool
}

// URL renders the proxy as a scheme://[user:pass@]host:port string,
// suitable for http.Transport's Proxy field via url.Parse.
func (p *Proxy) URL() string {
	auth := ""
	if p.Username != "" && p.Password != "" {
		auth = fmt.Sprintf("%s:%s@", p.Username, p.Password)
	}
	return fmt.Sprintf("%s://%s%s:%d", p.Scheme, auth, p.Host, p.Port)
}

// RodProxyString renders the host:port pair go-rod's launcher.Proxy
// flag expects. Credentials are not included, since rod does not take
// them via the flag.
func (p *Proxy) RodProxyString() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// FailureRate returns failures / (successes + failures), or 0 with no
// observations yet.
func (p *Proxy) FailureRate() float64 {
	total := p.successCount + p.failureCount
	if total == 0 {
		return 0
	}
	return float64(p.failureCount) / float64(total)
}

// Blocked reports whether the proxy has been taken out of rotation.
func (p *Proxy) Blocked() bool { return p.blocked }

// Pool rotates through a loaded proxy list, skipping blocked entries.
type Pool struct {
	mu            sync.Mutex
	proxies       []*Proxy
	enabled       bool
	rotateEveryN  int
	maxFailures   int
	requestCount  int
	currentIndex  int
}

// New builds an empty, disabled Pool. rotateEveryN and maxFailures fall
// back to 10 and 5 (the original defaults) when zero.
func New(rotateEveryN, maxFailures int) *Pool {
	if rotateEveryN <= 0 {
		rotateEveryN = 10
	}
	if maxFailures <= 0 {
		maxFailures = 5
	}
	return &Pool{rotateEveryN: rotateEveryN, maxFailures: maxFailures}
}

// Enabled reports whether rotation is active and at least one proxy is
// loaded.
func (p *Pool) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled && len(p.proxies) > 0
}

// Len returns the number of loaded proxies, blocked or not.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.proxies)
}

// Add appends a proxy to the pool and enables rotation.
func (p *Pool) Add(proxy *Proxy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.proxies = append(p.proxies, proxy)
	p.enabled = true
}

// LoadFile reads proxies from a text file, one per line, in the form
// "[scheme://][user:pass@]host:port". Blank lines and lines starting
// with # are ignored. Returns the count of proxies successfully
// parsed; a missing file is not an error, it yields a count of 0.
func LoadFile(path string) (*Pool, int, error) {
	pool := New(0, 0)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return pool, 0, nil
	}
	if err != nil {
		return pool, 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxy, ok := parseLine(line)
		if !ok {
			continue
		}
		pool.Add(proxy)
		count++
	}
	if err := scanner.Err(); err != nil {
		return pool, count, err
	}
	return pool, count, nil
}

func parseLine(line string) (*Proxy, bool) {
	scheme := SchemeHTTP
	if idx := strings.Index(line, "://"); idx >= 0 {
		switch strings.ToLower(line[:idx]) {
		case "socks5":
			scheme = SchemeSocks5
		case "https":
			scheme = SchemeHTTPS
		}
		line = line[idx+3:]
	}

	var username, password string
	if idx := strings.LastIndex(line, "@"); idx >= 0 {
		auth := line[:idx]
		line = line[idx+1:]
		if c := strings.Index(auth, ":"); c >= 0 {
			username, password = auth[:c], auth[c+1:]
		}
	}

	idx := strings.LastIndex(line, ":")
	if idx < 0 {
		return nil, false
	}
	host, portStr := line[:idx], line[idx+1:]
	port, err := strconv.Atoi(portStr)
	if err != nil || host == "" {
		return nil, false
	}

	return &Proxy{Host: host, Port: port, Scheme: scheme, Username: username, Password: password}, true
}

// Next returns the next unblocked proxy in rotation order, rotating
// the pointer every rotateEveryN calls, or nil when no proxies are
// enabled or all are blocked.
func (p *Pool) Next() *Proxy {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled || len(p.proxies) == 0 {
		return nil
	}

	p.requestCount++
	if p.requestCount >= p.rotateEveryN {
		p.requestCount = 0
		p.currentIndex = (p.currentIndex + 1) % len(p.proxies)
	}

	for attempts := 0; attempts < len(p.proxies); attempts++ {
		proxy := p.proxies[p.currentIndex]
		if !proxy.blocked {
			return proxy
		}
		p.currentIndex = (p.currentIndex + 1) % len(p.proxies)
	}
	return nil
}

// ReportSuccess increments a proxy's success counter.
func (p *Pool) ReportSuccess(proxy *Proxy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	proxy.successCount++
}

// ReportFailure increments a proxy's failure counter, blocking it once
// it reaches maxFailures or immediately when forceBlock is true.
func (p *Pool) ReportFailure(proxy *Proxy, forceBlock bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	proxy.failureCount++
	if forceBlock || proxy.failureCount >= p.maxFailures {
		proxy.blocked = true
	}
}

// ResetBlocked clears every proxy's blocked flag and failure count,
// returning how many were reset.
func (p *Pool) ResetBlocked() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, proxy := range p.proxies {
		if proxy.blocked {
			proxy.blocked = false
			proxy.failureCount = 0
			count++
		}
	}
	return count
}
