// Package httpc builds the HTTP clients used for hosted model services and
// the voicechat server. Every client has a timeout and identifies itself
// with UserAgent.
package httpc

import (
	"net"
	"net/http"
	"time"
)

const (
	// UploadTimeout covers one recording upload or one generation request.
	UploadTimeout = 60 * time.Second

	DefaultConnectTimeout = 10 * time.Second
)

// UserAgent is sent on every request that does not set its own.
var UserAgent = "go-voicechat"

// transport is shared so clients with different timeouts pool connections.
var transport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   DefaultConnectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConnsPerHost:   4,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   DefaultConnectTimeout,
	ExpectContinueTimeout: time.Second,
}

// NewClient returns a client whose requests, including reading the body,
// must finish within timeout. Zero means UploadTimeout.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = UploadTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: userAgent{next: transport},
	}
}

type userAgent struct {
	next http.RoundTripper
}

func (u userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return u.next.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", UserAgent)
	return u.next.RoundTrip(req)
}
