// Package proxy builds HTTP clients that route through an optional SOCKS5 proxy.
package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultTimeout bounds a whole request, including long-poll waits.
const DefaultTimeout = 120 * time.Second

// NewHTTPClient returns a client dialing through the SOCKS5 proxy at addr
// ("host:port" or "socks5://[user:pass@]host:port"). An empty addr returns a
// direct client.
func NewHTTPClient(addr string, timeout time.Duration) (*http.Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if addr == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	host, auth := parseAddr(addr)
	dialer, err := proxy.SOCKS5("tcp", host, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 dialer for %s: %w", host, err)
	}

	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		return dialer.Dial(network, address)
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		dial = cd.DialContext
	}

	return &http.Client{
		Transport: &http.Transport{DialContext: dial},
		Timeout:   timeout,
	}, nil
}

func parseAddr(addr string) (string, *proxy.Auth) {
	addr = strings.TrimPrefix(addr, "socks5://")
	at := strings.LastIndexByte(addr, '@')
	if at < 0 {
		return addr, nil
	}
	creds, host := addr[:at], addr[at+1:]
	user, pass, _ := strings.Cut(creds, ":")
	return host, &proxy.Auth{User: user, Password: pass}
}
