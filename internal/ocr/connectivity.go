package ocr

import (
	"context"
	"net"
	"time"
)

// Connectivity reports whether the OCR backend is reachable.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// DialConnectivity opens a TCP connection to Host to decide reachability.
type DialConnectivity struct {
	Host    string
	Timeout time.Duration
}

func (d DialConnectivity) Online(ctx context.Context) bool {
	if d.Host == "" {
		return true
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", d.Host)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// StaticConnectivity always answers with its own value.
type StaticConnectivity bool

func (s StaticConnectivity) Online(context.Context) bool { return bool(s) }
