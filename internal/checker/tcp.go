package checker

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/willibrandon/pgcheck/internal/logger"
)

// DefaultConnectTimeout bounds the reachability probe.
const DefaultConnectTimeout = 2 * time.Second

// UnreachableError reports a failed TCP reachability probe. It is fatal;
// the probe runs exactly once with no retry.
type UnreachableError struct {
	Host string
	Port int
	Err  error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("%s is not reachable: %v", net.JoinHostPort(e.Host, fmt.Sprint(e.Port)), e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// ProbeTCP attempts a single TCP connection to host:port within the given
// timeout. Success only confirms a listener accepted the connection; no
// protocol bytes are exchanged. Returns the time the dial took.
func ProbeTCP(ctx context.Context, host string, port int, timeout time.Duration) (time.Duration, error) {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	addr := net.JoinHostPort(host, fmt.Sprint(port))
	logger.Debug("probing tcp reachability", "addr", addr, "timeout", timeout)

	d := net.Dialer{Timeout: timeout}
	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		logger.Debug("tcp probe failed", "addr", addr, "error", err)
		return 0, &UnreachableError{Host: host, Port: port, Err: err}
	}
	latency := time.Since(start)
	_ = conn.Close()

	logger.Debug("tcp probe succeeded", "addr", addr, "latency", latency)
	return latency, nil
}
