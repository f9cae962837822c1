package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"
)

// stubProber records calls and returns canned results.
type stubProber struct {
	version string
	err     error
	calls   int
}

func (s *stubProber) Probe(ctx context.Context, spec ConnectionSpec) (string, error) {
	s.calls++
	return s.version, s.err
}

func testListener(t *testing.T) (net.Listener, string, int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start listener: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	addr := ln.Addr().(*net.TCPAddr)
	return ln, addr.IP.String(), addr.Port
}

func TestChecker_Run_Success(t *testing.T) {
	_, host, port := testListener(t)

	prober := &stubProber{version: "PostgreSQL 17.2 on x86_64-pc-linux-gnu"}
	c := &Checker{Auth: prober}

	url := fmt.Sprintf("postgres://app:pw@%s:%d/appdb", host, port)
	report, err := c.Run(context.Background(), url)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.RunID == "" {
		t.Error("RunID is empty")
	}
	if report.CheckedAt.IsZero() {
		t.Error("CheckedAt is zero")
	}
	if !report.Reachable {
		t.Error("Reachable = false, want true")
	}
	if report.Latency <= 0 {
		t.Errorf("Latency = %v, want > 0", report.Latency)
	}
	if report.Host != host || report.Port != port {
		t.Errorf("target = %s:%d, want %s:%d", report.Host, report.Port, host, port)
	}
	if report.Auth.Status != AuthOK {
		t.Errorf("Auth.Status = %q, want %q", report.Auth.Status, AuthOK)
	}
	if report.Auth.ServerVersion != prober.version {
		t.Errorf("Auth.ServerVersion = %q, want %q", report.Auth.ServerVersion, prober.version)
	}
	if prober.calls != 1 {
		t.Errorf("prober called %d times, want 1", prober.calls)
	}
}

func TestChecker_Run_ParseError(t *testing.T) {
	prober := &stubProber{}
	c := &Checker{Auth: prober}

	report, err := c.Run(context.Background(), "   ")
	if report != nil {
		t.Errorf("report = %+v, want nil", report)
	}

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if prober.calls != 0 {
		t.Errorf("prober called %d times, want 0", prober.calls)
	}
	if code := ExitCode(err); code != ExitConfigError {
		t.Errorf("ExitCode() = %d, want %d", code, ExitConfigError)
	}
}

func TestChecker_Run_Unreachable(t *testing.T) {
	ln, host, port := testListener(t)
	ln.Close()

	prober := &stubProber{}
	c := &Checker{ConnectTimeout: 500 * time.Millisecond, Auth: prober}

	url := fmt.Sprintf("postgres://app:pw@%s:%d/appdb", host, port)
	report, err := c.Run(context.Background(), url)

	var unreachableErr *UnreachableError
	if !errors.As(err, &unreachableErr) {
		t.Fatalf("error = %v, want *UnreachableError", err)
	}
	if report == nil {
		t.Fatal("report = nil, want partial report")
	}
	if report.Reachable {
		t.Error("Reachable = true, want false")
	}
	if report.Auth.Status != AuthSkipped {
		t.Errorf("Auth.Status = %q, want %q", report.Auth.Status, AuthSkipped)
	}
	if prober.calls != 0 {
		t.Errorf("prober called %d times after TCP failure, want 0", prober.calls)
	}
	if code := ExitCode(err); code != ExitUnreachable {
		t.Errorf("ExitCode() = %d, want %d", code, ExitUnreachable)
	}
}

func TestChecker_Run_AuthFailure(t *testing.T) {
	_, host, port := testListener(t)

	prober := &stubProber{err: errors.New("password authentication failed for user \"app\"")}
	c := &Checker{Auth: prober}

	url := fmt.Sprintf("postgres://app:wrong@%s:%d/appdb", host, port)
	report, err := c.Run(context.Background(), url)
	if err != nil {
		t.Fatalf("Run() error = %v, auth failure must not be fatal", err)
	}

	if !report.Reachable {
		t.Error("Reachable = false, want true")
	}
	if report.Auth.Status != AuthFailed {
		t.Errorf("Auth.Status = %q, want %q", report.Auth.Status, AuthFailed)
	}
	if report.Auth.Error == "" {
		t.Error("Auth.Error is empty, want failure detail")
	}
	if code := ExitCode(err); code != ExitSuccess {
		t.Errorf("ExitCode() = %d, want %d", code, ExitSuccess)
	}
}

func TestChecker_Run_NoProber(t *testing.T) {
	_, host, port := testListener(t)

	c := &Checker{}

	url := fmt.Sprintf("postgres://%s:%d/appdb", host, port)
	report, err := c.Run(context.Background(), url)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !report.Reachable {
		t.Error("Reachable = false, want true")
	}
	if report.Auth.Status != AuthSkipped {
		t.Errorf("Auth.Status = %q, want %q", report.Auth.Status, AuthSkipped)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, ExitSuccess},
		{"parse error", &ParseError{Reason: "empty"}, ExitConfigError},
		{"unreachable", &UnreachableError{Host: "db", Port: 5432}, ExitUnreachable},
		{"wrapped unreachable", fmt.Errorf("check: %w", &UnreachableError{Host: "db", Port: 5432}), ExitUnreachable},
		{"unknown error", errors.New("boom"), ExitUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
