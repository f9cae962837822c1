package checker

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestProbeTCP_Reachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start listener: %v", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port

	latency, err := ProbeTCP(context.Background(), "127.0.0.1", port, 2*time.Second)
	if err != nil {
		t.Fatalf("ProbeTCP failed against live listener: %v", err)
	}
	if latency <= 0 {
		t.Errorf("latency = %v, want > 0", latency)
	}
}

func TestProbeTCP_ClosedPort(t *testing.T) {
	// Grab a free port, then close the listener so nothing accepts on it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start listener: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	_, err = ProbeTCP(context.Background(), "127.0.0.1", port, 500*time.Millisecond)
	if err == nil {
		t.Fatal("ProbeTCP succeeded against closed port")
	}

	var unreachable *UnreachableError
	if !errors.As(err, &unreachable) {
		t.Fatalf("error is %T, want *UnreachableError", err)
	}
	if unreachable.Host != "127.0.0.1" || unreachable.Port != port {
		t.Errorf("error carries %s:%d, want 127.0.0.1:%d", unreachable.Host, unreachable.Port, port)
	}
	if unreachable.Unwrap() == nil {
		t.Error("UnreachableError should wrap the dial error")
	}
}

func TestProbeTCP_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ProbeTCP(ctx, "10.255.255.1", 5432, 2*time.Second)
	if err == nil {
		t.Fatal("ProbeTCP succeeded with cancelled context")
	}
	var unreachable *UnreachableError
	if !errors.As(err, &unreachable) {
		t.Fatalf("error is %T, want *UnreachableError", err)
	}
}
