package checker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/willibrandon/pgcheck/internal/logger"
)

// Exit codes for the check command.
const (
	ExitSuccess     = 0
	ExitUnreachable = 1
	ExitConfigError = 2
)

// Checker runs the full diagnostic sequence: parse the URL, probe TCP
// reachability, then optionally probe authentication.
type Checker struct {
	// ConnectTimeout bounds the TCP probe. Zero means
	// DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// PasswordCommand is an external command consulted when the URL
	// carries no password.
	PasswordCommand string

	// AllowPrompt permits an interactive password prompt as the last
	// resort of password resolution.
	AllowPrompt bool

	// Auth performs the authenticated probe. Nil skips it, leaving the
	// check TCP-only.
	Auth AuthProber
}

// AuthReport describes the authentication leg of a check.
type AuthReport struct {
	Status        AuthStatus `json:"status"`
	ServerVersion string     `json:"server_version,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// Report is the result of a single check run.
type Report struct {
	RunID     string    `json:"run_id"`
	CheckedAt time.Time `json:"checked_at"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	User      string    `json:"user,omitempty"`
	Database  string    `json:"database,omitempty"`
	Reachable bool      `json:"reachable"`

	// Latency is the TCP connect time. Only LatencyMS is serialized.
	Latency   time.Duration `json:"-"`
	LatencyMS float64       `json:"latency_ms"`

	Auth AuthReport `json:"auth"`
}

// Run executes the diagnostic sequence for rawURL.
//
// A malformed URL returns a nil report and a *ParseError. A failed TCP
// probe returns the partial report together with an *UnreachableError.
// An authentication failure is recorded on the report but is not an
// error; the server being up and reachable is the primary question.
func (c *Checker) Run(ctx context.Context, rawURL string) (*Report, error) {
	spec, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     uuid.NewString(),
		CheckedAt: time.Now().UTC(),
		Host:      spec.Host,
		Port:      spec.Port,
		User:      spec.User,
		Database:  spec.Database,
		Auth:      AuthReport{Status: AuthSkipped},
	}

	logger.Info("Starting connection check",
		"run_id", report.RunID,
		"host", spec.Host,
		"port", spec.Port,
		"database", spec.Database,
	)

	latency, err := ProbeTCP(ctx, spec.Host, spec.Port, c.ConnectTimeout)
	if err != nil {
		return report, err
	}
	report.Reachable = true
	report.Latency = latency
	report.LatencyMS = latency.Seconds() * 1000

	if c.Auth == nil {
		logger.Debug("Authentication probe skipped")
		return report, nil
	}

	if spec.Password == "" {
		password, source, err := ResolvePassword(spec, c.PasswordCommand, c.AllowPrompt)
		if err != nil {
			report.Auth.Status = AuthFailed
			report.Auth.Error = err.Error()
			logger.Warn("Password resolution failed", "error", err)
			return report, nil
		}
		spec.Password = password
		logger.Debug("Password resolved", "source", string(source))
	}

	version, err := c.Auth.Probe(ctx, spec)
	if err != nil {
		report.Auth.Status = AuthFailed
		report.Auth.Error = err.Error()
		logger.Warn("Authentication probe failed",
			"run_id", report.RunID,
			"error", err,
		)
		return report, nil
	}

	report.Auth.Status = AuthOK
	report.Auth.ServerVersion = version
	logger.Info("Connection check passed",
		"run_id", report.RunID,
		"latency_ms", report.LatencyMS,
	)
	return report, nil
}

// ExitCode maps a Run error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return ExitConfigError
	}

	var unreachableErr *UnreachableError
	if errors.As(err, &unreachableErr) {
		return ExitUnreachable
	}

	return ExitUnreachable
}
