package checker

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/willibrandon/pgcheck/internal/logger"
)

// DefaultQueryTimeout bounds each query of the authentication probe.
const DefaultQueryTimeout = 5 * time.Second

// AuthStatus classifies the outcome of the authentication probe.
type AuthStatus string

const (
	AuthOK      AuthStatus = "ok"
	AuthFailed  AuthStatus = "failed"
	AuthSkipped AuthStatus = "skipped"
)

// AuthProber runs an authenticated round trip against the server. A nil
// prober on the Checker skips the probe entirely.
type AuthProber interface {
	// Probe connects with the credentials in spec, runs a trivial query,
	// and returns the server's version banner when available.
	Probe(ctx context.Context, spec ConnectionSpec) (serverVersion string, err error)
}

// PGXProber probes authentication over a single pgx connection.
type PGXProber struct {
	// SSLMode is passed to the server handshake. Empty uses the driver
	// default.
	SSLMode string

	// ConnectTimeout bounds connection establishment. Zero means
	// DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// QueryTimeout bounds each probe query. Zero means
	// DefaultQueryTimeout.
	QueryTimeout time.Duration
}

// Probe opens a connection, verifies it with SELECT 1, then asks the
// server for its version. A failed version lookup is not a probe
// failure; authentication has already succeeded by that point.
func (p *PGXProber) Probe(ctx context.Context, spec ConnectionSpec) (string, error) {
	connString := buildConnString(spec, p.SSLMode)

	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return "", fmt.Errorf("failed to parse connection string: %w", err)
	}

	connectTimeout := p.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	cfg.ConnectTimeout = connectTimeout
	cfg.RuntimeParams["application_name"] = "pgcheck"

	logger.Debug("Starting authentication probe",
		"host", spec.Host,
		"port", spec.Port,
		"database", spec.Database,
		"user", spec.User,
	)

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		logger.Debug("Authentication probe could not connect", "error", err)
		return "", err
	}
	defer conn.Close(ctx)

	queryTimeout := p.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var one int
	if err := conn.QueryRow(queryCtx, "SELECT 1").Scan(&one); err != nil {
		return "", fmt.Errorf("probe query failed: %w", err)
	}

	version, err := serverVersion(ctx, conn, queryTimeout)
	if err != nil {
		logger.Warn("Failed to get server version", "error", err)
		return "", nil
	}

	logger.Debug("Authentication probe succeeded", "version", version)
	return version, nil
}

// serverVersion retrieves the PostgreSQL server version banner.
func serverVersion(ctx context.Context, conn *pgx.Conn, timeout time.Duration) (string, error) {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var version string
	if err := conn.QueryRow(queryCtx, "SELECT version()").Scan(&version); err != nil {
		return "", fmt.Errorf("failed to get server version: %w", err)
	}
	return version, nil
}

// buildConnString assembles a postgres URL for the driver. Credentials
// are escaped because parsed URLs can carry raw special characters.
func buildConnString(spec ConnectionSpec, sslMode string) string {
	var userinfo string
	if spec.User != "" {
		userinfo = url.QueryEscape(spec.User)
		if spec.Password != "" {
			userinfo += ":" + url.QueryEscape(spec.Password)
		}
		userinfo += "@"
	}

	connString := fmt.Sprintf(
		"postgres://%s%s/%s",
		userinfo,
		spec.Addr(),
		url.PathEscape(spec.Database),
	)
	if sslMode != "" {
		connString += "?sslmode=" + sslMode
	}
	return connString
}
