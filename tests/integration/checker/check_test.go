package checker_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/willibrandon/pgcheck/internal/checker"
)

// CheckTestSuite runs the full diagnostic sequence against a real
// PostgreSQL server.
type CheckTestSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	container testcontainers.Container
	host      string
	port      string
}

func TestCheckSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	suite.Run(t, new(CheckTestSuite))
}

func (s *CheckTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)

	req := testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForSQL("5432/tcp", "pgx", func(host string, port nat.Port) string {
			return fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())
		}).WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	s.Require().NoError(err, "Failed to start PostgreSQL container")
	s.container = container

	host, err := container.Host(s.ctx)
	s.Require().NoError(err)
	s.host = host

	port, err := container.MappedPort(s.ctx, "5432")
	s.Require().NoError(err)
	s.port = port.Port()

	s.T().Log("CheckTestSuite: PostgreSQL container ready")
}

func (s *CheckTestSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *CheckTestSuite) newChecker() *checker.Checker {
	return &checker.Checker{
		Auth: &checker.PGXProber{SSLMode: "disable"},
	}
}

func (s *CheckTestSuite) TestGoodCredentials() {
	c := s.newChecker()

	url := fmt.Sprintf("postgres://test:test@%s:%s/testdb", s.host, s.port)
	report, err := c.Run(s.ctx, url)
	s.Require().NoError(err)

	s.True(report.Reachable)
	s.Equal(checker.AuthOK, report.Auth.Status)
	s.Contains(report.Auth.ServerVersion, "PostgreSQL")
	s.Greater(report.LatencyMS, 0.0)
	s.NotEmpty(report.RunID)
}

func (s *CheckTestSuite) TestBadPassword() {
	c := s.newChecker()

	url := fmt.Sprintf("postgres://test:wrong@%s:%s/testdb", s.host, s.port)
	report, err := c.Run(s.ctx, url)
	s.Require().NoError(err, "authentication failure must not be fatal")

	s.True(report.Reachable)
	s.Equal(checker.AuthFailed, report.Auth.Status)
	s.NotEmpty(report.Auth.Error)
}

func (s *CheckTestSuite) TestUnknownDatabase() {
	c := s.newChecker()

	url := fmt.Sprintf("postgres://test:test@%s:%s/doesnotexist", s.host, s.port)
	report, err := c.Run(s.ctx, url)
	s.Require().NoError(err)

	s.True(report.Reachable)
	s.Equal(checker.AuthFailed, report.Auth.Status)
	s.Contains(report.Auth.Error, "doesnotexist")
}

func (s *CheckTestSuite) TestPasswordFromEnvironment() {
	s.T().Setenv("PGPASSWORD", "test")

	c := s.newChecker()

	url := fmt.Sprintf("postgres://test@%s:%s/testdb", s.host, s.port)
	report, err := c.Run(s.ctx, url)
	s.Require().NoError(err)

	s.Equal(checker.AuthOK, report.Auth.Status)
}

func (s *CheckTestSuite) TestTCPOnly() {
	c := &checker.Checker{}

	url := fmt.Sprintf("postgres://%s:%s/testdb", s.host, s.port)
	report, err := c.Run(s.ctx, url)
	s.Require().NoError(err)

	s.True(report.Reachable)
	s.Equal(checker.AuthSkipped, report.Auth.Status)
}
