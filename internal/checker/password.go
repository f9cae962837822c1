package checker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/willibrandon/pgcheck/internal/logger"
)

// passwordCommandTimeout bounds the external password command.
const passwordCommandTimeout = 5 * time.Second

// PasswordSource describes where the probe password came from.
type PasswordSource string

const (
	PasswordFromURL     PasswordSource = "url"
	PasswordFromCommand PasswordSource = "password_command"
	PasswordFromEnv     PasswordSource = "env"
	PasswordFromPrompt  PasswordSource = "prompt"
	PasswordNone        PasswordSource = "none"
)

// ResolvePassword returns the password for the authentication probe using
// the following precedence:
//  1. password embedded in the connection URL
//  2. configured password command
//  3. PGPASSWORD environment variable (honored even when empty)
//  4. interactive hidden prompt, only when allowPrompt is set and stdin
//     is a terminal
//
// An empty result with PasswordNone is not an error; trust and peer auth
// setups need no password at all.
func ResolvePassword(spec ConnectionSpec, passwordCommand string, allowPrompt bool) (string, PasswordSource, error) {
	if spec.Password != "" {
		return spec.Password, PasswordFromURL, nil
	}

	if passwordCommand != "" {
		password, err := runPasswordCommand(passwordCommand)
		if err != nil {
			return "", PasswordFromCommand, fmt.Errorf("password command failed: %w", err)
		}
		logger.Debug("password resolved from command")
		return password, PasswordFromCommand, nil
	}

	if _, exists := os.LookupEnv("PGPASSWORD"); exists {
		logger.Debug("password resolved from PGPASSWORD")
		return os.Getenv("PGPASSWORD"), PasswordFromEnv, nil
	}

	if allowPrompt && term.IsTerminal(int(syscall.Stdin)) {
		password, err := promptForPassword()
		if err != nil {
			return "", PasswordFromPrompt, err
		}
		return password, PasswordFromPrompt, nil
	}

	return "", PasswordNone, nil
}

// runPasswordCommand executes the configured command and returns its
// trimmed stdout.
func runPasswordCommand(command string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), passwordCommandTimeout)
	defer cancel()

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return "", fmt.Errorf("empty password command")
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("command timed out after %s", passwordCommandTimeout)
		}
		return "", fmt.Errorf("command failed: %w (stderr: %s)", err, stderr.String())
	}

	password := strings.TrimSpace(stdout.String())
	if password == "" {
		return "", fmt.Errorf("command returned empty password")
	}

	return password, nil
}

// promptForPassword reads a password from the terminal with echo disabled.
func promptForPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}
