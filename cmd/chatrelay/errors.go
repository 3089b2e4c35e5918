package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/elee1766/chatrelay/src/client"
	"github.com/elee1766/chatrelay/src/config"
	"github.com/elee1766/chatrelay/src/openaiclient"
	"github.com/elee1766/chatrelay/src/orclient"
)

// Exit codes following standard conventions
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error
	ExitUsage       = 2 // Usage error
	ExitConfig      = 3 // Configuration error
	ExitAuth        = 4 // Authentication error
	ExitNetwork     = 6 // Network error
	ExitTimeout     = 7 // Timeout error
	ExitInterrupted = 8 // Interrupted by user
)

// exitHandler reports a command error and exits with the matching code
type exitHandler struct {
	logger *slog.Logger
	out    io.Writer
	exit   func(int)
}

func newExitHandler(logger *slog.Logger) *exitHandler {
	return &exitHandler{logger: logger, out: os.Stderr, exit: os.Exit}
}

func (h *exitHandler) handle(err error) {
	if err == nil {
		return
	}

	h.logger.Debug("command failed", "error", err)
	fmt.Fprintf(h.out, "Error: %s\n", err.Error())

	h.exit(exitCode(err))
}

// exitCode determines the appropriate exit code for an error
func exitCode(err error) int {
	var (
		validationErr config.ValidationError
		apiErr        *orclient.APIError
		timeoutErr    *orclient.TimeoutError
		statusErr     *client.StatusError
		netErr        net.Error
	)

	switch {
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &validationErr), errors.Is(err, errConfig):
		return ExitConfig
	case errors.Is(err, orclient.ErrNoAPIKey), errors.Is(err, openaiclient.ErrNoAPIKey):
		return ExitAuth
	case errors.As(err, &apiErr) && apiErr.IsAuthError():
		return ExitAuth
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return ExitTimeout
	case errors.As(err, &statusErr), errors.As(err, &netErr):
		return ExitNetwork
	case errors.Is(err, errUsage):
		return ExitUsage
	default:
		return ExitError
	}
}

var (
	errConfig = errors.New("configuration error")
	errUsage  = errors.New("usage error")
)

// FatalError logs a fatal error and exits
func FatalError(logger *slog.Logger, err error) {
	newExitHandler(logger).handle(err)
}
