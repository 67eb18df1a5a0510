package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/cloudflare-cli/internal/compiler"
	"github.com/mark3labs/cloudflare-cli/internal/discovery"
	"github.com/mark3labs/cloudflare-cli/internal/dispatch"
	"github.com/mark3labs/cloudflare-cli/internal/httpx"
	"github.com/mark3labs/cloudflare-cli/internal/spec"
	"github.com/mark3labs/cloudflare-cli/internal/tree"
)

var ErrUsage = errors.New("cli usage error")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

// contractError is a binding failure followed by the operation's describe
// output, so the user sees what the operation expects.
type contractError struct {
	err      error
	contract string
}

func (e *contractError) Error() string {
	return e.err.Error() + "\n\n" + e.contract
}

func (e *contractError) Unwrap() error {
	return e.err
}

// withContract attaches the plain describe output of op to dispatch usage
// errors. Other errors pass through unchanged.
func withContract(err error, resource string, op *tree.Operation) error {
	if err == nil || !errors.Is(err, dispatch.ErrUsage) {
		return err
	}
	var buf bytes.Buffer
	if rerr := discovery.NewRenderer(&buf, false).Describe(resource, op); rerr != nil {
		return err
	}
	return &contractError{err: err, contract: strings.TrimRight(buf.String(), "\n")}
}

// Process exit codes.
const (
	ExitOK        = 0
	ExitInternal  = 1
	ExitUsage     = 2
	ExitTransport = 3
	ExitAPI       = 4
	ExitSchema    = 5
)

// ExitError ends the process with Code. The command has already written its
// own output, so nothing else is printed.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) ExitCode() int {
	return e.Code
}

// ExitCodeFor maps an error returned by a command onto its exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}

	var (
		transport *httpx.TransportError
		schema    *compiler.SchemaError
		specErr   *spec.SpecError
	)
	switch {
	case errors.Is(err, ErrUsage), errors.Is(err, dispatch.ErrUsage), errors.Is(err, discovery.ErrUnknown):
		return ExitUsage
	case errors.As(err, &transport):
		if transport.Kind == httpx.HTTPStatus {
			return ExitAPI
		}
		return ExitTransport
	case errors.As(err, &schema):
		return ExitSchema
	case errors.As(err, &specErr):
		switch specErr.Code {
		case spec.InputError:
			return ExitUsage
		case spec.NetworkError:
			return ExitTransport
		}
		return ExitSchema
	}
	return ExitInternal
}

// Report prints err to w unless the command already reported it, and returns
// the exit code for the process.
func Report(w io.Writer, err error) int {
	if err == nil {
		return ExitOK
	}
	var exit *ExitError
	if !errors.As(err, &exit) {
		fmt.Fprintf(w, "error: %v\n", err)
	}
	return ExitCodeFor(err)
}

// jsonCategory names the error class in structured --json output.
func jsonCategory(err error) string {
	switch ExitCodeFor(err) {
	case ExitUsage:
		return "UsageError"
	case ExitTransport, ExitAPI:
		return "TransportError"
	case ExitSchema:
		return "SchemaError"
	}
	return "InternalError"
}
