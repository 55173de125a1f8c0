package council

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/biodoia/goleapcouncil/internal/providers"
)

var (
	ErrNoCouncil       = errors.New("council has no members")
	ErrNoChairman      = errors.New("council has no chairman")
	ErrTooManyMembers  = errors.New("council exceeds label space")
	ErrDuplicateMember = errors.New("duplicate council member")
	ErrAllModelsFailed = errors.New("all models failed to respond")
	ErrInvalidConfig   = errors.New("invalid council configuration")
)

// FailureKind classifica il motivo di un'invocazione fallita
type FailureKind string

const (
	FailureTimeout    FailureKind = "timeout"
	FailureConnection FailureKind = "connection"
	FailureStatus     FailureKind = "status"
	FailureMalformed  FailureKind = "malformed"
	FailureCanceled   FailureKind = "canceled"
)

// Failure è l'errore tipizzato restituito da un Invoker
type Failure struct {
	Model string
	Kind  FailureKind
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("model %s: %s: %v", f.Model, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Classify converte un errore qualsiasi in una Failure.
// Una Failure già tipizzata viene restituita così com'è.
func Classify(model string, err error) *Failure {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}

	return &Failure{Model: model, Kind: kindOf(err), Err: err}
}

func kindOf(err error) FailureKind {
	var (
		netErr    net.Error
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, context.Canceled):
		return FailureCanceled
	case errors.Is(err, providers.ErrEmptyResponse),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr):
		return FailureMalformed
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return FailureTimeout
		}
		return FailureConnection
	default:
		return FailureStatus
	}
}
