// Package completion is the boundary to the remote chat completion service.
//
// Every attempt ends in exactly one Result. Failures are tagged with a Kind
// so callers never have to parse the user-visible text.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type Message struct {
	Role    string
	Content string
}

type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

type Kind int

const (
	OK Kind = iota
	MissingCredential
	BoundaryError
	MalformedResponse
	TransportFailure
	Timeout
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case MissingCredential:
		return "missing_credential"
	case BoundaryError:
		return "boundary_error"
	case MalformedResponse:
		return "malformed_response"
	case TransportFailure:
		return "transport_failure"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by a Completer for a failed attempt.
type Error struct {
	Kind    Kind
	Message string // service-provided text, BoundaryError only
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// ErrEmptyReply marks a well-formed response whose text is blank. It is
// carried by a MalformedResponse Error.
var ErrEmptyReply = errors.New("empty reply")

// Completer sends one request to the completion service using apiKey as
// the bearer credential and returns the generated text.
type Completer interface {
	Complete(ctx context.Context, apiKey string, req Request) (string, error)
}

// Result is the single terminal outcome of a query.
type Result struct {
	Kind Kind
	Text string
	Err  error
}

func (r Result) Failed() bool { return r.Kind != OK }

// Empty reports whether the service answered but said nothing. Undecodable
// or choice-less responses are not empty.
func (r Result) Empty() bool {
	return r.Kind == MalformedResponse && errors.Is(r.Err, ErrEmptyReply)
}

// Ask runs one query. An empty credential fails locally without touching c.
// Nothing is retried.
func Ask(ctx context.Context, c Completer, apiKey string, req Request) Result {
	if strings.TrimSpace(apiKey) == "" {
		return failure(&Error{Kind: MissingCredential})
	}

	text, err := c.Complete(ctx, apiKey, req)
	if err != nil {
		return failure(err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return failure(&Error{Kind: MalformedResponse, Err: ErrEmptyReply})
	}
	return Result{Kind: OK, Text: text}
}

func failure(err error) Result {
	var ce *Error
	if !errors.As(err, &ce) {
		ce = &Error{Kind: TransportFailure, Err: err}
	}
	return Result{Kind: ce.Kind, Text: errorText(ce), Err: ce}
}

func errorText(e *Error) string {
	switch e.Kind {
	case MissingCredential:
		return "**Error:** No API key set. Open Settings and paste your OpenAI key."
	case BoundaryError:
		return "**Error from API:** " + e.Message
	case MalformedResponse:
		return "**Error:** No response from AI service."
	case Timeout:
		return "**Error:** AI service timed out."
	default:
		return "**Error:** Unable to reach AI service."
	}
}
