package auth

import (
	"errors"
	"fmt"
)

// Failure kinds. A *FlowError unwraps to exactly one of these.
var (
	ErrInvalidRequest = errors.New("invalid login request")
	ErrProvider       = errors.New("identity provider error")
	ErrStore          = errors.New("record store error")
	ErrSession        = errors.New("session error")
)

// Step is a state of the login workflow.
type Step string

const (
	StepStart              Step = "start"
	StepCodeReceived       Step = "code_received"
	StepTokenExchanged     Step = "token_exchanged"
	StepProfileFetched     Step = "profile_fetched"
	StepAccountResolved    Step = "account_resolved"
	StepSessionProvisioned Step = "session_provisioned"
)

// FlowError is the terminal FAILED state of a login attempt. Step is the
// last state reached before the failure.
type FlowError struct {
	Kind     error
	Step     Step
	Provider string
	RemoteID string
	Err      error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("login failed at %s (%v): %v", e.Step, e.Kind, e.Err)
}

func (e *FlowError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Fields returns the log context for the failure. It never carries secrets.
func (e *FlowError) Fields() map[string]any {
	return map[string]any{
		"provider":  e.Provider,
		"remote_id": e.RemoteID,
		"step":      string(e.Step),
		"kind":      e.Kind.Error(),
		"error":     e.Err.Error(),
	}
}
