package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-identity/core"
)

// SessionService is the mutating surface of *core.Session.
type SessionService interface {
	Establish(ctx context.Context, endpoint string, auth core.AuthConfig, options core.SessionOptions) error
	Rescope(ctx context.Context, scope *core.Scope) error
	Terminate(ctx context.Context) error
	Token() (*core.Token, error)
	Service(name string, options core.ServiceOptions) (*core.Service, error)
}

type EstablishCommand struct {
	session SessionService
}

func NewEstablishCommand(session SessionService) *EstablishCommand {
	return &EstablishCommand{session: session}
}

// Execute stores the issued *core.Token in the context result collector.
func (c *EstablishCommand) Execute(ctx context.Context, msg EstablishMessage) error {
	if c == nil || c.session == nil {
		return commandDependencyError("command: establish session is required")
	}
	if err := c.session.Establish(ctx, msg.Endpoint, msg.Auth, msg.Options); err != nil {
		return err
	}
	return storeToken(ctx, c.session)
}

type RescopeCommand struct {
	session SessionService
}

func NewRescopeCommand(session SessionService) *RescopeCommand {
	return &RescopeCommand{session: session}
}

func (c *RescopeCommand) Execute(ctx context.Context, msg RescopeMessage) error {
	if c == nil || c.session == nil {
		return commandDependencyError("command: rescope session is required")
	}
	if err := c.session.Rescope(ctx, msg.Scope); err != nil {
		return err
	}
	return storeToken(ctx, c.session)
}

type TerminateCommand struct {
	session SessionService
}

func NewTerminateCommand(session SessionService) *TerminateCommand {
	return &TerminateCommand{session: session}
}

func (c *TerminateCommand) Execute(ctx context.Context, _ TerminateMessage) error {
	if c == nil || c.session == nil {
		return commandDependencyError("command: terminate session is required")
	}
	return c.session.Terminate(ctx)
}

type InvokeServiceCommand struct {
	session SessionService
}

func NewInvokeServiceCommand(session SessionService) *InvokeServiceCommand {
	return &InvokeServiceCommand{session: session}
}

// Execute stores the raw *http.Response; the caller owns its body.
func (c *InvokeServiceCommand) Execute(ctx context.Context, msg InvokeServiceMessage) error {
	if c == nil || c.session == nil {
		return commandDependencyError("command: invoke service session is required")
	}
	service, err := c.session.Service(msg.Service, msg.ServiceOptions)
	if err != nil {
		return err
	}
	resp, err := service.Do(ctx, msg.Method, msg.Path, msg.Body, msg.Options)
	if err != nil {
		return err
	}
	if !storeResult(ctx, resp) {
		_ = resp.Body.Close()
	}
	return nil
}

func storeToken(ctx context.Context, session SessionService) error {
	token, err := session.Token()
	if err != nil {
		return err
	}
	storeResult(ctx, token)
	return nil
}

func storeResult[T any](ctx context.Context, value T) bool {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return false
	}
	collector.Store(value)
	return true
}
