package main

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	identitycommand "github.com/goliatone/go-identity/command"
	"github.com/goliatone/go-identity/core"
)

type validator interface {
	Validate() error
}

// executeCommand validates msg the way the dispatcher would before handing
// it to cmd.
func executeCommand[T any](ctx context.Context, cmd gocmd.Commander[T], msg T) error {
	if v, ok := any(msg).(validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return cmd.Execute(ctx, msg)
}

func runQuery[M any, R any](ctx context.Context, q gocmd.Querier[M, R], msg M) (R, error) {
	if v, ok := any(msg).(validator); ok {
		if err := v.Validate(); err != nil {
			var zero R
			return zero, err
		}
	}
	return q.Query(ctx, msg)
}

func establishMessage(auth core.AuthConfig) identitycommand.EstablishMessage {
	return identitycommand.EstablishMessage{Auth: auth}
}

func contextOf(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
