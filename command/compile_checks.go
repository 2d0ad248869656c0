package command

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-identity/core"
)

var (
	_ gocmd.Commander[EstablishMessage]     = (*EstablishCommand)(nil)
	_ gocmd.Commander[RescopeMessage]       = (*RescopeCommand)(nil)
	_ gocmd.Commander[TerminateMessage]     = (*TerminateCommand)(nil)
	_ gocmd.Commander[InvokeServiceMessage] = (*InvokeServiceCommand)(nil)
	_ SessionService                        = (*core.Session)(nil)
)
