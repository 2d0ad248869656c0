package identity

import (
	"net/http"

	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-identity/adapters/gocommand"
	identitycommand "github.com/goliatone/go-identity/command"
	"github.com/goliatone/go-identity/core"
	identityquery "github.com/goliatone/go-identity/query"
)

// FacadeSession is satisfied by *core.Session.
type FacadeSession interface {
	identitycommand.SessionService
	identityquery.TokenReader
}

type Commands struct {
	Establish     *identitycommand.EstablishCommand
	Rescope       *identitycommand.RescopeCommand
	Terminate     *identitycommand.TerminateCommand
	InvokeService *identitycommand.InvokeServiceCommand
}

type Queries struct {
	TokenInfo        *identityquery.TokenInfoQuery
	ServiceEndpoint  *identityquery.ServiceEndpointQuery
	AvailableRegions *identityquery.AvailableRegionsQuery
	Catalog          *identityquery.CatalogQuery
}

// Facade bundles the command and query handlers bound to one session.
type Facade struct {
	session  FacadeSession
	commands Commands
	queries  Queries
}

func NewFacade(session FacadeSession) (*Facade, error) {
	if session == nil {
		return nil, goerrors.New("identity: facade session is required", goerrors.CategoryInternal).
			WithCode(http.StatusInternalServerError).
			WithTextCode(core.IdentityErrorInternal)
	}
	return &Facade{
		session: session,
		commands: Commands{
			Establish:     identitycommand.NewEstablishCommand(session),
			Rescope:       identitycommand.NewRescopeCommand(session),
			Terminate:     identitycommand.NewTerminateCommand(session),
			InvokeService: identitycommand.NewInvokeServiceCommand(session),
		},
		queries: Queries{
			TokenInfo:        identityquery.NewTokenInfoQuery(session),
			ServiceEndpoint:  identityquery.NewServiceEndpointQuery(session),
			AvailableRegions: identityquery.NewAvailableRegionsQuery(session),
			Catalog:          identityquery.NewCatalogQuery(session),
		},
	}, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Session() FacadeSession {
	if f == nil {
		return nil
	}
	return f.session
}

// Register subscribes every handler with the go-command dispatcher and
// registers it with adapter. On failure the subscriptions made so far are
// released.
func (f *Facade) Register(adapter *gocommand.RegistryAdapter, runnerOpts ...runner.Option) ([]commanddispatcher.Subscription, error) {
	if f == nil {
		return nil, goerrors.New("identity: facade is required", goerrors.CategoryInternal).
			WithTextCode(core.IdentityErrorInternal)
	}
	var subscriptions []commanddispatcher.Subscription
	keep := func(sub commanddispatcher.Subscription, err error) error {
		if err != nil {
			return err
		}
		subscriptions = append(subscriptions, sub)
		return nil
	}
	steps := []func() error{
		func() error { return keep(gocommand.RegisterAndSubscribe(adapter, f.commands.Establish, runnerOpts...)) },
		func() error { return keep(gocommand.RegisterAndSubscribe(adapter, f.commands.Rescope, runnerOpts...)) },
		func() error { return keep(gocommand.RegisterAndSubscribe(adapter, f.commands.Terminate, runnerOpts...)) },
		func() error { return keep(gocommand.RegisterAndSubscribe(adapter, f.commands.InvokeService, runnerOpts...)) },
		func() error { return keep(gocommand.RegisterAndSubscribeQuery(adapter, f.queries.TokenInfo, runnerOpts...)) },
		func() error { return keep(gocommand.RegisterAndSubscribeQuery(adapter, f.queries.ServiceEndpoint, runnerOpts...)) },
		func() error { return keep(gocommand.RegisterAndSubscribeQuery(adapter, f.queries.AvailableRegions, runnerOpts...)) },
		func() error { return keep(gocommand.RegisterAndSubscribeQuery(adapter, f.queries.Catalog, runnerOpts...)) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			for _, sub := range subscriptions {
				sub.Unsubscribe()
			}
			return nil, err
		}
	}
	return subscriptions, nil
}
