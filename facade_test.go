package identity

import (
	"context"
	"testing"

	"github.com/goliatone/go-command"

	"github.com/goliatone/go-identity/adapters/gocommand"
	identitycommand "github.com/goliatone/go-identity/command"
	identityquery "github.com/goliatone/go-identity/query"
)

func TestNewFacade_RequiresSession(t *testing.T) {
	if _, err := NewFacade(nil); err == nil {
		t.Fatalf("expected error for nil session")
	}
}

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	fake := newFakeIdentityServer(t)
	session := newIntegrationSession(t, fake)

	facade, err := NewFacade(session)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	commands := facade.Commands()
	if commands.Establish == nil || commands.Rescope == nil || commands.Terminate == nil || commands.InvokeService == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.TokenInfo == nil || queries.ServiceEndpoint == nil || queries.AvailableRegions == nil || queries.Catalog == nil {
		t.Fatalf("expected query handlers to be wired")
	}
	if facade.Session() != session {
		t.Fatalf("expected facade to expose its session")
	}
}

func TestFacade_CommandAndQueryDelegation(t *testing.T) {
	fake := newFakeIdentityServer(t)
	facade, err := NewFacade(newIntegrationSession(t, fake))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	ctx := context.Background()

	if err := facade.Commands().Establish.Execute(ctx, identitycommand.EstablishMessage{
		Auth: TokenAuth("tok-known"),
	}); err != nil {
		t.Fatalf("execute establish: %v", err)
	}

	info, err := facade.Queries().TokenInfo.Query(ctx, identityquery.TokenInfoMessage{})
	if err != nil {
		t.Fatalf("query token info: %v", err)
	}
	if info.UserName != "demo" || info.ProjectID != "p1" {
		t.Fatalf("unexpected token info %#v", info)
	}

	endpoint, err := facade.Queries().ServiceEndpoint.Query(ctx, identityquery.ServiceEndpointMessage{Service: "nova"})
	if err != nil {
		t.Fatalf("query endpoint: %v", err)
	}
	if endpoint != fake.URL+"/compute/v2.1" {
		t.Fatalf("unexpected endpoint %q", endpoint)
	}

	if err := facade.Commands().Terminate.Execute(ctx, identitycommand.TerminateMessage{}); err != nil {
		t.Fatalf("execute terminate: %v", err)
	}
	if _, err := facade.Queries().TokenInfo.Query(ctx, identityquery.TokenInfoMessage{}); !IsLocalError(err) {
		t.Fatalf("expected no valid token after terminate, got %v", err)
	}
}

func TestFacade_RegisterWithDispatcher(t *testing.T) {
	fake := newFakeIdentityServer(t)
	facade, err := NewFacade(newIntegrationSession(t, fake))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	subscriptions, err := facade.Register(adapter)
	if err != nil {
		t.Fatalf("register facade: %v", err)
	}
	defer func() {
		for _, sub := range subscriptions {
			sub.Unsubscribe()
		}
	}()
	if len(subscriptions) != 8 {
		t.Fatalf("expected eight subscriptions, got %d", len(subscriptions))
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	ctx := context.Background()
	if err := gocommand.Dispatch(ctx, identitycommand.EstablishMessage{Auth: TokenAuth("tok-known")}); err != nil {
		t.Fatalf("dispatch establish: %v", err)
	}
	regions, err := gocommand.Query[identityquery.AvailableRegionsMessage, []string](ctx, identityquery.AvailableRegionsMessage{})
	if err != nil {
		t.Fatalf("dispatch regions query: %v", err)
	}
	if len(regions) != 1 || regions[0] != "eu-1" {
		t.Fatalf("unexpected regions %#v", regions)
	}
}
