package gocommand

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-identity/core"
)

// MessageNamespace prefixes every message type the identity handlers accept.
const MessageNamespace = "identity."

// ValidateMessageContract checks the Type() contract, the identity namespace
// and the optional Validate() hook.
func ValidateMessageContract(msg any) error {
	m, ok := msg.(command.Message)
	if !ok {
		return contractError("gocommand: message must implement Type() string")
	}
	msgType := strings.TrimSpace(m.Type())
	if msgType == "" {
		return contractError("gocommand: message type is required")
	}
	if !strings.HasPrefix(msgType, MessageNamespace) {
		return contractError("gocommand: message type " + msgType + " is outside the " + MessageNamespace + " namespace")
	}
	return command.ValidateMessage(msg)
}

// RegistryAdapter owns the go-command registry entries and dispatcher
// subscriptions of the identity handlers so they can be released together.
type RegistryAdapter struct {
	registry *command.Registry

	mu            sync.Mutex
	types         map[string]struct{}
	subscriptions []commanddispatcher.Subscription
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry, types: map[string]struct{}{}}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a.ready() != nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.registry.Initialize()
}

// MessageTypes lists the registered message types, sorted.
func (a *RegistryAdapter) MessageTypes() []string {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.types))
	for msgType := range a.types {
		out = append(out, msgType)
	}
	sort.Strings(out)
	return out
}

// Close releases every subscription made through the adapter.
func (a *RegistryAdapter) Close() {
	if a == nil {
		return
	}
	a.mu.Lock()
	subscriptions := a.subscriptions
	a.subscriptions = nil
	a.mu.Unlock()
	for _, sub := range subscriptions {
		sub.Unsubscribe()
	}
}

func (a *RegistryAdapter) ready() error {
	if a == nil || a.registry == nil {
		return goerrors.New("gocommand: registry is not configured", goerrors.CategoryInternal).
			WithCode(http.StatusInternalServerError).
			WithTextCode(core.IdentityErrorInternal)
	}
	return nil
}

// register claims msgType, subscribes and registers handler. A failed
// registration releases the subscription and the claim.
func (a *RegistryAdapter) register(msgType string, handler any, subscribe func() commanddispatcher.Subscription) (commanddispatcher.Subscription, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	if _, taken := a.types[msgType]; taken {
		a.mu.Unlock()
		return nil, contractError("gocommand: message type " + msgType + " is already registered")
	}
	a.types[msgType] = struct{}{}
	a.mu.Unlock()

	subscription := subscribe()
	if err := a.registry.RegisterCommand(handler); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		a.mu.Lock()
		delete(a.types, msgType)
		a.mu.Unlock()
		return nil, err
	}
	if subscription != nil {
		a.mu.Lock()
		a.subscriptions = append(a.subscriptions, subscription)
		a.mu.Unlock()
	}
	return subscription, nil
}

// Dispatch checks the message contract before handing msg to the dispatcher.
func Dispatch[T any](ctx context.Context, msg T) error {
	if err := ValidateMessageContract(msg); err != nil {
		return err
	}
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	if err := ValidateMessageContract(msg); err != nil {
		var zero R
		return zero, err
	}
	return commanddispatcher.Query[T, R](ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if cmd == nil {
		return nil, contractError("gocommand: command is required")
	}
	msgType, err := messageType[T]()
	if err != nil {
		return nil, err
	}
	return adapter.register(msgType, cmd, func() commanddispatcher.Subscription {
		return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	})
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if qry == nil {
		return nil, contractError("gocommand: query is required")
	}
	msgType, err := messageType[T]()
	if err != nil {
		return nil, err
	}
	return adapter.register(msgType, qry, func() commanddispatcher.Subscription {
		return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
	})
}

// messageType reads the type of T from its zero value, so the namespace check
// runs at registration time rather than on first dispatch.
func messageType[T any]() (string, error) {
	var zero T
	m, ok := any(zero).(command.Message)
	if !ok {
		return "", contractError("gocommand: message must implement Type() string")
	}
	msgType := strings.TrimSpace(m.Type())
	if !strings.HasPrefix(msgType, MessageNamespace) {
		return "", contractError("gocommand: message type " + msgType + " is outside the " + MessageNamespace + " namespace")
	}
	return msgType, nil
}

func contractError(message string) error {
	return goerrors.New(message, goerrors.CategoryValidation).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.IdentityErrorInvalidConfig)
}
