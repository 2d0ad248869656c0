package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/urfave/cli/v2"

	identity "github.com/goliatone/go-identity"
	"github.com/goliatone/go-identity/adapters/gologger"
	"github.com/goliatone/go-identity/config"
	"github.com/goliatone/go-identity/core"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

const (
	facadeKey  = "identity.facade"
	optionsKey = "identity.options"
)

// App builds the identityctl command tree. opts are forwarded to every
// session the commands create.
func App(stdout io.Writer, stderr io.Writer, opts ...identity.Option) *cli.App {
	return &cli.App{
		Name:      "identityctl",
		Usage:     "identity token and service catalog client",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     append(globalFlags(), authFlags()...),
		Metadata:  map[string]any{optionsKey: opts},
		Commands: []*cli.Command{
			tokenCommand(),
			catalogCommand(),
			regionsCommand(),
			endpointCommand(),
			requestCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
			EnvVars: []string{"IDENTITY_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "endpoint",
			Usage: "identity endpoint, e.g. https://identity.example:5000/v3",
		},
		&cli.StringFlag{
			Name:  "region",
			Usage: "default catalog region",
		},
		&cli.StringFlag{
			Name:  "interface",
			Usage: "default endpoint interface: public, internal or admin",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "log a redacted trace of every request",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: text, json or yaml",
			Value:   string(formatText),
		},
	}
}

func authFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "username", Usage: "user name", EnvVars: []string{"IDENTITY_USERNAME"}},
		&cli.StringFlag{Name: "user-id", Usage: "user id", EnvVars: []string{"IDENTITY_USER_ID"}},
		&cli.StringFlag{Name: "user-domain", Usage: "user domain name", EnvVars: []string{"IDENTITY_USER_DOMAIN"}, Value: "Default"},
		&cli.StringFlag{Name: "password", Usage: "user password", EnvVars: []string{"IDENTITY_PASSWORD"}},
		&cli.StringFlag{Name: "token", Usage: "existing token id", EnvVars: []string{"IDENTITY_TOKEN"}},
		&cli.StringFlag{Name: "app-credential-id", Usage: "application credential id", EnvVars: []string{"IDENTITY_APP_CREDENTIAL_ID"}},
		&cli.StringFlag{Name: "app-credential-name", Usage: "application credential name", EnvVars: []string{"IDENTITY_APP_CREDENTIAL_NAME"}},
		&cli.StringFlag{Name: "app-credential-secret", Usage: "application credential secret", EnvVars: []string{"IDENTITY_APP_CREDENTIAL_SECRET"}},
		&cli.StringFlag{Name: "project-id", Usage: "scope to project id", EnvVars: []string{"IDENTITY_PROJECT_ID"}},
		&cli.StringFlag{Name: "project-name", Usage: "scope to project name", EnvVars: []string{"IDENTITY_PROJECT_NAME"}},
		&cli.StringFlag{Name: "project-domain", Usage: "domain of the project name", EnvVars: []string{"IDENTITY_PROJECT_DOMAIN"}, Value: "Default"},
		&cli.StringFlag{Name: "domain-id", Usage: "scope to domain id", EnvVars: []string{"IDENTITY_DOMAIN_ID"}},
		&cli.StringFlag{Name: "domain-name", Usage: "scope to domain name", EnvVars: []string{"IDENTITY_DOMAIN_NAME"}},
		&cli.BoolFlag{Name: "system", Usage: "request a system scoped token"},
	}
}

// newFacade builds the session from the config file, IDENTITY_ environment
// and flags, in increasing precedence.
func newFacade(c *cli.Context) (*identity.Facade, error) {
	if facade, ok := c.App.Metadata[facadeKey].(*identity.Facade); ok {
		return facade, nil
	}
	overrides := map[string]any{
		"endpoint":  c.String("endpoint"),
		"region":    c.String("region"),
		"interface": c.String("interface"),
	}
	if c.IsSet("debug") {
		overrides["debug"] = c.Bool("debug")
	}
	loader := config.NewLoader(
		config.WithConfigFile(c.String("config")),
		config.WithOverrides(overrides),
	)
	opts, _ := c.App.Metadata[optionsKey].([]identity.Option)
	base := []identity.Option{}
	if c.Bool("debug") {
		base = append(base, debugLogging(c.App.ErrWriter)...)
	}
	opts = append(append(base, opts...), identity.WithConfigLoader(loader))
	session, err := identity.NewSession(identity.DefaultConfig(), opts...)
	if err != nil {
		return nil, err
	}
	facade, err := identity.NewFacade(session)
	if err != nil {
		return nil, err
	}
	c.App.Metadata[facadeKey] = facade
	return facade, nil
}

// debugLogging sends session and transport records to w at debug level.
// Options passed to App are applied later and win.
func debugLogging(w io.Writer) []identity.Option {
	root := glog.NewLogger(glog.WithWriter(w), glog.WithLevel("debug"), glog.WithLoggerTypeConsole())
	provider, logger := gologger.Resolve(core.ComponentSession, root, root)
	return []identity.Option{identity.WithLoggerProvider(provider), identity.WithLogger(logger)}
}

// authFromFlags picks the credential kind from the flags that are set:
// application credential, then password, then token.
func authFromFlags(c *cli.Context) (core.AuthConfig, error) {
	var auth core.AuthConfig
	switch {
	case c.String("app-credential-secret") != "":
		credential := core.ApplicationCredential{
			ID:     c.String("app-credential-id"),
			Name:   c.String("app-credential-name"),
			Secret: c.String("app-credential-secret"),
		}
		if credential.ID == "" {
			credential.User = userFromFlags(c)
		}
		auth = core.ApplicationCredentialAuth(credential)
	case c.String("password") != "":
		user := userFromFlags(c)
		user.Password = c.String("password")
		auth = core.PasswordAuth(*user)
	case c.String("token") != "":
		auth = core.TokenAuth(c.String("token"))
	default:
		return core.AuthConfig{}, fmt.Errorf("identityctl: credentials required: --password, --token or --app-credential-secret")
	}
	return auth.WithScope(scopeFromFlags(c)), nil
}

func userFromFlags(c *cli.Context) *core.UserRef {
	user := &core.UserRef{ID: c.String("user-id"), Name: c.String("username")}
	if user.ID == "" {
		user.Domain = &core.DomainRef{Name: c.String("user-domain")}
	}
	return user
}

func scopeFromFlags(c *cli.Context) *core.Scope {
	switch {
	case c.Bool("system"):
		return core.SystemWideScope()
	case c.String("project-id") != "":
		return core.ProjectScope(core.ProjectRef{ID: c.String("project-id")})
	case c.String("project-name") != "":
		return core.ProjectScope(core.ProjectRef{
			Name:   c.String("project-name"),
			Domain: &core.DomainRef{Name: c.String("project-domain")},
		})
	case c.String("domain-id") != "":
		return core.DomainScope(core.DomainRef{ID: c.String("domain-id")})
	case c.String("domain-name") != "":
		return core.DomainScope(core.DomainRef{Name: c.String("domain-name")})
	default:
		return nil
	}
}

// authenticated returns a facade whose session holds a valid token.
func authenticated(c *cli.Context) (*identity.Facade, error) {
	facade, err := newFacade(c)
	if err != nil {
		return nil, err
	}
	auth, err := authFromFlags(c)
	if err != nil {
		return nil, err
	}
	if err := establish(c.Context, facade, auth); err != nil {
		return nil, err
	}
	return facade, nil
}

func establish(ctx context.Context, facade *identity.Facade, auth core.AuthConfig) error {
	return executeCommand(contextOf(ctx), facade.Commands().Establish, establishMessage(auth))
}

func outputFormat(c *cli.Context) format {
	return format(strings.ToLower(strings.TrimSpace(c.String("output"))))
}
