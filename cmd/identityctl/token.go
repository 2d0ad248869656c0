package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	identity "github.com/goliatone/go-identity"
	identitycommand "github.com/goliatone/go-identity/command"
	"github.com/goliatone/go-identity/core"
	identityquery "github.com/goliatone/go-identity/query"
)

type issuedToken struct {
	Token string                  `json:"token" yaml:"token"`
	Info  identityquery.TokenInfo `json:"info" yaml:"info"`
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "issue, validate or revoke tokens",
		Subcommands: []*cli.Command{
			{
				Name:   "issue",
				Usage:  "issue a token from the configured credentials",
				Action: tokenIssueAction,
			},
			{
				Name:      "validate",
				Usage:     "validate an existing token and show its details",
				ArgsUsage: "TOKEN",
				Action:    tokenValidateAction,
			},
			{
				Name:      "revoke",
				Usage:     "revoke an existing token",
				ArgsUsage: "TOKEN",
				Action:    tokenRevokeAction,
			},
		},
	}
}

func tokenIssueAction(c *cli.Context) error {
	facade, err := authenticated(c)
	if err != nil {
		return err
	}
	token, err := facade.Session().Token()
	if err != nil {
		return err
	}
	info, err := tokenInfo(c, facade)
	if err != nil {
		return err
	}
	issued := issuedToken{Token: token.AuthToken(), Info: info}
	text := tokenInfoTable(info)
	text.rows = append([][]string{{"token", issued.Token}}, text.rows...)
	return render(c.App.Writer, outputFormat(c), issued, text)
}

func tokenValidateAction(c *cli.Context) error {
	facade, err := tokenArgFacade(c)
	if err != nil {
		return err
	}
	info, err := tokenInfo(c, facade)
	if err != nil {
		return err
	}
	return render(c.App.Writer, outputFormat(c), info, tokenInfoTable(info))
}

func tokenRevokeAction(c *cli.Context) error {
	facade, err := tokenArgFacade(c)
	if err != nil {
		return err
	}
	if err := executeCommand(contextOf(c.Context), facade.Commands().Terminate, identitycommand.TerminateMessage{}); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "token revoked")
	return nil
}

// tokenArgFacade establishes a session by validating the TOKEN argument.
func tokenArgFacade(c *cli.Context) (*identity.Facade, error) {
	tokenID := strings.TrimSpace(c.Args().First())
	if tokenID == "" {
		return nil, fmt.Errorf("identityctl: %s requires a TOKEN argument", c.Command.Name)
	}
	facade, err := newFacade(c)
	if err != nil {
		return nil, err
	}
	if err := establish(c.Context, facade, core.TokenAuth(tokenID)); err != nil {
		return nil, err
	}
	return facade, nil
}

func tokenInfo(c *cli.Context, facade *identity.Facade) (identityquery.TokenInfo, error) {
	return runQuery(contextOf(c.Context), facade.Queries().TokenInfo, identityquery.TokenInfoMessage{})
}

func tokenInfoTable(info identityquery.TokenInfo) table {
	rows := [][]string{
		{"user", joinNonEmpty(info.UserName, info.UserID)},
	}
	switch {
	case info.ProjectID != "" || info.ProjectName != "":
		rows = append(rows, []string{"project", joinNonEmpty(info.ProjectName, info.ProjectID)})
	case info.DomainID != "" || info.DomainName != "":
		rows = append(rows, []string{"domain", joinNonEmpty(info.DomainName, info.DomainID)})
	case info.SystemScoped:
		rows = append(rows, []string{"scope", "system"})
	}
	rows = append(rows,
		[]string{"methods", strings.Join(info.Methods, ",")},
		[]string{"roles", strings.Join(info.Roles, ",")},
		[]string{"regions", strings.Join(info.Regions, ",")},
		[]string{"issued_at", formatTime(info.IssuedAt)},
		[]string{"expires_at", formatTime(info.ExpiresAt)},
		[]string{"expired", fmt.Sprint(info.Expired)},
	)
	return table{rows: rows}
}

func joinNonEmpty(name, id string) string {
	switch {
	case name != "" && id != "":
		return name + " (" + id + ")"
	case name != "":
		return name
	default:
		return id
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.UTC().Format(time.RFC3339)
}
