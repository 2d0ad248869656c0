package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	gocmd "github.com/goliatone/go-command"
	"github.com/urfave/cli/v2"

	identitycommand "github.com/goliatone/go-identity/command"
	"github.com/goliatone/go-identity/core"
)

type serviceResponse struct {
	Status  int               `json:"status" yaml:"status"`
	Headers map[string]string `json:"headers" yaml:"headers"`
	Body    any               `json:"body" yaml:"body"`
}

func requestCommand() *cli.Command {
	return &cli.Command{
		Name:      "request",
		Usage:     "send an authenticated request to a catalog service",
		ArgsUsage: "METHOD SERVICE PATH",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "JSON request body",
			},
			&cli.StringSliceFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "query parameter as key=value, repeatable",
			},
			&cli.StringSliceFlag{
				Name:    "header",
				Aliases: []string{"H"},
				Usage:   "request header as name=value, repeatable",
			},
		},
		Action: requestAction,
	}
}

func requestAction(c *cli.Context) error {
	if c.NArg() != 3 {
		return fmt.Errorf("identityctl: request expects METHOD SERVICE PATH")
	}
	msg, err := invokeMessage(c)
	if err != nil {
		return err
	}
	facade, err := authenticated(c)
	if err != nil {
		return err
	}

	collector := gocmd.NewResult[*http.Response]()
	ctx := gocmd.ContextWithResult(contextOf(c.Context), collector)
	if err := executeCommand(ctx, facade.Commands().InvokeService, msg); err != nil {
		return err
	}
	resp, ok := collector.Load()
	if !ok || resp == nil {
		return fmt.Errorf("identityctl: no response recorded")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	f := outputFormat(c)
	if f == formatText || f == "" {
		_, err := c.App.Writer.Write(payload)
		return err
	}
	return render(c.App.Writer, f, newServiceResponse(resp, payload), table{})
}

func invokeMessage(c *cli.Context) (identitycommand.InvokeServiceMessage, error) {
	args := c.Args()
	msg := identitycommand.InvokeServiceMessage{
		Method:  strings.ToUpper(args.Get(0)),
		Service: args.Get(1),
		Path:    args.Get(2),
	}
	if data := c.String("data"); data != "" {
		var value any
		if err := json.Unmarshal([]byte(data), &value); err != nil {
			return msg, fmt.Errorf("identityctl: --data is not valid JSON: %w", err)
		}
		msg.Body = core.JSONBody(value)
	}
	query, err := pairs(c.StringSlice("query"), "query")
	if err != nil {
		return msg, err
	}
	if len(query) > 0 {
		msg.Options.Query = core.Query{}
		for key, value := range query {
			msg.Options.Query[key] = value
		}
	}
	headers, err := pairs(c.StringSlice("header"), "header")
	if err != nil {
		return msg, err
	}
	if len(headers) > 0 {
		msg.Options.Headers = headers
	}
	if c.IsSet("debug") {
		msg.Options.Debug = core.Bool(c.Bool("debug"))
	}
	return msg, msg.Validate()
}

func pairs(values []string, flag string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, raw := range values {
		key, value, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("identityctl: --%s expects key=value, got %q", flag, raw)
		}
		out[key] = value
	}
	return out, nil
}

func newServiceResponse(resp *http.Response, payload []byte) serviceResponse {
	out := serviceResponse{Status: resp.StatusCode, Headers: map[string]string{}}
	for name := range resp.Header {
		out.Headers[name] = resp.Header.Get(name)
	}
	var decoded any
	if len(payload) > 0 && json.Unmarshal(payload, &decoded) == nil {
		out.Body = decoded
	} else if len(payload) > 0 {
		out.Body = string(payload)
	}
	return out
}
