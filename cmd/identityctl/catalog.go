package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	identityquery "github.com/goliatone/go-identity/query"
)

func catalogCommand() *cli.Command {
	return &cli.Command{
		Name:   "catalog",
		Usage:  "list the service catalog of the issued token",
		Action: catalogAction,
	}
}

func regionsCommand() *cli.Command {
	return &cli.Command{
		Name:   "regions",
		Usage:  "list the regions present in the service catalog",
		Action: regionsAction,
	}
}

func endpointCommand() *cli.Command {
	return &cli.Command{
		Name:      "endpoint",
		Usage:     "resolve a service endpoint, honoring --region and --interface",
		ArgsUsage: "SERVICE",
		Action:    endpointAction,
	}
}

func catalogAction(c *cli.Context) error {
	facade, err := authenticated(c)
	if err != nil {
		return err
	}
	catalog, err := runQuery(contextOf(c.Context), facade.Queries().Catalog, identityquery.CatalogMessage{})
	if err != nil {
		return err
	}
	text := table{headers: []string{"NAME", "TYPE", "INTERFACE", "REGION", "URL"}}
	for _, entry := range catalog {
		for _, endpoint := range entry.Endpoints {
			region := endpoint.Region
			if region == "" {
				region = endpoint.RegionID
			}
			text.rows = append(text.rows, []string{entry.Name, entry.Type, endpoint.Interface, region, endpoint.URL})
		}
	}
	return render(c.App.Writer, outputFormat(c), catalog, text)
}

func regionsAction(c *cli.Context) error {
	facade, err := authenticated(c)
	if err != nil {
		return err
	}
	regions, err := runQuery(contextOf(c.Context), facade.Queries().AvailableRegions, identityquery.AvailableRegionsMessage{})
	if err != nil {
		return err
	}
	text := table{}
	for _, region := range regions {
		text.rows = append(text.rows, []string{region})
	}
	return render(c.App.Writer, outputFormat(c), regions, text)
}

func endpointAction(c *cli.Context) error {
	service := strings.TrimSpace(c.Args().First())
	if service == "" {
		return fmt.Errorf("identityctl: endpoint requires a SERVICE argument")
	}
	facade, err := authenticated(c)
	if err != nil {
		return err
	}
	endpoint, err := runQuery(contextOf(c.Context), facade.Queries().ServiceEndpoint, identityquery.ServiceEndpointMessage{
		Service:   service,
		Region:    c.String("region"),
		Interface: c.String("interface"),
	})
	if err != nil {
		return err
	}
	return render(c.App.Writer, outputFormat(c), map[string]string{"service": service, "endpoint": endpoint}, table{rows: [][]string{{endpoint}}})
}
