package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-identity/core"
)

var (
	_ gocmd.Querier[TokenInfoMessage, TokenInfo]         = (*TokenInfoQuery)(nil)
	_ gocmd.Querier[ServiceEndpointMessage, string]      = (*ServiceEndpointQuery)(nil)
	_ gocmd.Querier[AvailableRegionsMessage, []string]   = (*AvailableRegionsQuery)(nil)
	_ gocmd.Querier[CatalogMessage, []core.CatalogEntry] = (*CatalogQuery)(nil)
	_ TokenReader                                        = (*core.Session)(nil)
)
