package query

import (
	"context"
	"strings"

	"github.com/goliatone/go-identity/core"
)

// TokenReader exposes the current session token.
type TokenReader interface {
	Token() (*core.Token, error)
}

type TokenInfoQuery struct {
	reader TokenReader
}

func NewTokenInfoQuery(reader TokenReader) *TokenInfoQuery {
	return &TokenInfoQuery{reader: reader}
}

func (q *TokenInfoQuery) Query(_ context.Context, _ TokenInfoMessage) (TokenInfo, error) {
	if q == nil || q.reader == nil {
		return TokenInfo{}, queryDependencyError("query: token reader is required")
	}
	token, err := q.reader.Token()
	if err != nil {
		return TokenInfo{}, err
	}
	return newTokenInfo(token), nil
}

type ServiceEndpointQuery struct {
	reader TokenReader
}

func NewServiceEndpointQuery(reader TokenReader) *ServiceEndpointQuery {
	return &ServiceEndpointQuery{reader: reader}
}

func (q *ServiceEndpointQuery) Query(_ context.Context, msg ServiceEndpointMessage) (string, error) {
	if q == nil || q.reader == nil {
		return "", queryDependencyError("query: token reader is required")
	}
	token, err := q.reader.Token()
	if err != nil {
		return "", err
	}
	iface := strings.TrimSpace(msg.Interface)
	if iface == "" {
		iface = core.DefaultInterface
	}
	endpoint, ok := token.ServiceEndpoint(msg.Service, core.EndpointOptions{Region: msg.Region, Interface: iface})
	if !ok {
		return "", core.NewEndpointNotFoundError(msg.Service, msg.Region, iface)
	}
	return endpoint, nil
}

type AvailableRegionsQuery struct {
	reader TokenReader
}

func NewAvailableRegionsQuery(reader TokenReader) *AvailableRegionsQuery {
	return &AvailableRegionsQuery{reader: reader}
}

func (q *AvailableRegionsQuery) Query(_ context.Context, _ AvailableRegionsMessage) ([]string, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: token reader is required")
	}
	token, err := q.reader.Token()
	if err != nil {
		return nil, err
	}
	return token.AvailableRegions(), nil
}

type CatalogQuery struct {
	reader TokenReader
}

func NewCatalogQuery(reader TokenReader) *CatalogQuery {
	return &CatalogQuery{reader: reader}
}

func (q *CatalogQuery) Query(_ context.Context, _ CatalogMessage) ([]core.CatalogEntry, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: token reader is required")
	}
	token, err := q.reader.Token()
	if err != nil {
		return nil, err
	}
	return token.Catalog(), nil
}

func newTokenInfo(token *core.Token) TokenInfo {
	user := token.User()
	info := TokenInfo{
		UserID:       user.ID,
		UserName:     user.Name,
		SystemScoped: token.IsSystemScoped(),
		Methods:      token.Methods(),
		Roles:        token.Roles(),
		Regions:      token.AvailableRegions(),
		IssuedAt:     token.IssuedAt(),
		ExpiresAt:    token.ExpiresAt(),
		Expired:      token.IsExpired(),
	}
	if project, ok := token.Project(); ok {
		info.ProjectID = project.ID
		info.ProjectName = project.Name
	}
	if domain, ok := token.Domain(); ok {
		info.DomainID = domain.ID
		info.DomainName = domain.Name
	}
	return info
}
