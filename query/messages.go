package query

import (
	"strings"
	"time"

	"github.com/goliatone/go-identity/core"
)

const (
	TypeTokenInfo        = "identity.query.token.info"
	TypeServiceEndpoint  = "identity.query.catalog.endpoint"
	TypeAvailableRegions = "identity.query.catalog.regions"
	TypeCatalog          = "identity.query.catalog.list"
)

type TokenInfoMessage struct{}

func (TokenInfoMessage) Type() string { return TypeTokenInfo }

func (TokenInfoMessage) Validate() error { return nil }

// TokenInfo is a display-safe projection of the session token. The secret
// auth token is never included.
type TokenInfo struct {
	UserID       string    `json:"user_id" yaml:"user_id"`
	UserName     string    `json:"user_name" yaml:"user_name"`
	ProjectID    string    `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	ProjectName  string    `json:"project_name,omitempty" yaml:"project_name,omitempty"`
	DomainID     string    `json:"domain_id,omitempty" yaml:"domain_id,omitempty"`
	DomainName   string    `json:"domain_name,omitempty" yaml:"domain_name,omitempty"`
	SystemScoped bool      `json:"system_scoped" yaml:"system_scoped"`
	Methods      []string  `json:"methods" yaml:"methods"`
	Roles        []string  `json:"roles" yaml:"roles"`
	Regions      []string  `json:"regions" yaml:"regions"`
	IssuedAt     time.Time `json:"issued_at" yaml:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at" yaml:"expires_at"`
	Expired      bool      `json:"expired" yaml:"expired"`
}

type ServiceEndpointMessage struct {
	Service   string
	Region    string
	Interface string
}

func (ServiceEndpointMessage) Type() string { return TypeServiceEndpoint }

func (m ServiceEndpointMessage) Validate() error {
	if strings.TrimSpace(m.Service) == "" {
		return queryValidationError("service", "service name or type is required")
	}
	switch strings.TrimSpace(m.Interface) {
	case "", core.InterfacePublic, core.InterfaceInternal, core.InterfaceAdmin:
	default:
		return queryValidationError("interface", "interface must be one of public, internal or admin")
	}
	return nil
}

type AvailableRegionsMessage struct{}

func (AvailableRegionsMessage) Type() string { return TypeAvailableRegions }

func (AvailableRegionsMessage) Validate() error { return nil }

type CatalogMessage struct{}

func (CatalogMessage) Type() string { return TypeCatalog }

func (CatalogMessage) Validate() error { return nil }
