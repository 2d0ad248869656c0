package core

import (
	"strings"
	"time"
)

type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type DomainRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type UserInfo struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Domain            *DomainRef `json:"domain,omitempty"`
	PasswordExpiresAt string     `json:"password_expires_at,omitempty"`
}

type ProjectInfo struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Domain *DomainRef `json:"domain,omitempty"`
}

type Endpoint struct {
	ID        string `json:"id"`
	Interface string `json:"interface"`
	Region    string `json:"region"`
	RegionID  string `json:"region_id"`
	URL       string `json:"url"`
}

type CatalogEntry struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Endpoints []Endpoint `json:"endpoints"`
}

// RawTokenData is the token payload returned by the identity service.
type RawTokenData struct {
	ExpiresAt string         `json:"expires_at"`
	IssuedAt  string         `json:"issued_at"`
	Methods   []string       `json:"methods,omitempty"`
	Roles     []Role         `json:"roles,omitempty"`
	Catalog   []CatalogEntry `json:"catalog,omitempty"`
	User      UserInfo       `json:"user"`
	Project   *ProjectInfo   `json:"project,omitempty"`
	Domain    *DomainRef     `json:"domain,omitempty"`
	System    map[string]any `json:"system,omitempty"`
	AuditIDs  []string       `json:"audit_ids,omitempty"`
	IsDomain  bool           `json:"is_domain,omitempty"`
}

// Clone copies every slice and map so the result shares no backing storage
// with the receiver.
func (d RawTokenData) Clone() RawTokenData {
	out := d
	out.Methods = append([]string(nil), d.Methods...)
	out.Roles = append([]Role(nil), d.Roles...)
	out.AuditIDs = append([]string(nil), d.AuditIDs...)
	if d.Catalog != nil {
		out.Catalog = make([]CatalogEntry, len(d.Catalog))
		for i, entry := range d.Catalog {
			entry.Endpoints = append([]Endpoint(nil), entry.Endpoints...)
			out.Catalog[i] = entry
		}
	}
	if d.Project != nil {
		project := *d.Project
		project.Domain = cloneDomainRef(d.Project.Domain)
		out.Project = &project
	}
	out.Domain = cloneDomainRef(d.Domain)
	out.User.Domain = cloneDomainRef(d.User.Domain)
	if d.System != nil {
		out.System = make(map[string]any, len(d.System))
		for key, value := range d.System {
			out.System[key] = value
		}
	}
	return out
}

type EndpointOptions struct {
	Region    string
	Interface string
}

// Token is an immutable view over an issued identity token.
type Token struct {
	authToken string
	data      RawTokenData
	expiresAt time.Time
	regions   []string
}

func NewToken(authToken string, data RawTokenData) *Token {
	copied := data.Clone()
	return &Token{
		authToken: strings.TrimSpace(authToken),
		data:      copied,
		expiresAt: parseTokenTime(copied.ExpiresAt),
		regions:   collectRegions(copied.Catalog),
	}
}

func (t *Token) AuthToken() string {
	if t == nil {
		return ""
	}
	return t.authToken
}

func (t *Token) Data() RawTokenData {
	if t == nil {
		return RawTokenData{}
	}
	return t.data.Clone()
}

// ExpiresAt is the zero time when the payload carried no parseable expiry.
func (t *Token) ExpiresAt() time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.expiresAt
}

func (t *Token) IssuedAt() time.Time {
	if t == nil {
		return time.Time{}
	}
	return parseTokenTime(t.data.IssuedAt)
}

func (t *Token) IsExpired() bool {
	return t.IsExpiredAt(time.Now())
}

func (t *Token) IsExpiredAt(now time.Time) bool {
	if t == nil || t.expiresAt.IsZero() {
		return true
	}
	return !t.expiresAt.After(now)
}

func (t *Token) AvailableRegions() []string {
	if t == nil {
		return []string{}
	}
	return append([]string{}, t.regions...)
}

func (t *Token) HasRole(name string) bool {
	if t == nil {
		return false
	}
	for _, role := range t.data.Roles {
		if role.Name == name {
			return true
		}
	}
	return false
}

func (t *Token) Roles() []string {
	if t == nil {
		return []string{}
	}
	out := make([]string, 0, len(t.data.Roles))
	for _, role := range t.data.Roles {
		out = append(out, role.Name)
	}
	return out
}

func (t *Token) Methods() []string {
	if t == nil {
		return []string{}
	}
	return append([]string{}, t.data.Methods...)
}

func (t *Token) User() UserInfo {
	if t == nil {
		return UserInfo{}
	}
	user := t.data.User
	user.Domain = cloneDomainRef(user.Domain)
	return user
}

func (t *Token) Project() (ProjectInfo, bool) {
	if t == nil || t.data.Project == nil {
		return ProjectInfo{}, false
	}
	project := *t.data.Project
	project.Domain = cloneDomainRef(project.Domain)
	return project, true
}

func (t *Token) Domain() (DomainRef, bool) {
	if t == nil || t.data.Domain == nil {
		return DomainRef{}, false
	}
	return *t.data.Domain, true
}

func (t *Token) IsSystemScoped() bool {
	if t == nil {
		return false
	}
	return len(t.data.System) > 0
}

func (t *Token) Catalog() []CatalogEntry {
	if t == nil {
		return []CatalogEntry{}
	}
	return t.Data().Catalog
}

func (t *Token) HasService(nameOrType string) bool {
	_, ok := t.findCatalogEntry(nameOrType)
	return ok
}

// ServiceEndpoint resolves the URL of a catalog service. The region defaults
// to the first available region; ties resolve to the first match in catalog
// order.
func (t *Token) ServiceEndpoint(nameOrType string, options EndpointOptions) (string, bool) {
	if t == nil || len(t.data.Catalog) == 0 {
		return "", false
	}
	region := options.Region
	if region == "" && len(t.regions) > 0 {
		region = t.regions[0]
	}
	entry, ok := t.findCatalogEntry(nameOrType)
	if !ok {
		return "", false
	}
	for _, endpoint := range entry.Endpoints {
		if endpoint.Interface != options.Interface {
			continue
		}
		if endpoint.RegionID == region || endpoint.Region == region {
			return endpoint.URL, true
		}
	}
	return "", false
}

func (t *Token) findCatalogEntry(nameOrType string) (CatalogEntry, bool) {
	if t == nil {
		return CatalogEntry{}, false
	}
	for _, entry := range t.data.Catalog {
		if entry.Type == nameOrType || entry.Name == nameOrType {
			return entry, true
		}
	}
	return CatalogEntry{}, false
}

func collectRegions(catalog []CatalogEntry) []string {
	seen := map[string]struct{}{}
	regions := []string{}
	for _, entry := range catalog {
		for _, endpoint := range entry.Endpoints {
			if endpoint.Region == "" {
				continue
			}
			if _, ok := seen[endpoint.Region]; ok {
				continue
			}
			seen[endpoint.Region] = struct{}{}
			regions = append(regions, endpoint.Region)
		}
	}
	return regions
}

var tokenTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000000Z",
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseTokenTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range tokenTimeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

func cloneDomainRef(ref *DomainRef) *DomainRef {
	if ref == nil {
		return nil
	}
	copied := *ref
	return &copied
}
