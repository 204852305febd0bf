package directory

import "fmt"

// Redis key pattern helpers
//
// All keys, channels and search index names are namespaced by tenant prefix.
// The tenant prefix is derived once from the connecting principal's identity
// and is immutable for the session; operations for one tenant never touch
// another tenant's keys.
//
// Two key-naming conventions exist in the wild for this directory:
//
//	entity-first: status:{tenant}:{username}
//	tenant-first: {tenant}:status:{username}
//
// They are the same adapter with a different naming strategy, so the style is
// a Schema knob rather than a forked implementation.

// KeyStyle selects the key-naming convention for a tenant's keys.
type KeyStyle string

const (
	// KeyStyleEntityFirst produces status:{tenant}:{username}.
	KeyStyleEntityFirst KeyStyle = "entity_first"

	// KeyStyleTenantFirst produces {tenant}:status:{username}.
	KeyStyleTenantFirst KeyStyle = "tenant_first"
)

// Validate returns an error if the key style is not a known convention.
func (k KeyStyle) Validate() error {
	switch k {
	case KeyStyleEntityFirst, KeyStyleTenantFirst:
		return nil
	default:
		return fmt.Errorf("invalid key style %q: must be %s or %s",
			string(k), KeyStyleEntityFirst, KeyStyleTenantFirst)
	}
}

// Schema computes all tenant-scoped key, channel and index names.
// The zero value is not usable; construct with NewSchema.
type Schema struct {
	tenant string
	style  KeyStyle
}

// NewSchema creates a Schema for a tenant. The tenant prefix must not be
// empty and the style must be a known convention.
func NewSchema(tenant string, style KeyStyle) (Schema, error) {
	if tenant == "" {
		return Schema{}, fmt.Errorf("tenant prefix cannot be empty")
	}
	if err := style.Validate(); err != nil {
		return Schema{}, err
	}
	return Schema{tenant: tenant, style: style}, nil
}

// Tenant returns the tenant prefix this schema is bound to.
func (s Schema) Tenant() string {
	return s.tenant
}

// StatusKey returns the Redis key holding one user's status hash.
func (s Schema) StatusKey(username string) string {
	if s.style == KeyStyleTenantFirst {
		return fmt.Sprintf("%s:status:%s", s.tenant, username)
	}
	return fmt.Sprintf("status:%s:%s", s.tenant, username)
}

// StatusKeyPattern returns the SCAN match pattern covering every status key
// in the tenant's namespace.
func (s Schema) StatusKeyPattern() string {
	if s.style == KeyStyleTenantFirst {
		return fmt.Sprintf("%s:status:*", s.tenant)
	}
	return fmt.Sprintf("status:%s:*", s.tenant)
}

// BroadcastChannel returns the Pub/Sub channel carrying human-readable
// change descriptions for the tenant.
func (s Schema) BroadcastChannel() string {
	return fmt.Sprintf("%s:broadcast", s.tenant)
}

// IconIndexName returns the tenant's icon-candidate vector index name.
func (s Schema) IconIndexName() string {
	return fmt.Sprintf("idx:icons:%s", s.tenant)
}

// IconCandidateKey returns the Redis key holding one icon candidate's
// name and embedding.
func (s Schema) IconCandidateKey(name string) string {
	return fmt.Sprintf("icon:%s:%s", s.tenant, name)
}

// IconCandidatePrefix returns the key prefix the icon index is built over.
func (s Schema) IconCandidatePrefix() string {
	return fmt.Sprintf("icon:%s:", s.tenant)
}

// LocationIndexName returns the tenant's spatial index name. The spatial
// index is built over the same status hashes as StatusKey, indexing the
// location field as a geo shape.
func (s Schema) LocationIndexName() string {
	return fmt.Sprintf("idx:geo:%s", s.tenant)
}

// StatusKeyPrefix returns the key prefix the spatial index is built over.
func (s Schema) StatusKeyPrefix() string {
	if s.style == KeyStyleTenantFirst {
		return fmt.Sprintf("%s:status:", s.tenant)
	}
	return fmt.Sprintf("status:%s:", s.tenant)
}
