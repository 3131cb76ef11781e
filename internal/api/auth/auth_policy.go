package auth

import "github.com/FACorreiaa/go-pokedex-api/internal/types"

type Resource string

const (
	ResourceAuth      Resource = "auth"
	ResourceAccount   Resource = "account"
	ResourceCatalog   Resource = "catalog"
	ResourceFavorites Resource = "favorites"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Operation is the unit the access policy is keyed on.
type Operation struct {
	Resource Resource
	Action   Action
}

func Op(r Resource, a Action) Operation { return Operation{Resource: r, Action: a} }

type Decision int

const (
	Allow Decision = iota
	Unauthenticated
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	}
	return "unknown"
}

type rule struct {
	public bool
	roles  map[types.Role]struct{}
}

func public() rule { return rule{public: true} }

func roles(rs ...types.Role) rule {
	set := make(map[types.Role]struct{}, len(rs))
	for _, r := range rs {
		set[r] = struct{}{}
	}
	return rule{roles: set}
}

// AccessPolicy maps operations to the roles allowed to perform them.
// The table is built once and never mutated, so Evaluate needs no locking.
// Operations missing from the table require an authenticated caller of any role.
type AccessPolicy struct {
	rules map[Operation]rule
}

func NewAccessPolicy() *AccessPolicy {
	return &AccessPolicy{rules: map[Operation]rule{
		Op(ResourceAuth, ActionRead):   public(),
		Op(ResourceAuth, ActionCreate): public(),
		Op(ResourceAuth, ActionUpdate): public(),
		Op(ResourceAuth, ActionDelete): public(),

		Op(ResourceCatalog, ActionRead):   public(),
		Op(ResourceCatalog, ActionCreate): roles(types.RoleUser, types.RoleAdmin),
		Op(ResourceCatalog, ActionUpdate): roles(types.RoleUser, types.RoleAdmin),
		Op(ResourceCatalog, ActionDelete): roles(types.RoleAdmin),
	}}
}

// Evaluate decides whether identity may perform op. A nil identity is an
// anonymous caller.
func (p *AccessPolicy) Evaluate(op Operation, identity *types.Identity) Decision {
	r, ok := p.rules[op]
	if ok && r.public {
		return Allow
	}
	if identity == nil {
		return Unauthenticated
	}
	if !ok {
		return Allow
	}
	if _, allowed := r.roles[identity.Role]; allowed {
		return Allow
	}
	return Forbidden
}
