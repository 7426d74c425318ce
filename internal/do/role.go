package do

// Role selects which capability set of a logical distributed object a view
// exposes. A logical object may have at most one live view per role per
// process.
type Role int

const (
	RolePlain Role = iota
	RoleAuthority
	RoleEdgeEntry
	RoleEdgeAuthority
	RoleOwner
	RolePrivileged
)

var roleTags = map[Role]string{
	RolePlain:         "",
	RoleAuthority:     "AI",
	RoleEdgeEntry:     "E",
	RoleEdgeAuthority: "AE",
	RoleOwner:         "OV",
	RolePrivileged:    "UD",
}

func (r Role) Tag() string { return roleTags[r] }

func (r Role) String() string {
	switch r {
	case RolePlain:
		return "plain"
	case RoleAuthority:
		return "authority"
	case RoleEdgeEntry:
		return "edge"
	case RoleEdgeAuthority:
		return "edge-authority"
	case RoleOwner:
		return "owner"
	case RolePrivileged:
		return "privileged"
	}
	return "unknown"
}

func RoleFromTag(tag string) (Role, bool) {
	for r, t := range roleTags {
		if t == tag {
			return r, true
		}
	}
	return RolePlain, false
}

// DeliveredRole maps a requester's role to the role of the view an interest
// enter delivers for a discovered object: edge-authority requesters see the
// edge-authority projection, the privileged role sees the edge projection,
// and owner/plain clients see the plain projection.
func DeliveredRole(requester Role) Role {
	switch requester {
	case RolePrivileged:
		return RoleEdgeEntry
	case RoleEdgeEntry, RoleEdgeAuthority:
		return RoleEdgeAuthority
	case RoleAuthority:
		return RoleAuthority
	default:
		return RolePlain
	}
}
