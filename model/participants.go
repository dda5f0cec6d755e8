package model

import "time"

// Role is a participant capability tag. Roles are ordinal and fixed; each
// participant holds exactly one.
type Role uint8

const (
	RoleFarmer      Role = 0
	RoleProcessor   Role = 1
	RoleDistributor Role = 2
	RoleRetailer    Role = 3
	RoleConsumer    Role = 4
)

var roleNames = map[Role]string{
	RoleFarmer:      "Farmer",
	RoleProcessor:   "Processor",
	RoleDistributor: "Distributor",
	RoleRetailer:    "Retailer",
	RoleConsumer:    "Consumer",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "Unknown"
}

// ValidRole reports whether the ordinal maps to a defined role.
func ValidRole(n int) bool {
	return n >= int(RoleFarmer) && n <= int(RoleConsumer)
}

// Participant is a registered identity. Participants are created implicitly on
// the first authorization grant and never deleted: revocation clears
// Authorized and retains the role value.
type Participant struct {
	ObjectType    string    `json:"objectType"` // "Participant"
	FullID        string    `json:"fullId"`     // Full X.509 identity string
	Alias         string    `json:"alias"`      // Short name, optional
	Role          Role      `json:"role"`
	Authorized    bool      `json:"authorized"`
	GrantedBy     string    `json:"grantedBy"` // Identity that performed the last grant/revoke
	GrantedAt     time.Time `json:"grantedAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}
