package identity

import "time"

// Roles a marketplace user can hold.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

// User represents a registered marketplace member and wallet owner.
type User struct {
	ID           string
	Phone        string
	Role         string
	PINHash      []byte
	DeviceID     string
	TokenVersion int
	CreatedAt    time.Time
	LastLogin    time.Time
}

// Credentials request structure.
type Credentials struct {
	Phone    string
	PIN      string
	DeviceID string
}
