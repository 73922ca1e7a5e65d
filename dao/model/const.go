// Constants mapped to database columns.
// Gin cannot bind a zero value when the field carries a `required` tag,
// so the first constant of every enum starts at iota + 1.
package model

// Role is the staff role inside the platform.
type Role uint8

const (
	RoleEmployee Role = iota + 1
	RoleManager
	RoleOwner
	RoleAdmin // platform administrator, not tied to an office
)

func (r Role) String() string {
	switch r {
	case RoleEmployee:
		return "employee"
	case RoleManager:
		return "manager"
	case RoleOwner:
		return "owner"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Staff status
type Status uint8

const (
	StatusActive Status = iota + 1
	StatusInactive
)

// Office type
type OfficeType string

const (
	OfficeTypeTransition OfficeType = "transition_to_employment"
	OfficeTypeA          OfficeType = "type_A_office"
	OfficeTypeB          OfficeType = "type_B_office"
)

// Gender of a welfare recipient
type GenderType string

const (
	GenderMale   GenderType = "male"
	GenderFemale GenderType = "female"
	GenderOther  GenderType = "other"
)
