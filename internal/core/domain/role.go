package domain

const (
	RoleAdmin    = "Admin"
	RoleStaff    = "Staff"
	RoleCustomer = "Customer"
)

// Role is a named authorization tag that users can be assigned to.
type Role struct {
	Name           string `json:"name"`
	NormalizedName string `json:"-"`
	Descriptor     string `json:"descriptor"`
}

// SeedRoles are created when the store starts if they do not exist yet.
var SeedRoles = []Role{
	{Name: RoleAdmin, NormalizedName: "ADMIN", Descriptor: "ThAmCo Administrators"},
	{Name: RoleStaff, NormalizedName: "STAFF", Descriptor: "ThAmCo Staff Members"},
	{Name: RoleCustomer, NormalizedName: "CUSTOMER", Descriptor: "ThAmCo Customers"},
}
