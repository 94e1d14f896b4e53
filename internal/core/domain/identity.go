package domain

type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
)

// Authenticated reports whether the role belongs to a signed-in caller.
func (r Role) Authenticated() bool {
	return r == RoleUser || r == RoleAdmin
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

type Identity struct {
	ID   string
	Role Role
}
