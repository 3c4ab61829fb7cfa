package models

// Role is a caller role carried in JWT claims.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleService Role = "service"
	RoleUser    Role = "user"
)

// NewAccount is the payload sent to the user service to provision an account
// for a registrant.
type NewAccount struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	AboutMe  string `json:"aboutMe"`
}

// AccountUpdate is the payload sent to the user service when a registrant's
// contact email changes.
type AccountUpdate struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}
