package domain

// User is owned by the identity provider; we keep only what the shell
// displays plus the id used for the ownership filter.
type User struct {
	ID       string `json:"uid"`
	Name     string `json:"displayName"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL,omitempty"`
}
