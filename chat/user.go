package chat

// User is a display-only identity used to attribute messages
type User struct {
	Name string
	Icon string // image URL, may be empty
}

// Initial returns the first letter of the name for avatar placeholders
func (u User) Initial() string {
	for _, r := range u.Name {
		return string(r)
	}
	return "?"
}
