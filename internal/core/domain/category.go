package domain

// Category groups entries for budgeting. Categories are managed elsewhere;
// the engine only checks existence and ownership.
type Category struct {
	CategoryID string `json:"categoryID"`
	OwnerID    string `json:"ownerID"`
	Name       string `json:"name"`
}
