package customers

import "time"

// Customer is a named buyer that invoices may reference.
type Customer struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListFilter narrows customer listings.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}
