package customers

import "github.com/feedmill/feedmill/internal/shared"

type CreateCustomerRequest struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Phone    string `json:"phone" validate:"omitempty,max=50"`
	Address  string `json:"address" validate:"omitempty,max=500"`
}

type UpdateCustomerRequest struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=200"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

type ListResponse struct {
	Customers  []Customer        `json:"customers"`
	Pagination shared.Pagination `json:"pagination"`
}
