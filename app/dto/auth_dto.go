package dto

import "time"

// StaffLoginRequest represents the request payload for staff login
type StaffLoginRequest struct {
	Phone    string `json:"phone" validate:"required,min=9,max=20" example:"0911000111"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// StaffLoginResponse represents the successful login payload
type StaffLoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type" example:"Bearer"`
	ExpiresIn   int       `json:"expires_in" example:"43200"`
	ExpiresAt   time.Time `json:"expires_at"`
	Staff       StaffDTO  `json:"staff"`
}

// StaffDTO represents staff information returned to clients
type StaffDTO struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	BranchIDs []uint `json:"branch_ids"`
}
