package transport

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AddressRequest struct {
	Label      string `json:"label"`
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"isDefault"`
}

// RefreshRequest is optional; the refresh cookie takes precedence.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}
