package dto

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
