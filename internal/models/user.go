package models

// User is the stored representation of a user row.
type User struct {
	ID    int64
	Name  string
	Email string
	Age   int
}

// UserDTO is the wire representation of a user. ID is ignored on input.
type UserDTO struct {
	ID    int64  `json:"id"`
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"notblank,email"`
	Age   int    `json:"age"`
}
