// Package mapper translates users between their wire and stored forms.
package mapper

import "github.com/kjstillabower/user-weather-service/internal/models"

// ToDTO returns the wire form of u, or nil when u is nil.
func ToDTO(u *models.User) *models.UserDTO {
	if u == nil {
		return nil
	}
	return &models.UserDTO{ID: u.ID, Name: u.Name, Email: u.Email, Age: u.Age}
}

// ToEntity returns the stored form of dto, or nil when dto is nil.
func ToEntity(dto *models.UserDTO) *models.User {
	if dto == nil {
		return nil
	}
	return &models.User{ID: dto.ID, Name: dto.Name, Email: dto.Email, Age: dto.Age}
}

// ApplyUpdate overwrites name, email and age of existing from dto.
// The ID is never touched. No-op when either argument is nil.
func ApplyUpdate(existing *models.User, dto *models.UserDTO) {
	if existing == nil || dto == nil {
		return
	}
	existing.Name = dto.Name
	existing.Email = dto.Email
	existing.Age = dto.Age
}
