package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/user-weather-service/internal/models"
)

func TestToDTO(t *testing.T) {
	dto := ToDTO(&models.User{ID: 1, Name: "John Doe", Email: "john@example.com", Age: 25})
	require.NotNil(t, dto)
	assert.Equal(t, models.UserDTO{ID: 1, Name: "John Doe", Email: "john@example.com", Age: 25}, *dto)
}

func TestToDTO_Nil(t *testing.T) {
	assert.Nil(t, ToDTO(nil))
}

func TestToEntity(t *testing.T) {
	u := ToEntity(&models.UserDTO{ID: 7, Name: "Jane", Email: "jane@example.com", Age: 30})
	require.NotNil(t, u)
	assert.Equal(t, models.User{ID: 7, Name: "Jane", Email: "jane@example.com", Age: 30}, *u)
}

func TestToEntity_Nil(t *testing.T) {
	assert.Nil(t, ToEntity(nil))
}

func TestApplyUpdate(t *testing.T) {
	u := &models.User{ID: 3, Name: "Old", Email: "old@example.com", Age: 20}
	ApplyUpdate(u, &models.UserDTO{ID: 99, Name: "New", Email: "new@example.com", Age: 21})
	assert.Equal(t, models.User{ID: 3, Name: "New", Email: "new@example.com", Age: 21}, *u)
}

func TestApplyUpdate_NilArguments(t *testing.T) {
	u := &models.User{ID: 3, Name: "Old", Email: "old@example.com", Age: 20}
	ApplyUpdate(u, nil)
	assert.Equal(t, "Old", u.Name)

	assert.NotPanics(t, func() {
		ApplyUpdate(nil, &models.UserDTO{Name: "x"})
	})
}
