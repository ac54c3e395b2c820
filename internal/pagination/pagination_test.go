package pagination_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kasupel/internal/pagination"
)

func TestPages(t *testing.T) {
	assert.Equal(t, 0, pagination.Pages(0))
	assert.Equal(t, 1, pagination.Pages(1))
	assert.Equal(t, 1, pagination.Pages(100))
	assert.Equal(t, 2, pagination.Pages(101))
	assert.Equal(t, 2, pagination.Pages(200))
	assert.Equal(t, 3, pagination.Pages(201))
}

func TestValidateEmptyListing(t *testing.T) {
	assert.NoError(t, pagination.Validate(0, 0))
	assert.Error(t, pagination.Validate(1, 0))
}

func TestValidateWithinRange(t *testing.T) {
	assert.NoError(t, pagination.Validate(0, 150))
	assert.NoError(t, pagination.Validate(1, 150))
	assert.Error(t, pagination.Validate(2, 150))
}

func TestValidateRejectsNegativePage(t *testing.T) {
	assert.Error(t, pagination.Validate(-1, 150))
}
