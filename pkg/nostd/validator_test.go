package nostd

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type limitQuery struct {
	Limit int `validate:"min=1,max=100"`
}

func TestCustomValidator_Translates(t *testing.T) {
	cv := CustomValidator{Validator: validator.New()}
	require.NoError(t, cv.TransInit())

	assert.NoError(t, cv.Validate(&limitQuery{Limit: 10}))

	err := cv.Validate(&limitQuery{Limit: 500})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Limit must be 100 or less")
}
