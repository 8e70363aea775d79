package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Score   int    `json:"score" validate:"gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=5"`
}

func TestValidateStructUsesJSONNames(t *testing.T) {
	err := ValidateStruct(sampleRequest{Email: "nope", Score: 9, Comment: "ééééé"})
	require.Error(t, err)

	domainErr := ToDomainError(err)
	assert.Equal(t, CodeValidation, domainErr.Code)
	assert.Contains(t, domainErr.Details, "email")
	assert.Contains(t, domainErr.Details, "score")
	assert.NotContains(t, domainErr.Details, "comment", "max counts characters, not bytes")
	assert.Equal(t, "score must be less than or equal to 5", domainErr.Details["score"])
}

func TestValidateStructPasses(t *testing.T) {
	assert.NoError(t, ValidateStruct(sampleRequest{Email: "a@b.co", Score: 3, Comment: strings.Repeat("x", 5)}))
}
