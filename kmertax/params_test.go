package kmertax_test

import (
	"testing"

	"github.com/grailbio/kmertax/kmertax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsValidatePlain(t *testing.T) {
	p := kmertax.Params{K: 21}
	require.NoError(t, p.Validate())
}

func TestParamsValidateKOutOfRange(t *testing.T) {
	for _, k := range []int{0, -1, 32} {
		p := kmertax.Params{K: k}
		assert.Error(t, p.Validate(), "k=%d", k)
	}
}

func TestParamsValidateMinimizerTooLarge(t *testing.T) {
	p := kmertax.Params{K: 10, M: 10}
	assert.Error(t, p.Validate())
}

func TestParamsValidateMinimizerDisabled(t *testing.T) {
	p := kmertax.Params{K: 10, M: 0}
	assert.NoError(t, p.Validate())
}

func TestParamsValidateShapeAndMConflict(t *testing.T) {
	shape, err := kmertax.ParseShape("OO-OO")
	require.NoError(t, err)
	p := kmertax.Params{Shape: shape, M: 2}
	assert.Error(t, p.Validate())
}

func TestParamsValidateShapeAndKMismatch(t *testing.T) {
	shape, err := kmertax.ParseShape("OO-OO")
	require.NoError(t, err)
	p := kmertax.Params{Shape: shape, K: 99}
	assert.Error(t, p.Validate())
}

func TestParamsValidateShapeSetsK(t *testing.T) {
	shape, err := kmertax.ParseShape("OO-OO")
	require.NoError(t, err)
	p := kmertax.Params{Shape: shape}
	require.NoError(t, p.Validate())
	assert.Equal(t, 4, p.K)
}
