package common

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelsAreDistinct(t *testing.T) {
	t.Parallel()

	sentinels := []error{
		ErrNotFound, ErrExists, ErrNotDir, ErrIsDir,
		ErrPermission, ErrInvalidPath, ErrInvalidArg, ErrBadOffset,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.NotErrorIs(t, a, b)
		}
	}
}

func TestWrappedClassification(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("%w: /some/path", ErrNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrExists)
	assert.Contains(t, err.Error(), "/some/path")
}
