//go:build !windows

package vjoy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpen_Unavailable(t *testing.T) {
	d, err := Open("vJoyInterface.dll", 1)
	assert.Nil(t, d)
	assert.ErrorIs(t, err, ErrUnavailable)
}
