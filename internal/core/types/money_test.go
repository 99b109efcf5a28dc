package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimes(t *testing.T) {
	assert.True(t, MustMoney("200").Equal(Times(MustMoney("100"), 2)))
	assert.True(t, MustMoney("0.30").Equal(Times(MustMoney("0.10"), 3)))
	assert.True(t, Zero().Equal(Times(MustMoney("19.99"), 0)))
}
