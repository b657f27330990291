package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFmtPoints(t *testing.T) {
	assert.Equal(t, "999", FmtPoints(999))
	assert.Equal(t, "1.5k", FmtPoints(1500))
	assert.Equal(t, "1.25M", FmtPoints(1_250_000))
	assert.Equal(t, "3.00G", FmtPoints(3_000_000_000))
}

func TestFmtJSONString(t *testing.T) {
	assert.Equal(t, `{"a":1}`, FmtJSONString(map[string]int{"a": 1}))
	assert.Equal(t, "marshal data fail", FmtJSONString(func() {}))
}
