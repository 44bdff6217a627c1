package kafka

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
)

func TestCreateChannel_NoBrokers(t *testing.T) {
	_, _, err := CreateChannel(watermill.NopLogger{}, nil, "episodic")
	assert.ErrorIs(t, err, ErrNoBrokers)

	_, _, err = CreateChannel(watermill.NopLogger{}, []string{""}, "episodic")
	assert.ErrorIs(t, err, ErrNoBrokers)
}
