package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mobility-cosim/platform/simproto"
)

func TestExternalOrderRanksByKnownPrefixes(t *testing.T) {
	assert.True(t, externalOrder("generator-peak") < externalOrder("walking"))
	assert.True(t, externalOrder("walking") < externalOrder("evaluation-simple"))
	assert.True(t, externalOrder("evaluation-simple") < externalOrder("useragent"))
	assert.Equal(t, externalOrder("totally-unrelated"), len(externalOrderPrefixes))
}

func TestPlanIsANonGoalStubReturningNoLegs(t *testing.T) {
	m := NewManager(testLog())
	legs, err := m.Plan(context.Background(), simproto.Location{LocationID: "A"}, simproto.Location{LocationID: "B"}, 0)
	assert.NoError(t, err)
	assert.Nil(t, legs)
}

func TestManagerSuccessAndRunningDefaults(t *testing.T) {
	m := NewManager(testLog())
	assert.True(t, m.Success())
	assert.False(t, m.Running())
}
