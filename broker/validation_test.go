package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobility-cosim/platform/simproto"
)

func reserveSchema(required ...string) simproto.JSONSchema {
	return simproto.JSONSchema{Type: "object", Required: required}
}

func TestCheckVersionsPassesWhenAllModulesAgree(t *testing.T) {
	v := &Validator{Specs: map[string]simproto.SpecificationResponse{
		"a": {Version: "mobility-cosim/v1"},
		"b": {Version: "mobility-cosim/v1"},
	}}
	assert.NoError(t, v.CheckVersions())
}

func TestCheckVersionsFailsOnMismatch(t *testing.T) {
	v := &Validator{Specs: map[string]simproto.SpecificationResponse{
		"a": {Version: "mobility-cosim/v1"},
		"b": {Version: "mobility-cosim/v2"},
	}}
	err := v.CheckVersions()
	require.Error(t, err)
	var mismatch *MismatchVersionError
	assert.ErrorAs(t, err, &mismatch)
}

func TestCheckFeaturesPassesWhenTxDeclaresWhatRxRequires(t *testing.T) {
	v := &Validator{Specs: map[string]simproto.SpecificationResponse{
		"producer": {Events: map[simproto.EventType]simproto.EventSpec{
			simproto.EventReserved: {Dir: simproto.Tx, Feature: simproto.FeatureDefinition{
				Declared: simproto.FeatureSet{"route": true},
			}},
		}},
		"consumer": {Events: map[simproto.EventType]simproto.EventSpec{
			simproto.EventReserved: {Dir: simproto.Rx, Feature: simproto.FeatureDefinition{
				Required: simproto.FeatureSet{"route": true},
			}},
		}},
	}}
	assert.NoError(t, v.CheckFeatures())
}

func TestCheckFeaturesFailsWhenTxDoesNotDeclareRequiredFeature(t *testing.T) {
	v := &Validator{Specs: map[string]simproto.SpecificationResponse{
		"producer": {Events: map[simproto.EventType]simproto.EventSpec{
			simproto.EventReserved: {Dir: simproto.Tx, Feature: simproto.FeatureDefinition{}},
		}},
		"consumer": {Events: map[simproto.EventType]simproto.EventSpec{
			simproto.EventReserved: {Dir: simproto.Rx, Feature: simproto.FeatureDefinition{
				Required: simproto.FeatureSet{"route": true},
			}},
		}},
	}}
	err := v.CheckFeatures()
	require.Error(t, err)
	var mismatch *MismatchFeatureError
	assert.ErrorAs(t, err, &mismatch)
}

func TestCheckSchemasPassesWhenRxRequiredIsSubsetOfTxRequired(t *testing.T) {
	v := &Validator{Specs: map[string]simproto.SpecificationResponse{
		"producer": {Events: map[simproto.EventType]simproto.EventSpec{
			simproto.EventReserved: {Dir: simproto.Tx, Schema: reserveSchema("success", "userId", "demandId")},
		}},
		"consumer": {Events: map[simproto.EventType]simproto.EventSpec{
			simproto.EventReserved: {Dir: simproto.Rx, Schema: reserveSchema("success", "userId")},
		}},
	}}
	assert.NoError(t, v.CheckSchemas())
}

func TestCheckSchemasFailsWhenRxRequiresFieldTxDoesNotDeclare(t *testing.T) {
	v := &Validator{Specs: map[string]simproto.SpecificationResponse{
		"producer": {Events: map[simproto.EventType]simproto.EventSpec{
			simproto.EventReserved: {Dir: simproto.Tx, Schema: reserveSchema("success")},
		}},
		"consumer": {Events: map[simproto.EventType]simproto.EventSpec{
			simproto.EventReserved: {Dir: simproto.Rx, Schema: reserveSchema("success", "route")},
		}},
	}}
	err := v.CheckSchemas()
	require.Error(t, err)
	var mismatch *MismatchSchemaError
	assert.ErrorAs(t, err, &mismatch)
}

func TestCheckAllSkipsFeatureAndSchemaWhenIgnored(t *testing.T) {
	v := &Validator{
		IgnoreFeature: true,
		IgnoreSchema:  true,
		Specs: map[string]simproto.SpecificationResponse{
			"producer": {Version: "v1", Events: map[simproto.EventType]simproto.EventSpec{
				simproto.EventReserved: {Dir: simproto.Tx, Schema: reserveSchema()},
			}},
			"consumer": {Version: "v1", Events: map[simproto.EventType]simproto.EventSpec{
				simproto.EventReserved: {Dir: simproto.Rx, Schema: reserveSchema("route")},
			}},
		},
	}
	assert.NoError(t, v.CheckAll())
}
