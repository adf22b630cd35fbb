package broker

import (
	"fmt"
	"sort"

	"github.com/mobility-cosim/platform/simproto"
)

// MismatchVersionError reports modules declaring more than one spec version.
type MismatchVersionError struct{ Versions []string }

func (e *MismatchVersionError) Error() string {
	return fmt.Sprintf("mismatch in event schema version: versions=(%v)", e.Versions)
}

// MismatchFeatureError reports a Tx/Rx feature-coverage gap for one event type.
type MismatchFeatureError struct {
	EventType      simproto.EventType
	Module, Module2 string
}

func (e *MismatchFeatureError) Error() string {
	return fmt.Sprintf("mismatch event[%s] features, modules=(%s, %s)", e.EventType, e.Module, e.Module2)
}

// MismatchSchemaError reports a Tx/Rx required-field mismatch for one event type.
type MismatchSchemaError struct {
	EventType       simproto.EventType
	TxName, RxName string
}

func (e *MismatchSchemaError) Error() string {
	return fmt.Sprintf("mismatch event[%s] schema, modules=(%s, %s)", e.EventType, e.TxName, e.RxName)
}

// Validator runs spec §4.5.2's specification compatibility gate. Grounded on
// validation.py's EventValidator; the feature/schema coverage rules are
// carried over verbatim, re-expressed against simproto's FeatureSet/JSONSchema
// types rather than jsonschema + pydantic.
type Validator struct {
	IgnoreFeature bool
	IgnoreSchema  bool
	Specs         map[string]simproto.SpecificationResponse
}

// CheckVersions requires every module to declare the same version URI.
func (v *Validator) CheckVersions() error {
	seen := map[string]bool{}
	for _, spec := range v.Specs {
		seen[spec.Version] = true
	}
	if len(seen) > 1 {
		versions := make([]string, 0, len(seen))
		for ver := range seen {
			versions = append(versions, ver)
		}
		sort.Strings(versions)
		return &MismatchVersionError{Versions: versions}
	}
	return nil
}

// CheckFeatures requires every Tx-declared feature set to cover all
// Rx-required features for the same event type across every other module,
// and vice versa.
func (v *Validator) CheckFeatures() error {
	if v.IgnoreFeature {
		return nil
	}
	if err := v.checkFeatureDirection(simproto.Tx, simproto.Rx); err != nil {
		return err
	}
	return v.checkFeatureDirection(simproto.Rx, simproto.Tx)
}

func (v *Validator) checkFeatureDirection(dirMain, dirRev simproto.TxRx) error {
	for name, spec := range v.Specs {
		for et, ev := range spec.Events {
			if ev.Dir != dirMain || ev.Feature.Required == nil {
				continue
			}
			for name2, spec2 := range v.Specs {
				if name2 == name {
					continue
				}
				ev2, ok := spec2.Events[et]
				if !ok || ev2.Dir != dirRev {
					continue
				}
				if !featureSetCovers(ev2.Feature, ev.Feature.Required) {
					return &MismatchFeatureError{EventType: et, Module: name, Module2: name2}
				}
			}
		}
	}
	return nil
}

func featureSetCovers(fd simproto.FeatureDefinition, required simproto.FeatureSet) bool {
	declared := simproto.FeatureSet{}
	for k, v := range fd.Declared {
		declared[k] = v
	}
	for k, v := range fd.Required {
		declared[k] = v
	}
	return declared.Covers(required)
}

// CheckSchemas requires, for every Tx/Rx pairing on a common event type, the
// Rx schema's required fields to be a subset of the Tx schema's required
// fields, recursively through nested properties.
func (v *Validator) CheckSchemas() error {
	if v.IgnoreSchema {
		return nil
	}
	for rxName, rxSpec := range v.Specs {
		for et, rxEvent := range rxSpec.Events {
			if rxEvent.Dir != simproto.Rx {
				continue
			}
			for txName, txSpec := range v.Specs {
				txEvent, ok := txSpec.Events[et]
				if !ok || txEvent.Dir != simproto.Tx {
					continue
				}
				if err := schemaRequiredSubset(txEvent.Schema, rxEvent.Schema); err != nil {
					return &MismatchSchemaError{EventType: et, TxName: txName, RxName: rxName}
				}
			}
		}
	}
	return nil
}

// schemaRequiredSubset checks rx.required ⊆ tx.required, recursing into
// each required field's nested schema if both sides define one.
func schemaRequiredSubset(tx, rx simproto.JSONSchema) error {
	txRequired := tx.RequiredSet()
	for _, field := range rx.Required {
		if _, ok := txRequired[field]; !ok {
			return fmt.Errorf("required field %q missing from Tx schema", field)
		}
		txProp, txHas := tx.Properties[field]
		rxProp, rxHas := rx.Properties[field]
		if txHas && rxHas {
			if err := schemaRequiredSubset(txProp, rxProp); err != nil {
				return err
			}
		}
	}
	return nil
}

// CheckAll runs every gate check in spec §4.5.2's order.
func (v *Validator) CheckAll() error {
	if err := v.CheckVersions(); err != nil {
		return err
	}
	if err := v.CheckFeatures(); err != nil {
		return err
	}
	return v.CheckSchemas()
}
