// Package identity consumes actor descriptors from an external identity
// source. Warden issues no identities and stores none: this package
// only validates that an incoming descriptor speaks the closed
// capability vocabulary before it is admitted to a session.
package identity

import (
	"encoding/json"
	"fmt"

	"github.com/farsight-labs/warden/pkg/contracts"
)

var knownCapabilities = map[contracts.Capability]bool{
	contracts.CapNavigate:      true,
	contracts.CapClick:         true,
	contracts.CapReadDOM:       true,
	contracts.CapScreenshot:    true,
	contracts.CapSubmitForm:    true,
	contracts.CapFileUpload:    true,
	contracts.CapScriptExecute: true,
}

// ParseActor decodes and validates one actor descriptor. An unknown
// capability or actor class is a structural error, not a silent drop:
// an identity source speaking a different vocabulary must be noticed,
// not trimmed into something that looks valid.
func ParseActor(raw []byte) (contracts.Actor, error) {
	var actor contracts.Actor
	if err := json.Unmarshal(raw, &actor); err != nil {
		return contracts.Actor{}, &contracts.StructuralError{
			Subject: "actor descriptor",
			Detail:  fmt.Sprintf("not valid JSON: %v", err),
		}
	}
	if err := Validate(actor); err != nil {
		return contracts.Actor{}, err
	}
	return actor, nil
}

// Validate checks an already-decoded actor against the closed
// vocabulary.
func Validate(actor contracts.Actor) error {
	if actor.ID == "" {
		return &contracts.StructuralError{Subject: "actor descriptor", Detail: "empty actor id"}
	}
	if actor.Class != contracts.ActorHuman && actor.Class != contracts.ActorSystem {
		return &contracts.StructuralError{
			Subject: "actor descriptor",
			Detail:  fmt.Sprintf("unknown actor class %q", actor.Class),
		}
	}
	for _, role := range actor.Roles {
		if role.Name == "" {
			return &contracts.StructuralError{Subject: "actor descriptor", Detail: "role with empty name"}
		}
		for _, capability := range role.Capabilities {
			if !knownCapabilities[capability] {
				return &contracts.StructuralError{
					Subject: "actor descriptor",
					Detail:  fmt.Sprintf("role %s grants unknown capability %q", role.Name, capability),
				}
			}
		}
	}
	return nil
}
