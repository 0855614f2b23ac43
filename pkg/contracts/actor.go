// Package contracts holds the shared schema types exchanged between the
// warden decision stages: actors and roles, risk levels, execution plans,
// evidence bundles, sub-verdicts, decisions, and the executor boundary
// messages. Everything in this package is a value type; records are
// immutable once constructed and carry no behavior beyond classification
// helpers.
package contracts

// ActorClass distinguishes human operators from system agents.
type ActorClass string

const (
	ActorHuman  ActorClass = "HUMAN"
	ActorSystem ActorClass = "SYSTEM"
)

// Capability is a single permitted action type. The set is closed: an
// action type outside this enumeration can never be granted.
type Capability string

const (
	CapNavigate      Capability = "NAVIGATE"
	CapClick         Capability = "CLICK"
	CapReadDOM       Capability = "READ_DOM"
	CapScreenshot    Capability = "SCREENSHOT"
	CapSubmitForm    Capability = "SUBMIT_FORM"
	CapFileUpload    Capability = "FILE_UPLOAD"
	CapScriptExecute Capability = "SCRIPT_EXECUTE"
)

// Role is a named bundle of capability grants, fixed at definition time.
type Role struct {
	Name         string       `json:"name"`
	Capabilities []Capability `json:"capabilities"`
}

// Grants reports whether the role includes the given capability.
func (r Role) Grants(c Capability) bool {
	for _, have := range r.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Actor is an identity consumed from an external identity source.
// Warden performs no identity issuance or storage; an actor is immutable
// after session start.
type Actor struct {
	ID    string     `json:"id"`
	Class ActorClass `json:"class"`
	Roles []Role     `json:"roles"`
}

// HasCapability reports whether any of the actor's roles grants c.
func (a Actor) HasCapability(c Capability) bool {
	for _, role := range a.Roles {
		if role.Grants(c) {
			return true
		}
	}
	return false
}

// CapabilitySet flattens the actor's role grants into one set.
func (a Actor) CapabilitySet() map[Capability]bool {
	set := make(map[Capability]bool)
	for _, role := range a.Roles {
		for _, c := range role.Capabilities {
			set[c] = true
		}
	}
	return set
}
