// Package schedule allocates pending targets among eligible actors under
// fairness and delegation constraints. Assignment is a deterministic
// pure function of its input snapshot: re-running on unchanged input
// reproduces the identical assignment sequence.
package schedule

import (
	"sort"

	"github.com/farsight-labs/warden/pkg/canonicalize"
	"github.com/farsight-labs/warden/pkg/contracts"
)

// PendingTarget is one unit of work awaiting assignment. Deferred lists
// the actors who have already declined it, in order.
type PendingTarget struct {
	Target   string   `json:"target"`
	Priority int      `json:"priority"`
	Deferred []string `json:"deferred,omitempty"`
}

// ActorLoad carries the fairness input for one eligible actor: the
// number of recent assignments already on their plate.
type ActorLoad struct {
	ActorID           string `json:"actor_id"`
	RecentAssignments int    `json:"recent_assignments"`
}

// Assign produces the ordered assignment sequence for a snapshot of
// pending targets, eligible actors, and assignments already in force.
//
// Targets are processed by priority descending, canonical target
// fingerprint ascending. For each target the least-loaded actor not in
// its delegation chain wins; ties break by actor id ascending. Loads
// accumulate within the run, so a burst of equal-priority targets
// spreads across actors instead of starving the queue behind one. A
// target every eligible actor has deferred is emitted as UNASSIGNABLE
// rather than looping.
func Assign(pending []PendingTarget, actors []ActorLoad, existing []contracts.ScheduleAssignment) []contracts.ScheduleAssignment {
	taken := make(map[string]bool, len(existing))
	for _, a := range existing {
		taken[canonicalize.Fingerprint(a.Target)] = true
	}

	loads := make(map[string]int, len(actors))
	ids := make([]string, 0, len(actors))
	for _, a := range actors {
		if _, dup := loads[a.ActorID]; dup {
			continue
		}
		loads[a.ActorID] = a.RecentAssignments
		ids = append(ids, a.ActorID)
	}
	sort.Strings(ids)

	queue := make([]PendingTarget, len(pending))
	copy(queue, pending)
	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].Priority != queue[j].Priority {
			return queue[i].Priority > queue[j].Priority
		}
		return canonicalize.Fingerprint(queue[i].Target) < canonicalize.Fingerprint(queue[j].Target)
	})

	var out []contracts.ScheduleAssignment
	for _, target := range queue {
		fingerprint := canonicalize.Fingerprint(target.Target)
		if taken[fingerprint] {
			continue
		}
		taken[fingerprint] = true

		deferred := make(map[string]bool, len(target.Deferred))
		for _, actorID := range target.Deferred {
			deferred[actorID] = true
		}

		chosen := ""
		for _, actorID := range ids {
			if deferred[actorID] {
				continue
			}
			if chosen == "" || loads[actorID] < loads[chosen] {
				chosen = actorID
			}
		}

		if chosen == "" {
			out = append(out, contracts.ScheduleAssignment{
				Target:          target.Target,
				Priority:        target.Priority,
				DelegationChain: append([]string(nil), target.Deferred...),
				Unassignable:    true,
			})
			continue
		}

		out = append(out, contracts.ScheduleAssignment{
			ActorID:         chosen,
			Target:          target.Target,
			Priority:        target.Priority,
			DelegationChain: append([]string(nil), target.Deferred...),
			FairnessWeight:  loads[chosen],
		})
		loads[chosen]++
	}

	return out
}

// Defer converts a declined assignment back into a pending target with
// the declining actor appended to the delegation chain.
func Defer(a contracts.ScheduleAssignment) PendingTarget {
	chain := append([]string(nil), a.DelegationChain...)
	if a.ActorID != "" {
		chain = append(chain, a.ActorID)
	}
	return PendingTarget{Target: a.Target, Priority: a.Priority, Deferred: chain}
}
