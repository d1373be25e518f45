package allocation

import (
	"strings"

	"github.com/google/uuid"
)

// MinSubgroupSize is the smallest number of members a subgroup may have.
const MinSubgroupSize = 2

// Subgroup is an ad-hoc set of participants that share items evenly.
// Subgroups live only as long as the session.
type Subgroup struct {
	ID      string
	Name    string
	Members []string
}

// CreateSubgroup defines a subgroup of at least two distinct participants.
// Its name is the member names joined in the order given.
func (s *Session) CreateSubgroup(memberIDs []string) (Subgroup, error) {
	if s.state != StateAnalysis {
		return Subgroup{}, transitionError("create subgroup", s.state)
	}

	seen := make(map[string]bool, len(memberIDs))
	members := make([]string, 0, len(memberIDs))
	names := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		p, ok := s.participants[id]
		if !ok {
			return Subgroup{}, invalid("members", "Unknown person in group.")
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, id)
		names = append(names, p.Name)
	}
	if len(members) < MinSubgroupSize {
		return Subgroup{}, invalid("members", "Select at least %d people to create a group.", MinSubgroupSize)
	}

	g := &Subgroup{ID: uuid.New().String(), Name: strings.Join(names, ", "), Members: members}
	s.subgroups[g.ID] = g
	s.subgroupOrder = append(s.subgroupOrder, g.ID)
	return *g, nil
}

// Subgroups returns the session's subgroups in creation order.
func (s *Session) Subgroups() []Subgroup {
	out := make([]Subgroup, 0, len(s.subgroupOrder))
	for _, id := range s.subgroupOrder {
		g := *s.subgroups[id]
		g.Members = append([]string(nil), g.Members...)
		out = append(out, g)
	}
	return out
}
