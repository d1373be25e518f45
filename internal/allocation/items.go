package allocation

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Unassigned is the assignee of an item nobody has claimed yet.
const Unassigned = ""

// Item is one editable line of the working list. ID is stable for the item's
// lifetime; positions shift when earlier items are deleted, IDs never do.
type Item struct {
	ID    string
	Name  string
	Price float64
}

// ParsePrice parses user input as a finite number. Both "4.99" and "4,99" are accepted.
func ParsePrice(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, invalid("price", "Price is required.")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, invalid("price", "Price %q is not a valid number.", s)
	}
	return v, nil
}

func parseItem(name, price string) (string, float64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", 0, invalid("name", "Item name cannot be empty.")
	}
	p, err := ParsePrice(price)
	if err != nil {
		return "", 0, err
	}
	return name, p, nil
}

// Items returns the working list in order.
func (s *Session) Items() []Item {
	items := make([]Item, 0, len(s.itemOrder))
	for _, id := range s.itemOrder {
		items = append(items, *s.items[id])
	}
	return items
}

// Assignments returns the assignee of every item, by position.
func (s *Session) Assignments() []string {
	out := make([]string, len(s.itemOrder))
	for i, id := range s.itemOrder {
		out[i] = s.assignments[id]
	}
	return out
}

// AddItem appends a manually entered item.
func (s *Session) AddItem(name, price string) (Item, error) {
	if s.state != StateAnalysis {
		return Item{}, transitionError("add item", s.state)
	}
	n, p, err := parseItem(name, price)
	if err != nil {
		return Item{}, err
	}
	return s.appendItem(n, p), nil
}

func (s *Session) appendItem(name string, price float64) Item {
	it := &Item{ID: uuid.New().String(), Name: name, Price: price}
	s.items[it.ID] = it
	s.itemOrder = append(s.itemOrder, it.ID)
	s.assignments[it.ID] = Unassigned
	return *it
}

// UpdateItem replaces the name and price of an item.
func (s *Session) UpdateItem(id, name, price string) error {
	if s.state != StateAnalysis {
		return transitionError("update item", s.state)
	}
	it, ok := s.items[id]
	if !ok {
		return invalid("item", "Unknown item.")
	}
	n, p, err := parseItem(name, price)
	if err != nil {
		return err
	}
	it.Name, it.Price = n, p
	return nil
}

// DeleteItem removes an item together with its assignment.
func (s *Session) DeleteItem(id string) error {
	if s.state != StateAnalysis {
		return transitionError("delete item", s.state)
	}
	if _, ok := s.items[id]; !ok {
		return invalid("item", "Unknown item.")
	}
	delete(s.items, id)
	delete(s.assignments, id)
	for i, oid := range s.itemOrder {
		if oid == id {
			s.itemOrder = append(s.itemOrder[:i], s.itemOrder[i+1:]...)
			break
		}
	}
	return nil
}

// UpdateItemAt is UpdateItem by position.
func (s *Session) UpdateItemAt(index int, name, price string) error {
	id, err := s.idAt(index)
	if err != nil {
		return err
	}
	return s.UpdateItem(id, name, price)
}

// DeleteItemAt is DeleteItem by position.
func (s *Session) DeleteItemAt(index int) error {
	id, err := s.idAt(index)
	if err != nil {
		return err
	}
	return s.DeleteItem(id)
}

// AssignAt is Assign by position.
func (s *Session) AssignAt(index int, assignee string) error {
	id, err := s.idAt(index)
	if err != nil {
		return err
	}
	return s.Assign(id, assignee)
}

func (s *Session) idAt(index int) (string, error) {
	if index < 0 || index >= len(s.itemOrder) {
		return "", invalid("item", "No item at position %d.", index)
	}
	return s.itemOrder[index], nil
}

// Assign sets who pays for an item: Unassigned, a participant ID, or a subgroup ID.
func (s *Session) Assign(itemID, assignee string) error {
	if s.state != StateAnalysis {
		return transitionError("assign", s.state)
	}
	if _, ok := s.items[itemID]; !ok {
		return invalid("item", "Unknown item.")
	}
	if assignee != Unassigned {
		_, isParticipant := s.participants[assignee]
		_, isSubgroup := s.subgroups[assignee]
		if !isParticipant && !isSubgroup {
			return invalid("assignee", "Unknown person or group.")
		}
	}
	s.assignments[itemID] = assignee
	return nil
}
