package cards

// ID identifies a single card instance within a game. IDs never leave the engine.
type ID uint32

// Card is one physical card: a stable identity plus its type.
type Card struct {
	ID   ID
	Type Type
}

// Pile is an ordered run of cards. Where a pile has a top, it is the last element.
type Pile []Card

// Types returns the card types in pile order.
func (p Pile) Types() []Type {
	types := make([]Type, len(p))
	for i, c := range p {
		types[i] = c.Type
	}
	return types
}

// IndexOf returns the position of the card with the given id, or -1.
func (p Pile) IndexOf(id ID) int {
	for i, c := range p {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Count returns how many cards of type t the pile holds.
func (p Pile) Count(t Type) int {
	n := 0
	for _, c := range p {
		if c.Type == t {
			n++
		}
	}
	return n
}

// RemoveAt deletes and returns the card at idx. The caller bounds-checks idx.
func (p *Pile) RemoveAt(idx int) Card {
	card := (*p)[idx]
	*p = append((*p)[:idx], (*p)[idx+1:]...)
	return card
}

// Remove deletes the card with the given id and reports whether it was present.
func (p *Pile) Remove(id ID) (Card, bool) {
	idx := p.IndexOf(id)
	if idx < 0 {
		return Card{}, false
	}
	return p.RemoveAt(idx), true
}

// Push appends cards on top of the pile.
func (p *Pile) Push(cards ...Card) {
	*p = append(*p, cards...)
}

// Pop removes the top card. ok is false on an empty pile.
func (p *Pile) Pop() (card Card, ok bool) {
	if len(*p) == 0 {
		return Card{}, false
	}
	idx := len(*p) - 1
	card = (*p)[idx]
	*p = (*p)[:idx]
	return card, true
}

// Clone returns an independent copy of the pile.
func (p Pile) Clone() Pile {
	if p == nil {
		return nil
	}
	cpy := make(Pile, len(p))
	copy(cpy, p)
	return cpy
}
