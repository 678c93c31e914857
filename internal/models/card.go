package models

// Card is one face-down tile on the table. FaceValue identifies the pair it
// belongs to; two cards match iff their face values are equal.
type Card struct {
	ID        int    `json:"id"`
	FaceValue string `json:"faceValue"`
	Revealed  bool   `json:"revealed"`
	Matched   bool   `json:"matched"`
}

// Deck is the ordered card layout of a single round.
type Deck []Card

// Clone returns a copy that shares no backing array with d.
func (d Deck) Clone() Deck {
	if d == nil {
		return nil
	}
	out := make(Deck, len(d))
	copy(out, d)
	return out
}

// IndexOf returns the position of the card with the given id, or -1.
func (d Deck) IndexOf(cardID int) int {
	for i := range d {
		if d[i].ID == cardID {
			return i
		}
	}
	return -1
}
