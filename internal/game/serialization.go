package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/landsduel/duel-server-go/internal/game/cards"
)

// Checksum hashes a canonical rendering of the full duel state, hidden cards and
// card identities included. Two duels with equal checksums are in the same state.
func Checksum(d *Duel) string {
	sum := sha256.Sum256(d.canonical())
	return hex.EncodeToString(sum[:])
}

func (d *Duel) canonical() []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "DUEL:%s|%d|%s|%d|%d|%d|%d\n",
		d.id, d.seed, d.phase, d.current, d.first, d.turn, d.winner)

	for seat, p := range d.players {
		fmt.Fprintf(&buf, "PLAYER:%d|%s\n", seat, p.Name)
		writePile(&buf, "deck", p.Deck)
		writePile(&buf, "discard", p.Discard)
		writePile(&buf, "visible", p.Visible)
		writePile(&buf, "hidden", p.Hidden)
		for _, t := range cards.All {
			writePile(&buf, "board:"+t.String(), p.Board[t])
		}
	}

	for _, o := range d.offers.List() {
		fmt.Fprintf(&buf, "OFFER:%d|%s|%s|%d|%d|%d\n",
			o.Seq, o.Kind, o.Ability, o.Actor, o.Source, o.Target)
	}
	fmt.Fprintf(&buf, "SELECTOR:%d\n", d.selector)
	return buf.Bytes()
}

func writePile(buf *bytes.Buffer, zone string, p cards.Pile) {
	buf.WriteString(zone)
	buf.WriteByte(':')
	for i, c := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(buf, "%d/%d", c.ID, int(c.Type))
	}
	buf.WriteByte('\n')
}
