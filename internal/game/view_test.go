package game

import (
	"encoding/json"
	"testing"

	"github.com/landsduel/duel-server-go/internal/game/cards"
	"github.com/landsduel/duel-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectHidesOpponentHand(t *testing.T) {
	d := newTestDuel(t)
	arrange(t, d.Player(0), layout{
		visible: types(cards.Forest),
		hidden:  types(cards.Plains, cards.Island),
		discard: types(cards.Swamp),
		board:   map[cards.Type]int{cards.Mountain: 2},
	})
	arrange(t, d.Player(1), layout{hidden: types(cards.Island, cards.Island, cards.Island)})
	startTurn(d, 0)

	mine := d.Project(0)
	assert.True(t, mine.MyTurn)
	assert.Equal(t, "test-duel", mine.GameID)
	assert.Equal(t, rules.PhaseTurnStart, mine.Phase)
	assert.Equal(t, types(cards.Forest), mine.Me.Hand.Visible)
	assert.Equal(t, types(cards.Plains, cards.Island), mine.Me.Hand.Hidden)
	assert.Equal(t, types(cards.Swamp), mine.Me.Discard)
	assert.Equal(t, 2, mine.Me.Board[cards.Mountain])
	assert.Equal(t, 0, mine.Me.Board[cards.Plains])
	assert.Equal(t, 3, mine.Opponent.Hand.Hidden)
	assert.Empty(t, mine.Opponent.Hand.Visible)
	assert.Nil(t, mine.Counter)
	assert.Nil(t, mine.Winner)

	theirs := d.Project(1)
	assert.False(t, theirs.MyTurn)
	assert.Equal(t, types(cards.Forest), theirs.Opponent.Hand.Visible)
	assert.Equal(t, 2, theirs.Opponent.Hand.Hidden)
	assert.Equal(t, types(cards.Swamp), theirs.Opponent.Discard)
	assert.Equal(t, 2, theirs.Opponent.Board[cards.Mountain])
	assert.Equal(t, len(d.Player(0).Deck), theirs.Opponent.Deck)

	// nothing in the opponent's wire view can carry hidden contents
	data, err := json.Marshal(theirs.Opponent.Hand)
	require.NoError(t, err)
	assert.JSONEq(t, `{"visible":["forest"],"hidden":2}`, string(data))
}

func TestProjectCounterForBothSeats(t *testing.T) {
	d := newTestDuel(t)
	arrange(t, d.Player(0), layout{hidden: types(cards.Swamp)})
	arrange(t, d.Player(1), layout{hidden: types(cards.Plains)})
	startTurn(d, 0)

	require.NoError(t, d.Apply(0, PlayCard{Index: 0}))

	actor := d.Project(0)
	responder := d.Project(1)
	require.NotNil(t, actor.Counter)
	require.NotNil(t, responder.Counter)
	assert.False(t, actor.Counter.IsResponder)
	assert.True(t, responder.Counter.IsResponder)
	assert.Equal(t, cards.Swamp, responder.Counter.CounterCardType)
	assert.Equal(t, 1, responder.Counter.Depth)
	assert.Equal(t, rules.PhaseCounterSelect, responder.Phase)
}

func TestViewJSONShape(t *testing.T) {
	d := newTestDuel(t)
	arrange(t, d.Player(0), layout{hidden: types(cards.Island), deck: types(cards.Plains)})
	arrange(t, d.Player(1), layout{hidden: types(cards.Plains)})
	startTurn(d, 0)
	require.NoError(t, d.Apply(0, PlayCard{Index: 0}))
	require.NoError(t, d.Apply(1, CounterSelect{}))

	data, err := json.Marshal(d.Project(0))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "ISLAND_SELECT", decoded["phase"])
	assert.Equal(t, true, decoded["myTurn"])

	me := decoded["me"].(map[string]any)
	top := me["top"].([]any)
	require.Len(t, top, 4)
	assert.Equal(t, "plains", top[0])
	board := me["board"].(map[string]any)
	assert.Equal(t, float64(1), board["island"])
	assert.NotContains(t, decoded, "counter")
}

func TestProjectEmptyIslandWindow(t *testing.T) {
	d := newTestDuel(t)
	a := d.Player(0)
	arrange(t, a, layout{hidden: types(cards.Island)})
	arrange(t, d.Player(1), layout{hidden: types(cards.Swamp)})
	for len(a.Deck) > 0 {
		c, _ := a.Deck.Pop()
		a.Discard.Push(c)
	}
	startTurn(d, 0)

	require.NoError(t, d.Apply(0, PlayCard{Index: 0}))
	require.NoError(t, d.Apply(1, CounterSelect{}))
	require.Equal(t, rules.PhaseIslandSelect, d.Phase())

	data, err := json.Marshal(d.Project(0).Me)
	require.NoError(t, err)
	var me map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &me))
	require.Contains(t, me, "top")
	assert.JSONEq(t, `[]`, string(me["top"]))

	data, err = json.Marshal(d.Project(1).Me)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"top"`)

	require.NoError(t, d.Apply(0, IslandSelect{}))
	assert.Equal(t, 1, d.CurrentPlayer())
	requireConservation(t, d)
}
