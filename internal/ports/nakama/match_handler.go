package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/landsduel/duel-server-go/internal/game"
	"github.com/landsduel/duel-server-go/internal/game/rules"
	"github.com/landsduel/duel-server-go/internal/game/watchers"
	"go.uber.org/zap"
)

// MatchLabel is the JSON label clients filter on when listing duels.
type MatchLabel struct {
	Open  int    `json:"open"`
	State string `json:"state"`
}

// MatchState holds the authoritative runtime state of one duel match.
type MatchState struct {
	MatchID   string
	Seats     [2]string // user ids, "" for a free seat
	Names     [2]string
	Presences map[string]runtime.Presence // user id -> presence for private sends
	Seed      uint64
	Tick      int64

	Duel   *game.Duel
	Replay *game.Replay
	Events []rules.Event
	Stats  *watchers.StatsWatcher

	// Counter deadline bookkeeping, in ticks. A zero timeout waits forever.
	CounterTimeoutTicks int64
	CounterSeq          uint64
	CounterDeadline     int64

	Aborted  bool
	Finished bool
	// Failure is set when an engine panic aborted the duel.
	Failure string
}

// GetOpenSeatsCount returns how many seats are free.
func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) seatOf(userID string) int {
	for i, seat := range ms.Seats {
		if seat != "" && seat == userID {
			return i
		}
	}
	return -1
}

type gameStartedEvent struct {
	Seat     int    `json:"seat"`
	Opponent string `json:"opponent"`
}

type rejectedEvent struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

type gameOverEvent struct {
	Winner     int    `json:"winner"`
	WinnerName string `json:"winnerName,omitempty"`
	YouWon     bool   `json:"youWon"`
	Aborted    bool   `json:"aborted"`
}

type matchHandler struct {
	// engine is handed to the duel engine; Nakama's own logger covers the adapter.
	engine *zap.Logger
}

func newMatchHandler(engine *zap.Logger) *matchHandler {
	if engine == nil {
		engine = zap.NewNop()
	}
	return &matchHandler{engine: engine}
}

// MatchInit is called when the match is created.
// Params: "counter_timeout_sec" (0 waits forever) and "seed", both optional numbers.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)

	state := &MatchState{
		MatchID:             matchID,
		Presences:           make(map[string]runtime.Presence),
		Seed:                uint64(time.Now().UnixNano()),
		CounterTimeoutTicks: defaultCounterTimeout * defaultTickRate,
	}
	if v, ok := numberParam(params, "counter_timeout_sec"); ok && v >= 0 {
		state.CounterTimeoutTicks = int64(v * defaultTickRate)
	}
	if v, ok := numberParam(params, "seed"); ok {
		state.Seed = uint64(v)
	}

	logger.Debug("MatchInit: duel %s created (counter timeout %d ticks)", matchID, state.CounterTimeoutTicks)
	return state, defaultTickRate, mh.label(state)
}

func numberParam(params map[string]interface{}, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}
	if matchState.Duel != nil {
		return state, false, "invalid game"
	}
	if matchState.GetOpenSeatsCount() == 0 {
		return state, false, "match full"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p
		if matchState.seatOf(p.GetUserId()) >= 0 {
			continue
		}
		seated := false
		for i, seat := range matchState.Seats {
			if seat == "" {
				matchState.Seats[i] = p.GetUserId()
				matchState.Names[i] = p.GetUsername()
				seated = true
				logger.Debug("MatchJoin: user %s took seat %d", p.GetUserId(), i)
				break
			}
		}
		if !seated {
			logger.Warn("MatchJoin: user %s joined but no seat was free", p.GetUserId())
		}
	}

	if matchState.Duel == nil && matchState.GetOpenSeatsCount() == 0 {
		mh.startDuel(matchState, dispatcher, logger)
	} else {
		for _, p := range presences {
			mh.send(dispatcher, logger, p, OpWaiting, map[string]string{"matchId": matchState.MatchID})
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// MatchLeave frees a lobby seat. Leaving a running duel aborts it and ends the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())
		seat := matchState.seatOf(p.GetUserId())
		if seat < 0 {
			continue
		}
		if matchState.Duel == nil {
			matchState.Seats[seat] = ""
			matchState.Names[seat] = ""
			logger.Debug("MatchLeave: user %s left, seat %d freed", p.GetUserId(), seat)
			continue
		}
		logger.Info("MatchLeave: user %s left running duel %s", p.GetUserId(), matchState.MatchID)
		matchState.Aborted = true
	}

	if matchState.Aborted {
		mh.finish(matchState, dispatcher, logger)
		return nil
	}
	if matchState.GetOpenSeatsCount() == len(matchState.Seats) {
		logger.Info("MatchLeave: terminating empty match")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	matchState.Tick = tick

	for _, msg := range messages {
		kind, ok := actionOpCodes[msg.GetOpCode()]
		if !ok {
			logger.Warn("MatchLoop: unknown opcode received: %d", msg.GetOpCode())
			continue
		}
		mh.handleAction(matchState, dispatcher, logger, msg.GetUserId(), kind, msg.GetData())
	}

	mh.expireCounter(matchState, dispatcher, logger)

	if matchState.Duel != nil && (matchState.Aborted || matchState.Duel.Phase() == rules.PhaseGameOver) {
		mh.finish(matchState, dispatcher, logger)
		return nil
	}
	return matchState
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: match terminating, grace %d seconds", graceSeconds)
	if matchState, ok := state.(*MatchState); ok && matchState.Duel != nil {
		matchState.Aborted = true
		mh.finish(matchState, dispatcher, logger)
	}
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

func (mh *matchHandler) startDuel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	cfg := game.DuelConfig{ID: state.MatchID, Names: state.Names, Seed: state.Seed}
	state.Duel = game.NewDuel(cfg, mh.engine.With(zap.String("match_id", state.MatchID)))
	state.Replay = game.NewReplay(cfg, state.Duel.FirstPlayer())
	state.Duel.Events().Subscribe(func(e rules.Event) { state.Events = append(state.Events, e) })
	state.Stats = watchers.NewStatsWatcher(state.Duel.Events())

	first := state.Duel.FirstPlayer()
	state.Events = append(state.Events, rules.Event{
		Type:   rules.EventGameStarted,
		Player: first,
		Text:   fmt.Sprintf("%s goes first", state.Duel.Player(first).Name),
	})
	logger.Info("StartDuel: duel %s started, seat %d goes first", state.MatchID, first)

	for seat := range state.Seats {
		if p := state.presenceAt(seat); p != nil {
			mh.send(dispatcher, logger, p, OpGameStarted, gameStartedEvent{
				Seat:     seat,
				Opponent: state.Duel.Player(1 - seat).Name,
			})
		}
	}
	mh.broadcastViews(state, dispatcher, logger)
}

func (ms *MatchState) presenceAt(seat int) runtime.Presence {
	if ms.Seats[seat] == "" {
		return nil
	}
	return ms.Presences[ms.Seats[seat]]
}

func (mh *matchHandler) handleAction(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, kind game.ActionKind, data []byte) {
	seat := state.seatOf(userID)
	if seat < 0 {
		logger.Warn("HandleAction: %s from unseated user %s", kind, userID)
		return
	}
	if state.Duel == nil {
		mh.reject(state, dispatcher, logger, seat, kind, errors.New("duel has not started"))
		return
	}

	action, err := game.DecodeAction(kind, data)
	if err == nil {
		err = mh.apply(state, seat, action)
	}
	if err != nil {
		mh.reject(state, dispatcher, logger, seat, kind, err)
		return
	}

	if recErr := state.Replay.Record(seat, action); recErr != nil {
		logger.Warn("HandleAction: failed to record %s: %v", kind, recErr)
	}
	mh.broadcastViews(state, dispatcher, logger)
	mh.armCounter(state)
}

// apply runs an action, turning an engine panic into an aborted duel.
func (mh *matchHandler) apply(state *MatchState, seat int, action game.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			mh.engine.Error("duel invariant violated, aborting match",
				zap.String("match_id", state.MatchID),
				zap.Any("panic", r),
			)
			state.Aborted = true
			state.Failure = fmt.Sprint(r)
			state.Events = nil
			err = fmt.Errorf("duel aborted: %v", r)
		}
	}()
	return state.Duel.Apply(seat, action)
}

func (mh *matchHandler) reject(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, seat int, kind game.ActionKind, err error) {
	rejection := rejectedEvent{Action: string(kind), Reason: "internal", Detail: err.Error()}
	var rej *game.RejectionError
	if errors.As(err, &rej) {
		rejection.Reason = string(rej.Reason)
		rejection.Detail = rej.Detail
	}
	logger.Debug("HandleAction: %s from seat %d rejected: %v", kind, seat, err)
	if p := state.presenceAt(seat); p != nil {
		mh.send(dispatcher, logger, p, OpActionRejected, rejection)
	}
}

// armCounter starts the deadline of a newly raised offer.
func (mh *matchHandler) armCounter(state *MatchState) {
	offer, ok := state.Duel.PendingOffer()
	if !ok || offer.Seq == state.CounterSeq {
		return
	}
	state.CounterSeq = offer.Seq
	state.CounterDeadline = state.Tick + state.CounterTimeoutTicks
}

// expireCounter declines the live offer for its responder once its deadline has passed.
func (mh *matchHandler) expireCounter(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Duel == nil || state.Aborted || state.CounterTimeoutTicks <= 0 {
		return
	}
	offer, ok := state.Duel.PendingOffer()
	if !ok || offer.Seq != state.CounterSeq || state.Tick < state.CounterDeadline {
		return
	}

	responder := offer.Responder()
	logger.Info("ExpireCounter: offer %d timed out, declining for seat %d", offer.Seq, responder)
	decline := game.CounterSelect{Counter: false}
	if err := mh.apply(state, responder, decline); err != nil {
		logger.Error("ExpireCounter: auto-decline failed: %v", err)
		return
	}
	if recErr := state.Replay.Record(responder, decline); recErr != nil {
		logger.Warn("ExpireCounter: failed to record decline: %v", recErr)
	}
	mh.broadcastViews(state, dispatcher, logger)
	mh.armCounter(state)
}

func (mh *matchHandler) broadcastViews(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	events := state.Events
	state.Events = nil

	for seat := range state.Seats {
		p := state.presenceAt(seat)
		if p == nil {
			continue
		}
		mh.send(dispatcher, logger, p, OpBoardState, state.Duel.Project(seat))
		for _, e := range events {
			if e.Text == "" {
				continue
			}
			mh.send(dispatcher, logger, p, OpLog, game.LogLine{Text: e.Text, Mine: e.Player == seat})
		}
	}
}

// finish tells both seats how the duel ended. It runs once per match.
func (mh *matchHandler) finish(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Finished || state.Duel == nil {
		return
	}
	state.Finished = true

	winner, ok := state.Duel.Winner()
	if !ok || state.Aborted {
		winner = -1
	}
	if state.Failure != "" {
		state.Replay.SetFailure(state.Failure)
	} else {
		state.Replay.SetChecksum(game.Checksum(state.Duel))
	}

	for seat := range state.Seats {
		p := state.presenceAt(seat)
		if p == nil {
			continue
		}
		event := gameOverEvent{Winner: winner, YouWon: winner == seat, Aborted: winner < 0}
		if winner >= 0 {
			event.WinnerName = state.Duel.Player(winner).Name
		}
		mh.send(dispatcher, logger, p, OpGameOver, event)
	}

	state.Stats.Stop()
	logger.WithField("stats", state.Stats.Stats()).Info("Finish: duel %s over, winner %d after %d turns, %d actions, checksum %s",
		state.MatchID, winner, state.Duel.Turn(), state.Replay.Size(), state.Replay.Checksum)
}

func (mh *matchHandler) send(dispatcher runtime.MatchDispatcher, logger runtime.Logger, p runtime.Presence, opCode int64, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Send: failed to marshal opcode %d: %v", opCode, err)
		return
	}
	if err := dispatcher.BroadcastMessage(opCode, data, []runtime.Presence{p}, nil, true); err != nil {
		logger.Error("Send: failed to send opcode %d to %s: %v", opCode, p.GetUserId(), err)
	}
}

func (mh *matchHandler) label(state *MatchState) string {
	label := MatchLabel{Open: state.GetOpenSeatsCount(), State: "lobby"}
	if state.Duel != nil {
		label.State = "playing"
	}
	data, _ := json.Marshal(label)
	return string(data)
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if err := dispatcher.MatchLabelUpdate(mh.label(state)); err != nil {
		logger.Error("UpdateLabel: failed to update: %v", err)
	}
}
