package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/landsduel/duel-server-go/internal/game/rules"
	"github.com/landsduel/duel-server-go/internal/game/watchers"
	"go.uber.org/zap"
)

// LogLine is a human-readable game log entry. Mine marks lines about the receiving player.
type LogLine struct {
	Text string `json:"text"`
	Mine bool   `json:"mine"`
}

// Update is what one seat receives after the duel changed.
type Update struct {
	GameID string
	Seat   int
	// Started marks the first update of a game. The game already accepts actions.
	Started bool
	View    View
	Log     []LogLine
}

// Result summarizes a game that has been torn down.
type Result struct {
	GameID     string
	Players    [2]string
	Winner     int // -1 when the game was aborted
	Turns      int
	StartedAt  time.Time
	FinishedAt time.Time
	Replay     *Replay
	Stats      [2]watchers.PlayerStats
}

// Aborted reports whether the game ended without a winner.
func (r Result) Aborted() bool { return r.Winner < 0 }

// NotificationHandler receives per-seat updates. It runs under the game's lock and
// must not call back into the manager for the same game.
type NotificationHandler func(update Update)

// GameOverHandler is invoked exactly once per game, after it has been removed.
type GameOverHandler func(result Result)

// ManagerConfig tunes the duels a manager creates.
type ManagerConfig struct {
	// CounterTimeout auto-declines an unanswered counter offer. Zero waits forever.
	CounterTimeout  time.Duration
	MaxCounterDepth int
	// Seed supplies per-game RNG seeds. Defaults to the wall clock.
	Seed func() uint64
}

type session struct {
	mu        sync.Mutex
	duel      *Duel
	replay    *Replay
	stats     *watchers.StatsWatcher
	events    []rules.Event
	timer     *time.Timer
	startedAt time.Time
	announced bool
	over      bool
	closed    bool
	failure   string
}

// Manager owns every running duel and serializes the actions sent to each.
type Manager struct {
	logger *zap.Logger
	cfg    ManagerConfig

	mu         sync.RWMutex
	games      map[string]*session
	notify     NotificationHandler
	onGameOver GameOverHandler
}

// NewManager creates a new game manager.
func NewManager(cfg ManagerConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Seed == nil {
		cfg.Seed = func() uint64 { return uint64(time.Now().UnixNano()) }
	}
	return &Manager{
		logger: logger,
		cfg:    cfg,
		games:  make(map[string]*session),
	}
}

// SetNotificationHandler sets the handler that delivers updates to players.
func (m *Manager) SetNotificationHandler(handler NotificationHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify = handler
}

// SetGameOverHandler sets the teardown callback.
func (m *Manager) SetGameOverHandler(handler GameOverHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onGameOver = handler
}

// StartGame deals a new duel between two named players and sends both their first view.
func (m *Manager) StartGame(gameID string, names [2]string) error {
	if gameID == "" {
		return fmt.Errorf("gameID is required")
	}

	m.mu.Lock()
	if _, exists := m.games[gameID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrGameExists, gameID)
	}
	s := &session{startedAt: time.Now()}
	cfg := DuelConfig{
		ID:              gameID,
		Names:           names,
		Seed:            m.cfg.Seed(),
		MaxCounterDepth: m.cfg.MaxCounterDepth,
		OnGameOver:      func(int) { s.over = true },
	}
	s.duel = NewDuel(cfg, m.logger)
	s.replay = NewReplay(cfg, s.duel.FirstPlayer())
	s.duel.Events().Subscribe(func(e rules.Event) { s.events = append(s.events, e) })
	s.stats = watchers.NewStatsWatcher(s.duel.Events())
	// actions for the new game wait until both seats have their first view
	s.mu.Lock()
	defer s.mu.Unlock()
	m.games[gameID] = s
	m.mu.Unlock()

	m.logger.Info("game started",
		zap.String("game_id", gameID),
		zap.String("player_0", s.duel.Player(0).Name),
		zap.String("player_1", s.duel.Player(1).Name),
		zap.Int("first_player", s.duel.FirstPlayer()),
	)

	s.events = append(s.events, rules.Event{
		Type:   rules.EventGameStarted,
		Player: s.duel.FirstPlayer(),
		Text:   fmt.Sprintf("%s goes first", s.duel.Player(s.duel.FirstPlayer()).Name),
	})
	m.broadcast(s)
	return nil
}

// ProcessAction applies an action for seat. Rejections are returned to the caller and
// nobody else is notified.
func (m *Manager) ProcessAction(gameID string, seat int, action Action) error {
	s, ok := m.lookup(gameID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	err := m.applyLocked(s, seat, action)
	result, finished := m.finishLocked(s)
	s.mu.Unlock()

	if finished {
		m.teardown(gameID, result)
	}
	return err
}

// applyLocked runs one action, records it and pushes the resulting views.
// An engine panic is an internal-consistency failure: the game is aborted.
func (m *Manager) applyLocked(s *session, seat int, action Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("duel invariant violated, aborting game",
				zap.String("game_id", s.duel.ID()),
				zap.Any("panic", r),
			)
			s.over = true
			s.failure = fmt.Sprint(r)
			s.events = nil
			err = fmt.Errorf("game %s aborted: %v", s.duel.ID(), r)
		}
	}()

	if err := s.duel.Apply(seat, action); err != nil {
		return err
	}
	if recErr := s.replay.Record(seat, action); recErr != nil {
		m.logger.Warn("failed to record action", zap.String("game_id", s.duel.ID()), zap.Error(recErr))
	}
	m.broadcast(s)
	m.armCounterTimer(s)
	return nil
}

// broadcast sends each seat its projection and the log lines gathered since the last send.
func (m *Manager) broadcast(s *session) {
	m.mu.RLock()
	handler := m.notify
	m.mu.RUnlock()

	events := s.events
	s.events = nil
	started := !s.announced
	s.announced = true
	if handler == nil {
		return
	}
	for seat := 0; seat < 2; seat++ {
		lines := make([]LogLine, 0, len(events))
		for _, e := range events {
			if e.Text == "" {
				continue
			}
			lines = append(lines, LogLine{Text: e.Text, Mine: e.Player == seat})
		}
		handler(Update{
			GameID:  s.duel.ID(),
			Seat:    seat,
			Started: started,
			View:    s.duel.Project(seat),
			Log:     lines,
		})
	}
}

// armCounterTimer schedules the auto-decline of the live offer, replacing any older timer.
func (m *Manager) armCounterTimer(s *session) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if m.cfg.CounterTimeout <= 0 {
		return
	}
	offer, ok := s.duel.PendingOffer()
	if !ok {
		return
	}
	gameID := s.duel.ID()
	s.timer = time.AfterFunc(m.cfg.CounterTimeout, func() {
		m.expireCounter(gameID, offer.Seq)
	})
}

// expireCounter declines the offer with sequence seq if it is still the live one.
func (m *Manager) expireCounter(gameID string, seq uint64) {
	s, ok := m.lookup(gameID)
	if !ok {
		return
	}

	s.mu.Lock()
	offer, pending := s.duel.PendingOffer()
	if s.closed || !pending || offer.Seq != seq {
		s.mu.Unlock()
		return
	}
	m.logger.Info("counter offer timed out",
		zap.String("game_id", gameID),
		zap.Int("responder", offer.Responder()),
		zap.String("ability", offer.Ability.String()),
	)
	err := m.applyLocked(s, offer.Responder(), CounterSelect{Counter: false})
	result, finished := m.finishLocked(s)
	s.mu.Unlock()

	if err != nil {
		m.logger.Error("auto-decline failed", zap.String("game_id", gameID), zap.Error(err))
	}
	if finished {
		m.teardown(gameID, result)
	}
}

// finishLocked closes a session whose duel is over and builds its result once.
func (m *Manager) finishLocked(s *session) (Result, bool) {
	if !s.over || s.closed {
		return Result{}, false
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	winner, ok := s.duel.Winner()
	if !ok {
		winner = -1
	}
	if s.failure != "" {
		s.replay.SetFailure(s.failure)
	} else {
		s.replay.SetChecksum(Checksum(s.duel))
	}
	s.stats.Stop()
	return Result{
		GameID:     s.duel.ID(),
		Players:    [2]string{s.duel.Player(0).Name, s.duel.Player(1).Name},
		Winner:     winner,
		Turns:      s.duel.Turn(),
		StartedAt:  s.startedAt,
		FinishedAt: time.Now(),
		Replay:     s.replay,
		Stats:      s.stats.Stats(),
	}, true
}

func (m *Manager) teardown(gameID string, result Result) {
	m.mu.Lock()
	delete(m.games, gameID)
	handler := m.onGameOver
	m.mu.Unlock()

	m.logger.Info("game torn down",
		zap.String("game_id", gameID),
		zap.Int("winner", result.Winner),
		zap.Int("turns", result.Turns),
	)
	if handler != nil {
		handler(result)
	}
}

// AbortGame ends a game without a winner, e.g. when a player disconnects.
func (m *Manager) AbortGame(gameID string) error {
	s, ok := m.lookup(gameID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.over = true
	result, finished := m.finishLocked(s)
	s.mu.Unlock()

	if finished {
		m.teardown(gameID, result)
	}
	return nil
}

// GetGameView returns the current projection of a game for seat.
func (m *Manager) GetGameView(gameID string, seat int) (View, error) {
	if seat != 0 && seat != 1 {
		return View{}, fmt.Errorf("seat %d out of range", seat)
	}
	s, ok := m.lookup(gameID)
	if !ok {
		return View{}, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duel.Project(seat), nil
}

// ActiveGames returns how many games are running.
func (m *Manager) ActiveGames() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}

// Shutdown aborts every running game.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.games))
	for id := range m.games {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		_ = m.AbortGame(id)
	}
}

func (m *Manager) lookup(gameID string) (*session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.games[gameID]
	return s, ok
}
