package game

import (
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const replayVersion = 1

// ActionRecord is one accepted action in wire form.
type ActionRecord struct {
	Seat    int
	Kind    ActionKind
	Payload []byte
}

// Replay is everything needed to re-run a duel: the setup and the accepted actions.
// The seed fixes every shuffle, so replaying the actions reproduces the game exactly.
type Replay struct {
	GameID          string
	Names           [2]string
	Seed            uint64
	MaxCounterDepth int
	FirstPlayer     int
	Actions         []ActionRecord
	Checksum        string // of the final state, set when the game ends
	// Failure is the engine failure that aborted the game. Such a replay has no checksum:
	// the failing action was never recorded.
	Failure string

	mu sync.RWMutex
}

type replayMetadata struct {
	GameID          string
	Names           [2]string
	Seed            uint64
	MaxCounterDepth int
	FirstPlayer     int
	Checksum        string
	Failure         string
	Timestamp       time.Time
	Version         int
	ActionCount     int
}

// ErrReplayDiverged is returned when re-running a replay does not reproduce the recorded game.
var ErrReplayDiverged = errors.New("replay diverged")

// NewReplay starts an empty recording for a duel created from cfg.
func NewReplay(cfg DuelConfig, firstPlayer int) *Replay {
	return &Replay{
		GameID:          cfg.ID,
		Names:           cfg.Names,
		Seed:            cfg.Seed,
		MaxCounterDepth: cfg.MaxCounterDepth,
		FirstPlayer:     firstPlayer,
		Actions:         make([]ActionRecord, 0, 64),
	}
}

// Record appends an accepted action.
func (r *Replay) Record(seat int, a Action) error {
	kind, payload, err := EncodeAction(a)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Actions = append(r.Actions, ActionRecord{Seat: seat, Kind: kind, Payload: payload})
	return nil
}

// SetChecksum stores the checksum of the final state.
func (r *Replay) SetChecksum(sum string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Checksum = sum
}

// SetFailure marks the replay as ending in an engine failure and drops any checksum.
func (r *Replay) SetFailure(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failure = reason
	r.Checksum = ""
}

// Size returns the number of recorded actions.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.Actions)
}

// Run re-creates the duel and applies every recorded action. Any rejected action,
// or a final checksum that does not match the recorded one, is reported as ErrReplayDiverged.
func (r *Replay) Run(logger *zap.Logger) (*Duel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d := NewDuel(DuelConfig{
		ID:              r.GameID,
		Names:           r.Names,
		Seed:            r.Seed,
		MaxCounterDepth: r.MaxCounterDepth,
	}, logger)
	if d.FirstPlayer() != r.FirstPlayer {
		return nil, fmt.Errorf("%w: first player %d, recorded %d", ErrReplayDiverged, d.FirstPlayer(), r.FirstPlayer)
	}

	for i, rec := range r.Actions {
		a, err := DecodeAction(rec.Kind, rec.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: action %d: %v", ErrReplayDiverged, i, err)
		}
		if err := d.Apply(rec.Seat, a); err != nil {
			return nil, fmt.Errorf("%w: action %d (%s by seat %d): %v", ErrReplayDiverged, i, rec.Kind, rec.Seat, err)
		}
	}

	if r.Checksum != "" {
		if sum := Checksum(d); sum != r.Checksum {
			return nil, fmt.Errorf("%w: checksum %s, recorded %s", ErrReplayDiverged, sum, r.Checksum)
		}
	}
	return d, nil
}

// SaveToFile writes the replay to <directory>/<gameID>.replay as gzipped gob and
// returns the path.
func (r *Replay) SaveToFile(directory string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", r.GameID))
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	encoder := gob.NewEncoder(gzipWriter)

	metadata := replayMetadata{
		GameID:          r.GameID,
		Names:           r.Names,
		Seed:            r.Seed,
		MaxCounterDepth: r.MaxCounterDepth,
		FirstPlayer:     r.FirstPlayer,
		Checksum:        r.Checksum,
		Failure:         r.Failure,
		Timestamp:       time.Now(),
		Version:         replayVersion,
		ActionCount:     len(r.Actions),
	}
	if err := encoder.Encode(&metadata); err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	for i := range r.Actions {
		if err := encoder.Encode(&r.Actions[i]); err != nil {
			return "", fmt.Errorf("failed to encode action %d: %w", i, err)
		}
	}

	if err := gzipWriter.Close(); err != nil {
		return "", fmt.Errorf("failed to flush replay: %w", err)
	}
	return filename, nil
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(directory, gameID string) (*Replay, error) {
	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", gameID))

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	decoder := gob.NewDecoder(gzipReader)

	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if metadata.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", metadata.Version)
	}

	r := &Replay{
		GameID:          metadata.GameID,
		Names:           metadata.Names,
		Seed:            metadata.Seed,
		MaxCounterDepth: metadata.MaxCounterDepth,
		FirstPlayer:     metadata.FirstPlayer,
		Checksum:        metadata.Checksum,
		Failure:         metadata.Failure,
		Actions:         make([]ActionRecord, 0, metadata.ActionCount),
	}
	for i := 0; i < metadata.ActionCount; i++ {
		var rec ActionRecord
		if err := decoder.Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode action %d: %w", i, err)
		}
		r.Actions = append(r.Actions, rec)
	}
	return r, nil
}
