package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/landsduel/duel-server-go/internal/game"
	"go.uber.org/zap"
)

var (
	dir     = flag.String("dir", "replays", "directory holding saved replays")
	gameID  = flag.String("game", "", "id of the game to re-run")
	verbose = flag.Bool("v", false, "log every engine step")
)

// replay re-runs a saved game and checks that it reaches the recorded final state.
func main() {
	flag.Parse()
	if *gameID == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -dir <replays> -game <id>")
		os.Exit(2)
	}

	logger := zap.NewNop()
	if *verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer logger.Sync()

	if err := run(*dir, *gameID, logger); err != nil {
		fmt.Fprintf(os.Stderr, "replay %s: %v\n", *gameID, err)
		os.Exit(1)
	}
}

func run(dir, gameID string, logger *zap.Logger) error {
	replay, err := game.LoadReplayFromFile(dir, gameID)
	if err != nil {
		return err
	}
	duel, err := replay.Run(logger)
	if err != nil {
		return err
	}

	outcome := "aborted"
	if winner, ok := duel.Winner(); ok {
		outcome = fmt.Sprintf("won by %s", duel.Player(winner).Name)
	}
	fmt.Printf("%s: %s vs %s, %d actions over %d turns, %s\n",
		replay.GameID, replay.Names[0], replay.Names[1], replay.Size(), duel.Turn(), outcome)
	if replay.Failure != "" {
		fmt.Printf("game was aborted by an engine failure (%s); final state not verified\n", replay.Failure)
		return nil
	}
	if replay.Checksum == "" {
		fmt.Printf("checksum %s (none recorded)\n", game.Checksum(duel))
		return nil
	}
	fmt.Printf("checksum %s verified\n", game.Checksum(duel))
	return nil
}
