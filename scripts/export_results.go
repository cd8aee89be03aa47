package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/landsduel/duel-server-go/internal/config"
	"github.com/landsduel/duel-server-go/internal/repository"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	limit      = flag.Int("limit", 100, "number of most recent games to export")
	outPath    = flag.String("out", "", "CSV file to write, stdout when empty")
)

var header = []string{
	"game_id", "player_0", "player_1", "winner", "winner_name", "turns", "actions",
	"checksum", "replay_path", "started_at", "finished_at", "duration_sec",
}

func main() {
	flag.Parse()
	ctx := context.Background()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}

	db, err := repository.NewDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	results, err := repository.NewResultRepository(db).Recent(ctx, *limit)
	if err != nil {
		logger.Fatal("failed to load results", zap.Error(err))
	}

	var out io.Writer = os.Stdout
	if *outPath != "" {
		file, err := os.Create(*outPath)
		if err != nil {
			logger.Fatal("failed to create output file", zap.Error(err))
		}
		defer file.Close()
		out = file
	}

	if err := writeResults(out, results); err != nil {
		logger.Fatal("failed to write CSV", zap.Error(err))
	}

	aborted := 0
	for _, rec := range results {
		if rec.Aborted() {
			aborted++
		}
	}
	logger.Info("export complete",
		zap.Int("games", len(results)),
		zap.Int("aborted", aborted),
		zap.String("out", *outPath),
	)
}

func writeResults(w io.Writer, results []repository.ResultRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, rec := range results {
		winnerName := ""
		switch rec.Winner {
		case 0:
			winnerName = rec.Player0
		case 1:
			winnerName = rec.Player1
		}
		row := []string{
			rec.GameID,
			rec.Player0,
			rec.Player1,
			strconv.Itoa(rec.Winner),
			winnerName,
			strconv.Itoa(rec.Turns),
			strconv.Itoa(rec.Actions),
			rec.Checksum,
			rec.ReplayPath,
			rec.StartedAt.UTC().Format(time.RFC3339),
			rec.FinishedAt.UTC().Format(time.RFC3339),
			strconv.FormatFloat(rec.FinishedAt.Sub(rec.StartedAt).Seconds(), 'f', 1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
