package nakama

import (
	"context"
	"database/sql"

	"github.com/heroiclabs/nakama-common/runtime"
	"go.uber.org/zap"
)

// InitModule wires RPCs and the duel match handler into the Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	engineLogger, err := zap.NewProduction()
	if err != nil {
		logger.Warn("InitModule: engine logging disabled: %v", err)
		engineLogger = zap.NewNop()
	}

	if err := initializer.RegisterRpc(RpcFindDuel, FindDuel); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameDuel, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(engineLogger), nil
	}); err != nil {
		return err
	}

	logger.Info("Lands duel Go module loaded.")
	return nil
}
