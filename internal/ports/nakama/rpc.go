package nakama

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"
)

// FindDuel returns the id of a duel with a free seat, creating one when none is open.
// The payload is ignored.
func FindDuel(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	limit := 1
	minSize := 0
	maxSize := 1
	query := fmt.Sprintf("+label.%s:>=1", MatchLabelKeyOpenSeats)

	matches, err := nk.MatchList(ctx, limit, true, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("RpcFindDuel [User:%s]: failed to list matches: %v", userID, err)
		return "", err
	}
	if len(matches) > 0 {
		logger.Info("RpcFindDuel [User:%s]: found open duel %s", userID, matches[0].MatchId)
		return matches[0].MatchId, nil
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameDuel, nil)
	if err != nil {
		logger.Error("RpcFindDuel [User:%s]: failed to create duel: %v", userID, err)
		return "", err
	}
	logger.Info("RpcFindDuel [User:%s]: created duel %s", userID, matchID)
	return matchID, nil
}
