package commands

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/zeu5/tablesim-decider/config"
	"github.com/zeu5/tablesim-decider/decision"
	"github.com/zeu5/tablesim-decider/features"
	"github.com/zeu5/tablesim-decider/models"
	"github.com/zeu5/tablesim-decider/monitor"
	"github.com/zeu5/tablesim-decider/policies"
	"github.com/zeu5/tablesim-decider/server"
	"go.uber.org/zap"
)

// loadEngine loads the three models named by the configuration and wires
// them into a decision engine
func loadEngine(c config.Config, logger *zap.Logger) (*decision.Engine, error) {
	action, err := models.LoadClassifier(c.Models.ModelPath(c.Models.Action))
	if err != nil {
		return nil, fmt.Errorf("loading action model: %w", err)
	}
	place, err := models.LoadRegressor(c.Models.ModelPath(c.Models.Place))
	if err != nil {
		return nil, fmt.Errorf("loading place model: %w", err)
	}
	move, err := models.LoadRegressor(c.Models.ModelPath(c.Models.Move))
	if err != nil {
		return nil, fmt.Errorf("loading move model: %w", err)
	}
	sampling, err := policies.ParseSampling(c.Decision.Sampling)
	if err != nil {
		return nil, err
	}
	src := policies.NewSource(c.Decision.Seed)
	predictor := policies.NewActionPredictor(action, c.Decision.Stochastic, sampling, src)
	logger.Info("models loaded",
		zap.Int("classes", len(action.Classes())),
		zap.Bool("stochastic", predictor.Stochastic()),
		zap.String("sampling", string(sampling)),
		zap.Bool("semantic_place", c.Decision.SemanticPlace))

	return decision.NewEngine(&decision.EngineConfig{
		Vectorizer: features.Vectorizer{
			Positions:     c.Features.Positions,
			Semantics:     c.Features.Semantics,
			HistoryBuffer: c.Features.HistoryBuffer,
		},
		Predictor:     predictor,
		PlaceModel:    place,
		MoveModel:     move,
		SemanticPlace: c.Decision.SemanticPlace,
		Source:        src,
		Logger:        logger,
	}), nil
}

// historyFactory returns Redis backed windows when a client is given
func historyFactory(c config.Config, client *redis.Client) server.HistoryFactory {
	return func(episode string) monitor.HistoryStore {
		if client != nil {
			return monitor.NewRedisHistory(client, episode, c.Monitor.HistorySize)
		}
		return monitor.NewMemoryHistory(c.Monitor.HistorySize)
	}
}
