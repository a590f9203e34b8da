package services

import (
	"context"
	"fmt"
	"strings"

	"sicof/internal/core"
	"sicof/internal/events"
	"sicof/internal/log"
	"sicof/internal/storage"
)

// GoalsService keeps the catalogue of goals and actions expenses refer to.
type GoalsService struct {
	deps Deps
}

func NewGoalsService(deps Deps) *GoalsService {
	return &GoalsService{deps: deps.withDefaults()}
}

func (s *GoalsService) List(ctx context.Context) ([]core.GoalAction, error) {
	return storage.ListDocs[core.GoalAction](ctx, s.deps.Store, storage.Goals)
}

func (s *GoalsService) Create(ctx context.Context, description string) (core.GoalAction, error) {
	g := core.GoalAction{Description: strings.TrimSpace(description)}
	if err := g.Validate(); err != nil {
		return core.GoalAction{}, err
	}
	id, err := s.deps.Store.GenerateID(ctx, storage.Goals)
	if err != nil {
		return core.GoalAction{}, core.WrapStore("generate goal id", err)
	}
	g.ID = id
	if err := storage.PutDoc(ctx, s.deps.Store, storage.Goals, id, g); err != nil {
		return core.GoalAction{}, fmt.Errorf("save goal: %w", err)
	}
	s.deps.mutated(ctx, log.ComponentGoals, log.OpCreate, log.NewFields().With("goal_id", id))
	s.deps.publish(ctx, events.New(events.GoalCreated, id))
	return g, nil
}

func (s *GoalsService) Delete(ctx context.Context, id string) error {
	if _, err := storage.GetDoc[core.GoalAction](ctx, s.deps.Store, storage.Goals, id); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if err := storage.RemoveDoc(ctx, s.deps.Store, storage.Goals, id); err != nil {
		return err
	}
	s.deps.mutated(ctx, log.ComponentGoals, log.OpDelete, log.NewFields().With("goal_id", id))
	s.deps.publish(ctx, events.New(events.GoalDeleted, id))
	return nil
}
