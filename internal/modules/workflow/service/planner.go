package service

import (
	"fmt"

	apperrors "lingobot/internal/platform/errors"

	"lingobot/internal/modules/workflow/domain"
	"lingobot/internal/modules/workflow/dto"
)

const (
	defaultMaxRetries = 3
)

// Planner turns run inputs into validated plans.
type Planner struct{}

func NewPlanner() *Planner {
	return &Planner{}
}

func (p *Planner) BuildPlan(input dto.RunInput) (domain.Plan, error) {
	maxRetries := input.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	plan, err := domain.NewPlan(input.UserID, domain.Mode(input.Mode), input.Lesson, input.Stories, maxRetries, input.RetryDelay)
	if err != nil {
		return domain.Plan{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return plan, nil
}
