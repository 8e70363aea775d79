package service

import (
	"github.com/robotcare/maintenance-service/internal/domain"
	apperrors "github.com/robotcare/maintenance-service/pkg/util"
)

// StageRule is an optional check applied before a stage is saved. Rules see the
// stages already recorded for the ticket.
type StageRule interface {
	Check(ticket *domain.Ticket, stageType domain.StageType, existing []domain.Stage) error
}

// StageRuleFunc adapts a function to StageRule.
type StageRuleFunc func(ticket *domain.Ticket, stageType domain.StageType, existing []domain.Stage) error

func (f StageRuleFunc) Check(ticket *domain.Ticket, stageType domain.StageType, existing []domain.Stage) error {
	return f(ticket, stageType, existing)
}

// StrictStageOrder requires every preceding stage to have a record before a
// stage can be saved. Amending an already recorded stage is always allowed.
func StrictStageOrder() StageRule {
	return StageRuleFunc(func(_ *domain.Ticket, stageType domain.StageType, existing []domain.Stage) error {
		recorded := make(map[domain.StageType]bool, len(existing))
		for _, st := range existing {
			recorded[st.StageType] = true
		}
		if recorded[stageType] {
			return nil
		}
		var missing []string
		for _, prior := range domain.StageTypes[:stageType.Index()] {
			if !recorded[prior] {
				missing = append(missing, string(prior))
			}
		}
		if len(missing) > 0 {
			return apperrors.NewValidationError("preceding stages must be recorded first", map[string]any{
				"stage_type": stageType,
				"missing":    missing,
			})
		}
		return nil
	})
}

// stageRulesFor returns the rules enabled by the workflow settings.
func stageRulesFor(strict bool) []StageRule {
	if strict {
		return []StageRule{StrictStageOrder()}
	}
	return nil
}
