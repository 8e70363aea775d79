package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/robotcare/maintenance-service/internal/domain"
	apperrors "github.com/robotcare/maintenance-service/pkg/util"
)

// Operation names an action that is gated by role.
type Operation string

const (
	OpViewTicket             Operation = "view_ticket"
	OpCreateTicket           Operation = "create_ticket"
	OpComment                Operation = "comment"
	OpWriteStage             Operation = "write_stage"
	OpWriteConfirmationStage Operation = "write_confirmation_stage"
	OpAssignEngineer         Operation = "assign_engineer"
	OpCompleteSummary        Operation = "complete_summary"
	OpConfirmByCustomer      Operation = "confirm_by_customer"
	OpListEngineers          Operation = "list_engineers"
)

var roleCapabilities = map[domain.Role]domain.Capability{
	domain.RoleServiceAdmin:    domain.CapabilityService,
	domain.RoleServiceEngineer: domain.CapabilityService,
	domain.RoleEndAdmin:        domain.CapabilityEnd,
	domain.RoleEndEngineer:     domain.CapabilityEnd,
}

var serviceOperations = []Operation{
	OpViewTicket, OpCreateTicket, OpComment,
	OpWriteStage, OpAssignEngineer, OpCompleteSummary, OpListEngineers,
}

var endOperations = []Operation{
	OpViewTicket, OpCreateTicket, OpComment,
	OpWriteConfirmationStage, OpConfirmByCustomer,
}

// permissions is the single source of truth for what each role may do.
var permissions = map[domain.Role]map[Operation]struct{}{
	domain.RoleServiceAdmin:    operationSet(serviceOperations),
	domain.RoleServiceEngineer: operationSet(serviceOperations),
	domain.RoleEndAdmin:        operationSet(endOperations),
	domain.RoleEndEngineer:     operationSet(endOperations),
}

func operationSet(ops []Operation) map[Operation]struct{} {
	set := make(map[Operation]struct{}, len(ops))
	for _, op := range ops {
		set[op] = struct{}{}
	}
	return set
}

// CapabilityOf returns the permission class of a role.
func CapabilityOf(role domain.Role) (domain.Capability, bool) {
	capability, ok := roleCapabilities[role]
	return capability, ok
}

// HasCapability reports whether the role carries the given capability.
func HasCapability(role domain.Role, capability domain.Capability) bool {
	got, ok := roleCapabilities[role]
	return ok && got == capability
}

// Can reports whether the role is permitted to perform op.
func Can(role domain.Role, op Operation) bool {
	_, ok := permissions[role][op]
	return ok
}

// Authorize returns a Forbidden error when the actor may not perform op.
func Authorize(actor domain.Actor, op Operation) error {
	if !Can(actor.Role, op) {
		return apperrors.NewForbidden("role " + string(actor.Role) + " may not " + string(op))
	}
	return nil
}

// StageWriteOperation returns the operation gating writes to the given stage type.
func StageWriteOperation(stageType domain.StageType) Operation {
	if stageType == domain.StageCustomerConfirmation {
		return OpWriteConfirmationStage
	}
	return OpWriteStage
}

// RequireOperation rejects callers whose role may not perform op.
func RequireOperation(op Operation) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if err := Authorize(actor, op); err != nil {
			return err
		}
		return c.Next()
	}
}
