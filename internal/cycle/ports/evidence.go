package ports

import (
	"context"

	"revalidation/internal/cycle/models"
	id "revalidation/pkg/domain"
)

// EvidenceSource is the boundary to the external evidence record stores.
// Each read returns the category's records in the collaborator's order.
// Implementations must honor ctx cancellation.
type EvidenceSource interface {
	PracticeHours(ctx context.Context, scope models.Scope) ([]models.PracticeHoursEntry, error)
	CPD(ctx context.Context, scope models.Scope) ([]models.CPDEntry, error)
	Feedback(ctx context.Context, scope models.Scope) ([]models.FeedbackEntry, error)
	ReflectiveAccounts(ctx context.Context, scope models.Scope) ([]models.ReflectiveAccountEntry, error)
	ReflectiveDiscussions(ctx context.Context, scope models.Scope) ([]models.ReflectiveDiscussionEntry, error)
	Declarations(ctx context.Context, scope models.Scope) ([]models.DeclarationEntry, error)
	Confirmations(ctx context.Context, scope models.Scope) ([]models.ConfirmationEntry, error)
	Training(ctx context.Context, scope models.Scope) ([]models.TrainingEntry, error)
	Profile(ctx context.Context, subjectID id.SubjectID) (*models.Profile, error)
}
