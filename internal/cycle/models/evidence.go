package models

import (
	"time"

	id "revalidation/pkg/domain"
)

// Category names one evidence stream held by an external record store.
type Category string

const (
	CategoryPracticeHours         Category = "practice_hours"
	CategoryCPD                   Category = "cpd"
	CategoryFeedback              Category = "feedback"
	CategoryReflectiveAccounts    Category = "reflective_accounts"
	CategoryReflectiveDiscussions Category = "reflective_discussions"
	CategoryDeclarations          Category = "declarations"
	CategoryConfirmations         Category = "confirmations"
	CategoryTraining              Category = "training"
	// CategoryProfile is the subject profile captured alongside the evidence.
	CategoryProfile Category = "profile"
)

// AllCategories lists every source read when a snapshot is built, in snapshot order.
var AllCategories = []Category{
	CategoryPracticeHours,
	CategoryCPD,
	CategoryFeedback,
	CategoryReflectiveAccounts,
	CategoryReflectiveDiscussions,
	CategoryDeclarations,
	CategoryConfirmations,
	CategoryTraining,
	CategoryProfile,
}

func (c Category) String() string { return string(c) }

// ScopeKind says which identifier filters an evidence read.
type ScopeKind string

const (
	ScopeCycle   ScopeKind = "cycle"
	ScopeSubject ScopeKind = "subject"
)

// Scope is the filter handed to an evidence collaborator.
type Scope struct {
	Kind      ScopeKind
	CycleID   id.CycleID
	SubjectID id.SubjectID
}

// CycleScope filters by cycle. SubjectID is carried for authorization at the collaborator.
func CycleScope(cycleID id.CycleID, subjectID id.SubjectID) Scope {
	return Scope{Kind: ScopeCycle, CycleID: cycleID, SubjectID: subjectID}
}

// SubjectScope filters by subject only.
func SubjectScope(subjectID id.SubjectID) Scope {
	return Scope{Kind: ScopeSubject, SubjectID: subjectID}
}

type PracticeHoursEntry struct {
	ID              string    `json:"id"`
	Date            time.Time `json:"date"`
	Hours           float64   `json:"hours"`
	WorkSetting     string    `json:"work_setting"`
	ScopeOfPractice string    `json:"scope_of_practice"`
	Description     string    `json:"description,omitempty"`
}

// CPDEntry is one continuing-education activity.
type CPDEntry struct {
	ID            string    `json:"id"`
	Date          time.Time `json:"date"`
	Hours         float64   `json:"hours"`
	Method        string    `json:"method"`
	Participatory bool      `json:"participatory"`
	Topic         string    `json:"topic"`
	Description   string    `json:"description,omitempty"`
}

type FeedbackEntry struct {
	ID      string    `json:"id"`
	Date    time.Time `json:"date"`
	Source  string    `json:"source"`
	Summary string    `json:"summary"`
	HowUsed string    `json:"how_used,omitempty"`
}

type ReflectiveAccountEntry struct {
	ID         string    `json:"id"`
	Date       time.Time `json:"date"`
	Title      string    `json:"title"`
	Experience string    `json:"experience"`
	Learning   string    `json:"learning"`
	Themes     []string  `json:"themes,omitempty"`
}

type ReflectiveDiscussionEntry struct {
	ID                        string    `json:"id"`
	Date                      time.Time `json:"date"`
	PartnerName               string    `json:"partner_name"`
	PartnerRegistrationNumber string    `json:"partner_registration_number"`
	Summary                   string    `json:"summary,omitempty"`
}

type DeclarationEntry struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	DeclaredAt time.Time `json:"declared_at"`
	Confirmed  bool      `json:"confirmed"`
}

type ConfirmationEntry struct {
	ID                          string    `json:"id"`
	ConfirmerName               string    `json:"confirmer_name"`
	ConfirmerRole               string    `json:"confirmer_role"`
	ConfirmerRegistrationNumber string    `json:"confirmer_registration_number,omitempty"`
	ConfirmedAt                 time.Time `json:"confirmed_at"`
}

type TrainingEntry struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Provider    string     `json:"provider"`
	CompletedAt time.Time  `json:"completed_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Profile is the subject's profile as held by the profile collaborator.
type Profile struct {
	SubjectID              id.SubjectID `json:"subject_id"`
	FullName               string       `json:"full_name"`
	Email                  string       `json:"email"`
	Role                   string       `json:"role"`
	WorkSetting            string       `json:"work_setting"`
	ScopeOfPractice        string       `json:"scope_of_practice"`
	ContractedHoursPerWeek float64      `json:"contracted_hours_per_week"`
	RegistrationBody       string       `json:"registration_body"`
	RegistrationNumber     string       `json:"registration_number"`
	RegistrationExpiry     time.Time    `json:"registration_expiry"`
}
