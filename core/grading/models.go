package grading

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/alama/core"
)

// Assignment is a gradable unit of work tied to a subject and a point scale.
// It is owned by the academic backend; this pipeline only reads it.
type Assignment struct {
	ID        int        `json:"id"`
	SubjectID int        `json:"subject_id"`
	Title     string     `json:"title"`
	MaxPoints int        `json:"max_points"`
	Rubric    string     `json:"grading_rubric"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	CreatedAt time.Time  `json:"created_date"` // UTC
	IsActive  bool       `json:"is_active"`
}

type Student struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Document is one raw uploaded artifact (image or PDF).
type Document struct {
	Bytes       []byte
	ContentType string
}

func (d Document) IsImage() bool { return strings.HasPrefix(d.ContentType, "image/") }
func (d Document) IsPDF() bool   { return d.ContentType == "application/pdf" }

// Submission holds the raw student-provided artifacts for one assignment.
// Created by the submission-collection flow; read-only here.
type Submission struct {
	ID           int
	AssignmentID int
	StudentID    int
	Documents    []Document
	UploadedAt   time.Time // UTC
}

// LatestDocument returns the document dispatched for grading. Uploads append,
// so the last document is the most recent one.
func (s Submission) LatestDocument() (Document, bool) {
	if len(s.Documents) == 0 {
		return Document{}, false
	}
	return s.Documents[len(s.Documents)-1], true
}

// Grade is the persisted outcome for one (assignment, student) pair.
// At most one active Grade exists per pair; a second write for the same pair
// overwrites the first.
type Grade struct {
	ID           int       `json:"id"`
	AssignmentID int       `json:"assignment_id"`
	StudentID    int       `json:"student_id"`
	PointsEarned float64   `json:"points_earned"`
	Feedback     string    `json:"feedback,omitempty"`
	GradedAt     time.Time `json:"graded_date"` // UTC
	AIGenerated  bool      `json:"ai_generated"`
	AIConfidence *float64  `json:"ai_confidence,omitempty"` // 0 - 100
	IsActive     bool      `json:"is_active"`
}

func (g Grade) Percentage(maxPoints int) float64 {
	if maxPoints == 0 {
		return 0
	}
	return math.Round(g.PointsEarned/float64(maxPoints)*100*100) / 100
}

func (g Grade) LetterGrade(maxPoints int) string {
	pct := g.Percentage(maxPoints)
	switch {
	case pct >= 97:
		return "A+"
	case pct >= 93:
		return "A"
	case pct >= 90:
		return "A-"
	case pct >= 87:
		return "B+"
	case pct >= 83:
		return "B"
	case pct >= 80:
		return "B-"
	case pct >= 77:
		return "C+"
	case pct >= 73:
		return "C"
	case pct >= 70:
		return "C-"
	case pct >= 67:
		return "D+"
	case pct >= 60:
		return "D"
	default:
		return "F"
	}
}

// NewGrade contains information needed to persist a Grade.
type NewGrade struct {
	AssignmentID int      `json:"assignment_id" validate:"required"`
	StudentID    int      `json:"student_id" validate:"required"`
	PointsEarned float64  `json:"points_earned" validate:"gte=0"`
	Feedback     string   `json:"feedback,omitempty"`
	AIGenerated  bool     `json:"ai_generated,omitempty"`
	AIConfidence *float64 `json:"ai_confidence,omitempty" validate:"omitempty,gte=0,lte=100"`
}

func (ng *NewGrade) Validate(maxPoints int) error {
	ng.Feedback = core.CleanString(ng.Feedback)

	if err := core.Validate.Struct(ng); err != nil {
		return err
	}
	if ng.PointsEarned > float64(maxPoints) {
		return core.NewValidationError(
			errScoreOutOfRange,
			core.FieldError{Field: "points_earned", Error: errScoreOutOfRange.Error()},
		)
	}
	return nil
}

// GradeCheckResult answers "has (assignment, student) already been graded?".
// Ephemeral read model; never persisted.
type GradeCheckResult struct {
	AlreadyGraded bool   `json:"already_graded"`
	Grade         *Grade `json:"grade,omitempty"`
}

// BulkGradeRequest is the caller's selection for one orchestration run.
type BulkGradeRequest struct {
	AssignmentID int    `json:"assignment_id" validate:"required"`
	StudentIDs   []int  `json:"student_ids" validate:"required,min=1,unique"`
	GradingMode  string `json:"grading_mode" validate:"omitempty,oneof=grading analysis"`

	// Requester receives the run summary email; set by the API layer from
	// the authenticated claims, never bound from the request body.
	Requester string `json:"-"`
}

func (r *BulkGradeRequest) Validate() error { return core.Validate.Struct(r) }

// BatchEntry is one (student, document) pair in dispatch order.
type BatchEntry struct {
	Index    int // stable global index; the only correlation with AI results
	Student  Student
	Document Document
	Token    uuid.UUID // threaded through dispatch for keyed correlation
}

// BatchJob is the in-memory record of one orchestration run. It is
// constructed once per run, immutable after construction, and discarded when
// the run completes.
type BatchJob struct {
	ID         uuid.UUID
	Assignment Assignment
	Entries    []BatchEntry
	StartedAt  time.Time // UTC
}

type OutcomeStatus string

const (
	OutcomeSucceeded  OutcomeStatus = "succeeded"
	OutcomeFailed     OutcomeStatus = "failed"
	OutcomeSkipped    OutcomeStatus = "skipped"
	OutcomeNeedsRetry OutcomeStatus = "needs_retry"
)

// StudentOutcome is the per-student result of a run.
type StudentOutcome struct {
	Student    Student       `json:"student"`
	Status     OutcomeStatus `json:"status"`
	Grade      *Grade        `json:"grade,omitempty"`
	Error      string        `json:"error,omitempty"`
	NeedsRetry bool          `json:"needs_retry"`
}

// RunResult partitions a run's students into successes, failures and skips.
// A run never reports an all-or-nothing outcome.
type RunResult struct {
	JobID        uuid.UUID        `json:"job_id"`
	AssignmentID int              `json:"assignment_id"`
	Successes    []StudentOutcome `json:"successes"`
	Failures     []StudentOutcome `json:"failures"`
	Skipped      []StudentOutcome `json:"skipped"`
	Stats        *AssignmentStats `json:"stats,omitempty"`
}

// RetrySet lists the students whose grading should be re-run.
func (r *RunResult) RetrySet() []Student {
	var students []Student
	for _, out := range r.Failures {
		if out.NeedsRetry {
			students = append(students, out.Student)
		}
	}
	return students
}

// AssignmentStats is the on-demand analytics rollup for one assignment,
// derived from the current ledger state.
type AssignmentStats struct {
	AssignmentID   int     `json:"assignment_id"`
	TotalStudents  int     `json:"total_students"`
	GradedCount    int     `json:"graded_count"`
	NeedsGrading   int     `json:"needs_grading"`
	AverageScore   float64 `json:"average_score"`
	CompletionRate int     `json:"completion_rate"` // percentage, rounded
}
