package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/grading"
)

// gradeLedger is the direct-Postgres grade ledger, for deployments where the
// ledger lives next to the orchestrator instead of behind REST.
type gradeLedger struct {
	db *sqlx.DB
}

var _ grading.Ledger = (*gradeLedger)(nil) // interface compliance check

func NewGradeLedger(db *sqlx.DB) *gradeLedger {
	return &gradeLedger{db: db}
}

type (
	assignmentRow struct {
		ID        int          `db:"id"`
		SubjectID int          `db:"subject_id"`
		Title     string       `db:"title"`
		MaxPoints int          `db:"max_points"`
		Rubric    string       `db:"grading_rubric"`
		DueDate   sql.NullTime `db:"due_date"`
		CreatedAt time.Time    `db:"created_at"`
		IsActive  bool         `db:"is_active"`
	}

	studentRow struct {
		ID   int    `db:"id"`
		Name string `db:"name"`
	}

	gradeRow struct {
		ID           int             `db:"id"`
		AssignmentID int             `db:"assignment_id"`
		StudentID    int             `db:"student_id"`
		PointsEarned float64         `db:"points_earned"`
		Feedback     string          `db:"feedback"`
		GradedAt     time.Time       `db:"graded_at"`
		AIGenerated  bool            `db:"ai_generated"`
		AIConfidence sql.NullFloat64 `db:"ai_confidence"`
		IsActive     bool            `db:"is_active"`
	}
)

func (r assignmentRow) toAssignment() grading.Assignment {
	asg := grading.Assignment{
		ID:        r.ID,
		SubjectID: r.SubjectID,
		Title:     r.Title,
		MaxPoints: r.MaxPoints,
		Rubric:    r.Rubric,
		CreatedAt: r.CreatedAt,
		IsActive:  r.IsActive,
	}
	if r.DueDate.Valid {
		due := r.DueDate.Time
		asg.DueDate = &due
	}
	return asg
}

func (r gradeRow) toGrade() grading.Grade {
	g := grading.Grade{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		StudentID:    r.StudentID,
		PointsEarned: r.PointsEarned,
		Feedback:     r.Feedback,
		GradedAt:     r.GradedAt,
		AIGenerated:  r.AIGenerated,
		IsActive:     r.IsActive,
	}
	if r.AIConfidence.Valid {
		conf := r.AIConfidence.Float64
		g.AIConfidence = &conf
	}
	return g
}

func (l *gradeLedger) GetAssignment(ctx context.Context, id int) (grading.Assignment, error) {
	var row assignmentRow
	err := l.db.GetContext(ctx, &row,
		`SELECT id, subject_id, title, max_points, grading_rubric, due_date, created_at, is_active
		 FROM assignment WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return grading.Assignment{}, grading.ErrAssignmentNotFound
	}
	if err != nil {
		return grading.Assignment{}, errors.Wrap(err, "getting assignment")
	}
	return row.toAssignment(), nil
}

func (l *gradeLedger) AssignmentRoster(ctx context.Context, assignmentID int) ([]grading.Student, error) {
	var rows []studentRow
	err := l.db.SelectContext(ctx, &rows,
		`SELECT s.id, s.name
		 FROM student s
		 JOIN enrollment e ON e.student_id = s.id
		 WHERE e.assignment_id = $1
		 ORDER BY s.id`, assignmentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying roster")
	}

	students := make([]grading.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, grading.Student{ID: r.ID, Name: r.Name})
	}
	return students, nil
}

func (l *gradeLedger) CheckGrade(ctx context.Context, assignmentID, studentID int) (grading.GradeCheckResult, error) {
	var row gradeRow
	err := l.db.GetContext(ctx, &row,
		`SELECT id, assignment_id, student_id, points_earned, feedback, graded_at, ai_generated, ai_confidence, is_active
		 FROM grade WHERE assignment_id = $1 AND student_id = $2 AND is_active`, assignmentID, studentID)
	if err == sql.ErrNoRows {
		return grading.GradeCheckResult{}, nil
	}
	if err != nil {
		return grading.GradeCheckResult{}, errors.Wrap(err, "checking grade")
	}

	grade := row.toGrade()
	return grading.GradeCheckResult{AlreadyGraded: true, Grade: &grade}, nil
}

// CreateGrade upserts on the (assignment_id, student_id) unique constraint;
// re-grading overwrites the existing row instead of inserting a duplicate.
func (l *gradeLedger) CreateGrade(ctx context.Context, ng grading.NewGrade) (grading.Grade, error) {
	var row gradeRow
	err := l.db.GetContext(ctx, &row,
		`INSERT INTO grade (assignment_id, student_id, points_earned, feedback, graded_at, ai_generated, ai_confidence, is_active)
		 VALUES ($1, $2, $3, $4, now(), $5, $6, TRUE)
		 ON CONFLICT ON CONSTRAINT grade_assignment_student_key DO UPDATE
		     SET points_earned = EXCLUDED.points_earned,
		         feedback      = EXCLUDED.feedback,
		         graded_at     = EXCLUDED.graded_at,
		         ai_generated  = EXCLUDED.ai_generated,
		         ai_confidence = EXCLUDED.ai_confidence,
		         is_active     = TRUE
		 RETURNING id, assignment_id, student_id, points_earned, feedback, graded_at, ai_generated, ai_confidence, is_active`,
		ng.AssignmentID, ng.StudentID, ng.PointsEarned, ng.Feedback, ng.AIGenerated, nullFloat(ng.AIConfidence))
	if err != nil {
		return grading.Grade{}, errors.Wrap(err, "upserting grade")
	}
	return row.toGrade(), nil
}

func (l *gradeLedger) AssignmentGrades(ctx context.Context, assignmentID int) ([]grading.Grade, error) {
	var rows []gradeRow
	err := l.db.SelectContext(ctx, &rows,
		`SELECT id, assignment_id, student_id, points_earned, feedback, graded_at, ai_generated, ai_confidence, is_active
		 FROM grade WHERE assignment_id = $1 AND is_active
		 ORDER BY graded_at DESC`, assignmentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignment grades")
	}

	grades := make([]grading.Grade, 0, len(rows))
	for _, r := range rows {
		grades = append(grades, r.toGrade())
	}
	return grades, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
