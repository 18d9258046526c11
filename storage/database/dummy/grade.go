package dummydb

import (
	"context"
	"time"

	"github.com/trezcool/alama/core/grading"
)

var gradePKCount int

type gradeLedger struct {
	db *DB
}

var _ grading.Ledger = (*gradeLedger)(nil) // interface compliance check

func NewGradeLedger(db *DB) *gradeLedger {
	return &gradeLedger{db: db}
}

// SeedAssignment registers an assignment and its enrolled students.
func (l *gradeLedger) SeedAssignment(asg grading.Assignment, students ...grading.Student) {
	l.db.assignments.Lock()
	l.db.assignments.table[asg.ID] = &asg
	l.db.assignments.Unlock()

	l.db.roster.Lock()
	l.db.roster.table[asg.ID] = append(l.db.roster.table[asg.ID], students...)
	l.db.roster.Unlock()
}

func (l *gradeLedger) GetAssignment(ctx context.Context, id int) (grading.Assignment, error) {
	l.db.assignments.RLock()
	defer l.db.assignments.RUnlock()

	if asg, ok := l.db.assignments.table[id]; ok {
		return *asg, nil
	}
	return grading.Assignment{}, grading.ErrAssignmentNotFound
}

func (l *gradeLedger) AssignmentRoster(ctx context.Context, assignmentID int) ([]grading.Student, error) {
	l.db.roster.RLock()
	defer l.db.roster.RUnlock()

	students := make([]grading.Student, len(l.db.roster.table[assignmentID]))
	copy(students, l.db.roster.table[assignmentID])
	return students, nil
}

func (l *gradeLedger) CheckGrade(ctx context.Context, assignmentID, studentID int) (grading.GradeCheckResult, error) {
	l.db.grades.RLock()
	defer l.db.grades.RUnlock()

	if g, ok := l.db.grades.table[pairKey{assignmentID, studentID}]; ok && g.IsActive {
		grade := *g
		return grading.GradeCheckResult{AlreadyGraded: true, Grade: &grade}, nil
	}
	return grading.GradeCheckResult{}, nil
}

// CreateGrade upserts: a second grade for the same (assignment, student)
// pair overwrites the first, keeping its primary key.
func (l *gradeLedger) CreateGrade(ctx context.Context, ng grading.NewGrade) (grading.Grade, error) {
	l.db.grades.Lock()
	defer l.db.grades.Unlock()

	key := pairKey{ng.AssignmentID, ng.StudentID}
	grade := grading.Grade{
		AssignmentID: ng.AssignmentID,
		StudentID:    ng.StudentID,
		PointsEarned: ng.PointsEarned,
		Feedback:     ng.Feedback,
		GradedAt:     time.Now().UTC(),
		AIGenerated:  ng.AIGenerated,
		AIConfidence: ng.AIConfidence,
		IsActive:     true,
	}
	if existing, ok := l.db.grades.table[key]; ok {
		grade.ID = existing.ID
	} else {
		gradePKCount++
		grade.ID = gradePKCount
	}
	l.db.grades.table[key] = &grade
	return grade, nil
}

func (l *gradeLedger) AssignmentGrades(ctx context.Context, assignmentID int) ([]grading.Grade, error) {
	l.db.grades.RLock()
	defer l.db.grades.RUnlock()

	grades := make([]grading.Grade, 0)
	for key, g := range l.db.grades.table {
		if key.assignmentID == assignmentID && g.IsActive {
			grades = append(grades, *g)
		}
	}
	return grades, nil
}
