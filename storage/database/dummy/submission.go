package dummydb

import (
	"context"
	"time"

	"github.com/trezcool/alama/core/grading"
)

var submissionPKCount int

type submissionStore struct {
	db *DB
}

var _ grading.SubmissionStore = (*submissionStore)(nil) // interface compliance check

func NewSubmissionStore(db *DB) *submissionStore {
	return &submissionStore{db: db}
}

// SeedSubmission records an upload; repeated uploads for the same pair
// append documents, the latest one wins at dispatch time.
func (s *submissionStore) SeedSubmission(assignmentID, studentID int, docs ...grading.Document) grading.Submission {
	s.db.submissions.Lock()
	defer s.db.submissions.Unlock()

	key := pairKey{assignmentID, studentID}
	sub, ok := s.db.submissions.table[key]
	if !ok {
		submissionPKCount++
		sub = &grading.Submission{
			ID:           submissionPKCount,
			AssignmentID: assignmentID,
			StudentID:    studentID,
		}
		s.db.submissions.table[key] = sub
	}
	sub.Documents = append(sub.Documents, docs...)
	sub.UploadedAt = time.Now().UTC()
	return *sub
}

func (s *submissionStore) LatestSubmission(ctx context.Context, assignmentID, studentID int) (grading.Submission, error) {
	s.db.submissions.RLock()
	defer s.db.submissions.RUnlock()

	if sub, ok := s.db.submissions.table[pairKey{assignmentID, studentID}]; ok {
		return *sub, nil
	}
	return grading.Submission{}, grading.ErrSubmissionNotFound
}
