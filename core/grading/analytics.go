package grading

import (
	"context"
	"math"

	"github.com/pkg/errors"
)

// Stats recomputes the assignment rollup from the current ledger state. It
// is never cached across runs; each call reads the authoritative ledger.
func (svc *Service) Stats(ctx context.Context, assignmentID int) (AssignmentStats, error) {
	roster, err := svc.ledger.AssignmentRoster(ctx, assignmentID)
	if err != nil {
		return AssignmentStats{}, errors.Wrap(err, "fetching assignment roster")
	}
	grades, err := svc.ledger.AssignmentGrades(ctx, assignmentID)
	if err != nil {
		return AssignmentStats{}, errors.Wrap(err, "fetching assignment grades")
	}
	return computeStats(assignmentID, len(roster), grades), nil
}

func computeStats(assignmentID, totalStudents int, grades []Grade) AssignmentStats {
	stats := AssignmentStats{
		AssignmentID:  assignmentID,
		TotalStudents: totalStudents,
	}

	var sum float64
	for _, g := range grades {
		if !g.IsActive {
			continue
		}
		stats.GradedCount++
		sum += g.PointsEarned
	}

	if stats.GradedCount > 0 {
		stats.AverageScore = sum / float64(stats.GradedCount)
	}
	if stats.TotalStudents > 0 {
		stats.CompletionRate = int(math.Round(float64(stats.GradedCount) / float64(stats.TotalStudents) * 100))
	}
	if n := stats.TotalStudents - stats.GradedCount; n > 0 {
		stats.NeedsGrading = n
	}
	return stats
}
