package grading

import "testing"

func Test_computeStats(t *testing.T) {
	grades := func(scores ...float64) []Grade {
		gs := make([]Grade, 0, len(scores))
		for i, s := range scores {
			gs = append(gs, Grade{ID: i + 1, AssignmentID: 1, StudentID: i + 1, PointsEarned: s, IsActive: true})
		}
		return gs
	}

	tests := []struct {
		name     string
		students int
		grades   []Grade
		want     AssignmentStats
	}{
		{
			name:     "partially graded",
			students: 10,
			grades:   grades(80, 90, 70, 80),
			want:     AssignmentStats{AssignmentID: 1, TotalStudents: 10, GradedCount: 4, NeedsGrading: 6, AverageScore: 80, CompletionRate: 40},
		},
		{
			name:     "fully graded",
			students: 2,
			grades:   grades(100, 50),
			want:     AssignmentStats{AssignmentID: 1, TotalStudents: 2, GradedCount: 2, AverageScore: 75, CompletionRate: 100},
		},
		{
			name:     "no grades",
			students: 5,
			want:     AssignmentStats{AssignmentID: 1, TotalStudents: 5, NeedsGrading: 5},
		},
		{
			name: "no students",
			want: AssignmentStats{AssignmentID: 1},
		},
		{
			name:     "completion rate rounds",
			students: 3,
			grades:   grades(60),
			want:     AssignmentStats{AssignmentID: 1, TotalStudents: 3, GradedCount: 1, NeedsGrading: 2, AverageScore: 60, CompletionRate: 33},
		},
		{
			name:     "inactive grades ignored",
			students: 2,
			grades: []Grade{
				{ID: 1, PointsEarned: 80, IsActive: true},
				{ID: 2, PointsEarned: 40, IsActive: false},
			},
			want: AssignmentStats{AssignmentID: 1, TotalStudents: 2, GradedCount: 1, NeedsGrading: 1, AverageScore: 80, CompletionRate: 50},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeStats(1, tt.students, tt.grades); got != tt.want {
				t.Errorf("computeStats() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestGrade_LetterGrade(t *testing.T) {
	tests := []struct {
		points float64
		want   string
	}{
		{points: 100, want: "A+"},
		{points: 97, want: "A+"},
		{points: 95, want: "A"},
		{points: 91, want: "A-"},
		{points: 88, want: "B+"},
		{points: 85, want: "B"},
		{points: 81, want: "B-"},
		{points: 78, want: "C+"},
		{points: 75, want: "C"},
		{points: 71, want: "C-"},
		{points: 68, want: "D+"},
		{points: 63, want: "D"},
		{points: 59, want: "F"},
		{points: 0, want: "F"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			g := Grade{PointsEarned: tt.points}
			if got := g.LetterGrade(100); got != tt.want {
				t.Errorf("LetterGrade(%v/100) = %q, want %q", tt.points, got, tt.want)
			}
		})
	}
}
