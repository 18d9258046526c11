package grading

import (
	"testing"

	"github.com/trezcool/alama/core"
)

func TestNewGrade_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ng      NewGrade
		wantErr bool
	}{
		{name: "valid", ng: NewGrade{AssignmentID: 1, StudentID: 2, PointsEarned: 85}},
		{name: "zero points is valid", ng: NewGrade{AssignmentID: 1, StudentID: 2}},
		{name: "full marks", ng: NewGrade{AssignmentID: 1, StudentID: 2, PointsEarned: 100}},
		{name: "missing assignment", ng: NewGrade{StudentID: 2, PointsEarned: 85}, wantErr: true},
		{name: "missing student", ng: NewGrade{AssignmentID: 1, PointsEarned: 85}, wantErr: true},
		{name: "negative points", ng: NewGrade{AssignmentID: 1, StudentID: 2, PointsEarned: -1}, wantErr: true},
		{name: "points over max", ng: NewGrade{AssignmentID: 1, StudentID: 2, PointsEarned: 101}, wantErr: true},
		{name: "confidence over 100", ng: NewGrade{AssignmentID: 1, StudentID: 2, PointsEarned: 85, AIConfidence: fptr(120)}, wantErr: true},
		{name: "confidence in range", ng: NewGrade{AssignmentID: 1, StudentID: 2, PointsEarned: 85, AIConfidence: fptr(92.5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.ng.Validate(100); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewGrade_Validate_overMaxFieldError(t *testing.T) {
	ng := NewGrade{AssignmentID: 1, StudentID: 2, PointsEarned: 120}
	err := ng.Validate(100)

	verr, ok := err.(*core.ValidationError)
	if !ok {
		t.Fatalf("Validate() error = %T, want *core.ValidationError", err)
	}
	if len(verr.Fields) != 1 || verr.Fields[0].Field != "points_earned" {
		t.Errorf("Validate() fields = %+v", verr.Fields)
	}
}

func TestGrade_Percentage(t *testing.T) {
	tests := []struct {
		name   string
		points float64
		max    int
		want   float64
	}{
		{name: "whole", points: 85, max: 100, want: 85},
		{name: "rounds to 2 decimals", points: 1, max: 3, want: 33.33},
		{name: "small scale", points: 7, max: 8, want: 87.5},
		{name: "zero max", points: 10, max: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Grade{PointsEarned: tt.points}
			if got := g.Percentage(tt.max); got != tt.want {
				t.Errorf("Percentage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSubmission_LatestDocument(t *testing.T) {
	var sub Submission
	if _, ok := sub.LatestDocument(); ok {
		t.Error("LatestDocument() ok = true for an empty submission")
	}

	sub.Documents = []Document{
		{Bytes: []byte("first"), ContentType: "image/png"},
		{Bytes: []byte("second"), ContentType: "application/pdf"},
	}
	doc, ok := sub.LatestDocument()
	if !ok || string(doc.Bytes) != "second" {
		t.Errorf("LatestDocument() = %q, %v; want the last upload", doc.Bytes, ok)
	}
}
