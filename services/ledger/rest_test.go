package ledgersvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/grading"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newTestLedger(srv *httptest.Server) *restLedger {
	conf := &core.Config{}
	conf.Grading.LedgerURL = srv.URL
	conf.Grading.LedgerToken = "sekrit"
	return NewRestLedger(conf, nopLogger{})
}

func TestRestLedger_GetAssignment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("Authorization = %q", got)
		}
		switch r.URL.Path {
		case "/assignments/1":
			_ = json.NewEncoder(w).Encode(grading.Assignment{ID: 1, Title: "Essay", MaxPoints: 100, IsActive: true})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ledger := newTestLedger(srv)

	asg, err := ledger.GetAssignment(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetAssignment() error = %v", err)
	}
	if asg.ID != 1 || asg.Title != "Essay" {
		t.Errorf("GetAssignment() = %+v", asg)
	}

	if _, err = ledger.GetAssignment(context.Background(), 404); err != grading.ErrAssignmentNotFound {
		t.Errorf("GetAssignment() error = %v, want %v", err, grading.ErrAssignmentNotFound)
	}
}

func TestRestLedger_CheckGrade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/grades/check/1/2" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(grading.GradeCheckResult{
			AlreadyGraded: true,
			Grade:         &grading.Grade{ID: 7, AssignmentID: 1, StudentID: 2, PointsEarned: 80, IsActive: true},
		})
	}))
	defer srv.Close()

	check, err := newTestLedger(srv).CheckGrade(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("CheckGrade() error = %v", err)
	}
	if !check.AlreadyGraded || check.Grade == nil || check.Grade.ID != 7 {
		t.Errorf("CheckGrade() = %+v", check)
	}
}

func TestRestLedger_CheckGrade_serverErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestLedger(srv).CheckGrade(context.Background(), 1, 2)
	if err == nil {
		t.Fatal("CheckGrade() error = nil, want transient error")
	}
	if !grading.IsTransient(err) {
		t.Errorf("IsTransient(%v) = false, want true", err)
	}
}

func TestRestLedger_CheckGrade_connectionRefusedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	ledger := newTestLedger(srv)
	srv.Close() // nobody home

	_, err := ledger.CheckGrade(context.Background(), 1, 2)
	if !grading.IsTransient(err) {
		t.Errorf("IsTransient(%v) = false, want true", err)
	}
}

func TestRestLedger_CreateGrade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/grades/create" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var ng grading.NewGrade
		if err := json.NewDecoder(r.Body).Decode(&ng); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(grading.Grade{
			ID:           1,
			AssignmentID: ng.AssignmentID,
			StudentID:    ng.StudentID,
			PointsEarned: ng.PointsEarned,
			AIGenerated:  ng.AIGenerated,
			IsActive:     true,
		})
	}))
	defer srv.Close()

	grade, err := newTestLedger(srv).CreateGrade(context.Background(), grading.NewGrade{
		AssignmentID: 1,
		StudentID:    2,
		PointsEarned: 88,
		AIGenerated:  true,
	})
	if err != nil {
		t.Fatalf("CreateGrade() error = %v", err)
	}
	if grade.ID != 1 || grade.PointsEarned != 88 || !grade.AIGenerated {
		t.Errorf("CreateGrade() = %+v", grade)
	}
}

func TestRestLedger_CreateGrade_badRequestIsValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "points_earned exceeds max_points"})
	}))
	defer srv.Close()

	_, err := newTestLedger(srv).CreateGrade(context.Background(), grading.NewGrade{AssignmentID: 1, StudentID: 2, PointsEarned: 120})
	if !core.IsValidationError(err) {
		t.Fatalf("CreateGrade() error = %v, want validation error", err)
	}
	if grading.IsTransient(err) {
		t.Error("validation error classified as transient")
	}
	if err.Error() != "points_earned exceeds max_points" {
		t.Errorf("CreateGrade() error = %q", err.Error())
	}
}

func TestRestLedger_CreateGrade_authFailureIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestLedger(srv).CreateGrade(context.Background(), grading.NewGrade{AssignmentID: 1, StudentID: 2})
	if err == nil {
		t.Fatal("CreateGrade() error = nil")
	}
	if grading.IsTransient(err) {
		t.Errorf("IsTransient(%v) = true, want false", err)
	}
}

func TestRestLedger_AssignmentGrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/grades/assignment/1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]grading.Grade{
			{ID: 1, AssignmentID: 1, StudentID: 1, PointsEarned: 80, IsActive: true},
			{ID: 2, AssignmentID: 1, StudentID: 2, PointsEarned: 90, IsActive: true},
		})
	}))
	defer srv.Close()

	grades, err := newTestLedger(srv).AssignmentGrades(context.Background(), 1)
	if err != nil {
		t.Fatalf("AssignmentGrades() error = %v", err)
	}
	if len(grades) != 2 {
		t.Errorf("AssignmentGrades() = %d grades, want 2", len(grades))
	}
}
