package ledgersvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/grading"
)

type (
	// restLedger talks to the academic backend's grade ledger over REST.
	restLedger struct {
		baseURL string
		token   string
		client  *http.Client
		logger  core.Logger
	}

	statusError struct {
		status int
		body   string
	}

	// errorBody is the ledger's error envelope.
	errorBody struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
)

var _ grading.Ledger = (*restLedger)(nil)

func (e *statusError) Error() string {
	return fmt.Sprintf("grade ledger returned status %d", e.status)
}

func NewRestLedger(conf *core.Config, logger core.Logger) *restLedger {
	return &restLedger{
		baseURL: conf.Grading.LedgerURL,
		token:   conf.Grading.LedgerToken,
		client:  &http.Client{},
		logger:  logger,
	}
}

func (l *restLedger) GetAssignment(ctx context.Context, id int) (grading.Assignment, error) {
	var asg grading.Assignment
	err := l.get(ctx, fmt.Sprintf("/assignments/%d", id), &asg)
	if serr, ok := errors.Cause(err).(*statusError); ok && serr.status == http.StatusNotFound {
		return grading.Assignment{}, grading.ErrAssignmentNotFound
	}
	return asg, err
}

func (l *restLedger) AssignmentRoster(ctx context.Context, assignmentID int) ([]grading.Student, error) {
	var students []grading.Student
	err := l.get(ctx, fmt.Sprintf("/assignments/%d/students", assignmentID), &students)
	return students, err
}

// CheckGrade answers the idempotency question. A 500/503 from the ledger is
// "temporarily unknown", reported as a transient error so the guard can fail
// open, not as a hard failure.
func (l *restLedger) CheckGrade(ctx context.Context, assignmentID, studentID int) (grading.GradeCheckResult, error) {
	var check grading.GradeCheckResult
	err := l.get(ctx, fmt.Sprintf("/grades/check/%d/%d", assignmentID, studentID), &check)
	return check, err
}

func (l *restLedger) CreateGrade(ctx context.Context, ng grading.NewGrade) (grading.Grade, error) {
	body, err := json.Marshal(ng)
	if err != nil {
		return grading.Grade{}, errors.Wrap(err, "encoding grade")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/grades/create", bytes.NewReader(body))
	if err != nil {
		return grading.Grade{}, errors.Wrap(err, "building ledger request")
	}

	var grade grading.Grade
	err = l.do(req, &grade)
	return grade, err
}

func (l *restLedger) AssignmentGrades(ctx context.Context, assignmentID int) ([]grading.Grade, error) {
	var grades []grading.Grade
	err := l.get(ctx, fmt.Sprintf("/grades/assignment/%d", assignmentID), &grades)
	return grades, err
}

func (l *restLedger) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "building ledger request")
	}
	return l.do(req, out)
}

func (l *restLedger) do(req *http.Request, out interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		// connection-level failures are worth retrying
		return grading.NewTransientError("grade ledger", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return grading.NewTransientError("grade ledger", err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		if out == nil {
			return nil
		}
		return errors.Wrap(json.Unmarshal(body, out), "decoding ledger response")
	}

	serr := &statusError{status: resp.StatusCode, body: string(body)}
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return grading.NewTransientError("grade ledger", serr)
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		msg := eb.Detail
		if msg == "" {
			msg = eb.Message
		}
		if msg == "" {
			msg = serr.Error()
		}
		return core.NewValidationError(errors.New(msg))
	default:
		// auth and schema failures are not retryable
		return serr
	}
}
