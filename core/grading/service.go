package grading

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/alama/core"
)

type (
	// Ledger persists one Grade per (assignment, student) pair. Creating a
	// grade for an already-graded pair overwrites the existing grade; it is
	// never a duplicate insert.
	Ledger interface {
		GetAssignment(ctx context.Context, id int) (Assignment, error)
		AssignmentRoster(ctx context.Context, assignmentID int) ([]Student, error)
		CheckGrade(ctx context.Context, assignmentID, studentID int) (GradeCheckResult, error)
		CreateGrade(ctx context.Context, ng NewGrade) (Grade, error)
		AssignmentGrades(ctx context.Context, assignmentID int) ([]Grade, error)
	}

	// SubmissionStore holds the uploaded artifacts; read-only here.
	SubmissionStore interface {
		LatestSubmission(ctx context.Context, assignmentID, studentID int) (Submission, error)
	}

	// Grader is the external AI scoring service. Both calls return one
	// result per input, in input order.
	Grader interface {
		GradeImages(ctx context.Context, req BatchRequest) ([]RawResult, error)
		GradePDFs(ctx context.Context, req BatchRequest) ([]RawResult, error)
	}

	Service struct {
		ledger  Ledger
		store   SubmissionStore
		grader  Grader
		policy  RetryPolicy
		pacing  time.Duration
		logger  core.Logger
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(conf *core.Config, ledger Ledger, store SubmissionStore, grader Grader, logger core.Logger, mailSvc core.EmailService) *Service {
	policy := DefaultRetryPolicy()
	pacing := 800 * time.Millisecond
	if conf != nil {
		if conf.Grading.MaxAttempts > 0 {
			policy.MaxAttempts = conf.Grading.MaxAttempts
		}
		if conf.Grading.RetryBaseDelay > 0 {
			policy.BaseDelay = conf.Grading.RetryBaseDelay
		}
		if conf.Grading.RetryMaxDelay > 0 {
			policy.MaxDelay = conf.Grading.RetryMaxDelay
		}
		if conf.Grading.PacingDelay > 0 {
			pacing = conf.Grading.PacingDelay
		}
	}
	return &Service{
		ledger:  ledger,
		store:   store,
		grader:  grader,
		policy:  policy,
		pacing:  pacing,
		logger:  logger,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

// Run executes one bulk grading pass: idempotency check → batched AI
// dispatch → reconciliation → sequential persistence → analytics rollup.
// Failures are isolated per student; the result is always a partition, never
// an all-or-nothing outcome.
func (svc *Service) Run(ctx context.Context, req BulkGradeRequest) (*RunResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	asg, err := svc.ledger.GetAssignment(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}

	roster, err := svc.ledger.AssignmentRoster(ctx, asg.ID)
	if err != nil {
		return nil, err
	}
	students := make(map[int]Student, len(roster))
	for _, s := range roster {
		students[s.ID] = s
	}

	res := &RunResult{JobID: uuid.New(), AssignmentID: asg.ID}

	// idempotency guard: skip students with a non-stale grade. An
	// unreachable ledger must not block the run (fail-open); a re-grade is
	// an overwrite at the persistence layer, not a duplicate.
	var pending []Student
	for _, sid := range req.StudentIDs {
		student, ok := students[sid]
		if !ok {
			res.Failures = append(res.Failures, StudentOutcome{
				Student: Student{ID: sid},
				Status:  OutcomeFailed,
				Error:   ErrStudentNotEnrolled.Error(),
			})
			continue
		}
		if check := svc.checkGraded(ctx, asg.ID, sid); check.AlreadyGraded {
			res.Skipped = append(res.Skipped, StudentOutcome{
				Student: student,
				Status:  OutcomeSkipped,
				Grade:   check.Grade,
			})
			continue
		}
		pending = append(pending, student)
	}

	job := svc.collectSubmissions(ctx, asg, pending, res)
	svc.logger.Info(fmt.Sprintf(
		"grading run %s: assignment %d, %d selected, %d skipped, %d dispatched",
		res.JobID, asg.ID, len(req.StudentIDs), len(res.Skipped), len(job.Entries),
	))

	if len(job.Entries) > 0 {
		graded := svc.gradeBatch(ctx, job, res)
		svc.persist(ctx, asg, graded, res)
	}

	if stats, err := svc.Stats(ctx, asg.ID); err != nil {
		svc.logger.Warn(fmt.Sprintf("grading run %s: stats rollup failed: %v", res.JobID, err), err)
	} else {
		res.Stats = &stats
	}

	svc.notifyRun(asg, req, res)
	return res, nil
}

// AssignmentGrades lists the assignment's grades, most recent first.
func (svc *Service) AssignmentGrades(ctx context.Context, assignmentID int) ([]Grade, error) {
	grades, err := svc.ledger.AssignmentGrades(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(grades, func(i, j int) bool { return grades[i].GradedAt.After(grades[j].GradedAt) })
	return grades, nil
}

// checkGraded consults the ledger for an existing grade. Any failure to
// confirm defaults to "not graded" so that a flaky read never blocks the
// batch; a false negative only costs one redundant (idempotent) re-grade.
func (svc *Service) checkGraded(ctx context.Context, assignmentID, studentID int) GradeCheckResult {
	check, err := svc.ledger.CheckGrade(ctx, assignmentID, studentID)
	if err != nil {
		if IsTransient(err) {
			svc.logger.Warn(fmt.Sprintf("grade check unavailable for assignment %d student %d, proceeding ungraded: %v", assignmentID, studentID, err), err)
		} else {
			svc.logger.Error(fmt.Sprintf("grade check failed for assignment %d student %d, proceeding ungraded: %v", assignmentID, studentID, err), err)
		}
		return GradeCheckResult{}
	}
	return check
}

// collectSubmissions builds the run's BatchJob in selection order. Students
// without an uploaded submission are failed up front; transient store
// failures are flagged for retry.
func (svc *Service) collectSubmissions(ctx context.Context, asg Assignment, pending []Student, res *RunResult) *BatchJob {
	job := &BatchJob{ID: res.JobID, Assignment: asg, StartedAt: nowFunc().UTC()}

	for _, student := range pending {
		sub, err := svc.store.LatestSubmission(ctx, asg.ID, student.ID)
		if err != nil {
			res.Failures = append(res.Failures, StudentOutcome{
				Student:    student,
				Status:     OutcomeFailed,
				Error:      err.Error(),
				NeedsRetry: IsTransient(err),
			})
			continue
		}
		doc, ok := sub.LatestDocument()
		if !ok {
			res.Failures = append(res.Failures, StudentOutcome{
				Student: student,
				Status:  OutcomeFailed,
				Error:   ErrSubmissionNotFound.Error(),
			})
			continue
		}
		job.Entries = append(job.Entries, BatchEntry{
			Index:    len(job.Entries),
			Student:  student,
			Document: doc,
			Token:    uuid.New(),
		})
	}
	return job
}

// gradeBatch dispatches the job and reconciles the responses. Sub-batch
// failures (AI error, reconciliation error) mark every affected student
// needs-retry; they never abort the run or yield a zero score.
func (svc *Service) gradeBatch(ctx context.Context, job *BatchJob, res *RunResult) []ReconciledGrade {
	var graded []ReconciledGrade

	for _, sb := range svc.dispatch(ctx, job) {
		if sb.err != nil {
			svc.logger.Error(fmt.Sprintf("grading run %s: sub-batch of %d failed: %v", job.ID, len(sb.entries), sb.err), sb.err)
			markNeedsRetry(res, sb.entries, sb.err)
			continue
		}
		recs, missing, err := reconcile(sb.entries, sb.results)
		if err != nil {
			svc.logger.Error(fmt.Sprintf("grading run %s: %v", job.ID, err), err)
			markNeedsRetry(res, sb.entries, err)
			continue
		}
		for _, e := range missing {
			res.Failures = append(res.Failures, StudentOutcome{
				Student:    e.Student,
				Status:     OutcomeNeedsRetry,
				Error:      errMissingScore.Error(),
				NeedsRetry: true,
			})
		}
		graded = append(graded, recs...)
	}

	// persistence follows the original selection order, not completion order
	sort.Slice(graded, func(i, j int) bool { return graded[i].Entry.Index < graded[j].Entry.Index })
	return graded
}

func markNeedsRetry(res *RunResult, entries []BatchEntry, err error) {
	for _, e := range entries {
		res.Failures = append(res.Failures, StudentOutcome{
			Student:    e.Student,
			Status:     OutcomeNeedsRetry,
			Error:      err.Error(),
			NeedsRetry: true,
		})
	}
}

// persist writes the reconciled grades one at a time. Concurrent writes
// against the ledger under load cause connection resets, so tuples are
// submitted sequentially with a fixed pause between them; transient write
// failures are retried per the policy. One student's exhausted retries never
// abort the remaining batch.
func (svc *Service) persist(ctx context.Context, asg Assignment, graded []ReconciledGrade, res *RunResult) {
	for i, rg := range graded {
		if i > 0 {
			sleepFunc(svc.pacing)
		}

		ng := NewGrade{
			AssignmentID: asg.ID,
			StudentID:    rg.Entry.Student.ID,
			PointsEarned: rg.Points,
			Feedback:     rg.Feedback,
			AIGenerated:  true,
			AIConfidence: rg.Confidence,
		}
		if err := ng.Validate(asg.MaxPoints); err != nil {
			res.Failures = append(res.Failures, StudentOutcome{
				Student: rg.Entry.Student,
				Status:  OutcomeFailed,
				Error:   err.Error(),
			})
			continue
		}

		var grade Grade
		err := svc.policy.Run(
			func() error {
				g, err := svc.ledger.CreateGrade(ctx, ng)
				if err == nil {
					grade = g
				}
				return err
			},
			svc.observeAttempt(rg.Entry.Student),
		)
		if err != nil {
			res.Failures = append(res.Failures, StudentOutcome{
				Student:    rg.Entry.Student,
				Status:     OutcomeFailed,
				Error:      err.Error(),
				NeedsRetry: IsTransient(err),
			})
			continue
		}
		res.Successes = append(res.Successes, StudentOutcome{
			Student: rg.Entry.Student,
			Status:  OutcomeSucceeded,
			Grade:   &grade,
		})
	}
}

func (svc *Service) observeAttempt(student Student) func(state AttemptState, attempt int, err error) {
	return func(state AttemptState, attempt int, err error) {
		switch state {
		case StateRetrying:
			svc.logger.Warn(fmt.Sprintf("grade write for student %d failed on attempt %d, retrying: %v", student.ID, attempt, err), err)
		case StateFailed:
			svc.logger.Error(fmt.Sprintf("grade write for student %d exhausted after %d attempts: %v", student.ID, attempt, err), err)
		}
	}
}

// notifyRun emails the requesting teacher when a run completes with
// failures, so the failed subset can be re-run without re-grading the batch.
func (svc *Service) notifyRun(asg Assignment, req BulkGradeRequest, res *RunResult) {
	if svc.mailSvc == nil || req.Requester == "" || len(res.Failures) == 0 {
		return
	}

	body := fmt.Sprintf(
		"Bulk grading for %q finished: %d graded, %d failed, %d skipped.\n\nFailed students:\n",
		asg.Title, len(res.Successes), len(res.Failures), len(res.Skipped),
	)
	for _, out := range res.Failures {
		name := out.Student.Name
		if name == "" {
			name = fmt.Sprintf("student %d", out.Student.ID)
		}
		body += fmt.Sprintf("- %s: %s\n", name, out.Error)
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: req.Requester}},
		Subject: fmt.Sprintf("Bulk grading report: %s", asg.Title),
		BodyStr: body,
	})
}
