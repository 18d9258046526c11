package grading

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type (
	// BatchRequest is the wire-level payload for one sub-batch. The rubric
	// and max points are attached once per batch; all students in a run
	// share the same assignment rubric.
	BatchRequest struct {
		AssignmentTitle string
		MaxPoints       int
		Rubric          string
		Files           [][]byte
		StudentNames    []string
		Tokens          []uuid.UUID
	}

	// RawResult is one positional result from the AI grading service.
	RawResult struct {
		Score            *float64 `json:"score"`
		Grade            *float64 `json:"grade"`
		Feedback         string   `json:"feedback"`
		DetailedFeedback string   `json:"detailed_feedback"`
		Percentage       *float64 `json:"percentage"`
		LetterGrade      string   `json:"letter_grade"`
		Confidence       *float64 `json:"confidence"`

		// Token is echoed back by services that support keyed correlation;
		// empty on the positional wire format.
		Token string `json:"token"`
	}

	// subBatchResult pairs one media-type partition with its response (or
	// its all-or-nothing error).
	subBatchResult struct {
		entries []BatchEntry
		results []RawResult
		err     error
	}
)

// Points extracts the score; ok is false when the service reported a result
// without one. Such entries require manual retry, never a zero score.
func (r RawResult) Points() (float64, bool) {
	if r.Score != nil {
		return *r.Score, true
	}
	if r.Grade != nil {
		return *r.Grade, true
	}
	return 0, false
}

// FeedbackText prefers the detailed feedback variant when both are present.
func (r RawResult) FeedbackText() string {
	if r.DetailedFeedback != "" {
		return r.DetailedFeedback
	}
	return r.Feedback
}

// partitionEntries splits entries into the image and PDF sub-batches the
// grading service exposes distinct endpoints for. Relative order (and with
// it each entry's global Index) is preserved so results can be re-merged
// into the original request order.
func partitionEntries(entries []BatchEntry) (images, pdfs []BatchEntry) {
	for _, e := range entries {
		if e.Document.IsPDF() {
			pdfs = append(pdfs, e)
		} else {
			images = append(images, e)
		}
	}
	return images, pdfs
}

func newBatchRequest(asg Assignment, entries []BatchEntry) BatchRequest {
	req := BatchRequest{
		AssignmentTitle: asg.Title,
		MaxPoints:       asg.MaxPoints,
		Rubric:          asg.Rubric,
		Files:           make([][]byte, 0, len(entries)),
		StudentNames:    make([]string, 0, len(entries)),
		Tokens:          make([]uuid.UUID, 0, len(entries)),
	}
	for _, e := range entries {
		req.Files = append(req.Files, e.Document.Bytes)
		req.StudentNames = append(req.StudentNames, e.Student.Name)
		req.Tokens = append(req.Tokens, e.Token)
	}
	return req
}

// dispatch issues the image and PDF sub-batches. The two sub-batches hit
// independent endpoints and may run concurrently; the grade ledger is not
// touched here.
func (svc *Service) dispatch(ctx context.Context, job *BatchJob) []subBatchResult {
	images, pdfs := partitionEntries(job.Entries)

	var (
		out []subBatchResult
		mu  sync.Mutex
		wg  sync.WaitGroup
	)
	send := func(entries []BatchEntry, call func(context.Context, BatchRequest) ([]RawResult, error)) {
		defer wg.Done()
		results, err := call(ctx, newBatchRequest(job.Assignment, entries))
		mu.Lock()
		out = append(out, subBatchResult{entries: entries, results: results, err: err})
		mu.Unlock()
	}

	if len(images) > 0 {
		wg.Add(1)
		go send(images, svc.grader.GradeImages)
	}
	if len(pdfs) > 0 {
		wg.Add(1)
		go send(pdfs, svc.grader.GradePDFs)
	}
	wg.Wait()
	return out
}
