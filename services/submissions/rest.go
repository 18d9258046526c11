package subsvc

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/grading"
)

// restStore fetches prior uploads from the submission store. The store owns
// the artifacts; this client only reads them.
type restStore struct {
	baseURL string
	token   string
	client  *http.Client
	logger  core.Logger
}

var _ grading.SubmissionStore = (*restStore)(nil)

func NewRestStore(conf *core.Config, logger core.Logger) *restStore {
	return &restStore{
		baseURL: conf.Grading.SubmissionsURL,
		token:   conf.Grading.LedgerToken,
		client:  &http.Client{},
		logger:  logger,
	}
}

func (s *restStore) LatestSubmission(ctx context.Context, assignmentID, studentID int) (grading.Submission, error) {
	url := fmt.Sprintf("%s/assignment/%d/student/%d/pdf", s.baseURL, assignmentID, studentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return grading.Submission{}, errors.Wrap(err, "building submission request")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return grading.Submission{}, grading.NewTransientError("submission store", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return grading.Submission{}, grading.ErrSubmissionNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		return grading.Submission{}, grading.NewTransientError(
			"submission store",
			errors.Errorf("status %d", resp.StatusCode),
		)
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return grading.Submission{}, errors.Errorf("submission store returned status %d", resp.StatusCode)
	}

	raw, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return grading.Submission{}, grading.NewTransientError("submission store", err)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(raw)
	}

	return grading.Submission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		Documents:    []grading.Document{{Bytes: raw, ContentType: ct}},
		UploadedAt:   time.Now().UTC(),
	}, nil
}
