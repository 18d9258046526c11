package gradersvc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/grading"
)

const (
	imagesEndpoint = "/bulk-grade-images"
	pdfsEndpoint   = "/bulk-grade-pdfs"
)

type (
	// bulkGradePayload is the grading service wire format. Files travel
	// base64-encoded; the rubric and max points are attached once per batch.
	bulkGradePayload struct {
		ImageFiles      []string `json:"image_files,omitempty"`
		PDFFiles        []string `json:"pdf_files,omitempty"`
		AssignmentTitle string   `json:"assignment_title"`
		MaxPoints       int      `json:"max_points"`
		GradingRubric   string   `json:"grading_rubric"`
		StudentNames    []string `json:"student_names"`

		// CorrelationTokens is ignored by the positional wire format; newer
		// service revisions echo them back per result.
		CorrelationTokens []string `json:"correlation_tokens,omitempty"`
	}

	httpService struct {
		baseURL      string
		imageTimeout time.Duration
		pdfTimeout   time.Duration
		client       *http.Client
		logger       core.Logger
	}
)

var _ grading.Grader = (*httpService)(nil)

func NewHTTPService(conf *core.Config, logger core.Logger) *httpService {
	return &httpService{
		baseURL:      conf.Grading.GraderURL,
		imageTimeout: conf.Grading.ImageTimeout,
		pdfTimeout:   conf.Grading.PDFTimeout,
		client:       &http.Client{},
		logger:       logger,
	}
}

func (svc *httpService) GradeImages(ctx context.Context, req grading.BatchRequest) ([]grading.RawResult, error) {
	payload := newPayload(req)
	payload.ImageFiles = encodeFiles(req.Files)
	return svc.post(ctx, imagesEndpoint, payload, svc.imageTimeout)
}

func (svc *httpService) GradePDFs(ctx context.Context, req grading.BatchRequest) ([]grading.RawResult, error) {
	payload := newPayload(req)
	payload.PDFFiles = encodeFiles(req.Files)
	// PDFs take noticeably longer to process than images
	return svc.post(ctx, pdfsEndpoint, payload, svc.pdfTimeout)
}

func newPayload(req grading.BatchRequest) bulkGradePayload {
	return bulkGradePayload{
		AssignmentTitle:   req.AssignmentTitle,
		MaxPoints:         req.MaxPoints,
		GradingRubric:     req.Rubric,
		StudentNames:      req.StudentNames,
		CorrelationTokens: encodeTokens(req.Tokens),
	}
}

func encodeFiles(files [][]byte) []string {
	encoded := make([]string, 0, len(files))
	for _, f := range files {
		encoded = append(encoded, base64.StdEncoding.EncodeToString(f))
	}
	return encoded
}

func encodeTokens(tokens []uuid.UUID) []string {
	encoded := make([]string, 0, len(tokens))
	for _, t := range tokens {
		encoded = append(encoded, t.String())
	}
	return encoded
}

func (svc *httpService) post(ctx context.Context, endpoint string, payload bulkGradePayload, timeout time.Duration) ([]grading.RawResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encoding grading request")
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "building grading request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := svc.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "calling grading service %s", endpoint)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading grading response")
	}

	// all-or-nothing: no partial results are extractable from a failed call
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		svc.logger.Error(fmt.Sprintf("grading service %s - status: %d - body: %s", endpoint, resp.StatusCode, truncate(respBody, 512)))
		return nil, &grading.AIServiceError{Endpoint: endpoint, Status: resp.StatusCode, Body: truncate(respBody, 512)}
	}

	var results []grading.RawResult
	if err = json.Unmarshal(respBody, &results); err != nil {
		return nil, errors.Wrap(err, "decoding grading response")
	}
	return results, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
