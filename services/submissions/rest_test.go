package subsvc

import (
	"context"
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

func newTestStore(srv *httptest.Server) *restStore {
	conf := &core.Config{}
	conf.Grading.SubmissionsURL = srv.URL
	return NewRestStore(conf, nopLogger{})
}

func TestRestStore_LatestSubmission(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assignment/1/student/2/pdf" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 lorem"))
	}))
	defer srv.Close()

	sub, err := newTestStore(srv).LatestSubmission(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("LatestSubmission() error = %v", err)
	}
	doc, ok := sub.LatestDocument()
	if !ok {
		t.Fatal("LatestSubmission() returned no documents")
	}
	if !doc.IsPDF() || string(doc.Bytes) != "%PDF-1.4 lorem" {
		t.Errorf("document = %q (%s)", doc.Bytes, doc.ContentType)
	}
}

func TestRestStore_LatestSubmission_detectsContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000000000")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil // suppress auto-detection by the server
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	sub, err := newTestStore(srv).LatestSubmission(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("LatestSubmission() error = %v", err)
	}
	doc, _ := sub.LatestDocument()
	if !doc.IsImage() {
		t.Errorf("ContentType = %q, want an image type", doc.ContentType)
	}
}

func TestRestStore_LatestSubmission_notFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestStore(srv).LatestSubmission(context.Background(), 1, 2)
	if err != grading.ErrSubmissionNotFound {
		t.Errorf("LatestSubmission() error = %v, want %v", err, grading.ErrSubmissionNotFound)
	}
}

func TestRestStore_LatestSubmission_serverErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestStore(srv).LatestSubmission(context.Background(), 1, 2)
	if !grading.IsTransient(err) {
		t.Errorf("IsTransient(%v) = false, want true", err)
	}
}
