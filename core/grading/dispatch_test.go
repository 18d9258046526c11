package grading

import (
	"testing"

	"github.com/google/uuid"
)

func Test_partitionEntries(t *testing.T) {
	img := func(i int) BatchEntry {
		return BatchEntry{Index: i, Student: Student{ID: i + 1}, Document: Document{ContentType: "image/jpeg"}, Token: uuid.New()}
	}
	pdf := func(i int) BatchEntry {
		return BatchEntry{Index: i, Student: Student{ID: i + 1}, Document: Document{ContentType: "application/pdf"}, Token: uuid.New()}
	}

	entries := []BatchEntry{img(0), pdf(1), img(2), pdf(3), img(4)}
	images, pdfs := partitionEntries(entries)

	if len(images) != 3 || len(pdfs) != 2 {
		t.Fatalf("partitionEntries() = %d images, %d pdfs; want 3, 2", len(images), len(pdfs))
	}
	// relative order and the global index survive the split
	for i, want := range []int{0, 2, 4} {
		if images[i].Index != want {
			t.Errorf("images[%d].Index = %d, want %d", i, images[i].Index, want)
		}
	}
	for i, want := range []int{1, 3} {
		if pdfs[i].Index != want {
			t.Errorf("pdfs[%d].Index = %d, want %d", i, pdfs[i].Index, want)
		}
	}
}

func Test_partitionEntries_unknownContentTypeGoesToImages(t *testing.T) {
	entries := []BatchEntry{
		{Index: 0, Document: Document{ContentType: "application/octet-stream"}},
	}
	images, pdfs := partitionEntries(entries)
	if len(images) != 1 || len(pdfs) != 0 {
		t.Errorf("partitionEntries() = %d images, %d pdfs; want 1, 0", len(images), len(pdfs))
	}
}

func Test_newBatchRequest(t *testing.T) {
	asg := Assignment{ID: 1, Title: "Algebra II", MaxPoints: 100, Rubric: "Show your working."}
	entries := []BatchEntry{
		{Index: 0, Student: Student{ID: 1, Name: "Amani"}, Document: Document{Bytes: []byte("a")}, Token: uuid.New()},
		{Index: 1, Student: Student{ID: 2, Name: "Baraka"}, Document: Document{Bytes: []byte("b")}, Token: uuid.New()},
	}

	req := newBatchRequest(asg, entries)

	// the rubric and scale ride once per batch, not per student
	if req.AssignmentTitle != asg.Title || req.MaxPoints != asg.MaxPoints || req.Rubric != asg.Rubric {
		t.Errorf("newBatchRequest() header = %+v", req)
	}
	if len(req.Files) != 2 || len(req.StudentNames) != 2 || len(req.Tokens) != 2 {
		t.Fatalf("newBatchRequest() slices = %d files, %d names, %d tokens; want 2 each",
			len(req.Files), len(req.StudentNames), len(req.Tokens))
	}
	for i, e := range entries {
		if string(req.Files[i]) != string(e.Document.Bytes) {
			t.Errorf("Files[%d] = %q, want %q", i, req.Files[i], e.Document.Bytes)
		}
		if req.StudentNames[i] != e.Student.Name {
			t.Errorf("StudentNames[%d] = %q, want %q", i, req.StudentNames[i], e.Student.Name)
		}
		if req.Tokens[i] != e.Token {
			t.Errorf("Tokens[%d] = %v, want %v", i, req.Tokens[i], e.Token)
		}
	}
}

func TestRawResult_Points(t *testing.T) {
	tests := []struct {
		name   string
		res    RawResult
		want   float64
		wantOk bool
	}{
		{name: "score", res: RawResult{Score: fptr(85)}, want: 85, wantOk: true},
		{name: "grade fallback", res: RawResult{Grade: fptr(60)}, want: 60, wantOk: true},
		{name: "score wins over grade", res: RawResult{Score: fptr(85), Grade: fptr(60)}, want: 85, wantOk: true},
		{name: "zero score is a score", res: RawResult{Score: fptr(0)}, want: 0, wantOk: true},
		{name: "missing", res: RawResult{Feedback: "lost"}, wantOk: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.res.Points()
			if got != tt.want || ok != tt.wantOk {
				t.Errorf("Points() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOk)
			}
		})
	}
}
