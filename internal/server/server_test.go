package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cwbudde/learningcurves/internal/palette"
	"github.com/cwbudde/learningcurves/internal/plot"
	"github.com/cwbudde/learningcurves/internal/runs"
	"github.com/cwbudde/learningcurves/internal/trace"
)

func testArtifacts(t *testing.T, withLoss bool) *plot.Artifacts {
	t.Helper()
	rec := trace.NewRecorder(1)
	for i := 1; i <= 5; i++ {
		var opts []trace.MeasureOption
		if withLoss {
			opts = append(opts, trace.WithLoss(float64(50-i)))
		}
		rec.Record(i, float64(100-10*i), opts...)
	}
	set := runs.RunSet{{Trace: rec.Trace(), Label: "a "}}
	set.Colorize(palette.Named())

	arts, err := plot.Render(set, runs.Reference{}, plot.Options{ShowLoss: withLoss, Width: 400, Height: 300})
	if err != nil {
		t.Fatalf("Failed to render: %v", err)
	}
	return arts
}

func TestServer_Index(t *testing.T) {
	s, err := New("127.0.0.1:0", testArtifacts(t, true))
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"/charts/objective.svg", "/charts/loss.svg", "Training Error"} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected index to contain %q", want)
		}
	}
}

func TestServer_Charts(t *testing.T) {
	s, err := New("127.0.0.1:0", testArtifacts(t, false))
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	h := s.Handler()

	tests := []struct {
		path        string
		status      int
		contentType string
	}{
		{"/charts/objective.svg", http.StatusOK, "image/svg+xml"},
		{"/charts/objective.png", http.StatusOK, "image/png"},
		{"/charts/loss.svg", http.StatusNotFound, ""},
		{"/charts/objective.pdf", http.StatusNotFound, ""},
		{"/charts/objective", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code != tt.status {
			t.Errorf("%s: expected status %d, got %d", tt.path, tt.status, w.Code)
			continue
		}
		if tt.contentType != "" {
			if got := w.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("%s: expected content type %s, got %s", tt.path, tt.contentType, got)
			}
			if w.Body.Len() == 0 {
				t.Errorf("%s: expected non-empty body", tt.path)
			}
		}
	}
}
