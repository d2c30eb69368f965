package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/manifoldco/promptui"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/fitcheck/internal/evaluator"
	"github.com/spigell/fitcheck/internal/report"
)

type fakeBackend struct {
	result   *evaluator.Result
	err      error
	pingErr  error
	requests []evaluator.Request
}

func (f *fakeBackend) Evaluate(_ context.Context, req evaluator.Request) (*evaluator.Result, error) {
	f.requests = append(f.requests, req)
	return f.result, f.err
}

func (f *fakeBackend) Ping(context.Context) error { return f.pingErr }

func (f *fakeBackend) Endpoint() string { return "http://backend/evaluate" }

// scripted answers menu prompts in order and records the menus it was shown.
type scripted struct {
	answers []string
	menus   [][]string
}

func (s *scripted) choose(_ string, items []string) (string, error) {
	s.menus = append(s.menus, items)
	if len(s.answers) == 0 {
		return "", promptui.ErrEOF
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

func newTestSession(stdin string, client backend, ex textExtractor, answers ...string) (*session, *scripted, *bytes.Buffer, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	script := &scripted{answers: answers}
	out := &bytes.Buffer{}

	return &session{
		in:        strings.NewReader(stdin),
		out:       out,
		logger:    zap.New(core),
		options:   report.Options{Format: report.FormatText},
		client:    client,
		extractor: ex,
		choose:    script.choose,
		askPath:   func() (string, error) { return "", errors.New("no path") },
	}, script, out, logs
}

func TestInteractiveEvaluateAndShowRaw(t *testing.T) {
	score := 0.5
	client := &fakeBackend{result: &evaluator.Result{FitScore: &score, Raw: map[string]any{"fit_score": 0.5}}}

	s, script, out, _ := newTestSession("my resume\n.\nthe job\n.\n", client, &fakeExtractor{},
		PromptEvaluate, PromptPaste, PromptShowRaw, PromptExit)

	if err := runInteractive(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(client.requests) != 1 {
		t.Fatalf("expected one evaluation, got %d", len(client.requests))
	}
	req := client.requests[0]
	if req.ResumeText != "my resume\n" || req.JobDescription != "the job\n" {
		t.Fatalf("unexpected request: %+v", req)
	}

	if !strings.Contains(out.String(), "Fit Score: 50.0%") {
		t.Fatalf("expected report in output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), `"fit_score": 0.5`) {
		t.Fatalf("expected raw response in output:\n%s", out.String())
	}

	// main menu, resume source, then the menu shown after a result twice
	if len(script.menus) != 4 {
		t.Fatalf("expected 4 menus, got %d", len(script.menus))
	}
	if script.menus[2][0] != PromptEvaluateAgain {
		t.Fatalf("expected follow-up menu after a result, got %v", script.menus[2])
	}
}

func TestInteractiveErrorsDoNotEndTheLoop(t *testing.T) {
	client := &fakeBackend{err: &evaluator.BackendError{StatusCode: 500, Status: "500 Internal Server Error"}}

	s, _, _, logs := newTestSession("resume\n.\njob\n.\n", client, &fakeExtractor{},
		PromptEvaluate, PromptPaste, PromptExit)

	if err := runInteractive(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if logs.FilterMessage("Backend returned HTTP 500.").Len() != 1 {
		t.Fatalf("expected the backend error to be logged, got %v", logs.All())
	}
	if logs.FilterMessage("exiting").Len() != 1 {
		t.Fatal("expected the loop to continue until exit")
	}
	if s.last != nil {
		t.Fatal("a failed evaluation must not replace the last result")
	}
}

func TestInteractiveUploadFallsBackToPaste(t *testing.T) {
	client := &fakeBackend{result: &evaluator.Result{}}
	ex := &fakeExtractor{err: errors.New("no text")}

	s, _, _, logs := newTestSession("pasted\n.\njob\n.\n", client, ex, PromptEvaluate, PromptUpload, PromptExit)
	s.askPath = func() (string, error) { return writeFile(t, "scan.pdf", "%PDF-1.4"), nil }

	if err := runInteractive(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(client.requests) != 1 || client.requests[0].ResumeText != "pasted\n" {
		t.Fatalf("expected pasted resume, got %+v", client.requests)
	}
	if logs.FilterMessageSnippet("Could not read scan.pdf").Len() != 1 {
		t.Fatal("expected an unreadable file warning")
	}
}

func TestInteractiveUpload(t *testing.T) {
	client := &fakeBackend{result: &evaluator.Result{}}
	ex := &fakeExtractor{text: "extracted resume"}

	s, _, out, _ := newTestSession("job\n.\n", client, ex, PromptEvaluate, PromptUpload, PromptUseExtracted, PromptExit)
	s.askPath = func() (string, error) { return writeFile(t, "cv.docx", "PK"), nil }

	if err := runInteractive(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(client.requests) != 1 || client.requests[0].ResumeText != "extracted resume" {
		t.Fatalf("expected extracted resume, got %+v", client.requests)
	}
	if !strings.Contains(out.String(), "Extracted resume text:\nextracted resume\n") {
		t.Fatalf("expected the extracted text to be shown:\n%s", out.String())
	}
}

func TestInteractiveUploadEdit(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		want  string
	}{
		{name: "corrected", stdin: "fixed resume\n.\njob\n.\n", want: "fixed resume\n"},
		{name: "blank keeps extracted", stdin: " \n.\njob\n.\n", want: "extracted resume"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeBackend{result: &evaluator.Result{}}
			ex := &fakeExtractor{text: "extracted resume"}

			s, _, _, _ := newTestSession(tt.stdin, client, ex, PromptEvaluate, PromptUpload, PromptEditExtracted, PromptExit)
			s.askPath = func() (string, error) { return writeFile(t, "cv.pdf", "%PDF-1.4"), nil }

			if err := runInteractive(context.Background(), s); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(client.requests) != 1 || client.requests[0].ResumeText != tt.want {
				t.Fatalf("expected resume %q, got %+v", tt.want, client.requests)
			}
		})
	}
}

func TestInteractivePing(t *testing.T) {
	s, _, out, logs := newTestSession("", &fakeBackend{}, &fakeExtractor{}, PromptPing)

	if err := runInteractive(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Backend is up") {
		t.Fatalf("unexpected output: %q", out.String())
	}

	down, _, out, logs := newTestSession("", &fakeBackend{pingErr: &evaluator.TransportError{Err: errors.New("refused")}}, &fakeExtractor{}, PromptPing)
	if err := runInteractive(context.Background(), down); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Backend is down.") {
		t.Fatalf("unexpected output: %q", out.String())
	}
	if logs.FilterMessage("Backend not reachable.").Len() != 1 {
		t.Fatal("expected the ping failure to be logged")
	}
}

func TestHandleActionUnknown(t *testing.T) {
	s, _, _, _ := newTestSession("", &fakeBackend{}, &fakeExtractor{})

	if err := s.handleAction(context.Background(), "Dance"); err == nil {
		t.Fatal("expected error for unknown action")
	}
	if err := s.handleAction(context.Background(), PromptShowRaw); err == nil {
		t.Fatal("expected error when nothing was evaluated")
	}
}
