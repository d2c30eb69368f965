package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/fitcheck/internal/evaluator"
	"github.com/spigell/fitcheck/internal/extractor"
	"github.com/spigell/fitcheck/internal/report"
	"github.com/spigell/fitcheck/internal/utils"
)

const (
	PromptEvaluate      = "Evaluate"
	PromptEvaluateAgain = "Evaluate again"
	PromptPing          = "Ping backend"
	PromptShowRaw       = "Show raw response"
	PromptExit          = "Exit"
	PromptPaste         = "Paste text"
	PromptUpload        = "Upload PDF / DOCX"
	PromptUseExtracted  = "Use extracted text"
	PromptEditExtracted = "Edit extracted text"
)

type backend interface {
	Evaluate(ctx context.Context, req evaluator.Request) (*evaluator.Result, error)
	Ping(ctx context.Context) error
	Endpoint() string
}

// session holds what the interactive loop needs between actions.
type session struct {
	in        io.Reader
	out       io.Writer
	logger    *zap.Logger
	options   report.Options
	client    backend
	extractor textExtractor

	// last is the most recent successful result.
	last *evaluator.Result

	choose  func(label string, items []string) (string, error)
	askPath func() (string, error)
}

func newSession(cmd *cobra.Command, config *Config, logger *zap.Logger, client backend, ex textExtractor) *session {
	return &session{
		in:        cmd.InOrStdin(),
		out:       cmd.OutOrStdout(),
		logger:    logger,
		options:   reportOptions(config),
		client:    client,
		extractor: ex,
		choose:    choose,
		askPath:   askPath,
	}
}

func choose(label string, items []string) (string, error) {
	prompt := promptui.Select{
		Label: label,
		Items: items,
	}

	_, selected, err := prompt.Run()
	return selected, err
}

func askPath() (string, error) {
	prompt := promptui.Prompt{
		Label: "Path to the resume",
		Validate: func(input string) error {
			path := strings.TrimSpace(input)
			if err := extractor.Accepts(filepath.Base(path)); err != nil {
				return errors.New("only .pdf and .docx files are supported")
			}
			if _, err := os.Stat(path); err != nil {
				return errors.New("file not found")
			}
			return nil
		},
	}

	path, err := prompt.Run()
	return strings.TrimSpace(path), err
}

// menu lists the actions available in the current state.
func (s *session) menu() []string {
	if s.last == nil {
		return []string{PromptEvaluate, PromptPing, PromptExit}
	}
	return []string{PromptEvaluateAgain, PromptShowRaw, PromptPing, PromptExit}
}

// runInteractive loops over the menu until the user exits. Failed actions
// are reported and the loop continues.
func runInteractive(ctx context.Context, s *session) error {
	for {
		action, err := s.choose("What next?", s.menu())
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return nil
			}
			return err
		}

		if err := s.handleAction(ctx, action); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			if errors.Is(err, promptui.ErrInterrupt) {
				continue
			}

			msg, fields := describeError(err)
			s.logger.Error(msg, fields...)
		}
	}
}

func (s *session) handleAction(ctx context.Context, action string) error {
	switch action {
	case PromptEvaluate, PromptEvaluateAgain:
		return s.evaluate(ctx)
	case PromptPing:
		return s.ping(ctx)
	case PromptShowRaw:
		if s.last == nil {
			return errors.New("nothing evaluated yet")
		}
		pretty, _ := json.MarshalIndent(s.last.Raw, "", "  ")
		fmt.Fprintln(s.out, string(pretty))
		return nil
	case PromptExit:
		s.logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func (s *session) evaluate(ctx context.Context) error {
	resume, err := s.resume(ctx)
	if err != nil {
		return err
	}

	job, err := readMultiline(s.in, s.out, "Job description")
	if err != nil {
		return err
	}

	result, err := s.client.Evaluate(ctx, evaluator.Request{ResumeText: resume, JobDescription: job})
	if err != nil {
		return err
	}

	s.last = result
	return report.Write(s.out, result, report.Options{Format: s.options.Format, Wrap: s.options.Wrap})
}

// resume asks where the resume comes from. Extracted text is shown and can be
// replaced before it is sent. An unreadable upload falls back to pasting.
func (s *session) resume(ctx context.Context) (string, error) {
	source, err := s.choose("Resume source", []string{PromptPaste, PromptUpload})
	if err != nil {
		return "", err
	}

	if source == PromptUpload {
		path, err := s.askPath()
		if err != nil {
			return "", err
		}

		result, err := readFileText(ctx, s.extractor, path)
		if err == nil {
			s.logger.Info("resume text extracted",
				zap.String("filename", filepath.Base(path)),
				zap.String("strategy", result.Strategy),
			)
			return s.review(result.Text)
		}

		s.logger.Warn(unreadableMessage(filepath.Base(path)), zap.Error(err))
	}

	return readMultiline(s.in, s.out, "Resume")
}

// review prints extracted text and lets the user paste a corrected version.
// A blank correction keeps the extracted text.
func (s *session) review(text string) (string, error) {
	fmt.Fprintf(s.out, "Extracted resume text:\n%s\n\n", text)

	action, err := s.choose("Resume text", []string{PromptUseExtracted, PromptEditExtracted})
	if err != nil {
		return "", err
	}
	if action != PromptEditExtracted {
		return text, nil
	}

	edited, err := readMultiline(s.in, s.out, "Corrected resume")
	if err != nil {
		return "", err
	}
	if utils.IsBlank(edited) {
		return text, nil
	}
	return edited, nil
}

func (s *session) ping(ctx context.Context) error {
	if err := s.client.Ping(ctx); err != nil {
		fmt.Fprintln(s.out, "Backend is down.")
		return err
	}
	fmt.Fprintf(s.out, "Backend is up, evaluations go to %s\n", s.client.Endpoint())
	return nil
}
