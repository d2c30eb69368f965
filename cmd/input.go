package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/fitcheck/internal/evaluator"
	"github.com/spigell/fitcheck/internal/extractor"
)

type textExtractor interface {
	Extract(ctx context.Context, doc *extractor.Document) (*extractor.Result, error)
}

// inputs are the raw sources given on the command line.
type inputs struct {
	ResumeFile  string
	ResumeText  string
	ResumeStdin bool
	JobFile     string
	JobText     string
	JobStdin    bool
}

var errBothStdin = errors.New("only one of --resume-stdin and --job-stdin can be used")

// unreadableMessage is shown when a resume upload yields no text.
func unreadableMessage(name string) string {
	return fmt.Sprintf("Could not read %s - the file might be malformed or not a real PDF/DOCX. "+
		"Please paste the text manually or upload a clean file.", name)
}

// readFileText extracts the text of a PDF or DOCX file.
func readFileText(ctx context.Context, ex textExtractor, path string) (*extractor.Result, error) {
	name := filepath.Base(path)
	if err := extractor.Accepts(name); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	doc, err := extractor.ReadDocument(f, name)
	if err != nil {
		return nil, err
	}

	return ex.Extract(ctx, doc)
}

// buildRequest turns the command line sources into an evaluation request.
// A resume file that cannot be read is reported with a warning and the
// --resume-text value is used instead.
func buildRequest(ctx context.Context, ex textExtractor, in inputs, stdin io.Reader, logger *zap.Logger) (evaluator.Request, error) {
	var req evaluator.Request

	if in.ResumeStdin && in.JobStdin {
		return req, errBothStdin
	}

	resume, err := resumeText(ctx, ex, in, stdin, logger)
	if err != nil {
		return req, err
	}

	job, err := jobText(ctx, ex, in, stdin)
	if err != nil {
		return req, err
	}

	req.ResumeText = resume
	req.JobDescription = job

	return req, nil
}

func resumeText(ctx context.Context, ex textExtractor, in inputs, stdin io.Reader, logger *zap.Logger) (string, error) {
	if in.ResumeStdin {
		return readAll(stdin)
	}

	if in.ResumeFile == "" {
		return in.ResumeText, nil
	}

	result, err := readFileText(ctx, ex, in.ResumeFile)
	if err != nil {
		fields := []zap.Field{zap.Error(err)}
		var failure *extractor.Failure
		if errors.As(err, &failure) {
			fields = append(fields, zap.Int("attempts", len(failure.Attempts)))
		}
		logger.Warn(unreadableMessage(filepath.Base(in.ResumeFile)), fields...)
		return in.ResumeText, nil
	}

	logger.Info("resume text extracted",
		zap.String("filename", filepath.Base(in.ResumeFile)),
		zap.String("strategy", result.Strategy),
	)
	return result.Text, nil
}

// jobText reads the job description. Job files may be PDF, DOCX or plain text.
func jobText(ctx context.Context, ex textExtractor, in inputs, stdin io.Reader) (string, error) {
	switch {
	case in.JobStdin:
		return readAll(stdin)
	case in.JobFile == "":
		return in.JobText, nil
	case extractor.FormatFromName(in.JobFile) != extractor.FormatUnknown:
		result, err := readFileText(ctx, ex, in.JobFile)
		if err != nil {
			return "", err
		}
		return result.Text, nil
	default:
		data, err := os.ReadFile(in.JobFile)
		if err != nil {
			return "", fmt.Errorf("reading job description: %w", err)
		}
		return string(data), nil
	}
}

func readAll(r io.Reader) (string, error) {
	if r == nil {
		return "", nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

// describeError maps an evaluation failure to a message for the user.
func describeError(err error) (string, []zap.Field) {
	var (
		validation *evaluator.ValidationError
		transport  *evaluator.TransportError
		backend    *evaluator.BackendError
		malformed  *evaluator.MalformedResponseError
	)

	switch {
	case errors.As(err, &validation):
		return "Please provide both resume and job-description text.",
			[]zap.Field{zap.Strings("missing", validation.Fields)}
	case errors.As(err, &transport):
		fields := []zap.Field{zap.String("url", transport.URL), zap.Error(transport.Err)}
		if transport.Timeout() {
			fields = append(fields, zap.String("hint", "the backend may be waking up, try again in a minute"))
		}
		return "Backend not reachable.", fields
	case errors.As(err, &backend):
		return fmt.Sprintf("Backend returned HTTP %d.", backend.StatusCode),
			[]zap.Field{zap.String("status", backend.Status), zap.String("body", backend.Body)}
	case errors.Is(err, evaluator.ErrResponseTooLarge):
		return "Backend answer is too large to be an evaluation.", []zap.Field{zap.Error(err)}
	case errors.As(err, &malformed):
		return "Backend answered with something that is not a JSON object.",
			[]zap.Field{zap.String("body", malformed.Body), zap.Error(malformed.Err)}
	default:
		return "Evaluation failed.", []zap.Field{zap.Error(err)}
	}
}

// readMultiline collects lines from r until a line holding only "." or EOF.
// It reads a byte at a time so nothing past the terminator is consumed,
// the interactive menus read the same stdin afterwards.
func readMultiline(r io.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprintf(w, "%s (finish with a line containing a single \".\"):\n", label)

	var (
		b    strings.Builder
		line []byte
		buf  = make([]byte, 1)
	)

	flush := func() bool {
		text := strings.TrimRight(string(line), "\r")
		line = line[:0]
		if strings.TrimSpace(text) == "." {
			return true
		}
		b.WriteString(text)
		b.WriteByte('\n')
		return false
	}

	for {
		n, err := r.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				if flush() {
					return b.String(), nil
				}
			} else {
				line = append(line, buf[0])
			}
		}
		if errors.Is(err, io.EOF) {
			if len(line) > 0 {
				flush()
			}
			return b.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
		}
	}
}
