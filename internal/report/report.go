// Package report prints evaluation results for a terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spigell/fitcheck/internal/evaluator"
)

const (
	FormatText = "text"
	FormatJSON = "json"

	DefaultWrap = 90
	bullet      = "•"
)

// Options controls how a result is printed.
type Options struct {
	Format string
	// Wrap is the column learning path steps are wrapped at. Zero disables wrapping.
	Wrap int
	// Raw appends the undecoded backend payload.
	Raw bool
}

// Write renders result to w.
func Write(w io.Writer, result *evaluator.Result, opts Options) error {
	if result == nil {
		return fmt.Errorf("result is required")
	}

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", FormatText:
		return writeText(w, result, opts)
	case FormatJSON:
		return writeJSON(w, result, opts)
	default:
		return fmt.Errorf("unknown output format: %s", opts.Format)
	}
}

func writeText(w io.Writer, result *evaluator.Result, opts Options) error {
	var b strings.Builder

	b.WriteString("Analysis complete!\n")

	if score, ok := result.FitScorePercent(); ok {
		fmt.Fprintf(&b, "\nFit Score: %s\n", score)
	}

	if result.Verdict != "" {
		fmt.Fprintf(&b, "Verdict: %s\n", result.Verdict)
	}

	if len(result.MatchedSkills) > 0 {
		fmt.Fprintf(&b, "\nMatched Skills\n%s\n", strings.Join(result.MatchedSkills, ", "))
	}

	if len(result.MissingSkills) > 0 {
		fmt.Fprintf(&b, "\nMissing / Weak Skills\n%s\n", strings.Join(result.MissingSkills, ", "))
	}

	if len(result.LearningPath) > 0 {
		b.WriteString("\nRecommended Learning Path\n")
		for idx, item := range result.LearningPath {
			fmt.Fprintf(&b, "%d. %s\n", idx+1, item.Skill)
			for _, step := range item.Steps {
				prefix := "   " + bullet + " "
				b.WriteString(indent(wrap(step, opts.Wrap), prefix, strings.Repeat(" ", len([]rune(prefix)))))
				b.WriteString("\n")
			}
		}
	}

	if opts.Raw {
		raw, err := json.MarshalIndent(result.Raw, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal raw response: %w", err)
		}
		fmt.Fprintf(&b, "\nRaw backend response\n%s\n", raw)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

type jsonReport struct {
	*evaluator.Result
	FitScoreDisplay string         `json:"fit_score_display,omitempty"`
	Raw             map[string]any `json:"raw,omitempty"`
}

func writeJSON(w io.Writer, result *evaluator.Result, opts Options) error {
	out := jsonReport{Result: result}
	out.FitScoreDisplay, _ = result.FitScorePercent()
	if opts.Raw {
		out.Raw = result.Raw
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// wrap breaks text into lines of at most width runes on word boundaries.
// Words longer than width are kept whole.
func wrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if width <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var (
		lines   []string
		current strings.Builder
		length  int
	)
	for _, word := range words {
		wordLen := len([]rune(word))
		if length > 0 && length+1+wordLen > width {
			lines = append(lines, current.String())
			current.Reset()
			length = 0
		}
		if length > 0 {
			current.WriteByte(' ')
			length++
		}
		current.WriteString(word)
		length += wordLen
	}
	return append(lines, current.String())
}

func indent(lines []string, first, rest string) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteString("\n")
			b.WriteString(rest)
		} else {
			b.WriteString(first)
		}
		b.WriteString(line)
	}
	return b.String()
}
