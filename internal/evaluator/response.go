package evaluator

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// DefaultLearningPathFields are the keys deployments have been seen to use.
var DefaultLearningPathFields = []string{
	"recommended_learning_path",
	"learning_path",
	"recommended_learning_track",
}

// Result is the canonical, display-ready shape of an evaluation answer.
// Every field is optional.
type Result struct {
	FitScore      *float64       `json:"fit_score,omitempty"`
	Verdict       string         `json:"verdict,omitempty"`
	MatchedSkills []string       `json:"matched_skills,omitempty"`
	MissingSkills []string       `json:"missing_skills,omitempty"`
	LearningPath  []LearningItem `json:"learning_path,omitempty"`
	// LearningPathField is the response key the learning path was read from.
	LearningPathField string `json:"-"`

	Raw map[string]any `json:"-"`

	// scoreIsPercent is set when the backend sent the score as "NN%".
	scoreIsPercent bool
}

// LearningItem is one learning path entry. A plain instruction from the
// backend becomes an item with a Skill and no Steps.
type LearningItem struct {
	Skill string   `json:"skill" mapstructure:"skill"`
	Steps []string `json:"steps,omitempty" mapstructure:"steps"`
}

// FitScorePercent formats the score for display. Numeric scores in [0, 1]
// are fractions; larger ones and "NN%" strings are already a percentage.
func (r *Result) FitScorePercent() (string, bool) {
	if r == nil || r.FitScore == nil {
		return "", false
	}
	if r.scoreIsPercent {
		return formatPercent(*r.FitScore), true
	}
	return FormatFitScore(*r.FitScore), true
}

func FormatFitScore(score float64) string {
	if score <= 1 {
		score *= 100
	}
	return formatPercent(score)
}

func formatPercent(score float64) string {
	return fmt.Sprintf("%.1f%%", score)
}

func normalize(raw map[string]any, learningPathFields []string) *Result {
	result := &Result{Raw: raw}

	if score := coerceFloat(raw["fit_score"]); !math.IsNaN(score) {
		result.FitScore = &score
		result.scoreIsPercent = isPercentString(raw["fit_score"])
	}

	result.Verdict = coerceString(raw["verdict"])
	result.MatchedSkills = stringList(raw["matched_skills"])
	result.MissingSkills = stringList(raw["missing_skills"])

	for _, field := range learningPathFields {
		value, ok := raw[field]
		if !ok || value == nil {
			continue
		}
		result.LearningPath = learningItems(value)
		result.LearningPathField = field
		break
	}

	return result
}

func learningItems(value any) []LearningItem {
	switch typed := value.(type) {
	case string:
		if text := strings.TrimSpace(typed); text != "" {
			return []LearningItem{{Skill: text}}
		}
		return nil
	case []any:
		items := make([]LearningItem, 0, len(typed))
		for _, entry := range typed {
			if item, ok := learningItem(entry); ok {
				items = append(items, item)
			}
		}
		return items
	case map[string]any:
		if hasAnyKey(typed, "skill", "steps", "title", "name", "topic") {
			if item, ok := learningItem(typed); ok {
				return []LearningItem{item}
			}
			return nil
		}
		// {"Docker": ["step", ...], "Kubernetes": [...]}
		skills := make([]string, 0, len(typed))
		for skill := range typed {
			skills = append(skills, skill)
		}
		sort.Strings(skills)

		items := make([]LearningItem, 0, len(skills))
		for _, skill := range skills {
			name := strings.TrimSpace(skill)
			if name == "" {
				continue
			}
			items = append(items, LearningItem{Skill: name, Steps: stringList(typed[skill])})
		}
		return items
	default:
		if text := coerceString(value); text != "" {
			return []LearningItem{{Skill: text}}
		}
		return nil
	}
}

func learningItem(entry any) (LearningItem, bool) {
	switch typed := entry.(type) {
	case string:
		text := strings.TrimSpace(typed)
		return LearningItem{Skill: text}, text != ""
	case map[string]any:
		var item LearningItem
		if err := decodeWeak(typed, &item); err != nil {
			item = LearningItem{
				Skill: coerceString(typed["skill"]),
				Steps: stringList(typed["steps"]),
			}
		}
		if item.Skill == "" {
			item.Skill = firstString(typed, "title", "name", "topic")
		}
		item.Skill = strings.TrimSpace(item.Skill)
		item.Steps = compact(item.Steps)
		return item, item.Skill != "" || len(item.Steps) > 0
	default:
		text := coerceString(entry)
		return LearningItem{Skill: text}, text != ""
	}
}

// stringList accepts a list of scalars, a single string, or a list that
// mixes in objects, and always returns trimmed non-empty strings.
func stringList(value any) []string {
	if value == nil {
		return nil
	}

	var list []string
	if err := decodeWeak(value, &list); err == nil {
		return compact(list)
	}

	entries, ok := value.([]any)
	if !ok {
		return compact([]string{coerceString(value)})
	}

	list = make([]string, 0, len(entries))
	for _, entry := range entries {
		if m, ok := entry.(map[string]any); ok {
			list = append(list, firstString(m, "skill", "name", "title"))
			continue
		}
		list = append(list, coerceString(entry))
	}
	return compact(list)
}

func decodeWeak(input, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

func hasAnyKey(m map[string]any, keys ...string) bool {
	for _, key := range keys {
		if _, ok := m[key]; ok {
			return true
		}
	}
	return false
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := coerceString(m[key]); s != "" {
			return s
		}
	}
	return ""
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func isPercentString(v any) bool {
	s, ok := v.(string)
	return ok && strings.HasSuffix(strings.TrimSpace(s), "%")
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
