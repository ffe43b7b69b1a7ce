package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/curalink/backend/internal/models"
)

const (
	summaryFallbackWords = 40
	maxBiographyRunes    = 500
	expertInfoMaxTokens  = 500
)

// conditionKeywords drive condition extraction when the model is unavailable.
var conditionKeywords = []string{"cancer", "pain", "disease", "syndrome", "infection"}

// Summarize returns a short summary of medical text. Without a model, or when
// the call fails, it returns the first 40 words followed by an ellipsis.
func (c *Client) Summarize(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if !c.Enabled() {
		return FallbackSummary(text)
	}

	prompt := "Summarize the following medical content in 3-4 sentences, focusing on key findings and relevance: " + text
	summary, err := c.Complete(ctx, prompt, 0)
	if err != nil {
		c.log.Warn("summary failed, using fallback", zap.Error(err))
		return FallbackSummary(text)
	}
	return strings.TrimSpace(summary)
}

// ExtractConditions lists the medical conditions named in a free-text
// description.
func (c *Client) ExtractConditions(ctx context.Context, text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	if !c.Enabled() {
		return FallbackConditions(text)
	}

	prompt := fmt.Sprintf("Extract specific medical conditions/diseases from this patient description. "+
		"Return ONLY a comma-separated list of condition names, no explanations: %q", text)
	answer, err := c.Complete(ctx, prompt, 0)
	if err != nil {
		c.log.Warn("condition extraction failed, using fallback", zap.Error(err))
		return FallbackConditions(text)
	}

	conditions := []string{}
	for _, s := range strings.Split(answer, ",") {
		if s = strings.TrimSpace(s); s != "" {
			conditions = append(conditions, s)
		}
	}
	return conditions
}

// ExtractExpertInfo derives structured fields from a researcher biography.
// Without a model it returns empty fields and no error.
func (c *Client) ExtractExpertInfo(ctx context.Context, biography, name string) (models.ExpertInfo, error) {
	if strings.TrimSpace(biography) == "" || !c.Enabled() {
		return models.EmptyExpertInfo(), nil
	}

	var prompt strings.Builder
	prompt.WriteString(`Extract important information from this researcher's biography. Return a JSON object with the following structure:
{
  "education": "University/institution where they studied (e.g., 'PhD from Harvard University') or null if not found",
  "age": "Estimated age or age range (e.g., '45-50 years' or '45') or null if not found",
  "yearsOfExperience": "Years of experience (e.g., '15 years') or null if not found",
  "specialties": ["array of medical specialties or fields of expertise"],
  "achievements": "Notable achievements, awards, or recognitions or null if not found",
  "currentPosition": "Current job title and institution or null if not found"
}

`)
	fmt.Fprintf(&prompt, "Biography: %q\n", TruncateBiography(biography))
	if name != "" {
		fmt.Fprintf(&prompt, "Name: %q\n", name)
	}
	prompt.WriteString("\nReturn ONLY valid JSON, no explanations or markdown formatting.")

	answer, err := c.Complete(ctx, prompt.String(), expertInfoMaxTokens)
	if err != nil {
		return models.EmptyExpertInfo(), err
	}
	info, err := ParseExpertInfo(answer)
	if err != nil {
		return models.EmptyExpertInfo(), err
	}
	return info, nil
}

// FallbackSummary collapses whitespace and keeps the first 40 words.
func FallbackSummary(text string) string {
	words := strings.Fields(text)
	if len(words) <= summaryFallbackWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:summaryFallbackWords], " ") + "…"
}

// FallbackConditions returns the known condition keywords present in text.
func FallbackConditions(text string) []string {
	lower := strings.ToLower(text)
	found := []string{}
	for _, k := range conditionKeywords {
		if strings.Contains(lower, k) {
			found = append(found, k)
		}
	}
	return found
}

// TruncateBiography keeps at most 500 characters, marking the cut.
func TruncateBiography(bio string) string {
	runes := []rune(bio)
	if len(runes) <= maxBiographyRunes {
		return bio
	}
	return string(runes[:maxBiographyRunes]) + "..."
}

// StripCodeFences removes Markdown code fences wrapped around a JSON answer.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseExpertInfo decodes the model's JSON answer. Empty values become nil and
// numeric values are rendered as text.
func ParseExpertInfo(answer string) (models.ExpertInfo, error) {
	var raw struct {
		Education         any             `json:"education"`
		Age               any             `json:"age"`
		YearsOfExperience any             `json:"yearsOfExperience"`
		Specialties       json.RawMessage `json:"specialties"`
		Achievements      any             `json:"achievements"`
		CurrentPosition   any             `json:"currentPosition"`
	}
	if err := json.Unmarshal([]byte(StripCodeFences(answer)), &raw); err != nil {
		return models.EmptyExpertInfo(), fmt.Errorf("parse expert info: %w", err)
	}

	info := models.ExpertInfo{
		Education:         optionalText(raw.Education),
		Age:               optionalText(raw.Age),
		YearsOfExperience: optionalText(raw.YearsOfExperience),
		Achievements:      optionalText(raw.Achievements),
		CurrentPosition:   optionalText(raw.CurrentPosition),
		Specialties:       []string{},
	}
	var specialties []string
	if err := json.Unmarshal(raw.Specialties, &specialties); err == nil {
		for _, s := range specialties {
			if s = strings.TrimSpace(s); s != "" {
				info.Specialties = append(info.Specialties, s)
			}
		}
	}
	return info, nil
}

func optionalText(v any) *string {
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	}
	if s == "" {
		return nil
	}
	return &s
}
