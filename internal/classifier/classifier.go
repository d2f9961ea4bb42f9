package classifier

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"finsight-backend/internal/dto"
)

// Classifier decides between the short fact-lookup path and the full analysis path.
type Classifier interface {
	Classify(question string) dto.QuestionKind
}

type keywordClassifier struct{}

func NewClassifier() Classifier {
	return &keywordClassifier{}
}

var simplePatterns = compileAll(
	`^what\s+is\s+the\s+`,
	`^how\s+much\s+`,
	`^what\s+was\s+the\s+`,
	`^what\s+were\s+the\s+`,
	`total\s+`,
	`net\s+revenue\s+of\s+`,
	`revenue\s+for\s+`,
	`sales\s+of\s+`,
	`volume\s+of\s+`,
	`profit\s+of\s+`,
)

var analyticalKeywords = []string{
	"analyze", "analysis", "trend", "trends", "compare", "comparison", "vs", "versus",
	"drivers", "driving", "performance", "insights", "breakdown", "summary",
	"summarize", "deep dive", "detailed", "comprehensive", "dashboard",
	"benchmark", "which brands", "top brands", "bottom brands",
}

var (
	simpleMetrics   = []string{"net revenue", "revenue", "profit", "volume", "sales", "earnings", "operating income"}
	fallbackMetrics = []string{"net revenue", "revenue", "profit", "volume", "sales"}
)

func (c *keywordClassifier) Classify(question string) dto.QuestionKind {
	q := strings.ToLower(strings.TrimSpace(question))
	tokens := strings.Fields(q)

	for _, p := range simplePatterns {
		if p.MatchString(q) && len(tokens) <= 15 && containsAny(q, simpleMetrics) {
			log.Debug().Str("question", question).Msg("Question classified as simple")
			return dto.QuestionSimple
		}
	}

	if containsAny(q, analyticalKeywords) {
		log.Debug().Str("question", question).Msg("Question classified as analytical")
		return dto.QuestionAnalytical
	}

	if len(tokens) <= 12 && containsAny(q, fallbackMetrics) {
		log.Debug().Str("question", question).Msg("Question classified as simple (fallback)")
		return dto.QuestionSimple
	}
	log.Debug().Str("question", question).Msg("Question classified as analytical (fallback)")
	return dto.QuestionAnalytical
}

var dashboardKeywords = []string{
	"top", "bottom", "rank", "compare", "benchmark", "vs", "summarize", "total market",
}

// IsDashboardQuestion reports whether a question asks for a ranked or comparative
// overview, which is answered from the most recent periods rather than the oldest.
func IsDashboardQuestion(question string) bool {
	return containsAny(strings.ToLower(question), dashboardKeywords)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}
