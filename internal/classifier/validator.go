package classifier

import (
	"fmt"
	"strings"
)

// Validator screens out questions the service should not try to answer.
type Validator interface {
	// Validate returns an empty reason when the question is acceptable.
	Validate(question string) (ok bool, reason string)
}

type businessValidator struct {
	minWords int
}

func NewValidator() Validator {
	return &businessValidator{minWords: 4}
}

var irrelevantPatterns = compileAll(
	`who is the (prime minister|president|pm|leader|minister)`,
	`(current|latest) (prime minister|president|pm)`,
	`capital of \w+`,
	`government of \w+`,
	`tell me (a joke|something funny)`,
	`(movie|film) (times|schedule|review)`,
	`celebrity (news|gossip)`,
	`(sports|game) (score|result)`,
	`latest news about \w+`,
	`weather in \w+`,
	`time in \w+`,
	`current time`,
	`how to (cook|drive|swim)`,
	`recipe for \w+`,
	`meaning of life`,
	`how to (code|program)`,
	`programming language`,
	`install \w+`,
	`fix my \w+`,
)

var businessKeywords = []string{
	"revenue", "profit", "sales", "performance", "growth", "trend", "analysis",
	"brand", "market", "region", "country", "volume", "income", "financial",
	"earnings", "benchmark", "forecast", "budget", "roi", "margin", "kpi",
	"quarter", "monthly", "yearly", "qtd", "ytd", "mtd",
}

const (
	ReasonOutOfScope  = "This question is outside my area of expertise"
	ReasonTooShort    = "Please provide a more specific business-related question"
	ReasonNotBusiness = "I can only help with business and financial questions about the company's data"
)

func (v *businessValidator) Validate(question string) (bool, string) {
	q := strings.ToLower(strings.TrimSpace(question))

	for _, p := range irrelevantPatterns {
		if p.MatchString(q) {
			return false, ReasonOutOfScope
		}
	}
	if len(strings.Fields(q)) < v.minWords {
		return false, ReasonTooShort
	}
	if !containsAny(q, businessKeywords) {
		return false, ReasonNotBusiness
	}
	return true, ""
}

// RefusalMessage is the narrative returned for a rejected question.
func RefusalMessage(reason string) string {
	return fmt.Sprintf(`I apologize, but I'm specifically designed to help with business and financial questions about our brand performance data.

%s.

Here are some examples of questions I can help with:
• What is the net revenue of Oreo in 2024?
• Which brands are driving growth in the EU region?
• Analyze performance trends for the chocolate category
• Compare Q1 vs Q2 performance across regions
• Show me benchmark analysis for key brands

Please feel free to ask me any business or financial question about the data!`, reason)
}
