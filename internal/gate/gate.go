// Package gate classifies candidate memory content into priority tiers
// P0-P3 and drops the lowest tier before it reaches ingest.
package gate

import (
	"regexp"
	"strings"
)

// Priority is one of P0 (critical) through P3 (ephemeral, dropped).
type Priority string

const (
	P0 Priority = "P0"
	P1 Priority = "P1"
	P2 Priority = "P2"
	P3 Priority = "P3"
)

// P2Threshold is the nominal P2 length. Content that matches no pattern is
// classified P2 when it has at least P2Threshold-25 (15) runes and P3 when
// it is shorter.
const P2Threshold = 40

var p0Patterns = compileAll([]string{
	`(?i)(?:security|vulnerability|breach|attack|error|exception|failure|crash)`,
	`(?i)(?:unauthorized|malicious|threat|risk|critical|emergency)`,
	`(?i)(?:password|token|key|secret|credential).*(?:compromised|leaked|exposed)`,
	`\$[\d,]+(?:\.\d{2})?.*(?i:committed?|approved?|agreed?|contracted?|project)`,
	`(?i)(?:budget|payment|invoice|billing).*(?:due|overdue|critical|approved?)`,
	`(?i)(?:legal|contract|agreement|liability|lawsuit)`,
	`(?i)(?:deadline|due.*date|urgent|asap|immediately)`,
	`(?i)(?:expires?|timeout|cutoff).*(?:today|tomorrow|this week)`,
})

var p1Patterns = compileAll([]string{
	`(?i)(?:decided?|chosen|selected|assigned|delegated)`,
	`(?i)(?:approved?|rejected|implemented|deployed)`,
	`(?i)(?:action.*item|task.*assigned|responsibility)`,
	`(?i)(?:technology|architecture|database|framework|library).*(?:choice|decision)`,
	`(?i)(?:api|service|integration|deployment|configuration)`,
	`(?i)(?:meeting|discussion|call).*(?:outcome|result|conclusion)`,
	`(?i)(?:agreed|consensus|next.*step|follow.*up)`,
})

var p2Patterns = compileAll([]string{
	`(?i)(?:background|context|history|explanation)`,
	`(?i)(?:research|investigation|analysis|findings)`,
	`(?i)(?:documentation|specification|requirements)`,
	`(?i)(?:for.*reference|fyi|note|information)`,
})

var p3Patterns = compileAll([]string{
	`(?i)^(?:hi|hey|hello|good\s+(?:morning|afternoon|evening))`,
	`(?i)^(?:thanks?(?:\s+you)?|thx|appreciate|cheers)\.?$`,
	`(?i)^thanks?\s+for\s+(?:the|your)\s+\w+\.?$`,
	`(?i)^(?:ok|okay|got\s+it|understood|copy|noted?)\.?$`,
	`(?i)^(?:lol|haha|lmao|nice|cool|awesome|great)(?:\s+that's\s+\w+)?\.?$`,
	`(?i)^(?:bye|see\s+you|talk\s+(?:later|soon)|ttyl)\.?$`,
	`(?i)^(?:yep|yeah|yup|nope|no\s+problem)\.?$`,
	`(?i)^(?:sounds?\s+good|works?\s+for\s+me|agreed?)\.?$`,
	`(?i)^(?:will\s+do|on\s+it|got\s+it)\.?$`,
	`(?i)^(?:that's\s+(?:funny|great|nice|cool))\.?$`,
	`^.{1,3}$`,
})

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// Context carries the ingest-time hints used for source/category routing
// before falling back to pattern matching.
type Context struct {
	Source   string
	Category string
}

// Classify returns the priority tier for content.
func Classify(content string, ctx *Context) Priority {
	trimmed := strings.TrimSpace(content)
	if len([]rune(trimmed)) < 3 {
		return P3
	}
	text := strings.ToLower(trimmed)

	if ctx != nil {
		source := strings.ToLower(ctx.Source)
		category := strings.ToLower(ctx.Category)
		if containsAny(source, "security", "alert", "error", "critical") {
			return P0
		}
		if containsAny(source, "meeting", "decision", "technical") {
			return P1
		}
		switch category {
		case "strategic", "critical":
			return P0
		case "operational", "business":
			return P1
		case "tactical", "technical":
			return P2
		}
	}

	for _, re := range p0Patterns {
		if re.MatchString(text) {
			return P0
		}
	}
	for _, re := range p1Patterns {
		if re.MatchString(text) {
			return P1
		}
	}
	for _, re := range p3Patterns {
		if re.MatchString(text) {
			return P3
		}
	}
	for _, re := range p2Patterns {
		if re.MatchString(text) {
			return P2
		}
	}

	if len([]rune(text)) < P2Threshold-25 {
		return P3
	}
	return P2
}

// ShouldStore reports whether content clears the P3 drop threshold.
func ShouldStore(content string, ctx *Context) bool {
	return Classify(content, ctx) != P3
}

// CategoryFor maps a priority to its default category, used by routed
// ingest when the caller supplies no explicit category.
func CategoryFor(p Priority) string {
	switch p {
	case P0:
		return "strategic"
	case P1:
		return "operational"
	case P2:
		return "tactical"
	default:
		return "ephemeral"
	}
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
