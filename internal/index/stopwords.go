package index

// Stopwords is the built-in English stopword set used by the tokenizer.
var Stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "may": {}, "might": {}, "shall": {}, "can": {}, "need": {}, "dare": {}, "ought": {},
	"used": {}, "to": {}, "of": {}, "in": {}, "for": {}, "on": {}, "with": {}, "at": {}, "by": {}, "from": {},
	"as": {}, "into": {}, "through": {}, "during": {}, "before": {}, "after": {}, "above": {}, "below": {},
	"between": {}, "out": {}, "off": {}, "over": {}, "under": {}, "again": {}, "further": {}, "then": {},
	"once": {}, "here": {}, "there": {}, "when": {}, "where": {}, "why": {}, "how": {}, "all": {}, "both": {},
	"each": {}, "few": {}, "more": {}, "most": {}, "other": {}, "some": {}, "such": {}, "no": {}, "nor": {},
	"not": {}, "only": {}, "own": {}, "same": {}, "so": {}, "than": {}, "too": {}, "very": {}, "just": {},
	"don": {}, "now": {}, "and": {}, "but": {}, "or": {}, "if": {}, "while": {}, "that": {}, "this": {},
	"it": {}, "its": {}, "he": {}, "she": {}, "they": {}, "them": {}, "his": {}, "her": {}, "their": {},
	"what": {}, "which": {}, "who": {}, "whom": {}, "these": {}, "those": {}, "am": {}, "about": {},
	"up": {}, "down": {}, "we": {}, "our": {}, "you": {}, "your": {}, "my": {}, "me": {}, "i": {},
}

// IsStopword reports whether term is a stopword.
func IsStopword(term string) bool {
	_, ok := Stopwords[term]
	return ok
}
