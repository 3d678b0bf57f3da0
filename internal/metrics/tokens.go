package metrics

import "unicode/utf8"

// charsPerToken is the rough number of characters in one token of English text.
const charsPerToken = 4

// EstimateTokens approximates the token count of text from its length in
// characters. It is a throughput heuristic, not a tokenizer.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / charsPerToken
}
