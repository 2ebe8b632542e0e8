package docs

import "strings"

// excerptContext is the number of characters kept on each side of a match.
const excerptContext = 100

// excerptFallback is the prefix length used when the query does not occur
// in the text.
const excerptFallback = 200

// MatchingExcerpt returns a snippet of text around the first case-insensitive
// occurrence of query, with ellipses marking truncation. When the query does
// not occur, the first 200 characters are returned with a trailing ellipsis
// if the text continues past them.
func MatchingExcerpt(text, query string) string {
	idx := strings.Index(strings.ToLower(text), strings.ToLower(query))
	if idx < 0 {
		if len(text) <= excerptFallback {
			return text
		}
		return text[:excerptFallback] + "..."
	}

	start := idx - excerptContext
	if start < 0 {
		start = 0
	}
	end := idx + len(query) + excerptContext
	if end > len(text) {
		end = len(text)
	}

	excerpt := text[start:end]
	if start > 0 {
		excerpt = "..." + excerpt
	}
	if end < len(text) {
		excerpt = excerpt + "..."
	}
	return excerpt
}
