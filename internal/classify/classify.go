// Package classify derives document categories and tags by keyword matching.
package classify

import "strings"

// DefaultCategory is assigned when no keyword group matches.
const DefaultCategory = "general"

// maxTags caps how many tags are generated per document.
const maxTags = 5

// Classifier assigns a category and tags to a document from its text and
// filename. The keyword implementation can be swapped for a real model
// without touching the ingestion pipeline.
type Classifier interface {
	Categorize(text, filename string) string
	Tags(text, filename string) []string
}

// categoryRule matches any of its keywords against filename or text.
// Rules are checked in order; the first match wins.
type categoryRule struct {
	category string
	keywords []string
}

var categoryRules = []categoryRule{
	{"contracts", []string{"contract", "agreement", "terms"}},
	{"invoices", []string{"invoice", "bill", "payment"}},
	{"hr", []string{"hr", "employee", "onboarding", "hire"}},
	{"compliance", []string{"compliance", "policy", "regulation"}},
}

// tagRule works like categoryRule but every matching rule contributes a tag,
// in table order, up to maxTags.
type tagRule struct {
	tag      string
	keywords []string
}

var tagRules = []tagRule{
	{"urgent", []string{"urgent", "asap", "immediate", "priority"}},
	{"signed", []string{"signed", "signature", "executed"}},
	{"draft", []string{"draft", "preliminary", "version"}},
	{"quarterly", []string{"quarterly", "q1", "q2", "q3", "q4"}},
	{"annual", []string{"annual", "yearly", "year-end"}},
	{"confidential", []string{"confidential", "private", "restricted"}},
	{"review", []string{"review", "approval", "pending"}},
}

// KeywordClassifier implements Classifier with fixed keyword tables.
type KeywordClassifier struct{}

// NewKeywordClassifier returns the keyword-table classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Categorize returns the first category whose keyword set matches text or
// filename (case-insensitive), or DefaultCategory.
func (c *KeywordClassifier) Categorize(text, filename string) string {
	textLower := strings.ToLower(text)
	nameLower := strings.ToLower(filename)
	for _, rule := range categoryRules {
		if anyKeyword(rule.keywords, textLower, nameLower) {
			return rule.category
		}
	}
	return DefaultCategory
}

// Tags returns up to maxTags tags whose keyword sets match text or filename,
// in table order.
func (c *KeywordClassifier) Tags(text, filename string) []string {
	textLower := strings.ToLower(text)
	nameLower := strings.ToLower(filename)
	var tags []string
	for _, rule := range tagRules {
		if anyKeyword(rule.keywords, textLower, nameLower) {
			tags = append(tags, rule.tag)
			if len(tags) == maxTags {
				break
			}
		}
	}
	return tags
}

func anyKeyword(keywords []string, textLower, nameLower string) bool {
	for _, kw := range keywords {
		if strings.Contains(textLower, kw) || strings.Contains(nameLower, kw) {
			return true
		}
	}
	return false
}
