package classify

import (
	"reflect"
	"testing"
)

func TestCategorize(t *testing.T) {
	c := NewKeywordClassifier()
	tests := []struct {
		name     string
		text     string
		filename string
		want     string
	}{
		{"contract in text", "This service agreement covers...", "doc.pdf", "contracts"},
		{"invoice in filename", "Please see attached.", "invoice_2024.pdf", "invoices"},
		{"hr keywords", "New employee onboarding checklist", "checklist.docx", "hr"},
		{"compliance keywords", "Data retention policy and regulation summary", "notes.txt", "compliance"},
		{"no match", "Lunch menu for the week", "menu.txt", DefaultCategory},
		{"first rule wins", "contract invoice", "x.txt", "contracts"},
		{"case insensitive", "URGENT CONTRACT RENEWAL", "x.txt", "contracts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Categorize(tt.text, tt.filename); got != tt.want {
				t.Errorf("Categorize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTags(t *testing.T) {
	c := NewKeywordClassifier()
	tests := []struct {
		name     string
		text     string
		filename string
		want     []string
	}{
		{"single tag", "This is urgent, respond asap", "x.txt", []string{"urgent"}},
		{"tag from filename", "see attached", "signed_contract.pdf", []string{"signed"}},
		{"table order", "signed and urgent draft", "x.txt", []string{"urgent", "signed", "draft"}},
		{"no tags", "nothing special here", "plain.txt", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Tags(tt.text, tt.filename); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTagsCapped(t *testing.T) {
	c := NewKeywordClassifier()
	text := "urgent signed draft quarterly annual confidential review"
	got := c.Tags(text, "everything.txt")
	if len(got) != 5 {
		t.Errorf("Tags() returned %d tags, want cap of 5: %v", len(got), got)
	}
}
