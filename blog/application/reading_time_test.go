package application

import (
	"strings"
	"testing"

	"github.com/dfryer1193/spaceblog/blog/domain"
)

// words returns a paragraph of n words.
func words(n int) domain.RichTextNode {
	return paragraph(strings.TrimSpace(strings.Repeat("lorem ", n)))
}

func TestEstimateReadingTime(t *testing.T) {
	tests := []struct {
		name     string
		words    int
		expected int
	}{
		{name: "no words", words: 0, expected: 0},
		{name: "one word", words: 1, expected: 1},
		{name: "exactly one minute", words: 200, expected: 1},
		{name: "just over one minute", words: 201, expected: 2},
		{name: "rounds up", words: 450, expected: 3},
		{name: "610 words", words: 610, expected: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := []domain.ContentBlock{{Heading: "h", Body: domain.RichText{words(tt.words)}}}
			if tt.words == 0 {
				blocks = []domain.ContentBlock{{Heading: "Only a heading"}}
			}
			result := EstimateReadingTime(blocks)
			if result != tt.expected {
				t.Errorf("EstimateReadingTime(%d words) = %d, want %d", tt.words, result, tt.expected)
			}
		})
	}
}

func TestEstimateReadingTime_Monotonic(t *testing.T) {
	for w1 := 0; w1 <= 1000; w1 += 37 {
		for w2 := w1 + 200; w2 <= w1+700; w2 += 53 {
			if minutesFor(w2) < minutesFor(w1)+1 {
				t.Fatalf("minutesFor(%d) = %d, minutesFor(%d) = %d; want at least one more minute", w2, minutesFor(w2), w1, minutesFor(w1))
			}
		}
	}
}

func TestEstimateReadingTime_AcrossBlocks(t *testing.T) {
	// 200 + 210 + 200 words over three blocks
	blocks := []domain.ContentBlock{
		{Heading: "Proin et varius", Body: domain.RichText{words(150), words(50)}},
		{Heading: "Cras laoreet mi", Body: domain.RichText{words(210)}},
		{Heading: "Ut varius", Body: domain.RichText{words(100), {Type: domain.NodeImage, URL: "https://images.prismic.io/a.png"}, words(100)}},
	}

	if got := CountWords(blocks); got != 610 {
		t.Fatalf("CountWords() = %d, want 610", got)
	}
	if got := EstimateReadingTime(blocks); got != 4 {
		t.Errorf("EstimateReadingTime() = %d, want 4", got)
	}
}

func TestCountWords_IgnoresHeadings(t *testing.T) {
	blocks := []domain.ContentBlock{{Heading: "a heading with five words", Body: domain.RichText{words(3)}}}
	if got := CountWords(blocks); got != 3 {
		t.Errorf("CountWords() = %d, want 3", got)
	}
}

func TestFlattenRichText(t *testing.T) {
	tests := []struct {
		name     string
		rt       domain.RichText
		expected string
	}{
		{name: "empty", rt: nil, expected: ""},
		{
			name:     "spans do not split words",
			rt:       domain.RichText{paragraph("Nullam dolor", domain.Span{Start: 0, End: 3, Type: domain.SpanStrong})},
			expected: "Nullam dolor",
		},
		{
			name:     "nodes are separated",
			rt:       domain.RichText{paragraph("fim"), {Type: domain.NodeHeading2, Text: "início"}},
			expected: "fim início",
		},
		{
			name: "non-text nodes are skipped",
			rt: domain.RichText{
				{Type: domain.NodeImage, URL: "https://images.prismic.io/a.png", Alt: "alt text"},
				{Type: domain.NodeEmbed, URL: "https://youtu.be/x"},
				paragraph("texto"),
			},
			expected: "texto",
		},
		{
			name: "children are walked depth first",
			rt: domain.RichText{
				{Type: domain.NodeListItem, Text: "um", Children: []domain.RichTextNode{
					{Type: domain.NodeListItem, Text: "um.um"},
				}},
				{Type: domain.NodeListItem, Text: "dois"},
			},
			expected: "um um.um dois",
		},
		{
			name:     "empty nodes contribute nothing",
			rt:       domain.RichText{{Type: domain.NodeParagraph}, paragraph("só")},
			expected: "só",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FlattenRichText(tt.rt); got != tt.expected {
				t.Errorf("FlattenRichText() = %q, want %q", got, tt.expected)
			}
		})
	}
}
