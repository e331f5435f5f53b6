package application

import (
	"strings"

	"github.com/dfryer1193/spaceblog/blog/domain"
)

// wordsPerMinute is the fixed reading speed used for estimates.
const wordsPerMinute = 200

// EstimateReadingTime returns the minutes needed to read the bodies of the given blocks,
// rounded up. Posts without any words read in 0 minutes.
func EstimateReadingTime(blocks []domain.ContentBlock) int {
	return minutesFor(CountWords(blocks))
}

func minutesFor(words int) int {
	if words <= 0 {
		return 0
	}
	return (words + wordsPerMinute - 1) / wordsPerMinute
}

// CountWords sums the whitespace-delimited words of every block body.
// Headings are presentation and do not count.
func CountWords(blocks []domain.ContentBlock) int {
	total := 0
	for _, b := range blocks {
		total += len(strings.Fields(FlattenRichText(b.Body)))
	}
	return total
}

// FlattenRichText concatenates the text of every text-bearing node, depth first.
// Formatting spans are ignored; image and embed nodes contribute nothing.
func FlattenRichText(rt domain.RichText) string {
	var sb strings.Builder
	flattenNodes(&sb, rt)
	return sb.String()
}

func flattenNodes(sb *strings.Builder, nodes []domain.RichTextNode) {
	for _, n := range nodes {
		switch n.Type {
		case domain.NodeImage, domain.NodeEmbed:
			continue
		}

		if n.Text != "" {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(n.Text)
		}

		if len(n.Children) > 0 {
			flattenNodes(sb, n.Children)
		}
	}
}
