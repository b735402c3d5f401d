// Package transport handles the edges of a turn: inbound webhook
// authentication, outbound delivery, and transport-safe chunking.
package transport

import "strings"

// DefaultMaxChunkLen is the transport's per-message size limit.
const DefaultMaxChunkLen = 1600

var sentenceBoundaries = []string{". ", "? ", "! ", "\n"}

// Split breaks text into transport-safe chunks of at most max bytes.
// It prefers a sentence boundary at or after half the limit, falls back to
// the last word boundary, and hard-splits only when the text has neither.
func Split(text string, max int) []string {
	if max <= 0 {
		max = DefaultMaxChunkLen
	}
	if text == "" {
		return nil
	}

	var chunks []string
	rest := text
	for len(rest) > max {
		cut := boundaryCut(rest, max)
		chunk := strings.TrimRight(rest[:cut], " ")
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		rest = strings.TrimLeft(rest[cut:], " ")
	}
	if rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}

func boundaryCut(text string, max int) int {
	window := text[:max]
	half := max / 2

	cut := -1
	for _, boundary := range sentenceBoundaries {
		idx := strings.LastIndex(window, boundary)
		if idx < half {
			continue
		}
		// Keep the punctuation with the leading chunk.
		end := idx + len(boundary)
		if end > cut {
			cut = end
		}
	}
	if cut > 0 {
		return cut
	}

	if idx := strings.LastIndex(window, " "); idx > 0 {
		return idx + 1
	}
	return max
}
