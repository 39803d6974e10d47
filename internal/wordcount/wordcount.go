// Package wordcount implements the progression metric used for milestones.
package wordcount

import "unicode"

// Count strips every whitespace rune and counts what remains. It is a
// character count, not a token count: "hello world" is 10.
func Count(text string) int {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
