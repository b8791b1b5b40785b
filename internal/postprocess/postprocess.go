// Package postprocess normalises raw model output before it is matched
// against the extraction pattern or written as a field.
package postprocess

import (
	"regexp"
	"strings"
)

// thinkingBlockRe matches complete <think>…</think> style blocks emitted by
// reasoning models. RE2 has no backreferences, so each tag is listed.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// truncatedThinkingRe matches an opened block whose closing tag never came.
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

// StripThinking removes reasoning blocks and trims the result.
func StripThinking(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

var lineBreakReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// SingleLine trims text and replaces every line break with one space so an
// answer always fits in a single delimited field.
func SingleLine(text string) string {
	return lineBreakReplacer.Replace(strings.TrimSpace(text))
}
