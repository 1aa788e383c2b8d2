package engine

import (
	"regexp"
	"strings"
)

// Correction blocks and markup read terribly out loud, so the voice track
// carries only the conversational part of a reply.
var (
	correctionPairRe = regexp.MustCompile(`❌.*?✅.*?(\n|$)`)
	correctionTipRe  = regexp.MustCompile(`(?s)Correction:.*?Tip:.*?(\n|$)`)
	tipLineRe        = regexp.MustCompile(`(?m)^Tip:.*$`)
	markupRe         = regexp.MustCompile(`[\*\[\]]`)
	blankRunRe       = regexp.MustCompile(`\n{2,}`)
)

// speechText strips a reply down to what is worth speaking. The bool is
// false when nothing meaningful survives, in which case no voice note is
// sent at all.
func speechText(reply string) (string, bool) {
	out := correctionPairRe.ReplaceAllString(reply, "")
	out = correctionTipRe.ReplaceAllString(out, "")
	out = tipLineRe.ReplaceAllString(out, "")
	out = markupRe.ReplaceAllString(out, "")
	out = strings.ReplaceAll(out, markerReplacement, "")
	out = blankRunRe.ReplaceAllString(out, "\n")
	out = strings.TrimSpace(out)
	if len([]rune(out)) < 2 {
		return "", false
	}
	return out, true
}
