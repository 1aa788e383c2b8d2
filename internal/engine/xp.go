package engine

import (
	"strings"

	"lingozap/internal/profile"
)

// XPMarker is the token the chat persona appends to flag an exceptional
// learner turn. It is never shown to the learner.
const XPMarker = "[XP]"

const (
	markerBonus       = 10
	baseAward         = 1
	markerReplacement = "🌟 (+10 XP)"
)

// ladder maps each rank to the XP needed to leave it, in order.
var ladder = []struct {
	level     profile.Level
	threshold int
}{
	{profile.Beginner, 100},
	{profile.Intermediate, 250},
	{profile.Advanced, 500},
	{profile.Expert, 1000},
	{profile.Master, 2000},
}

// xpResult describes what one chat turn did to the learner's progress.
type xpResult struct {
	Reply     string
	Awarded   int
	LeveledUp bool
	NewLevel  profile.Level
}

// applyXP awards experience for one chat-mode turn and advances the
// learner at most one rank. The marker is stripped from the reply and
// replaced with a visible star award.
func applyXP(p *profile.UserProfile, reply string) xpResult {
	res := xpResult{Reply: reply, Awarded: baseAward}
	if strings.Contains(reply, XPMarker) {
		res.Awarded = markerBonus
		res.Reply = strings.TrimSpace(strings.ReplaceAll(reply, XPMarker, markerReplacement))
	}
	p.XP += res.Awarded

	for _, rung := range ladder {
		if p.Level == rung.level && p.XP >= rung.threshold {
			p.Level = nextLevel(rung.level)
			res.LeveledUp = true
			res.NewLevel = p.Level
			break
		}
	}
	return res
}

func nextLevel(l profile.Level) profile.Level {
	order := []profile.Level{
		profile.Beginner, profile.Intermediate, profile.Advanced,
		profile.Expert, profile.Master, profile.Legend,
	}
	for i, cur := range order[:len(order)-1] {
		if cur == l {
			return order[i+1]
		}
	}
	return l
}
