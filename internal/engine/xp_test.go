package engine

import (
	"strings"
	"testing"

	"lingozap/internal/profile"
)

func TestApplyXPBaseAward(t *testing.T) {
	p := profile.New("id", "Ana")
	res := applyXP(p, "Nice try! What did you eat today?")

	if res.Awarded != 1 {
		t.Errorf("Awarded = %d, want 1", res.Awarded)
	}
	if p.XP != 1 {
		t.Errorf("XP = %d, want 1", p.XP)
	}
	if res.LeveledUp {
		t.Error("unexpected level up")
	}
	if res.Reply != "Nice try! What did you eat today?" {
		t.Errorf("Reply changed: %q", res.Reply)
	}
}

func TestApplyXPMarkerBonus(t *testing.T) {
	p := profile.New("id", "Ana")
	res := applyXP(p, "Excellent sentence! [XP]")

	if res.Awarded != 10 {
		t.Errorf("Awarded = %d, want 10", res.Awarded)
	}
	if p.XP != 10 {
		t.Errorf("XP = %d, want 10", p.XP)
	}
	if strings.Contains(res.Reply, XPMarker) {
		t.Errorf("marker leaked into reply: %q", res.Reply)
	}
	if !strings.Contains(res.Reply, "🌟 (+10 XP)") {
		t.Errorf("star award missing from reply: %q", res.Reply)
	}
}

func TestApplyXPLevelThresholds(t *testing.T) {
	tests := []struct {
		level profile.Level
		xp    int
		want  profile.Level
	}{
		{profile.Beginner, 95, profile.Intermediate},
		{profile.Intermediate, 245, profile.Advanced},
		{profile.Advanced, 495, profile.Expert},
		{profile.Expert, 995, profile.Master},
		{profile.Master, 1995, profile.Legend},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			p := profile.New("id", "Ana")
			p.Level = tt.level
			p.XP = tt.xp

			res := applyXP(p, "Great work! [XP]")
			if !res.LeveledUp {
				t.Fatal("expected a level up")
			}
			if p.Level != tt.want {
				t.Errorf("Level = %s, want %s", p.Level, tt.want)
			}
			if res.NewLevel != tt.want {
				t.Errorf("NewLevel = %s, want %s", res.NewLevel, tt.want)
			}
		})
	}
}

func TestApplyXPAdvancesOneLevelPerTurn(t *testing.T) {
	p := profile.New("id", "Ana")
	p.XP = 400 // already past two thresholds somehow

	res := applyXP(p, "Good! [XP]")
	if p.Level != profile.Intermediate {
		t.Errorf("Level = %s, want a single step to Intermediate", p.Level)
	}
	if !res.LeveledUp {
		t.Error("LeveledUp = false")
	}
}

func TestApplyXPLegendIsCeiling(t *testing.T) {
	p := profile.New("id", "Ana")
	p.Level = profile.Legend
	p.XP = 99999

	res := applyXP(p, "Flawless! [XP]")
	if res.LeveledUp {
		t.Error("Legend should not level up further")
	}
	if p.Level != profile.Legend {
		t.Errorf("Level = %s", p.Level)
	}
}
