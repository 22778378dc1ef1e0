package models

import "testing"

func TestLanguageLevelOrder(t *testing.T) {
	ordered := []LanguageLevel{LevelNone, LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2, LevelNative}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Rank() >= ordered[i].Rank() {
			t.Errorf("%s should rank below %s", ordered[i-1], ordered[i])
		}
	}
}

func TestLanguageLevelSatisfies(t *testing.T) {
	tests := []struct {
		user        LanguageLevel
		requirement LanguageLevel
		want        bool
	}{
		{LevelB2, LevelB1, true},
		{LevelB1, LevelB1, true},
		{LevelA2, LevelB1, false},
		{LevelNone, LevelNone, true},
		{LevelNative, LevelC2, true},
		{"garbage", LevelA1, false}, // unknown ranks as NONE
		{LevelA1, "garbage", true},
	}
	for _, tt := range tests {
		if got := tt.user.Satisfies(tt.requirement); got != tt.want {
			t.Errorf("%s.Satisfies(%s) = %v, want %v", tt.user, tt.requirement, got, tt.want)
		}
	}
}

func TestPostingIDIsStable(t *testing.T) {
	a := PostingID("https://www.ausbildung.de/stellen/123")
	b := PostingID("https://www.ausbildung.de/stellen/123")
	c := PostingID("https://www.ausbildung.de/stellen/124")
	if a != b {
		t.Errorf("same link minted two identities: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different links share an identity")
	}
}
