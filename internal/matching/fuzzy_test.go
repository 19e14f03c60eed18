package matching

import (
	"testing"

	"romdex/internal/gamedb"
	"romdex/internal/romfile"
)

func TestFuzzyScoreIdenticalTitle(t *testing.T) {
	game := gamedb.Game{ID: 1, Name: "Chrono Trigger"}
	score := FuzzyScore(romfile.Variants("Chrono Trigger"), game)
	if score != 1 {
		t.Errorf("identical title score = %.3f, want 1", score)
	}
}

func TestFuzzyScoreUsesVariants(t *testing.T) {
	game := gamedb.Game{ID: 1, Name: "Final Fantasy 7"}
	score := FuzzyScore(romfile.Variants("Final Fantasy VII"), game)
	if score != 1 {
		t.Errorf("numeral variant score = %.3f, want 1", score)
	}
}

func TestFuzzyScoreUsesAlternativeNames(t *testing.T) {
	game := gamedb.Game{
		ID:   1,
		Name: "Trials of Mana",
		AlternativeNames: []gamedb.AlternativeName{
			{Name: "Seiken Densetsu 3"},
		},
	}
	score := FuzzyScore(romfile.Variants("Seiken Densetsu 3"), game)
	if score != 1 {
		t.Errorf("alt name score = %.3f, want 1", score)
	}
}

func TestFuzzyScoreSimilarVersusUnrelated(t *testing.T) {
	variants := romfile.Variants("Super Mario World")
	similar := FuzzyScore(variants, gamedb.Game{ID: 1, Name: "Super Mario World 2"})
	unrelated := FuzzyScore(variants, gamedb.Game{ID: 2, Name: "Doom"})
	if similar <= unrelated {
		t.Fatalf("similar %.3f <= unrelated %.3f", similar, unrelated)
	}
	if similar <= 0.4 {
		t.Errorf("similar title score = %.3f, want above default threshold", similar)
	}
}

func TestFuzzyMatchStrictThreshold(t *testing.T) {
	pool := []gamedb.Game{{ID: 1, Name: "Chrono Trigger"}}
	variants := romfile.Variants("Chrono Trigger")

	if _, ok := FuzzyMatch(variants, pool, 1.0); ok {
		t.Error("score equal to threshold must not be accepted")
	}
	best, ok := FuzzyMatch(variants, pool, 0.99)
	if !ok {
		t.Fatal("score above threshold was rejected")
	}
	if best.Game.ID != 1 || best.Type != MatchFuzzy {
		t.Errorf("best = %+v, want game 1 with fuzzy type", best)
	}
}

func TestFuzzyMatchEmptyPool(t *testing.T) {
	if _, ok := FuzzyMatch(romfile.Variants("anything"), nil, 0.4); ok {
		t.Error("empty pool must not match")
	}
}

func TestFuzzyMatchPicksBest(t *testing.T) {
	pool := []gamedb.Game{
		{ID: 1, Name: "Mega Man X2"},
		{ID: 2, Name: "Mega Man X"},
		{ID: 3, Name: "Bonk's Adventure"},
	}
	best, ok := FuzzyMatch(romfile.Variants("Mega Man X"), pool, 0.4)
	if !ok {
		t.Fatal("no match from pool")
	}
	if best.Game.ID != 2 {
		t.Errorf("best game ID = %d, want 2", best.Game.ID)
	}
}
