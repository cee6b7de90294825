package figures

import "testing"

func TestBuildIndexFiltersAndNormalizes(t *testing.T) {
	idx := BuildIndex([]string{"1690000000_Figura1.PNG", "notes.txt", "", "logo.svg", "uploads/42-Mapa_Brasil.jpeg"})
	if idx.Len() != 3 {
		t.Fatalf("len: want=3 got=%d", idx.Len())
	}
	got := idx.Candidates()
	if got[0].NormalizedName != "figura1.png" || got[0].Stem != "figura1" || got[0].Extension != ".png" {
		t.Fatalf("candidate[0]: %+v", got[0])
	}
	if got[0].RawName != "1690000000_Figura1.PNG" {
		t.Fatalf("raw name must be preserved, got %q", got[0].RawName)
	}
	if got[2].NormalizedName != "mapa_brasil.jpeg" || got[2].Compact != "mapabrasil" {
		t.Fatalf("candidate[2]: %+v", got[2])
	}
}

func TestBuildIndexEmpty(t *testing.T) {
	idx := BuildIndex(nil)
	if res := Resolve(MatchRequest{RequestedName: "foo.png"}, idx); res.Matched {
		t.Fatalf("empty index must never match: %+v", res)
	}
}

func TestResolveCascade(t *testing.T) {
	files := []string{"1690000000_Figura1.png", "logo.png"}
	cases := []struct {
		name     string
		request  string
		files    []string
		matched  bool
		raw      string
		strategy Strategy
	}{
		{"exact strips timestamp", "Figura1.png", files, true, "1690000000_Figura1.png", StrategyExact},
		{"exact on raw name", "1690000000_figura1.png", files, true, "1690000000_Figura1.png", StrategyExact},
		{"separators ignored", "figura_1", files, true, "1690000000_Figura1.png", StrategyNormalizedSubstring},
		{"request contains candidate", "logo-principal", files, true, "logo.png", StrategyNormalizedSubstring},
		{"dotted stem", "grafico.v2", []string{"99_resultado_grafico.v2_final.png"}, true, "99_resultado_grafico.v2_final.png", StrategyNormalizedSubstring},
		{"word overlap reordered", "vendas_regiao_norte", []string{"norte-regiao-vendas.png"}, true, "norte-regiao-vendas.png", StrategyWordOverlap},
		{"no match", "nonexistent.png", files, false, "", StrategyNone},
		{"blank request", "   ", files, false, "", StrategyNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Resolve(MatchRequest{RequestedName: tc.request}, BuildIndex(tc.files))
			if res.Matched != tc.matched {
				t.Fatalf("matched: want=%v got=%v (%+v)", tc.matched, res.Matched, res)
			}
			if !tc.matched {
				return
			}
			if res.Candidate.RawName != tc.raw {
				t.Fatalf("candidate: want=%q got=%q", tc.raw, res.Candidate.RawName)
			}
			if res.Strategy != tc.strategy {
				t.Fatalf("strategy: want=%s got=%s", tc.strategy, res.Strategy)
			}
		})
	}
}

func TestResolveReverseSubstringStage(t *testing.T) {
	// The request runs into the extension, so only the full normalized name contains it.
	idx := BuildIndex([]string{"xfigura1.png"})
	res := Resolve(MatchRequest{RequestedName: "figura1.p"}, idx)
	if !res.Matched {
		t.Fatalf("expected match")
	}
	if res.Strategy != StrategyReverseSubstring {
		t.Fatalf("strategy: want=%s got=%s", StrategyReverseSubstring, res.Strategy)
	}
}

func TestResolveTiesFollowIndexOrder(t *testing.T) {
	idx := BuildIndex([]string{"200_chart.png", "100_chart.png"})
	res := Resolve(MatchRequest{RequestedName: "chart.png"}, idx)
	if !res.Matched || res.Candidate.RawName != "200_chart.png" {
		t.Fatalf("want first listed candidate, got %+v", res)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	idx := BuildIndex([]string{"a_resultado.png", "b_resultado.png", "resultado_final.png"})
	first := Resolve(MatchRequest{RequestedName: "resultado"}, idx)
	for i := 0; i < 20; i++ {
		if got := Resolve(MatchRequest{RequestedName: "resultado"}, idx); got != first {
			t.Fatalf("run %d: want=%+v got=%+v", i, first, got)
		}
	}
}

func TestWordOverlapIgnoresShortTokens(t *testing.T) {
	if got := wordTokens("fig_1_de_vendas"); len(got) != 2 || got[0] != "fig" || got[1] != "vendas" {
		t.Fatalf("tokens: got=%v", got)
	}
}

func TestIndexWithAppends(t *testing.T) {
	idx := BuildIndex([]string{"a.png"}).With("b.png", "c.txt")
	if idx.Len() != 2 {
		t.Fatalf("len: want=2 got=%d", idx.Len())
	}
}
