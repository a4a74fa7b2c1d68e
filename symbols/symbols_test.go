// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package symbols

import (
	"errors"
	"math"
	"testing"
)

func TestAnalyzeCounts(t *testing.T) {
	st, err := Analyze("AAAAABBBCCD")
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		sym   rune
		count int
	}{
		{'A', 5}, {'B', 3}, {'C', 2}, {'D', 1},
	}
	if len(st.Symbols) != len(want) {
		t.Fatalf("got %d records, want %d", len(st.Symbols), len(want))
	}
	for i := range want {
		got := st.Symbols[i]
		if got.Symbol != want[i].sym || got.Count != want[i].count {
			t.Errorf("record %d: got %q x%d, want %q x%d", i, got.Symbol, got.Count, want[i].sym, want[i].count)
		}
	}
	if st.TotalSymbols != 11 {
		t.Errorf("TotalSymbols = %d", st.TotalSymbols)
	}
	a := st.Symbols[0]
	if p := 5.0 / 11; math.Abs(a.Probability-p) > 1e-15 {
		t.Errorf("P(A) = %v, want %v", a.Probability, p)
	}
	if math.Abs(a.InverseProbability-11.0/5) > 1e-12 {
		t.Errorf("1/P(A) = %v", a.InverseProbability)
	}
	if math.Abs(a.SelfInformation+math.Log2(5.0/11)) > 1e-12 {
		t.Errorf("I(A) = %v", a.SelfInformation)
	}
	var h float64
	for _, c := range []float64{5, 3, 2, 1} {
		p := c / 11
		h -= p * math.Log2(p)
	}
	if math.Abs(st.TotalEntropy-h) > 1e-12 {
		t.Errorf("TotalEntropy = %v, want %v", st.TotalEntropy, h)
	}
}

func TestAnalyzeTieOrder(t *testing.T) {
	// every symbol appears twice; order must
	// follow first appearance
	st, err := Analyze("zyxxyzab ba")
	if err != nil {
		t.Fatal(err)
	}
	got := string(st.Alphabet())
	if got != "zyxab " {
		t.Fatalf("alphabet order %q, want %q", got, "zyxab ")
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	st, err := Analyze("")
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Symbols) != 0 || st.TotalSymbols != 0 ||
		st.TotalProbability != 0 || st.TotalEntropy != 0 {
		t.Fatalf("non-zero stats for empty text: %+v", st)
	}
}

func TestAnalyzeUnicode(t *testing.T) {
	st, err := Analyze("ñandú ñ")
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalSymbols != 7 {
		t.Fatalf("TotalSymbols = %d", st.TotalSymbols)
	}
	r, ok := st.Lookup('ñ')
	if !ok || r.Count != 2 {
		t.Fatalf("Lookup(ñ) = %+v, %v", r, ok)
	}
	if _, ok := st.Lookup('q'); ok {
		t.Fatal("Lookup found absent symbol")
	}
}

func TestFromRecords(t *testing.T) {
	st, err := Analyze("mississippi")
	if err != nil {
		t.Fatal(err)
	}
	re, err := FromRecords(st.Symbols)
	if err != nil {
		t.Fatal(err)
	}
	if re.TotalSymbols != st.TotalSymbols || re.TotalEntropy != st.TotalEntropy {
		t.Fatalf("reloaded totals differ: %+v vs %+v", re, st)
	}
	// out-of-order records are rejected
	bad := []Record{st.Symbols[len(st.Symbols)-1], st.Symbols[0]}
	if _, err := FromRecords(bad); err == nil {
		t.Fatal("expected ordering error")
	}
	// a distribution that does not sum to 1
	skew := []Record{NewRecord('a', 3, 4), NewRecord('b', 3, 4)}
	_, err = FromRecords(skew)
	if !errors.Is(err, ErrInconsistentDistribution) {
		t.Fatalf("got %v, want ErrInconsistentDistribution", err)
	}
}

func FuzzAnalyze(f *testing.F) {
	f.Add("")
	f.Add("a")
	f.Add("the quick brown fox jumps over the lazy dog")
	f.Add("\x00\xff\xfe")
	f.Fuzz(func(t *testing.T, text string) {
		st, err := Analyze(text)
		if err != nil {
			t.Fatal(err)
		}
		if text == "" {
			return
		}
		if math.Abs(st.TotalProbability-1) > Tolerance {
			t.Fatalf("probabilities sum to %v", st.TotalProbability)
		}
		total := 0
		for i := range st.Symbols {
			total += st.Symbols[i].Count
			if i > 0 && st.Symbols[i].Count > st.Symbols[i-1].Count {
				t.Fatalf("record %d out of order", i)
			}
		}
		if total != st.TotalSymbols {
			t.Fatalf("counts sum to %d, want %d", total, st.TotalSymbols)
		}
	})
}
