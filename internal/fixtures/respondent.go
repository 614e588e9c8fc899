// Package fixtures builds synthetic respondents for tests, replay fixtures
// and database seeding.
package fixtures

import (
	"math/rand/v2"
	"sort"

	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/response"
)

// #region respondent
// Respondent describes how a synthetic person answers every item. Zero values
// for Neuroticism, SocialDesirability and State mean a neutral answer.
type Respondent struct {
	// Likert is the forward-direction native answer (1..5) per function.
	// Reverse-keyed items receive the mirrored value.
	Likert [catalog.NumFunctions]int
	// Preference orders functions for forced-choice blocks, most preferred first.
	Preference []catalog.Function

	Neuroticism        int // native 1..7
	SocialDesirability int // native 1..5
	State              int // native 1..7

	FailAttention     bool
	InconsistentPairs int
	SkipForcedChoice  int // trailing forced-choice blocks left unanswered
	SkipOptional      bool

	// Noise is the probability that an answer deviates from the pattern.
	Noise float64
	Seed  uint64
}

// seat order: base, creative, role, vulnerable, mobilizing, suggestive, ignoring, demonstrative
var (
	seatLikert     = [8]int{5, 4, 3, 1, 3, 2, 3, 3}
	seatPreference = []int{0, 1, 7, 6, 4, 2, 5, 3}
)

// FromSeats builds a clean respondent whose answers express a type structure
// given as the functions in seat order (base first, demonstrative last).
func FromSeats(seats [8]catalog.Function) Respondent {
	var r Respondent
	for i, f := range seats {
		r.Likert[f] = seatLikert[i]
	}
	for _, s := range seatPreference {
		r.Preference = append(r.Preference, seats[s])
	}
	return r
}

// #endregion respondent

// #region answers
// Responses renders the respondent's answers against a catalog in catalog order.
func (r Respondent) Responses(cat *catalog.Catalog) []response.Response {
	rng := rand.New(rand.NewPCG(r.Seed, 0x5eed))
	noisy := func() bool { return r.Noise > 0 && rng.Float64() < r.Noise }

	fc := cat.ByTag(catalog.TagForcedChoice)
	answerFC := len(fc) - r.SkipForcedChoice
	fcSeen := 0
	inconsistent := map[string]bool{}
	for i, p := range cat.Pairs() {
		if i < r.InconsistentPairs {
			inconsistent[p.Group] = true
		}
	}

	var out []response.Response
	likert := func(it catalog.Item, forward int) {
		lo, hi, _ := it.Scale.Bounds()
		v := forward
		if noisy() {
			if rng.IntN(2) == 0 {
				v--
			} else {
				v++
			}
		}
		v = min(max(v, lo), hi)
		if it.Reverse {
			v = it.Scale.Reverse(v)
		}
		out = append(out, response.Response{ItemID: it.ID, Answer: response.LikertAnswer{Value: v}})
	}

	for _, it := range cat.Items() {
		switch it.Tag {
		case catalog.TagFunctionScale:
			v := r.Likert[it.Function]
			if v == 0 {
				v = 3
			}
			likert(it, v)
		case catalog.TagNeuroticism:
			if r.SkipOptional {
				continue
			}
			likert(it, orDefault(r.Neuroticism, 4))
		case catalog.TagForcedChoice:
			fcSeen++
			if fcSeen > answerFC {
				continue
			}
			code := r.choose(it)
			if noisy() {
				codes := it.OptionCodes()
				code = codes[rng.IntN(len(codes))]
			}
			out = append(out, response.Response{ItemID: it.ID, Answer: response.ChoiceAnswer{Option: code}})
		case catalog.TagAttentionCheck:
			v := it.Expected
			if r.FailAttention {
				lo, hi, _ := it.Scale.Bounds()
				v = lo + hi - v
				if v == it.Expected {
					v = lo
				}
			}
			out = append(out, response.Response{ItemID: it.ID, Answer: response.LikertAnswer{Value: v}})
		case catalog.TagSocialDesirability:
			if r.SkipOptional {
				continue
			}
			likert(it, orDefault(r.SocialDesirability, 3))
		case catalog.TagStateCheck:
			if r.SkipOptional {
				continue
			}
			likert(it, orDefault(r.State, 4))
		case catalog.TagInconsistency:
			v := 4
			if inconsistent[it.PairGroup] {
				v = 5
				if it.PairSide == catalog.SideB {
					v = 1
				}
			}
			if it.Reverse {
				v = it.Scale.Reverse(v)
			}
			out = append(out, response.Response{ItemID: it.ID, Answer: response.LikertAnswer{Value: v}})
		}
	}
	return out
}

// Raws renders the answers as loosely-typed rows, the shape stored sessions use.
func (r Respondent) Raws(cat *catalog.Catalog) []response.Raw {
	resp := r.Responses(cat)
	out := make([]response.Raw, 0, len(resp))
	for _, x := range resp {
		switch a := x.Answer.(type) {
		case response.LikertAnswer:
			out = append(out, response.Raw{ItemID: x.ItemID, Value: a.Value})
		case response.ChoiceAnswer:
			out = append(out, response.Raw{ItemID: x.ItemID, Value: a.Option})
		}
	}
	return out
}

// Set builds a validated response set.
func (r Respondent) Set(cat *catalog.Catalog) (response.Set, error) {
	return response.New(cat, r.Responses(cat)...)
}

// choose picks the option whose strongest function ranks highest in the
// preference order. Ties go to the lower option code.
func (r Respondent) choose(it catalog.Item) string {
	rankOf := map[catalog.Function]int{}
	for i, f := range r.Preference {
		if _, ok := rankOf[f]; !ok {
			rankOf[f] = i
		}
	}
	codes := it.OptionCodes()
	sort.Strings(codes)
	best, bestRank := codes[0], len(rankOf)+catalog.NumFunctions
	for _, code := range codes {
		f := primary(it.Options[code])
		rk, ok := rankOf[f]
		if !ok {
			rk = len(rankOf) + int(f)
		}
		if rk < bestRank {
			best, bestRank = code, rk
		}
	}
	return best
}

func primary(w catalog.Weights) catalog.Function {
	var best catalog.Function
	for _, f := range catalog.Functions() {
		if w[f] > w[best] {
			best = f
		}
	}
	return best
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// #endregion answers
