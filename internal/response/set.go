package response

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/scoreerr"
)

// #region set
// Set is a strongly-typed response set for one session: at most one answer per
// item, every answer valid for its item. Immutable after Ingest.
type Set struct {
	responses  []Response
	index      map[string]int
	duplicates int
}

// Len returns the number of answered items.
func (s Set) Len() int { return len(s.responses) }

// Get returns the answer for an item id.
func (s Set) Get(itemID string) (Answer, bool) {
	i, ok := s.index[itemID]
	if !ok {
		return nil, false
	}
	return s.responses[i].Answer, true
}

// Likert returns the Likert value for an item id.
func (s Set) Likert(itemID string) (int, bool) {
	a, ok := s.Get(itemID)
	if !ok {
		return 0, false
	}
	la, ok := a.(LikertAnswer)
	return la.Value, ok
}

// Has reports whether the item was answered.
func (s Set) Has(itemID string) bool {
	_, ok := s.index[itemID]
	return ok
}

// Responses returns the responses in ingestion order.
func (s Set) Responses() []Response {
	return append([]Response(nil), s.responses...)
}

// Duplicates counts raw rows that were superseded by a later row for the same item.
func (s Set) Duplicates() int { return s.duplicates }

// Hash is a deterministic fingerprint of the set. Independent of ingestion order.
func (s Set) Hash() string {
	sorted := s.Responses()
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ItemID < sorted[j].ItemID })
	h := sha256.New()
	for _, r := range sorted {
		h.Write([]byte(r.ItemID))
		h.Write([]byte{0x1f})
		h.Write([]byte(r.Answer.Canonical()))
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// #endregion set

// #region build
// New builds a set from already-typed responses. Later responses for the same
// item replace earlier ones. Answers are checked against the catalog.
func New(cat *catalog.Catalog, responses ...Response) (Set, error) {
	s := Set{index: make(map[string]int, len(responses))}
	var unknown []string
	var invalid []string
	var lastErr error
	for _, r := range responses {
		it, err := cat.Resolve(r.ItemID)
		if err != nil {
			unknown = append(unknown, r.ItemID)
			lastErr = err
			continue
		}
		if msg := checkAnswer(it, r.Answer); msg != "" {
			invalid = append(invalid, msg)
			continue
		}
		s.put(r)
	}
	if len(unknown) > 0 {
		e := scoreerr.CatalogMismatch(strings.Join(unknown, ","), lastErr)
		return Set{}, e
	}
	if len(invalid) > 0 {
		return Set{}, scoreerr.StructuralInvalid(invalid...)
	}
	return s, nil
}

// Ingest resolves loosely-typed rows against the catalog. Rows with empty values
// are treated as unanswered. Unknown items fail with CatalogMismatch; values that
// cannot be interpreted for their item fail with StructuralInvalid.
func Ingest(raws []Raw, cat *catalog.Catalog) (Set, error) {
	responses := make([]Response, 0, len(raws))
	var unknown []string
	var invalid []string
	var lastErr error
	for _, raw := range raws {
		it, err := cat.Resolve(raw.ItemID)
		if err != nil {
			unknown = append(unknown, raw.ItemID)
			lastErr = err
			continue
		}
		if isEmpty(raw.Value) {
			continue
		}
		ans, err := interpret(it, raw.Value)
		if err != nil {
			invalid = append(invalid, fmt.Sprintf("item %s: %v", it.ID, err))
			continue
		}
		responses = append(responses, Response{ItemID: it.ID, Answer: ans})
	}
	if len(unknown) > 0 {
		return Set{}, scoreerr.CatalogMismatch(strings.Join(unknown, ","), lastErr)
	}
	if len(invalid) > 0 {
		return Set{}, scoreerr.StructuralInvalid(invalid...)
	}
	return New(cat, responses...)
}

func (s *Set) put(r Response) {
	if i, ok := s.index[r.ItemID]; ok {
		s.responses[i] = r
		s.duplicates++
		return
	}
	s.index[r.ItemID] = len(s.responses)
	s.responses = append(s.responses, r)
}

func checkAnswer(it catalog.Item, a Answer) string {
	switch v := a.(type) {
	case LikertAnswer:
		lo, hi, ok := it.Scale.Bounds()
		if !ok {
			return fmt.Sprintf("item %s: Likert answer for %s item", it.ID, it.Scale)
		}
		if v.Value < lo || v.Value > hi {
			return fmt.Sprintf("item %s: value %d outside %d..%d", it.ID, v.Value, lo, hi)
		}
	case ChoiceAnswer:
		if it.Tag != catalog.TagForcedChoice {
			return fmt.Sprintf("item %s: choice answer for %s item", it.ID, it.Tag)
		}
		if _, ok := it.Options[v.Option]; !ok {
			return fmt.Sprintf("item %s: option %q not in block %s", it.ID, v.Option, it.BlockID)
		}
	case nil:
		return fmt.Sprintf("item %s: nil answer", it.ID)
	}
	return ""
}

// #endregion build

// #region interpret
var leadingDigits = regexp.MustCompile(`^(\d+)`)

var labelValues = map[string]int{
	"strongly disagree": 1, "disagree": 2, "neutral": 3, "agree": 4, "strongly agree": 5,
	"never": 1, "rarely": 2, "sometimes": 3, "often": 4, "always": 5,
}

func interpret(it catalog.Item, v any) (Answer, error) {
	if it.Tag == catalog.TagForcedChoice {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("forced-choice answer must be an option code, got %T", v)
		}
		return ChoiceAnswer{Option: strings.ToUpper(strings.TrimSpace(s))}, nil
	}
	n, err := toInt(v)
	if err != nil {
		return nil, err
	}
	return LikertAnswer{Value: n}, nil
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return 0, fmt.Errorf("non-integer value %v", x)
		}
		return int(x), nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("non-integer value %s", x)
		}
		return int(n), nil
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		if m := leadingDigits.FindString(s); m != "" {
			return strconv.Atoi(m)
		}
		if n, ok := labelValues[s]; ok {
			return n, nil
		}
		return 0, fmt.Errorf("unrecognized answer %q", x)
	}
	return 0, fmt.Errorf("unsupported answer type %T", v)
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// #endregion interpret
