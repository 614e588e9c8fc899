package rank

import (
	"fmt"
	"sort"
	"strings"

	"github.com/danielpatrickdp/prism-engine/internal/catalog"
)

// #region seats
// Seat is a position in a type's eight-function structure.
type Seat int

const (
	Base Seat = iota
	Creative
	Role
	Vulnerable
	Mobilizing
	Suggestive
	Ignoring
	Demonstrative
)

// NumSeats is the number of seats in a type structure.
const NumSeats = 8

var seatNames = [NumSeats]string{
	"base", "creative", "role", "vulnerable", "mobilizing", "suggestive", "ignoring", "demonstrative",
}

func (s Seat) String() string {
	if s < 0 || int(s) >= NumSeats {
		return fmt.Sprintf("Seat(%d)", int(s))
	}
	return seatNames[s]
}

// Block groups two seats.
type Block int

const (
	Core Block = iota
	Critic
	Hidden
	Instinct
)

// NumBlocks is the number of seat blocks.
const NumBlocks = 4

var blockNames = [NumBlocks]string{"Core", "Critic", "Hidden", "Instinct"}

func (b Block) String() string {
	if b < 0 || int(b) >= NumBlocks {
		return fmt.Sprintf("Block(%d)", int(b))
	}
	return blockNames[b]
}

// Block returns the block a seat belongs to.
func (s Seat) Block() Block {
	return Block(int(s) / 2)
}

// #endregion seats

// #region types
// Type is one of the 16 candidate types with every function assigned a seat.
type Type struct {
	Code  string
	Seats [NumSeats]catalog.Function
}

// Base is the type's leading function.
func (t Type) Base() catalog.Function { return t.Seats[Base] }

// Creative is the type's second function.
func (t Type) Creative() catalog.Function { return t.Seats[Creative] }

// Vulnerable is the function the type is expected to be weakest in.
func (t Type) Vulnerable() catalog.Function { return t.Seats[Vulnerable] }

// SeatOf returns where a function sits in the type.
func (t Type) SeatOf(f catalog.Function) Seat {
	for s, fn := range t.Seats {
		if fn == f {
			return Seat(s)
		}
	}
	return -1
}

// prototypes lists seats in order base, creative, role, vulnerable,
// mobilizing, suggestive, ignoring, demonstrative.
var prototypes = map[string]string{
	"EIE": "Fe Ni Ne Ti Fi Si Te Se",
	"EII": "Fi Ne Ni Te Fe Si Se Ti",
	"ESE": "Fe Si Ne Ti Fi Ni Te Se",
	"ESI": "Fi Se Ni Te Fe Ne Ti Si",
	"IEE": "Ne Fi Te Ni Si Fe Se Ti",
	"IEI": "Ni Fe Ti Ne Si Fi Se Te",
	"ILE": "Ne Ti Fe Ni Si Te Se Fi",
	"ILI": "Ni Te Fi Se Ne Ti Fe Si",
	"LIE": "Te Ni Se Fi Ti Ne Si Fe",
	"LII": "Ti Ne Ni Fe Te Si Fi Se",
	"LSE": "Te Si Se Fi Ti Ne Ni Fe",
	"LSI": "Ti Se Ni Fe Te Ne Fi Si",
	"SEE": "Se Fi Te Ni Ne Fe Si Ti",
	"SEI": "Si Fe Ti Ne Ni Fi Se Te",
	"SLE": "Se Ti Fe Ni Ne Te Si Fi",
	"SLI": "Si Te Fi Se Ni Ti Fe Ne",
}

var (
	types  []Type
	byCode map[string]Type
)

func init() {
	byCode = make(map[string]Type, len(prototypes))
	for code, seats := range prototypes {
		t := Type{Code: code}
		var seen [catalog.NumFunctions]bool
		for i, name := range strings.Fields(seats) {
			f, err := catalog.ParseFunction(name)
			if err != nil || seen[f] {
				panic(fmt.Sprintf("rank: malformed prototype %s", code))
			}
			seen[f] = true
			t.Seats[i] = f
		}
		types = append(types, t)
		byCode[code] = t
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Code < types[j].Code })
}

// Types returns the 16 types in canonical (lexicographic code) order.
func Types() []Type {
	return append([]Type(nil), types...)
}

// Lookup returns a type by its three-letter code.
func Lookup(code string) (Type, error) {
	t, ok := byCode[strings.ToUpper(code)]
	if !ok {
		return Type{}, fmt.Errorf("unknown type %q", code)
	}
	return t, nil
}

// #endregion types
