package response

import "strconv"

// #region answer
// Answer is the closed set of answer shapes. Implemented only by LikertAnswer
// and ChoiceAnswer; consumers switch on the concrete type.
type Answer interface {
	isAnswer()
	// Canonical is the stable text form used for hashing and storage.
	Canonical() string
}

// LikertAnswer is a bounded integer on the item's native scale.
type LikertAnswer struct {
	Value int
}

// ChoiceAnswer is a selected forced-choice option code.
type ChoiceAnswer struct {
	Option string
}

func (LikertAnswer) isAnswer() {}
func (ChoiceAnswer) isAnswer() {}

func (a LikertAnswer) Canonical() string { return "L:" + strconv.Itoa(a.Value) }
func (a ChoiceAnswer) Canonical() string { return "C:" + a.Option }

// #endregion answer

// #region response
// Response pairs an item id with its resolved answer.
type Response struct {
	ItemID string
	Answer Answer
}

// Raw is a loosely-typed stored answer row before ingestion. Value may be a
// number, a numeric or labelled string, or an option code.
type Raw struct {
	ItemID string `json:"item_id"`
	Value  any    `json:"value"`
}

// #endregion response
