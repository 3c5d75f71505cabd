package split

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"splitcheck/internal/parsing"
)

// NoPayer marks the valid "nobody paid yet" state. Designating a payer is
// optional, so its absence must not be an error.
const NoPayer = -1

var (
	// ErrInvalidAssignment signals an assignment matrix whose shape does not
	// match the item and participant counts. That is a caller bug and is
	// surfaced rather than silently corrected.
	ErrInvalidAssignment = errors.New("assignment matrix does not match items and participants")

	// ErrIndexOutOfRange signals a payer or item index outside valid bounds
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Result holds the computed per-participant settlement
type Result struct {
	// Participants are the normalized participant names, aligned with Owed
	// and Balances
	Participants []string `json:"participants"`

	// Owed is each participant's share of the items assigned to them
	Owed []decimal.Decimal `json:"owed"`

	// Total is the sum of all item prices, assigned or not
	Total decimal.Decimal `json:"total"`

	// PayerIndex is the participant who paid the whole check, or NoPayer
	PayerIndex int `json:"payer_index"`

	// Balances is owed minus paid per participant. Positive means the
	// participant still has to pay that amount, negative means they are
	// owed it back.
	Balances []decimal.Decimal `json:"balances"`
}

// Compute turns per-item assignments into per-participant balances.
//
// Each item's price is split equally over the participants assigned to it.
// An item nobody is assigned to contributes to the total but to no one's
// share; its cost is silently absorbed. No currency rounding is applied,
// formatting to two decimals is the presentation layer's concern.
func Compute(items []parsing.Item, participantNames []string, assignment [][]bool, payerIndex int) (*Result, error) {
	if len(assignment) != len(items) {
		return nil, fmt.Errorf("%w: %d assignment rows for %d items", ErrInvalidAssignment, len(assignment), len(items))
	}
	for i, row := range assignment {
		if len(row) != len(participantNames) {
			return nil, fmt.Errorf("%w: assignment row %d has %d columns for %d participants", ErrInvalidAssignment, i, len(row), len(participantNames))
		}
	}
	if payerIndex != NoPayer && (payerIndex < 0 || payerIndex >= len(participantNames)) {
		return nil, fmt.Errorf("%w: payer index %d with %d participants", ErrIndexOutOfRange, payerIndex, len(participantNames))
	}

	participants := make([]string, len(participantNames))
	for i, name := range participantNames {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Person %d", i+1)
		}
		participants[i] = name
	}

	owed := make([]decimal.Decimal, len(participants))
	total := decimal.Zero

	for i, item := range items {
		total = total.Add(item.Price)

		selected := make([]int, 0, len(participants))
		for p, shared := range assignment[i] {
			if shared {
				selected = append(selected, p)
			}
		}
		if len(selected) == 0 {
			continue
		}

		share := item.Price.Div(decimal.NewFromInt(int64(len(selected))))
		for _, p := range selected {
			owed[p] = owed[p].Add(share)
		}
	}

	balances := make([]decimal.Decimal, len(participants))
	for p := range participants {
		balances[p] = owed[p]
		if p == payerIndex {
			balances[p] = balances[p].Sub(total)
		}
	}

	return &Result{
		Participants: participants,
		Owed:         owed,
		Total:        total,
		PayerIndex:   payerIndex,
		Balances:     balances,
	}, nil
}
