package game

import (
	"fmt"
	"strings"
)

type DirectiveKind string

const (
	DirectiveReady           DirectiveKind = "ready"
	DirectiveSet             DirectiveKind = "set"
	DirectivePlay            DirectiveKind = "play"
	DirectiveFinish          DirectiveKind = "finish"
	DirectiveGoal            DirectiveKind = "goal"
	DirectiveDropBall        DirectiveKind = "drop_ball"
	DirectiveSecondHalf      DirectiveKind = "second_half"
	DirectiveOvertime        DirectiveKind = "overtime"
	DirectivePenaltyShootout DirectiveKind = "penalty_shootout"
	DirectiveTimeoutBegin    DirectiveKind = "timeout_begin"
	DirectiveTimeoutEnd      DirectiveKind = "timeout_end"
)

var directiveKinds = []DirectiveKind{
	DirectiveReady,
	DirectiveSet,
	DirectivePlay,
	DirectiveFinish,
	DirectiveGoal,
	DirectiveDropBall,
	DirectiveSecondHalf,
	DirectiveOvertime,
	DirectivePenaltyShootout,
	DirectiveTimeoutBegin,
	DirectiveTimeoutEnd,
}

// Sided directives name the team they act for.
func (k DirectiveKind) Sided() bool {
	switch k {
	case DirectiveGoal, DirectiveDropBall, DirectiveTimeoutBegin, DirectiveTimeoutEnd:
		return true
	default:
		return false
	}
}

// Directive is an operator command. Side is ignored for unsided kinds.
type Directive struct {
	Kind DirectiveKind `json:"kind"`
	Side int           `json:"side"`
}

func (d Directive) String() string {
	if d.Kind.Sided() {
		return fmt.Sprintf("%s(%d)", d.Kind, d.Side)
	}
	return string(d.Kind)
}

func ParseDirective(name string, side int) (Directive, error) {
	kind := DirectiveKind(strings.ToLower(strings.TrimSpace(name)))
	for _, k := range directiveKinds {
		if k != kind {
			continue
		}
		if k.Sided() {
			if err := checkSide(side); err != nil {
				return Directive{}, err
			}
		}
		return Directive{Kind: k, Side: side}, nil
	}
	return Directive{}, fmt.Errorf("%w: unknown directive %q", ErrInvalidTransition, name)
}

// DirectiveKinds lists every directive name.
func DirectiveKinds() []DirectiveKind {
	return append([]DirectiveKind(nil), directiveKinds...)
}
