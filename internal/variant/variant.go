// Package variant describes the league-dependent parts of a session: the
// wire league number, roster size, coach record, penalty catalogue and the
// timing rules the state machine runs on.
package variant

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/danmuck/refctl/internal/protocol"
)

var (
	ErrUnknownVariant = errors.New("variant: unknown variant")
	ErrInvalid        = errors.New("variant: invalid descriptor")
)

// PenaltySpec is one catalogue entry. Duration is the countdown in seconds;
// administrative kinds carry 0.
type PenaltySpec struct {
	Kind     protocol.PenaltyKind `toml:"kind" json:"kind"`
	Name     string               `toml:"name" json:"name"`
	Duration uint8                `toml:"duration" json:"duration"`
}

// Rules are the timing rules of a league. All durations are in seconds.
// SuddenDeath allows shootout attempts beyond ShootoutShots, each on
// SuddenDeathShotTime.
type Rules struct {
	HalfTime            uint16 `toml:"half_time" json:"half_time"`
	ReadyTime           uint16 `toml:"ready_time" json:"ready_time"`
	PauseTime           uint16 `toml:"pause_time" json:"pause_time"`
	TimeoutTime         uint16 `toml:"timeout_time" json:"timeout_time"`
	TimeoutGivesKickoff bool   `toml:"timeout_gives_kickoff" json:"timeout_gives_kickoff"`
	TimeoutPerHalf      bool   `toml:"timeout_per_half" json:"timeout_per_half"`
	PlayOffTimeStop     bool   `toml:"play_off_time_stop" json:"play_off_time_stop"`
	Overtime            bool   `toml:"overtime" json:"overtime"`
	OvertimeTime        uint16 `toml:"overtime_time" json:"overtime_time"`
	ShootoutShots       uint8  `toml:"shootout_shots" json:"shootout_shots"`
	ShotTime            uint16 `toml:"shot_time" json:"shot_time"`
	SuddenDeath         bool   `toml:"sudden_death" json:"sudden_death"`
	SuddenDeathShotTime uint16 `toml:"sudden_death_shot_time" json:"sudden_death_shot_time"`
}

type Variant struct {
	Name           string        `toml:"name" json:"name"`
	League         uint8         `toml:"league" json:"league"`
	PlayersPerTeam uint8         `toml:"players_per_team" json:"players_per_team"`
	HasCoach       bool          `toml:"has_coach" json:"has_coach"`
	Penalties      []PenaltySpec `toml:"penalties" json:"penalties"`
	Rules          Rules         `toml:"rules" json:"rules"`
}

// Layout is the wire contract the codec needs for this variant.
func (v Variant) Layout() protocol.Layout {
	kinds := make([]protocol.PenaltyKind, 0, len(v.Penalties))
	for _, p := range v.Penalties {
		kinds = append(kinds, p.Kind)
	}
	return protocol.Layout{League: v.League, HasCoach: v.HasCoach, Penalties: kinds}
}

func (v Variant) Codec() *protocol.Codec {
	return protocol.NewCodec(v.Layout())
}

// Penalty looks up a catalogue entry. Substitute and manual are known to
// every variant even when the catalogue omits them.
func (v Variant) Penalty(kind protocol.PenaltyKind) (PenaltySpec, bool) {
	for _, p := range v.Penalties {
		if p.Kind == kind {
			return p, true
		}
	}
	switch kind {
	case protocol.PenaltySubstitute:
		return PenaltySpec{Kind: kind, Name: "substitute"}, true
	case protocol.PenaltyManual:
		return PenaltySpec{Kind: kind, Name: "manual"}, true
	}
	return PenaltySpec{}, false
}

// PenaltyNamed resolves a catalogue entry by name.
func (v Variant) PenaltyNamed(name string) (PenaltySpec, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range v.Penalties {
		if p.Name == name {
			return p, true
		}
	}
	for _, kind := range []protocol.PenaltyKind{protocol.PenaltySubstitute, protocol.PenaltyManual} {
		if spec, _ := v.Penalty(kind); spec.Name == name {
			return spec, true
		}
	}
	return PenaltySpec{}, false
}

// Duration returns the countdown for kind, or 0 for administrative kinds.
func (v Variant) Duration(kind protocol.PenaltyKind) (uint8, bool) {
	spec, ok := v.Penalty(kind)
	if !ok {
		return 0, false
	}
	if kind.Administrative() {
		return 0, true
	}
	return spec.Duration, true
}

func (v Variant) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if v.PlayersPerTeam == 0 || v.PlayersPerTeam > protocol.MaxPlayers {
		return fmt.Errorf("%w: players_per_team must be 1..%d: %d", ErrInvalid, protocol.MaxPlayers, v.PlayersPerTeam)
	}
	seen := map[protocol.PenaltyKind]bool{}
	for _, p := range v.Penalties {
		if p.Kind == protocol.PenaltyNone {
			return fmt.Errorf("%w: penalty %q uses reserved kind 0", ErrInvalid, p.Name)
		}
		if seen[p.Kind] {
			return fmt.Errorf("%w: duplicate penalty kind %d", ErrInvalid, p.Kind)
		}
		seen[p.Kind] = true
		if p.Kind.Administrative() {
			if p.Duration != 0 {
				return fmt.Errorf("%w: administrative penalty %q must not carry a duration", ErrInvalid, p.Name)
			}
			continue
		}
		if p.Duration == 0 {
			return fmt.Errorf("%w: penalty %q duration must be 1..255", ErrInvalid, p.Name)
		}
	}
	r := v.Rules
	if r.HalfTime == 0 {
		return fmt.Errorf("%w: rules.half_time is required", ErrInvalid)
	}
	if r.ReadyTime == 0 {
		return fmt.Errorf("%w: rules.ready_time is required", ErrInvalid)
	}
	if r.Overtime && r.OvertimeTime == 0 {
		return fmt.Errorf("%w: rules.overtime_time is required when overtime is enabled", ErrInvalid)
	}
	if r.ShotTime == 0 {
		return fmt.Errorf("%w: rules.shot_time is required", ErrInvalid)
	}
	if r.ShootoutShots == 0 || r.ShootoutShots > protocol.MaxShots {
		return fmt.Errorf("%w: rules.shootout_shots must be 1..%d", ErrInvalid, protocol.MaxShots)
	}
	if r.SuddenDeath && r.SuddenDeathShotTime == 0 {
		return fmt.Errorf("%w: rules.sudden_death_shot_time is required when sudden_death is enabled", ErrInvalid)
	}
	return nil
}

// Lookup returns a copy of the named built-in variant.
func Lookup(name string) (Variant, error) {
	build, ok := builtins[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return build(), nil
}

// Names lists the built-in variants in sorted order.
func Names() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
