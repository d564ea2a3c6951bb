package variant

import "github.com/danmuck/refctl/internal/protocol"

const (
	LeagueSPL       uint8 = 1
	LeagueSPLDropIn uint8 = 2
	LeagueHLKid     uint8 = 17
	LeagueHLTeen    uint8 = 18
	LeagueHLAdult   uint8 = 19
)

// SPL penalty codes.
const (
	SPLBallHolding      protocol.PenaltyKind = 1
	SPLPlayerPushing    protocol.PenaltyKind = 2
	SPLObstruction      protocol.PenaltyKind = 3
	SPLInactivePlayer   protocol.PenaltyKind = 4
	SPLIllegalDefender  protocol.PenaltyKind = 5
	SPLLeavingTheField  protocol.PenaltyKind = 6
	SPLPlayingWithHands protocol.PenaltyKind = 7
	SPLRequestForPickup protocol.PenaltyKind = 8
	SPLCoachMotion      protocol.PenaltyKind = 9
)

// Humanoid penalty codes, shared by all three size classes.
const (
	HLBallManipulation  protocol.PenaltyKind = 1
	HLPhysicalContact   protocol.PenaltyKind = 2
	HLIllegalAttack     protocol.PenaltyKind = 3
	HLIllegalDefense    protocol.PenaltyKind = 4
	HLRequestForPickup  protocol.PenaltyKind = 5
	HLRequestForService protocol.PenaltyKind = 6
)

var builtins = map[string]func() Variant{
	"spl":        SPL,
	"spl_dropin": SPLDropIn,
	"hl_kid":     func() Variant { return humanoid("hl_kid", LeagueHLKid, 6) },
	"hl_teen":    func() Variant { return humanoid("hl_teen", LeagueHLTeen, 4) },
	"hl_adult":   func() Variant { return humanoid("hl_adult", LeagueHLAdult, 2) },
}

func splPenalties() []PenaltySpec {
	return []PenaltySpec{
		{Kind: SPLBallHolding, Name: "ball_holding", Duration: 45},
		{Kind: SPLPlayerPushing, Name: "player_pushing", Duration: 45},
		{Kind: SPLObstruction, Name: "obstruction", Duration: 45},
		{Kind: SPLInactivePlayer, Name: "inactive_player", Duration: 45},
		{Kind: SPLIllegalDefender, Name: "illegal_defender", Duration: 45},
		{Kind: SPLLeavingTheField, Name: "leaving_the_field", Duration: 45},
		{Kind: SPLPlayingWithHands, Name: "playing_with_hands", Duration: 45},
		{Kind: SPLRequestForPickup, Name: "request_for_pickup", Duration: 45},
		// The countdown is a single byte; the rulebook's 20 minutes saturate.
		{Kind: SPLCoachMotion, Name: "coach_motion", Duration: 255},
	}
}

func SPL() Variant {
	return Variant{
		Name:           "spl",
		League:         LeagueSPL,
		PlayersPerTeam: 6,
		HasCoach:       true,
		Penalties:      splPenalties(),
		Rules: Rules{
			HalfTime:            600,
			ReadyTime:           45,
			PauseTime:           600,
			TimeoutTime:         300,
			TimeoutGivesKickoff: true,
			PlayOffTimeStop:     true,
			ShootoutShots:       5,
			ShotTime:            60,
			SuddenDeath:         true,
			SuddenDeathShotTime: 120,
		},
	}
}

// SPLDropIn plays without substitutes. The coach record stays on the wire
// for every SPL league.
func SPLDropIn() Variant {
	v := SPL()
	v.Name = "spl_dropin"
	v.League = LeagueSPLDropIn
	v.PlayersPerTeam = 5
	return v
}

func humanoid(name string, league, players uint8) Variant {
	return Variant{
		Name:           name,
		League:         league,
		PlayersPerTeam: players,
		Penalties: []PenaltySpec{
			{Kind: HLBallManipulation, Name: "ball_manipulation", Duration: 30},
			{Kind: HLPhysicalContact, Name: "physical_contact", Duration: 30},
			{Kind: HLIllegalAttack, Name: "illegal_attack", Duration: 30},
			{Kind: HLIllegalDefense, Name: "illegal_defense", Duration: 30},
			{Kind: HLRequestForPickup, Name: "request_for_pickup", Duration: 30},
			{Kind: HLRequestForService, Name: "request_for_service", Duration: 60},
		},
		Rules: Rules{
			HalfTime:       600,
			ReadyTime:      30,
			PauseTime:      300,
			TimeoutTime:    120,
			TimeoutPerHalf: true,
			Overtime:       true,
			OvertimeTime:   300,
			ShootoutShots:  5,
			ShotTime:       60,
		},
	}
}
