package gamestate

import (
	"fmt"
	"sort"
)

// Action is an animation state identifier as reported by the game.
type Action uint16

// Enumerated actions. Values follow the game's action state ids.
const (
	ActionDeadDown            Action = 0x00
	ActionDeadLeft            Action = 0x01
	ActionDeadRight           Action = 0x02
	ActionDeadUp              Action = 0x03
	ActionDeadFlyStar         Action = 0x04
	ActionDeadFlyStarIce      Action = 0x05
	ActionDeadFly             Action = 0x06
	ActionDeadFlySplatter     Action = 0x07
	ActionDeadFlySplatterFlat Action = 0x08
	ActionSleep               Action = 0x0b
	ActionOnHaloDescent       Action = 0x0c
	ActionOnHaloWait          Action = 0x0d
	ActionStanding            Action = 0x0e
	ActionWalkSlow            Action = 0x0f
	ActionWalkMiddle          Action = 0x10
	ActionWalkFast            Action = 0x11
	ActionTurning             Action = 0x12
	ActionTurningRun          Action = 0x13
	ActionDashing             Action = 0x14
	ActionRunning             Action = 0x15
	ActionRunBrake            Action = 0x17
	ActionKneeBend            Action = 0x18
	ActionJumpingForward      Action = 0x19
	ActionJumpingBackward     Action = 0x1a
	ActionJumpingAerialFwd    Action = 0x1b
	ActionJumpingAerialBack   Action = 0x1c
	ActionFalling             Action = 0x1d
	ActionSpecialFallForward  Action = 0x23
	ActionSpecialFallBack     Action = 0x24
	ActionTumbling            Action = 0x25
	ActionCrouchStart         Action = 0x27
	ActionCrouching           Action = 0x28
	ActionCrouchEnd           Action = 0x29
	ActionLanding             Action = 0x2a
	ActionLandingSpecial      Action = 0x2b
	ActionNeutralAttack1      Action = 0x2c
	ActionDashAttack          Action = 0x32
	ActionFTiltMid            Action = 0x35
	ActionUpTilt              Action = 0x38
	ActionDownTilt            Action = 0x39
	ActionFSmashMid           Action = 0x3c
	ActionUpSmash             Action = 0x3f
	ActionDownSmash           Action = 0x40
	ActionNair                Action = 0x41
	ActionFair                Action = 0x42
	ActionBair                Action = 0x43
	ActionUair                Action = 0x44
	ActionDair                Action = 0x45
	ActionDamageHigh          Action = 0x4b
	ActionDamageFlyHigh       Action = 0x5b
	ActionShieldStart         Action = 0xb2
	ActionShield              Action = 0xb3
	ActionShieldRelease       Action = 0xb4
	ActionGrab                Action = 0xd4
	ActionEdgeHanging         Action = 0xfd
	ActionNeutralSpecial      Action = 0x157
	ActionSideSpecial         Action = 0x15b
	ActionUpSpecial           Action = 0x15f
	ActionDownSpecial         Action = 0x163
)

var actionNames = map[Action]string{
	ActionDeadDown:            "DEAD_DOWN",
	ActionDeadLeft:            "DEAD_LEFT",
	ActionDeadRight:           "DEAD_RIGHT",
	ActionDeadUp:              "DEAD_UP",
	ActionDeadFlyStar:         "DEAD_FLY_STAR",
	ActionDeadFlyStarIce:      "DEAD_FLY_STAR_ICE",
	ActionDeadFly:             "DEAD_FLY",
	ActionDeadFlySplatter:     "DEAD_FLY_SPLATTER",
	ActionDeadFlySplatterFlat: "DEAD_FLY_SPLATTER_FLAT",
	ActionSleep:               "SLEEP",
	ActionOnHaloDescent:       "ON_HALO_DESCENT",
	ActionOnHaloWait:          "ON_HALO_WAIT",
	ActionStanding:            "STANDING",
	ActionWalkSlow:            "WALK_SLOW",
	ActionWalkMiddle:          "WALK_MIDDLE",
	ActionWalkFast:            "WALK_FAST",
	ActionTurning:             "TURNING",
	ActionTurningRun:          "TURNING_RUN",
	ActionDashing:             "DASHING",
	ActionRunning:             "RUNNING",
	ActionRunBrake:            "RUN_BRAKE",
	ActionKneeBend:            "KNEE_BEND",
	ActionJumpingForward:      "JUMPING_FORWARD",
	ActionJumpingBackward:     "JUMPING_BACKWARD",
	ActionJumpingAerialFwd:    "JUMPING_ARIAL_FORWARD",
	ActionJumpingAerialBack:   "JUMPING_ARIAL_BACKWARD",
	ActionFalling:             "FALLING",
	ActionSpecialFallForward:  "SPECIAL_FALL_FORWARD",
	ActionSpecialFallBack:     "SPECIAL_FALL_BACK",
	ActionTumbling:            "TUMBLING",
	ActionCrouchStart:         "CROUCH_START",
	ActionCrouching:           "CROUCHING",
	ActionCrouchEnd:           "CROUCH_END",
	ActionLanding:             "LANDING",
	ActionLandingSpecial:      "LANDING_SPECIAL",
	ActionNeutralAttack1:      "NEUTRAL_ATTACK_1",
	ActionDashAttack:          "DASH_ATTACK",
	ActionFTiltMid:            "FTILT_MID",
	ActionUpTilt:              "UPTILT",
	ActionDownTilt:            "DOWNTILT",
	ActionFSmashMid:           "FSMASH_MID",
	ActionUpSmash:             "UPSMASH",
	ActionDownSmash:           "DOWNSMASH",
	ActionNair:                "NAIR",
	ActionFair:                "FAIR",
	ActionBair:                "BAIR",
	ActionUair:                "UAIR",
	ActionDair:                "DAIR",
	ActionDamageHigh:          "DAMAGE_HIGH_1",
	ActionDamageFlyHigh:       "DAMAGE_FLY_HIGH",
	ActionShieldStart:         "SHIELD_START",
	ActionShield:              "SHIELD",
	ActionShieldRelease:       "SHIELD_RELEASE",
	ActionGrab:                "GRAB",
	ActionEdgeHanging:         "EDGE_HANGING",
	ActionNeutralSpecial:      "NEUTRAL_SPECIAL",
	ActionSideSpecial:         "SIDE_SPECIAL",
	ActionUpSpecial:           "UP_SPECIAL",
	ActionDownSpecial:         "DOWN_SPECIAL",
}

var actionsByName = func() map[string]Action {
	m := make(map[string]Action, len(actionNames))
	for a, n := range actionNames {
		m[n] = a
	}
	return m
}()

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return fmt.Sprintf("ACTION_0x%03x", uint16(a))
}

// Known reports whether a is one of the enumerated actions.
func (a Action) Known() bool {
	_, ok := actionNames[a]
	return ok
}

// ParseAction resolves an enumerated action by name.
func ParseAction(name string) (Action, error) {
	a, ok := actionsByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown action %q", name)
	}
	return a, nil
}

// Actions returns every enumerated action in ascending order.
func Actions() []Action {
	out := make([]Action, 0, len(actionNames))
	for a := range actionNames {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Character identifies a playable character.
type Character string

const (
	CharacterFox           Character = "FOX"
	CharacterFalco         Character = "FALCO"
	CharacterMarth         Character = "MARTH"
	CharacterCaptainFalcon Character = "CPTFALCON"
	CharacterSheik         Character = "SHEIK"
	CharacterJigglypuff    Character = "JIGGLYPUFF"
)

var characters = map[Character]struct{}{
	CharacterFox:           {},
	CharacterFalco:         {},
	CharacterMarth:         {},
	CharacterCaptainFalcon: {},
	CharacterSheik:         {},
	CharacterJigglypuff:    {},
}

// ParseCharacter resolves an enumerated character by name.
func ParseCharacter(name string) (Character, error) {
	c := Character(name)
	if _, ok := characters[c]; !ok {
		return "", fmt.Errorf("unknown character %q", name)
	}
	return c, nil
}

// Stage identifies a legal stage.
type Stage string

const (
	StageBattlefield      Stage = "BATTLEFIELD"
	StageFinalDestination Stage = "FINAL_DESTINATION"
	StageDreamland        Stage = "DREAMLAND"
	StageFountainOfDreams Stage = "FOUNTAIN_OF_DREAMS"
	StagePokemonStadium   Stage = "POKEMON_STADIUM"
	StageYoshisStory      Stage = "YOSHIS_STORY"
)
