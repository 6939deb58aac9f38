package application

import "math/rand/v2"

const (
	DefaultBehaviorChance = 0.01
	DefaultFireChance     = 0.02

	moveChance = 0.8
	turnChance = 0.5
)

// RandomBotController は毎tick確率的に行動を選び直すボットAIです。
//
// BehaviorChance の確率で移動と旋回を選び直し（80%で前進、50%で左右どちらかに旋回）、
// それとは独立に FireChance の確率で射撃を試みます。確率はtick単位です。
type RandomBotController struct {
	BehaviorChance float64
	FireChance     float64
}

var _ BotController = (*RandomBotController)(nil)

func NewRandomBotController() *RandomBotController {
	return &RandomBotController{
		BehaviorChance: DefaultBehaviorChance,
		FireChance:     DefaultFireChance,
	}
}

func (r *RandomBotController) Decide(rng *rand.Rand) BotAction {
	var a BotAction
	if rng.Float64() < r.BehaviorChance {
		a.Reroll = true
		a.Moving = rng.Float64() < moveChance
		if rng.Float64() < turnChance {
			a.Turning = 1
			if rng.Float64() < 0.5 {
				a.Turning = -1
			}
		}
	}
	a.Fire = rng.Float64() < r.FireChance
	return a
}
