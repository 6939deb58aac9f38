package application

import (
	"math/rand/v2"
	"testing"

	"tankarena/server/domain"
)

func TestRandomBotController_Decide(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))

	t.Run("never acts with zero chances", func(t *testing.T) {
		bot := &RandomBotController{}
		for range 1000 {
			if a := bot.Decide(rng); a != (BotAction{}) {
				t.Fatalf("Decide() = %+v, want zero action", a)
			}
		}
	})

	t.Run("always rerolls and fires with chance 1", func(t *testing.T) {
		bot := &RandomBotController{BehaviorChance: 1, FireChance: 1}
		moving, turning := 0, 0
		for range 1000 {
			a := bot.Decide(rng)
			if !a.Reroll || !a.Fire {
				t.Fatalf("Decide() = %+v, want reroll and fire", a)
			}
			if a.Turning < -1 || a.Turning > 1 {
				t.Fatalf("Turning = %d, want -1..1", a.Turning)
			}
			if a.Moving {
				moving++
			}
			if a.Turning != 0 {
				turning++
			}
		}
		// 80%前進、50%旋回から大きく外れないこと
		if moving < 700 || moving > 900 {
			t.Errorf("moving = %d/1000, want about 800", moving)
		}
		if turning < 400 || turning > 600 {
			t.Errorf("turning = %d/1000, want about 500", turning)
		}
	})
}

func TestRandomBotController_SameSeedSameDecisions(t *testing.T) {
	bot := NewRandomBotController()
	a := rand.New(rand.NewPCG(42, 42))
	b := rand.New(rand.NewPCG(42, 42))

	for i := range 500 {
		if x, y := bot.Decide(a), bot.Decide(b); x != y {
			t.Fatalf("decision %d differs: %+v != %+v", i, x, y)
		}
	}
}

func TestBotAction_Apply(t *testing.T) {
	tank := NewTank("tank-1", KindAI, "AI 1", DefaultAIStats(), domain.Position2D{X: 100, Y: 100}, 0)
	tank.Moving = true
	tank.Turning = 1

	BotAction{Fire: true}.Apply(tank)
	if !tank.Moving || tank.Turning != 1 {
		t.Errorf("non-reroll Apply changed input to moving=%v turning=%d", tank.Moving, tank.Turning)
	}

	BotAction{Reroll: true, Moving: false, Turning: -1}.Apply(tank)
	if tank.Moving || tank.Turning != -1 {
		t.Errorf("Apply() = moving=%v turning=%d, want false/-1", tank.Moving, tank.Turning)
	}
}
