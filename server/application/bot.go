package application

import "math/rand/v2"

// BotAction はボットの1tick分の判断です。
type BotAction struct {
	// Reroll がtrueのときだけ Moving と Turning を反映します。
	Reroll  bool
	Moving  bool
	Turning int
	Fire    bool
}

// BotController はボットの意思決定インターフェースです。
// 乱数はルームのものを受け取り、同じシードなら同じ判断列になります。
type BotController interface {
	Decide(rng *rand.Rand) BotAction
}

// Apply は判断を戦車の入力に反映します。射撃は呼び出し側で行います。
func (a BotAction) Apply(t *Tank) {
	if !a.Reroll {
		return
	}
	t.Moving = a.Moving
	t.Turning = a.Turning
}
