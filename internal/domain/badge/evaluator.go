package badge

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATION
// ══════════════════════════════════════════════════════════════════════════════

// Ledger - учёт выданных значков внутри транзакции прогресса.
type Ledger interface {
	// Has сообщает, есть ли у пользователя значок.
	Has(ctx context.Context, b Badge) (bool, error)

	// Award выдаёт значок и начисляет награду. false, если значок уже
	// был выдан (конфликт уникальности) - тогда XP не начисляется.
	Award(ctx context.Context, b Badge) (bool, error)
}

// Evaluate проверяет правила каталога по порядку и выдаёт подходящие значки.
// После каждой выдачи снимок пересчитывается (XP и уровень), и проходы
// повторяются, пока очередной проход ничего не выдал. Так цепочка
// "награда за точность -> новый уровень -> значок за уровень" не теряется
// при любом порядке каталога.
func (c *Catalog) Evaluate(ctx context.Context, snap Snapshot, ledger Ledger) ([]Badge, error) {
	var awarded []Badge
	decided := make(map[string]bool, len(c.Badges))

	for pass := 0; pass <= len(c.Badges); pass++ {
		progressed := false
		for _, b := range c.Badges {
			if decided[b.Key] || !b.Rule.Matches(snap) {
				continue
			}

			has, err := ledger.Has(ctx, b)
			if err != nil {
				return nil, err
			}
			decided[b.Key] = true
			if has {
				continue
			}

			ok, err := ledger.Award(ctx, b)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}

			awarded = append(awarded, b)
			snap = snap.WithReward(b.XPReward)
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return awarded, nil
}
