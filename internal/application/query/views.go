// Package query contains read operations following CQRS pattern.
// Запросы никогда не меняют состояние: только читают журнал попыток и каталоги.
package query

import (
	"time"

	"github.com/phishguard/phishguard-hub/internal/domain/badge"
	"github.com/phishguard/phishguard-hub/internal/domain/simulation"
)

// ══════════════════════════════════════════════════════════════════════════════
// DTO
// ══════════════════════════════════════════════════════════════════════════════

// BadgeDTO - значок для API.
type BadgeDTO struct {
	ID             int64          `json:"id"`
	Key            string         `json:"key"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Icon           string         `json:"icon"`
	Rarity         badge.Rarity   `json:"rarity"`
	XPReward       int            `json:"xp_reward"`
	UnlockCriteria map[string]any `json:"unlock_criteria"`
}

// EarnedBadgeDTO - полученный значок с датой.
type EarnedBadgeDTO struct {
	BadgeDTO
	EarnedAt time.Time `json:"earned_at"`
}

func badgeDTO(b *badge.Badge) BadgeDTO {
	return BadgeDTO{
		ID:             b.ID,
		Key:            b.Key,
		Name:           b.Name,
		Description:    b.Description,
		Icon:           b.Icon,
		Rarity:         b.Rarity,
		XPReward:       b.XPReward,
		UnlockCriteria: b.Rule.Criteria(),
	}
}

func badgeDTOs(in []*badge.Badge) []BadgeDTO {
	out := make([]BadgeDTO, 0, len(in))
	for _, b := range in {
		out = append(out, badgeDTO(b))
	}
	return out
}

func earnedDTOs(in []*badge.UserBadge) []EarnedBadgeDTO {
	out := make([]EarnedBadgeDTO, 0, len(in))
	for _, ub := range in {
		if ub.Badge == nil {
			continue
		}
		out = append(out, EarnedBadgeDTO{BadgeDTO: badgeDTO(ub.Badge), EarnedAt: ub.EarnedAt})
	}
	return out
}

// SimulationDTO - симуляция до ответа. Правильный ответ, разбор и признаки
// фишинга не раскрываются: они приходят только в результате отправки.
type SimulationDTO struct {
	ID          int64                 `json:"id"`
	Title       string                `json:"title"`
	SenderName  string                `json:"sender_name"`
	SenderEmail string                `json:"sender_email"`
	Subject     string                `json:"subject"`
	Content     string                `json:"content"`
	Difficulty  simulation.Difficulty `json:"difficulty"`
	Category    string                `json:"category"`
	CreatedAt   time.Time             `json:"created_at"`
}

func simulationDTO(s *simulation.Simulation) SimulationDTO {
	return SimulationDTO{
		ID:          s.ID,
		Title:       s.Title,
		SenderName:  s.SenderName,
		SenderEmail: s.SenderEmail,
		Subject:     s.Subject,
		Content:     s.Content,
		Difficulty:  s.Difficulty,
		Category:    s.Category,
		CreatedAt:   s.CreatedAt,
	}
}

func simulationIndex(sims []*simulation.Simulation) map[int64]*simulation.Simulation {
	m := make(map[int64]*simulation.Simulation, len(sims))
	for _, s := range sims {
		m[s.ID] = s
	}
	return m
}
