package user

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// Counts - счётчики пользователей.
type Counts struct {
	Total  int
	Active int
}

// Repository определяет операции с пользователями.
type Repository interface {
	// GetByID возвращает пользователя. ErrUserNotFound, если нет.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetForUpdate возвращает пользователя и блокирует строку до конца
	// транзакции. Вне транзакции равен GetByID.
	GetForUpdate(ctx context.Context, id int64) (*User, error)

	// GetByEmail возвращает пользователя по email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Create сохраняет нового пользователя и заполняет ID.
	// shared.ErrAlreadyExists при дубликате username/email.
	Create(ctx context.Context, u *User) error

	// SaveProgress сохраняет XP, уровень, серию и последнюю активность.
	SaveProgress(ctx context.Context, u *User) error

	// TopByXP возвращает активных пользователей: total_xp DESC, id ASC.
	TopByXP(ctx context.Context, limit int) ([]*User, error)

	// Count возвращает общее число и число активных пользователей.
	Count(ctx context.Context) (Counts, error)
}
