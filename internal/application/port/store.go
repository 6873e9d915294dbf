// Package port описывает, что слою приложения нужно от хранилища:
// набор репозиториев и единицу работы (транзакцию).
package port

import (
	"context"

	"github.com/phishguard/phishguard-hub/internal/domain/attempt"
	"github.com/phishguard/phishguard-hub/internal/domain/badge"
	"github.com/phishguard/phishguard-hub/internal/domain/simulation"
	"github.com/phishguard/phishguard-hub/internal/domain/user"
)

// Repositories - репозитории, привязанные к одному соединению или транзакции.
type Repositories struct {
	Users       user.Repository
	Attempts    attempt.Repository
	Badges      badge.Repository
	Simulations simulation.Repository
}

// TxFunc - тело транзакции. Все записи делаются через переданные repos.
type TxFunc func(ctx context.Context, repos Repositories) error

// Transactor выполняет fn атомарно: либо фиксируются все записи, либо ни одна.
// Ошибка fn откатывает транзакцию и возвращается без изменений.
// Потерянная гонка записи возвращается как shared.ErrConflict.
type Transactor interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

// Store - полное хранилище: репозитории вне транзакции плюс транзакции.
type Store interface {
	Transactor

	// Repos возвращает репозитории для чтения вне транзакции.
	Repos() Repositories

	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error

	// Close освобождает ресурсы.
	Close()
}
