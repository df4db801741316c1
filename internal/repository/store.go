package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresStore wires the Postgres repositories over one pool.
func NewPostgresStore(pool *pgxpool.Pool, maxRetries int) Store {
	return Store{
		Polls:    NewPollRepository(pool, maxRetries),
		Votes:    NewVoteLedger(pool, maxRetries),
		Users:    NewUserRepository(pool, maxRetries),
		Settings: NewSettingsRepository(pool, maxRetries),
	}
}

// NewMemoryStore wires the in-process repositories. Polls and the ledger share
// state so a vote is checked and applied under one poll lock.
func NewMemoryStore() Store {
	ledger := NewMemoryVoteLedger()
	return Store{
		Polls:    NewMemoryPollRepository(ledger),
		Votes:    ledger,
		Users:    NewMemoryUserRepository(),
		Settings: NewMemorySettingsRepository(),
	}
}
