package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	RevokedTokens() *RevokedTokens
}

type mngr struct {
	db            *bun.DB
	users         Users
	revokedTokens *RevokedTokens
}

func NewRepositoryManager(db *bun.DB, opts ...UsersOption) RepositoryManager {
	return &mngr{
		db:            db,
		users:         NewUsersRepository(db, opts...),
		revokedTokens: NewRevokedTokensLedger(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.revokedTokens == nil {
		return errors.New("repository revokedTokens should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) RevokedTokens() *RevokedTokens {
	return m.revokedTokens
}

// BootstrapSchema creates the users and revoked_tokens tables when they do
// not exist yet. Kept here so embedded deployments and tests share the
// exact DDL the service runs with.
func BootstrapSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*User)(nil),
		(*RevokedToken)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}
