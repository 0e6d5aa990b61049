package users

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the credential store contract the Service runs against.
// Lookup misses surface as repository not-found errors; anything else
// is a storage failure the caller propagates unchanged.
type Users interface {
	repository.Repository[*User]

	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByUsernameTx(ctx context.Context, tx bun.IDB, username string) (bool, error)

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
	Update(ctx context.Context, record *User, criteria ...repository.UpdateCriteria) (*User, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.UpdateCriteria) (*User, error)

	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	DeleteByUsername(ctx context.Context, username string) error
	DeleteByUsernameTx(ctx context.Context, tx bun.IDB, username string) error

	FindAllByBirthDateBetween(ctx context.Context, from, to time.Time) ([]*User, error)
	FindAllByBirthDateBetweenTx(ctx context.Context, tx bun.IDB, from, to time.Time) ([]*User, error)
}

type usersRepo struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*usersRepo)(nil)
	_ repository.Repository[*User] = (*usersRepo)(nil)
)

// NewUsersRepository builds the bun-backed Users store.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &usersRepo{
		Repository: repo,
		db:         db,
	}
}

func (r *usersRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.GetByUsernameTx(ctx, r.db, username)
}

func (r *usersRepo) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.username = ?", username).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"username": username})
		}
		return nil, err
	}
	return record, nil
}

func (r *usersRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.ExistsByUsernameTx(ctx, r.db, username)
}

func (r *usersRepo) ExistsByUsernameTx(ctx context.Context, tx bun.IDB, username string) (bool, error) {
	return tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.username = ?", username).
		Exists(ctx)
}

func (r *usersRepo) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *usersRepo) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (r *usersRepo) Update(ctx context.Context, record *User, criteria ...repository.UpdateCriteria) (*User, error) {
	return r.UpdateTx(ctx, r.db, record, criteria...)
}

func (r *usersRepo) UpdateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.UpdateCriteria) (*User, error) {
	prepareUserDefaults(record)
	if len(criteria) == 0 {
		criteria = []repository.UpdateCriteria{
			repository.UpdateByID(record.ID.String()),
		}
	}
	return r.Repository.UpdateTx(ctx, tx, record, criteria...)
}

// DeleteByID soft deletes. Removing an id that does not exist is a
// no-op, not an error.
func (r *usersRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return r.DeleteByIDTx(ctx, r.db, id)
}

func (r *usersRepo) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

// DeleteByUsername soft deletes, with the same weak precondition as
// DeleteByID.
func (r *usersRepo) DeleteByUsername(ctx context.Context, username string) error {
	return r.DeleteByUsernameTx(ctx, r.db, username)
}

func (r *usersRepo) DeleteByUsernameTx(ctx context.Context, tx bun.IDB, username string) error {
	_, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.username = ?", username).
		Exec(ctx)
	return err
}

func (r *usersRepo) FindAllByBirthDateBetween(ctx context.Context, from, to time.Time) ([]*User, error) {
	return r.FindAllByBirthDateBetweenTx(ctx, r.db, from, to)
}

// FindAllByBirthDateBetweenTx returns accounts born in the inclusive
// range. Order follows birth date; callers must not rely on it.
func (r *usersRepo) FindAllByBirthDateBetweenTx(ctx context.Context, tx bun.IDB, from, to time.Time) ([]*User, error) {
	records := []*User{}
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.birth_date BETWEEN ? AND ?", DateOnly(from), DateOnly(to)).
		Order("birth_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.BirthDate = DateOnly(record.BirthDate)
}
