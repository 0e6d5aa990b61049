package users

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Service enforces the account lifecycle rules: username uniqueness
// and the minimum-age check at every write, credential verification
// and token issuance on sign-in. Field-shape validation happens at the
// boundary; the Service re-checks only the invariants that need store
// access.
type Service struct {
	repo     RepositoryManager
	hasher   PasswordAuthenticator
	tokens   *TokenProvider
	minAge   int
	location *time.Location
	logger   Logger
	now      func() time.Time
}

// NewService builds the account service. Collaborators are explicit;
// the minimum age and time zone come from cfg and stay fixed for the
// lifetime of the service.
func NewService(repo RepositoryManager, tokens *TokenProvider, cfg Config) *Service {
	minAge := cfg.GetMinAge()
	if minAge <= 0 {
		minAge = DefaultMinAge
	}

	return &Service{
		repo:     repo,
		hasher:   BcryptHasher{},
		tokens:   tokens,
		minAge:   minAge,
		location: LoadLocation(cfg),
		logger:   defLogger{},
		now:      time.Now,
	}
}

func (s *Service) WithLogger(logger Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *Service) WithHasher(hasher PasswordAuthenticator) *Service {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// MinAge returns the configured minimum account age in years.
func (s *Service) MinAge() int {
	return s.minAge
}

// Create registers a new account. The plaintext password is hashed
// before anything touches the store and is never persisted.
func (s *Service) Create(ctx context.Context, user *User, password string) (*User, error) {
	taken, err := s.repo.Users().ExistsByUsername(ctx, user.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, NewUsernameTakenError(user.Username)
	}

	if s.isAgeNotAllowed(user.BirthDate) {
		return nil, NewAgeNotAllowedError(s.minAge)
	}

	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}
	user.PasswordHash = hash

	created, err := s.repo.Users().Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created", "username", created.Username, "id", created.ID.String())
	return created, nil
}

// Update overwrites the full record. The uniqueness check compares by
// id so an account may keep its current username. A non-empty password
// is re-hashed; an empty one keeps the stored hash the caller merged
// in. The check-then-write pair runs under repeatable read, and the
// unique index on username backstops the remaining race.
func (s *Service) Update(ctx context.Context, user *User, password string) (*User, error) {
	var updated *User

	txOpts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
	err := s.repo.RunInTx(ctx, txOpts, func(ctx context.Context, tx bun.Tx) error {
		owner, err := s.repo.Users().GetByUsernameTx(ctx, tx, user.Username)
		if err != nil && !repository.IsRecordNotFound(err) {
			return err
		}
		if owner != nil && owner.ID != user.ID {
			return NewUsernameTakenError(user.Username)
		}

		if s.isAgeNotAllowed(user.BirthDate) {
			return NewAgeNotAllowedError(s.minAge)
		}

		if password != "" {
			hash, err := s.hasher.HashPassword(password)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
			}
			user.PasswordHash = hash
		}

		updated, err = s.repo.Users().UpdateTx(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user updated", "username", updated.Username, "id", updated.ID.String())
	return updated, nil
}

// SignIn verifies the credentials and issues a bearer token for the
// username. Unknown usernames and wrong passwords return the same
// error so the two cases cannot be told apart.
func (s *Service) SignIn(ctx context.Context, username, password string) (*Token, error) {
	user, err := s.repo.Users().GetByUsername(ctx, username)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if goerrors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify credentials")
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("user signed in", "username", user.Username)
	return token, nil
}

// FindByID returns the account or nil when no account matches. A miss
// is an empty result, not an error.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.repo.Users().GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// FindByUsername returns the account or nil when no account matches.
func (s *Service) FindByUsername(ctx context.Context, username string) (*User, error) {
	user, err := s.repo.Users().GetByUsername(ctx, username)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// FindAllByBirthDateRange returns accounts born inside the inclusive
// range. A lower bound after the upper bound is rejected; an empty
// result is not an error.
func (s *Service) FindAllByBirthDateRange(ctx context.Context, from, to time.Time) ([]*User, error) {
	if DateOnly(from).After(DateOnly(to)) {
		return nil, NewInvalidDateRangeError(
			from.Format(time.DateOnly),
			to.Format(time.DateOnly),
		)
	}
	return s.repo.Users().FindAllByBirthDateBetween(ctx, from, to)
}

// DeleteByID removes the account. Deleting an id that never existed is
// a no-op.
func (s *Service) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return s.repo.Users().DeleteByID(ctx, id)
}

// DeleteByUsername removes the account owning username, if any.
func (s *Service) DeleteByUsername(ctx context.Context, username string) error {
	return s.repo.Users().DeleteByUsername(ctx, username)
}

// isAgeNotAllowed rejects birth dates strictly after today minus the
// minimum age. A birthday exactly minAge years ago passes. Both sides
// collapse to calendar days before comparing so the stored date's
// zone cannot shift the boundary.
func (s *Service) isAgeNotAllowed(birthDate time.Time) bool {
	today := s.now().In(s.location)
	cutoff := calendarDay(today).AddDate(-s.minAge, 0, 0)
	return calendarDay(birthDate).After(cutoff)
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
