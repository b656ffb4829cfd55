package account

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/caremgr/caremgr/internal/platform/apperr"
	"github.com/caremgr/caremgr/internal/platform/auth"
	"github.com/caremgr/caremgr/internal/platform/manager"
	"github.com/caremgr/caremgr/internal/platform/store"
)

// Membership is the login store: it resolves principals for the ownership
// authorizer, maps logins to accounts and checks passwords.
type Membership struct {
	members   store.Repository[Member]
	accounts  store.Repository[Account]
	validator *manager.Validator
	logger    zerolog.Logger
	cost      int
}

func NewMembership(repos *Repositories, v *manager.Validator, logger zerolog.Logger) *Membership {
	if v == nil {
		v = manager.NewValidator()
	}
	return &Membership{
		members:   repos.Members,
		accounts:  repos.Accounts,
		validator: v,
		logger:    logger.With().Str("component", "membership").Logger(),
		cost:      bcrypt.DefaultCost,
	}
}

// SetCost overrides the bcrypt cost used for new passwords.
func (m *Membership) SetCost(cost int) { m.cost = cost }

func (m *Membership) member(ctx context.Context, op, login string) (*Member, error) {
	mem, err := m.members.FindBy(ctx, byLogin(login, memberLogin))
	if err != nil {
		if apperr.ErrorCode(err) == apperr.ENotFound {
			return nil, apperr.NotFoundf(op, "member %q not found", login)
		}
		return nil, apperr.Wrap(op, err)
	}
	return mem, nil
}

func (m *Membership) ResolvePrincipal(ctx context.Context, id auth.Identity) (*auth.Principal, error) {
	mem, err := m.member(ctx, "account.ResolvePrincipal", string(id))
	if err != nil {
		return nil, err
	}
	return &auth.Principal{Login: mem.Login, Roles: []string{mem.Role}, Active: mem.Active}, nil
}

func (m *Membership) AccountIDForLogin(ctx context.Context, login string) (int64, error) {
	const op = "account.AccountIDForLogin"
	a, err := m.accounts.FindBy(ctx, byLogin(login, accountLogin))
	if err != nil {
		if apperr.ErrorCode(err) == apperr.ENotFound {
			return 0, apperr.NotFoundf(op, "no account for login %q", login)
		}
		return 0, apperr.Wrap(op, err)
	}
	return a.ID, nil
}

// VerifyCredentials fails with the same message for unknown logins, wrong
// passwords and inactive members.
func (m *Membership) VerifyCredentials(ctx context.Context, login, password string) (auth.Identity, error) {
	const op = "account.VerifyCredentials"
	mem, err := m.member(ctx, op, login)
	if err != nil {
		if apperr.ErrorCode(err) == apperr.ENotFound {
			return "", apperr.Unauthenticatedf(op, "invalid login or password")
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(mem.PasswordHash), []byte(password)); err != nil {
		m.logger.Info().Str("login", login).Msg("password mismatch")
		return "", apperr.Unauthenticatedf(op, "invalid login or password")
	}
	if !mem.Active {
		return "", apperr.Unauthenticatedf(op, "invalid login or password")
	}
	return auth.Identity(mem.Login), nil
}

// CreateMember stores a new active member with a hashed password.
func (m *Membership) CreateMember(ctx context.Context, in *NewMember) (*Member, error) {
	const op = "account.CreateMember"
	if in == nil {
		return nil, apperr.Invalidf(op, "member is required")
	}
	if err := m.validator.Validate(in); err != nil {
		return nil, apperr.Wrap(op, err)
	}
	taken, err := store.Exists(ctx, m.members, byLogin(in.Login, memberLogin))
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	if taken {
		return nil, apperr.Conflictf(op, "login %q is already taken", in.Login)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), m.cost)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	mem, err := m.members.Add(ctx, &Member{
		Login:        in.Login,
		PasswordHash: string(hash),
		Role:         in.Role,
		Active:       true,
	})
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	m.logger.Info().Str("login", mem.Login).Str("role", mem.Role).Msg("member created")
	return mem, nil
}

// setActive enables or disables a member. Disabled members cannot
// authenticate.
func (m *Membership) setActive(ctx context.Context, login string, active bool) error {
	const op = "account.SetMemberActive"
	mem, err := m.member(ctx, op, login)
	if err != nil {
		return err
	}
	mem.Active = active
	if err := m.members.Update(ctx, mem); err != nil {
		return apperr.Wrap(op, err)
	}
	return nil
}
