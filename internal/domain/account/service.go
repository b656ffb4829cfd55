package account

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/caremgr/caremgr/internal/platform/apperr"
	"github.com/caremgr/caremgr/internal/platform/auth"
	"github.com/caremgr/caremgr/internal/platform/manager"
	"github.com/caremgr/caremgr/internal/platform/store"
)

// DependentCheck reports whether any record still references accountID.
// Other domains register one each so accounts cannot be deleted from under
// them.
type DependentCheck func(ctx context.Context, accountID int64) (bool, error)

type Service struct {
	accounts   *manager.Manager[Account, *Account]
	repos      *Repositories
	membership *Membership
	authz      manager.Authorizer
	tokens     *auth.TokenIssuer
	validator  *manager.Validator
	logger     zerolog.Logger
	dependents []DependentCheck
}

func NewService(repos *Repositories, membership *Membership, tokens *auth.TokenIssuer, deps manager.Deps) *Service {
	if deps.Validator == nil {
		deps.Validator = manager.NewValidator()
	}
	s := &Service{
		repos:      repos,
		membership: membership,
		authz:      deps.Authorizer,
		tokens:     tokens,
		validator:  deps.Validator,
		logger:     deps.Logger.With().Str("component", "account").Logger(),
	}
	s.accounts = manager.New[Account](
		"account", repos.Accounts, deps,
		manager.Hooks[Account]{
			Owner:        func(_ context.Context, a *Account) (int64, error) { return a.ID, nil },
			ParentOwners: s.loginOwner,
			OwnedBy: func(_ context.Context, accountID int64) (store.Predicate[Account], error) {
				return func(a *Account) bool { return a.ID == accountID }, nil
			},
			BeforeDelete: s.checkDependents,
		},
	)
	return s
}

// AddDependentCheck registers a check run before an account is deleted.
func (s *Service) AddDependentCheck(check DependentCheck) {
	s.dependents = append(s.dependents, check)
}

// loginOwner resolves the account registered for the login a record carries,
// so an update cannot move an account onto another login.
func (s *Service) loginOwner(ctx context.Context, a *Account) ([]int64, error) {
	id, err := s.membership.AccountIDForLogin(ctx, a.Login)
	if err != nil {
		if apperr.ErrorCode(err) == apperr.ENotFound {
			return nil, apperr.Invalidf("account.loginOwner", "login cannot be changed")
		}
		return nil, err
	}
	return []int64{id}, nil
}

func (s *Service) checkDependents(ctx context.Context, a *Account) error {
	for _, check := range s.dependents {
		has, err := check(ctx, a.ID)
		if err != nil {
			return err
		}
		if has {
			return apperr.Conflictf("account.DeleteAccount", "account %d still owns records", a.ID)
		}
	}
	return nil
}

// CreateAccount opens the account of a member that has none yet. A member can
// only open an account for its own login.
func (s *Service) CreateAccount(ctx context.Context, id auth.Identity, a *Account) (*Account, error) {
	const op = "account.CreateAccount"
	if a == nil {
		return nil, apperr.Invalidf(op, "account is required")
	}
	if err := s.validator.Validate(a); err != nil {
		return nil, apperr.Wrap(op, err)
	}

	_, err := s.authz.CallerAccountID(ctx, id)
	switch apperr.ErrorCode(err) {
	case "":
		return nil, apperr.Conflictf(op, "%q already has an account", id)
	case apperr.ENotFound:
	default:
		return nil, err
	}
	if a.Login != string(id) {
		s.logger.Warn().Str("op", op).Str("identity", string(id)).Str("login", a.Login).Msg("authorization denied")
		return nil, apperr.Forbiddenf(op, "%q cannot open an account for %q", id, a.Login)
	}

	out, err := s.repos.Accounts.Add(ctx, a)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	s.logger.Info().Str("login", out.Login).Int64("account_id", out.ID).Msg("account created")
	return out, nil
}

func (s *Service) UpdateAccount(ctx context.Context, id auth.Identity, a *Account) error {
	return s.accounts.Update(ctx, id, a)
}

func (s *Service) DeleteAccount(ctx context.Context, id auth.Identity, accountID int64) error {
	return s.accounts.Delete(ctx, id, accountID)
}

func (s *Service) GetAccount(ctx context.Context, id auth.Identity, accountID int64) (*Account, error) {
	return s.accounts.Get(ctx, id, accountID)
}

// GetMyAccount returns the caller's own account.
func (s *Service) GetMyAccount(ctx context.Context, id auth.Identity) (*Account, error) {
	accountID, err := s.authz.CallerAccountID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.accounts.Get(ctx, id, accountID)
}

func (s *Service) GetAccounts(ctx context.Context, id auth.Identity) ([]*Account, error) {
	return s.accounts.List(ctx, id)
}

// Register creates a member and its account. The member is removed again if
// the account cannot be stored.
func (s *Service) Register(ctx context.Context, reg *Registration) (*Account, error) {
	const op = "account.Register"
	if reg == nil {
		return nil, apperr.Invalidf(op, "registration is required")
	}
	if err := s.validator.Validate(reg); err != nil {
		return nil, apperr.Wrap(op, err)
	}
	taken, err := store.Exists(ctx, s.repos.Accounts, byLogin(reg.Login, accountLogin))
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	if taken {
		return nil, apperr.Conflictf(op, "login %q is already taken", reg.Login)
	}

	mem, err := s.membership.CreateMember(ctx, &NewMember{Login: reg.Login, Password: reg.Password, Role: RoleMember})
	if err != nil {
		return nil, err
	}
	a, err := s.repos.Accounts.Add(ctx, &Account{
		Login:     reg.Login,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Email:     reg.Email,
	})
	if err != nil {
		if derr := s.repos.Members.Delete(ctx, mem); derr != nil {
			s.logger.Error().Err(derr).Str("login", reg.Login).Msg("remove member after failed registration")
		}
		return nil, apperr.Wrap(op, err)
	}
	s.logger.Info().Str("login", a.Login).Int64("account_id", a.ID).Msg("registered")
	return a, nil
}

// Login verifies a password and issues an access token.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*auth.Token, error) {
	const op = "account.Login"
	if req == nil {
		return nil, apperr.Invalidf(op, "credentials are required")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, apperr.Wrap(op, err)
	}
	id, err := s.membership.VerifyCredentials(ctx, req.Login, req.Password)
	if err != nil {
		return nil, err
	}
	return s.TokenFor(ctx, id)
}

// TokenFor issues an access token for an identity that is already
// authenticated.
func (s *Service) TokenFor(ctx context.Context, id auth.Identity) (*auth.Token, error) {
	const op = "account.TokenFor"
	if id == "" {
		return nil, apperr.Unauthenticatedf(op, "no caller identity")
	}
	p, err := s.membership.ResolvePrincipal(ctx, id)
	if err != nil {
		if apperr.ErrorCode(err) == apperr.ENotFound {
			return nil, apperr.Unauthenticatedf(op, "unknown login %q", id)
		}
		return nil, err
	}
	if !p.Active {
		return nil, apperr.Unauthenticatedf(op, "login %q is not active", id)
	}
	tok, err := s.tokens.Issue(id, p.Roles)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	return tok, nil
}

func (s *Service) CreateMember(ctx context.Context, in *NewMember) (*Member, error) {
	return s.membership.CreateMember(ctx, in)
}

// SetMemberActive enables or disables login. Disabled members keep their
// records but cannot authenticate.
func (s *Service) SetMemberActive(ctx context.Context, login string, active bool) error {
	if err := s.membership.setActive(ctx, login, active); err != nil {
		return err
	}
	s.logger.Info().Str("login", login).Bool("active", active).Msg("member activation changed")
	return nil
}

// SeedAdmin makes sure an admin member with an account exists for login.
// Existing members are left untouched.
func (s *Service) SeedAdmin(ctx context.Context, login, password string) error {
	const op = "account.SeedAdmin"
	exists, err := store.Exists(ctx, s.repos.Members, byLogin(login, memberLogin))
	if err != nil {
		return apperr.Wrap(op, err)
	}
	if !exists {
		if _, err := s.membership.CreateMember(ctx, &NewMember{Login: login, Password: password, Role: auth.RoleAdmin}); err != nil {
			return err
		}
	}

	hasAccount, err := store.Exists(ctx, s.repos.Accounts, byLogin(login, accountLogin))
	if err != nil {
		return apperr.Wrap(op, err)
	}
	if hasAccount {
		return nil
	}
	if _, err := s.repos.Accounts.Add(ctx, &Account{Login: login, FirstName: "System", LastName: "Administrator"}); err != nil {
		return apperr.Wrap(op, err)
	}
	s.logger.Info().Str("login", login).Msg("admin seeded")
	return nil
}
