package auth

import (
	"context"

	"github.com/caremgr/caremgr/internal/platform/apperr"
)

// Principal is an active login known to the membership store.
type Principal struct {
	Login  string
	Roles  []string
	Active bool
}

// PrincipalResolver resolves an identity against the membership store.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, id Identity) (*Principal, error)
}

// AccountResolver maps a login to the id of the Account it owns.
type AccountResolver interface {
	AccountIDForLogin(ctx context.Context, login string) (int64, error)
}

// CredentialVerifier checks a login/password pair and returns the identity
// it authenticates.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, login, password string) (Identity, error)
}

// OwnershipAuthorizer decides whether a caller owns a target account.
type OwnershipAuthorizer struct {
	principals PrincipalResolver
	accounts   AccountResolver
}

func NewOwnershipAuthorizer(principals PrincipalResolver, accounts AccountResolver) *OwnershipAuthorizer {
	return &OwnershipAuthorizer{principals: principals, accounts: accounts}
}

func (a *OwnershipAuthorizer) principal(ctx context.Context, op string, id Identity) (*Principal, error) {
	if id == "" {
		return nil, apperr.Unauthenticatedf(op, "no caller identity")
	}
	p, err := a.principals.ResolvePrincipal(ctx, id)
	if err != nil {
		if apperr.ErrorCode(err) == apperr.ENotFound {
			return nil, apperr.Unauthenticatedf(op, "unknown login %q", id)
		}
		return nil, apperr.Wrap(op, err)
	}
	if p == nil || !p.Active {
		return nil, apperr.Unauthenticatedf(op, "login %q is not active", id)
	}
	return p, nil
}

// CallerAccountID resolves the Account owned by id.
func (a *OwnershipAuthorizer) CallerAccountID(ctx context.Context, id Identity) (int64, error) {
	const op = "auth.CallerAccountID"
	p, err := a.principal(ctx, op, id)
	if err != nil {
		return 0, err
	}
	accountID, err := a.accounts.AccountIDForLogin(ctx, p.Login)
	if err != nil {
		if apperr.ErrorCode(err) == apperr.ENotFound {
			return 0, apperr.NotFoundf(op, "no account for login %q", p.Login)
		}
		return 0, apperr.Wrap(op, err)
	}
	return accountID, nil
}

// Authorize fails unless id resolves to the account targetAccountID.
// Admins are not exempt.
func (a *OwnershipAuthorizer) Authorize(ctx context.Context, id Identity, targetAccountID int64) error {
	const op = "auth.Authorize"
	accountID, err := a.CallerAccountID(ctx, id)
	if err != nil {
		return err
	}
	if accountID != targetAccountID {
		return apperr.Forbiddenf(op, "%q does not own account %d", id, targetAccountID)
	}
	return nil
}

func (a *OwnershipAuthorizer) IsAdmin(ctx context.Context, id Identity) (bool, error) {
	p, err := a.principal(ctx, "auth.IsAdmin", id)
	if err != nil {
		return false, err
	}
	for _, r := range p.Roles {
		if r == RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}
