package account

import (
	"context"

	"github.com/caremgr/caremgr/internal/platform/auth"
	"github.com/caremgr/caremgr/internal/platform/web"
)

// NewFacade builds the Account service contract.
func NewFacade(svc *Service) *web.Facade {
	f := web.NewFacade("Account", svc.membership)
	web.CRUD(f, "Account", "Accounts", svc.accounts)
	f.Handle("CreateAccount", func(ctx context.Context, id auth.Identity, req *web.Request) (any, error) {
		a, err := web.DecodeEntity[Account](req)
		if err != nil {
			return nil, err
		}
		return svc.CreateAccount(ctx, id, a)
	})
	f.Handle("GetMyAccount", func(ctx context.Context, id auth.Identity, _ *web.Request) (any, error) {
		return svc.GetMyAccount(ctx, id)
	})
	f.Handle("Register", func(ctx context.Context, _ auth.Identity, req *web.Request) (any, error) {
		reg, err := web.DecodeEntity[Registration](req)
		if err != nil {
			return nil, err
		}
		return svc.Register(ctx, reg)
	})
	// Login trades the request credentials, or a bearer token, for a new token.
	f.Handle("Login", func(ctx context.Context, id auth.Identity, _ *web.Request) (any, error) {
		return svc.TokenFor(ctx, id)
	})
	return f
}
