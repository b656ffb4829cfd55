// Package accounttest builds an in-memory membership with registered accounts
// for tests of the domains that depend on account ownership.
package accounttest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/caremgr/caremgr/internal/domain/account"
	"github.com/caremgr/caremgr/internal/platform/auth"
	"github.com/caremgr/caremgr/internal/platform/manager"
	"github.com/caremgr/caremgr/internal/platform/store"
)

// Logins registered by New. Admin holds the admin role.
const (
	Alice    auth.Identity = "alice"
	Bob      auth.Identity = "bob"
	Admin    auth.Identity = "root"
	Password               = "correct horse"
)

type Env struct {
	Deps       manager.Deps
	Accounts   *account.Service
	Membership *account.Membership

	ids map[auth.Identity]int64
}

// New registers Alice and Bob as members and seeds Admin, all on the memory
// backend.
func New(t *testing.T) *Env {
	t.Helper()
	ctx := context.Background()

	repos := account.NewRepositories(store.Backend{})
	v := manager.NewValidator()
	m := account.NewMembership(repos, v, zerolog.Nop())
	m.SetCost(bcrypt.MinCost)

	deps := manager.Deps{
		Authorizer: auth.NewOwnershipAuthorizer(m, m),
		Validator:  v,
		Logger:     zerolog.Nop(),
	}
	tokens := auth.NewTokenIssuer([]byte("accounttest-signing-key-32-bytes"), "accounttest", time.Hour)
	env := &Env{
		Deps:       deps,
		Accounts:   account.NewService(repos, m, tokens, deps),
		Membership: m,
		ids:        make(map[auth.Identity]int64),
	}

	for _, login := range []auth.Identity{Alice, Bob} {
		a, err := env.Accounts.Register(ctx, &account.Registration{
			Login:     string(login),
			Password:  Password,
			FirstName: string(login),
			LastName:  "Test",
		})
		if err != nil {
			t.Fatalf("register %s: %v", login, err)
		}
		env.ids[login] = a.ID
	}
	if err := env.Accounts.SeedAdmin(ctx, string(Admin), Password); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	a, err := env.Accounts.GetMyAccount(ctx, Admin)
	if err != nil {
		t.Fatalf("admin account: %v", err)
	}
	env.ids[Admin] = a.ID
	return env
}

// AccountID returns the account id registered for login.
func (e *Env) AccountID(login auth.Identity) int64 {
	return e.ids[login]
}
