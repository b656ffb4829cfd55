package account

import "github.com/caremgr/caremgr/internal/platform/store"

type accountTable struct{}

func (accountTable) Name() string { return "account" }
func (accountTable) Columns() []string {
	return []string{"login", "first_name", "last_name", "email"}
}
func (accountTable) Values(a *Account) []any {
	return []any{a.Login, a.FirstName, a.LastName, a.Email}
}
func (accountTable) Targets(a *Account) []any {
	return []any{&a.Login, &a.FirstName, &a.LastName, &a.Email}
}

func (accountTable) UniqueKeys() []store.Key[Account] {
	return []store.Key[Account]{{Column: "login", Value: accountLogin}}
}

type memberTable struct{}

func (memberTable) Name() string { return "member" }
func (memberTable) Columns() []string {
	return []string{"login", "password_hash", "role", "active"}
}
func (memberTable) Values(m *Member) []any {
	return []any{m.Login, m.PasswordHash, m.Role, m.Active}
}
func (memberTable) Targets(m *Member) []any {
	return []any{&m.Login, &m.PasswordHash, &m.Role, &m.Active}
}

func (memberTable) UniqueKeys() []store.Key[Member] {
	return []store.Key[Member]{{Column: "login", Value: memberLogin}}
}

type Repositories struct {
	Accounts store.Repository[Account]
	Members  store.Repository[Member]
}

func NewRepositories(b store.Backend) *Repositories {
	return &Repositories{
		Accounts: store.NewRepository[Account](b, accountTable{}),
		Members:  store.NewRepository[Member](b, memberTable{}),
	}
}

// Models lists the gorm models of this package for schema migration.
func Models() []any {
	return []any{&Member{}, &Account{}}
}

func byLogin[E any](login string, get func(*E) string) store.Predicate[E] {
	return func(e *E) bool { return get(e) == login }
}

func accountLogin(a *Account) string { return a.Login }
func memberLogin(m *Member) string   { return m.Login }
