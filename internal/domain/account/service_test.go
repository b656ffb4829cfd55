package account

import (
	"context"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/caremgr/caremgr/internal/platform/apperr"
	"github.com/caremgr/caremgr/internal/platform/auth"
	"github.com/caremgr/caremgr/internal/platform/manager"
	"github.com/caremgr/caremgr/internal/platform/store"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestService() *Service {
	return newServiceOn(NewRepositories(store.Backend{}))
}

func newServiceOn(repos *Repositories) *Service {
	v := manager.NewValidator()
	mem := NewMembership(repos, v, zerolog.Nop())
	mem.SetCost(bcrypt.MinCost)
	return NewService(repos, mem, auth.NewTokenIssuer(testKey, "caremgr-test", time.Hour), manager.Deps{
		Authorizer: auth.NewOwnershipAuthorizer(mem, mem),
		Validator:  v,
		Logger:     zerolog.Nop(),
	})
}

func register(t *testing.T, svc *Service, login string) *Account {
	t.Helper()
	a, err := svc.Register(context.Background(), &Registration{
		Login:     login,
		Password:  "correct horse",
		FirstName: "First",
		LastName:  "Last",
		Email:     login + "@example.com",
	})
	if err != nil {
		t.Fatalf("Register(%s) error: %v", login, err)
	}
	return a
}

func TestRegister(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a := register(t, svc, "alice")
	if a.ID == 0 || a.Login != "alice" {
		t.Fatalf("unexpected account: %+v", a)
	}
	p, err := svc.membership.ResolvePrincipal(ctx, "alice")
	if err != nil {
		t.Fatalf("ResolvePrincipal() error: %v", err)
	}
	if !p.Active || len(p.Roles) != 1 || p.Roles[0] != RoleMember {
		t.Errorf("unexpected principal: %+v", p)
	}

	_, err = svc.Register(ctx, &Registration{Login: "alice", Password: "another pw", FirstName: "A", LastName: "B"})
	if apperr.ErrorCode(err) != apperr.EConflict {
		t.Errorf("expected conflict for duplicate login, got %v", err)
	}
}

// slowMembers delays every member lookup so concurrent registrations all
// pass the login check before any of them inserts.
type slowMembers struct {
	store.Repository[Member]
}

func (s slowMembers) FilterBy(ctx context.Context, p store.Predicate[Member]) iter.Seq2[*Member, error] {
	time.Sleep(20 * time.Millisecond)
	return s.Repository.FilterBy(ctx, p)
}

func TestRegister_ConcurrentSameLogin(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(store.Backend{})
	repos.Members = slowMembers{repos.Members}
	svc := newServiceOn(repos)

	errs := make([]error, 4)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, &Registration{
				Login: "carol", Password: "correct horse", FirstName: "Carol", LastName: "Danvers",
			})
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch code := apperr.ErrorCode(err); code {
		case "":
			ok++
		case apperr.EConflict:
		default:
			t.Errorf("unexpected error code %q: %v", code, err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one registration to succeed, got %d", ok)
	}

	if _, err := svc.membership.VerifyCredentials(ctx, "carol", "correct horse"); err != nil {
		t.Errorf("carol cannot log in: %v", err)
	}
	accounts, err := store.Collect(repos.Accounts.All(ctx))
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 1 {
		t.Errorf("expected one account, got %d", len(accounts))
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestService()
	tests := []struct {
		name string
		reg  *Registration
	}{
		{"nil", nil},
		{"short password", &Registration{Login: "bob", Password: "short", FirstName: "B", LastName: "B"}},
		{"bad login", &Registration{Login: "b ob", Password: "long enough", FirstName: "B", LastName: "B"}},
		{"bad email", &Registration{Login: "bob", Password: "long enough", FirstName: "B", LastName: "B", Email: "nope"}},
		{"missing name", &Registration{Login: "bob", Password: "long enough", LastName: "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), tt.reg); apperr.ErrorCode(err) != apperr.EInvalid {
				t.Errorf("expected invalid, got %v", err)
			}
		})
	}
	if ok, _ := store.Exists(context.Background(), svc.repos.Members, nil); ok {
		t.Error("expected no members after failed registrations")
	}
}

func TestLogin_IssuesToken(t *testing.T) {
	svc := newTestService()
	register(t, svc, "alice")

	tok, err := svc.Login(context.Background(), &LoginRequest{Login: "alice", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	claims := &auth.Claims{}
	if _, err := jwt.ParseWithClaims(tok.AccessToken, claims, func(*jwt.Token) (interface{}, error) { return testKey, nil }); err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != "alice" || len(claims.Roles) != 1 || claims.Roles[0] != RoleMember {
		t.Errorf("unexpected claims: %+v", claims)
	}

	if _, err := svc.Login(context.Background(), &LoginRequest{Login: "alice", Password: "wrong"}); apperr.ErrorCode(err) != apperr.EUnauthenticated {
		t.Errorf("expected unauthenticated, got %v", err)
	}
	if _, err := svc.Login(context.Background(), &LoginRequest{}); apperr.ErrorCode(err) != apperr.EInvalid {
		t.Errorf("expected invalid, got %v", err)
	}
}

func TestGetMyAccount(t *testing.T) {
	svc := newTestService()
	a := register(t, svc, "alice")
	register(t, svc, "bob")

	got, err := svc.GetMyAccount(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetMyAccount() error: %v", err)
	}
	if got.ID != a.ID {
		t.Errorf("expected account %d, got %d", a.ID, got.ID)
	}
	if _, err := svc.GetMyAccount(context.Background(), "nobody"); apperr.ErrorCode(err) != apperr.EUnauthenticated {
		t.Errorf("expected unauthenticated, got %v", err)
	}
}

func TestGetAccount_Ownership(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	alice := register(t, svc, "alice")
	if err := svc.SeedAdmin(ctx, "root", "root password"); err != nil {
		t.Fatalf("SeedAdmin() error: %v", err)
	}

	if _, err := svc.GetAccount(ctx, "alice", alice.ID); err != nil {
		t.Errorf("owner Get: %v", err)
	}
	register(t, svc, "bob")
	if _, err := svc.GetAccount(ctx, "bob", alice.ID); apperr.ErrorCode(err) != apperr.EForbidden {
		t.Errorf("expected forbidden for bob, got %v", err)
	}
	if _, err := svc.GetAccount(ctx, "root", alice.ID); apperr.ErrorCode(err) != apperr.EForbidden {
		t.Errorf("expected forbidden for admin single-record access, got %v", err)
	}
}

func TestGetAccounts_AdminBypass(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	register(t, svc, "alice")
	register(t, svc, "bob")
	if err := svc.SeedAdmin(ctx, "root", "root password"); err != nil {
		t.Fatal(err)
	}

	all, err := svc.GetAccounts(ctx, "root")
	if err != nil {
		t.Fatalf("GetAccounts(admin) error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 accounts for admin, got %d", len(all))
	}

	own, err := svc.GetAccounts(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAccounts(alice) error: %v", err)
	}
	if len(own) != 1 || own[0].Login != "alice" {
		t.Errorf("expected only alice's account, got %+v", own)
	}
}

func TestUpdateAccount(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	alice := register(t, svc, "alice")
	register(t, svc, "bob")

	alice.FirstName = "Alicia"
	if err := svc.UpdateAccount(ctx, "alice", alice); err != nil {
		t.Fatalf("UpdateAccount() error: %v", err)
	}

	moved := *alice
	moved.Login = "bob"
	if err := svc.UpdateAccount(ctx, "alice", &moved); apperr.ErrorCode(err) != apperr.EForbidden {
		t.Errorf("expected forbidden moving to bob's login, got %v", err)
	}
	renamed := *alice
	renamed.Login = "alice2"
	if err := svc.UpdateAccount(ctx, "alice", &renamed); apperr.ErrorCode(err) != apperr.EInvalid {
		t.Errorf("expected invalid renaming login, got %v", err)
	}
	if err := svc.UpdateAccount(ctx, "bob", alice); apperr.ErrorCode(err) != apperr.EForbidden {
		t.Errorf("expected forbidden for bob, got %v", err)
	}

	got, _ := svc.GetMyAccount(ctx, "alice")
	if got.FirstName != "Alicia" || got.Login != "alice" {
		t.Errorf("unexpected stored account: %+v", got)
	}
}

func TestDeleteAccount(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	alice := register(t, svc, "alice")

	owns := true
	svc.AddDependentCheck(func(_ context.Context, accountID int64) (bool, error) {
		return owns && accountID == alice.ID, nil
	})
	if err := svc.DeleteAccount(ctx, "alice", alice.ID); apperr.ErrorCode(err) != apperr.EConflict {
		t.Fatalf("expected conflict while records exist, got %v", err)
	}

	owns = false
	if err := svc.DeleteAccount(ctx, "alice", alice.ID); err != nil {
		t.Fatalf("DeleteAccount() error: %v", err)
	}
	if _, err := svc.GetMyAccount(ctx, "alice"); apperr.ErrorCode(err) != apperr.ENotFound {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestCreateAccount(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if _, err := svc.CreateMember(ctx, &NewMember{Login: "carol", Password: "carol password", Role: RoleMember}); err != nil {
		t.Fatalf("CreateMember() error: %v", err)
	}

	_, err := svc.CreateAccount(ctx, "carol", &Account{Login: "mallory", FirstName: "C", LastName: "C"})
	if apperr.ErrorCode(err) != apperr.EForbidden {
		t.Errorf("expected forbidden for another login, got %v", err)
	}

	a, err := svc.CreateAccount(ctx, "carol", &Account{Login: "carol", FirstName: "C", LastName: "C"})
	if err != nil {
		t.Fatalf("CreateAccount() error: %v", err)
	}
	if a.ID == 0 {
		t.Error("expected id to be assigned")
	}

	_, err = svc.CreateAccount(ctx, "carol", &Account{Login: "carol", FirstName: "C", LastName: "C"})
	if apperr.ErrorCode(err) != apperr.EConflict {
		t.Errorf("expected conflict for second account, got %v", err)
	}
	_, err = svc.CreateAccount(ctx, "ghost", &Account{Login: "ghost", FirstName: "G", LastName: "G"})
	if apperr.ErrorCode(err) != apperr.EUnauthenticated {
		t.Errorf("expected unauthenticated for unknown login, got %v", err)
	}
}

func TestSeedAdmin_Idempotent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := svc.SeedAdmin(ctx, "root", "root password"); err != nil {
			t.Fatalf("SeedAdmin() #%d error: %v", i, err)
		}
	}
	accounts, _ := store.Collect(svc.repos.Accounts.All(ctx))
	if len(accounts) != 1 {
		t.Errorf("expected 1 account, got %d", len(accounts))
	}
	admin, err := svc.authz.IsAdmin(ctx, "root")
	if err != nil || !admin {
		t.Errorf("expected root to be admin, got %v %v", admin, err)
	}
}
