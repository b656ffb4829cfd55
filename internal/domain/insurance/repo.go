package insurance

import "github.com/caremgr/caremgr/internal/platform/store"

type insurerTable struct{}

func (insurerTable) Name() string { return "insurer" }
func (insurerTable) Columns() []string {
	return []string{"account_id", "name", "phone_number", "fax_number", "website"}
}
func (insurerTable) Values(i *Insurer) []any {
	return []any{i.AccountID, i.Name, i.PhoneNumber, i.FaxNumber, i.Website}
}
func (insurerTable) Targets(i *Insurer) []any {
	return []any{&i.AccountID, &i.Name, &i.PhoneNumber, &i.FaxNumber, &i.Website}
}

type requestTable struct{}

func (requestTable) Name() string { return "authorization_request" }
func (requestTable) Columns() []string {
	return []string{"account_id", "insurer_id", "description", "reference_number", "status", "requested_on"}
}
func (requestTable) Values(r *AuthorizationRequest) []any {
	return []any{r.AccountID, r.InsurerID, r.Description, r.ReferenceNumber, r.Status, r.RequestedOn}
}
func (requestTable) Targets(r *AuthorizationRequest) []any {
	return []any{&r.AccountID, &r.InsurerID, &r.Description, &r.ReferenceNumber, &r.Status, &r.RequestedOn}
}

type noteTable struct{}

func (noteTable) Name() string { return "authorization_note" }
func (noteTable) Columns() []string {
	return []string{"authorization_request_id", "note", "written_on"}
}
func (noteTable) Values(n *AuthorizationNote) []any {
	return []any{n.AuthorizationRequestID, n.Note, n.WrittenOn}
}
func (noteTable) Targets(n *AuthorizationNote) []any {
	return []any{&n.AuthorizationRequestID, &n.Note, &n.WrittenOn}
}

type followUpTable struct{}

func (followUpTable) Name() string { return "authorization_follow_up" }
func (followUpTable) Columns() []string {
	return []string{"account_id", "authorization_request_id", "due_on", "description", "completed"}
}
func (followUpTable) Values(f *AuthorizationFollowUp) []any {
	return []any{f.AccountID, f.AuthorizationRequestID, f.DueOn, f.Description, f.Completed}
}
func (followUpTable) Targets(f *AuthorizationFollowUp) []any {
	return []any{&f.AccountID, &f.AuthorizationRequestID, &f.DueOn, &f.Description, &f.Completed}
}

type Repositories struct {
	Insurers  store.Repository[Insurer]
	Requests  store.Repository[AuthorizationRequest]
	Notes     store.Repository[AuthorizationNote]
	FollowUps store.Repository[AuthorizationFollowUp]
}

func NewRepositories(b store.Backend) *Repositories {
	return &Repositories{
		Insurers:  store.NewRepository[Insurer](b, insurerTable{}),
		Requests:  store.NewRepository[AuthorizationRequest](b, requestTable{}),
		Notes:     store.NewRepository[AuthorizationNote](b, noteTable{}),
		FollowUps: store.NewRepository[AuthorizationFollowUp](b, followUpTable{}),
	}
}

// Models lists the gorm models of this package in dependency order.
func Models() []any {
	return []any{&Insurer{}, &AuthorizationRequest{}, &AuthorizationNote{}, &AuthorizationFollowUp{}}
}
