package web

import (
	"bytes"
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/caremgr/caremgr/internal/platform/apperr"
	"github.com/caremgr/caremgr/internal/platform/auth"
	"github.com/caremgr/caremgr/internal/platform/manager"
	"github.com/caremgr/caremgr/internal/platform/store"
)

// Credentials lets a facade caller authenticate per request instead of
// through the transport.
type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Request is the body of every facade operation. Operations read the fields
// they need and ignore the rest.
type Request struct {
	Credentials *Credentials    `json:"credentials,omitempty"`
	Entity      json.RawMessage `json:"entity,omitempty"`
	ID          int64           `json:"id,omitempty"`
	ParentID    int64           `json:"parent_id,omitempty"`
}

type Response struct {
	Result any `json:"result"`
}

// Op is one facade operation.
type Op func(ctx context.Context, id auth.Identity, req *Request) (any, error)

// Facade groups the operations of one service contract, served at
// POST /services/<group>/<op>.
type Facade struct {
	group    string
	verifier auth.CredentialVerifier
	ops      map[string]Op
}

func NewFacade(group string, verifier auth.CredentialVerifier) *Facade {
	return &Facade{group: group, verifier: verifier, ops: make(map[string]Op)}
}

func (f *Facade) Group() string { return f.group }

// Handle registers op under name, replacing any earlier registration.
func (f *Facade) Handle(name string, op Op) {
	f.ops[name] = op
}

// Ops lists the registered operation names in order.
func (f *Facade) Ops() []string {
	return slices.Sorted(maps.Keys(f.ops))
}

// Register mounts the facade on g, which is normally the /services group.
func (f *Facade) Register(g *echo.Group) {
	g.POST("/"+f.group+"/:op", f.Serve)
}

func (f *Facade) Serve(c echo.Context) error {
	op, ok := f.ops[c.Param("op")]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown operation")
	}
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	ctx := c.Request().Context()
	id, err := f.identity(ctx, &req)
	if err != nil {
		return err
	}
	result, err := op(ctx, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Response{Result: result})
}

// identity prefers explicit credentials over the transport identity.
func (f *Facade) identity(ctx context.Context, req *Request) (auth.Identity, error) {
	if req.Credentials == nil {
		return auth.IdentityFromContext(ctx), nil
	}
	if f.verifier == nil {
		return "", apperr.Unauthenticatedf("web.Facade", "credentials are not accepted here")
	}
	return f.verifier.VerifyCredentials(ctx, req.Credentials.Login, req.Credentials.Password)
}

// DecodeEntity unmarshals the request entity. An absent entity decodes to
// nil so the manager reports it as missing.
func DecodeEntity[E any](req *Request) (*E, error) {
	raw := bytes.TrimSpace(req.Entity)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	e := new(E)
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, apperr.Invalidf("web.DecodeEntity", "entity is malformed")
	}
	return e, nil
}

func CreateOp[E any, P store.PModel[E]](m *manager.Manager[E, P]) Op {
	return func(ctx context.Context, id auth.Identity, req *Request) (any, error) {
		e, err := DecodeEntity[E](req)
		if err != nil {
			return nil, err
		}
		return m.Create(ctx, id, e)
	}
}

// UpdateOp returns the entity with its new version. A request id, when set,
// overrides the id inside the entity.
func UpdateOp[E any, P store.PModel[E]](m *manager.Manager[E, P]) Op {
	return func(ctx context.Context, id auth.Identity, req *Request) (any, error) {
		e, err := DecodeEntity[E](req)
		if err != nil {
			return nil, err
		}
		if e != nil && req.ID != 0 {
			P(e).SetID(req.ID)
		}
		if err := m.Update(ctx, id, e); err != nil {
			return nil, err
		}
		return e, nil
	}
}

func DeleteOp[E any, P store.PModel[E]](m *manager.Manager[E, P]) Op {
	return func(ctx context.Context, id auth.Identity, req *Request) (any, error) {
		return nil, m.Delete(ctx, id, req.ID)
	}
}

func GetOp[E any, P store.PModel[E]](m *manager.Manager[E, P]) Op {
	return func(ctx context.Context, id auth.Identity, req *Request) (any, error) {
		return m.Get(ctx, id, req.ID)
	}
}

func ListOp[E any, P store.PModel[E]](m *manager.Manager[E, P]) Op {
	return func(ctx context.Context, id auth.Identity, _ *Request) (any, error) {
		return m.List(ctx, id)
	}
}

func ListByParentOp[E any, P store.PModel[E]](m *manager.Manager[E, P], parent manager.Parent[E]) Op {
	return func(ctx context.Context, id auth.Identity, req *Request) (any, error) {
		return m.ListByParent(ctx, id, parent, req.ParentID)
	}
}

// CRUD registers the five standard operations for one entity:
// Create<Name>, Update<Name>, Delete<Name>, Get<Name>ById and Get<Plural>.
func CRUD[E any, P store.PModel[E]](f *Facade, name, plural string, m *manager.Manager[E, P]) {
	f.Handle("Create"+name, CreateOp(m))
	f.Handle("Update"+name, UpdateOp(m))
	f.Handle("Delete"+name, DeleteOp(m))
	f.Handle("Get"+name+"ById", GetOp(m))
	f.Handle("Get"+plural, ListOp(m))
}
