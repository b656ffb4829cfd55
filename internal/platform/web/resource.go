// Package web adapts entity managers to the two presentation surfaces: REST
// controllers under /api/v1 and the operation facade under /services.
package web

import (
	"maps"
	"net/http"
	"slices"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/caremgr/caremgr/internal/platform/apperr"
	"github.com/caremgr/caremgr/internal/platform/auth"
	"github.com/caremgr/caremgr/internal/platform/manager"
	"github.com/caremgr/caremgr/internal/platform/store"
	"github.com/caremgr/caremgr/pkg/pagination"
)

// Caller returns the identity the auth middleware attached to the request.
func Caller(c echo.Context) auth.Identity {
	return auth.IdentityFromContext(c.Request().Context())
}

// ParamID parses a positive integer path parameter.
func ParamID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalidf("web.ParamID", "%s must be a positive integer", name)
	}
	return id, nil
}

// Resource serves Index, Details, Create, Edit and Delete for one entity.
type Resource[E any, P store.PModel[E]] struct {
	Manager *manager.Manager[E, P]

	// Parents maps an Index query parameter, such as "insurer_id", to the
	// parent relation it filters by.
	Parents map[string]manager.Parent[E]
}

func (r *Resource[E, P]) Register(g *echo.Group, path string) {
	g.GET(path, r.Index)
	g.GET(path+"/:id", r.Details)
	g.POST(path, r.Create)
	g.PUT(path+"/:id", r.Edit)
	g.DELETE(path+"/:id", r.Delete)
}

// Index lists the caller's records, or the children of one parent when a
// parent query parameter is present.
func (r *Resource[E, P]) Index(c echo.Context) error {
	ctx := c.Request().Context()

	parent, parentID, ok, err := r.parentFilter(c)
	if err != nil {
		return err
	}
	var items []*E
	if ok {
		items, err = r.Manager.ListByParent(ctx, Caller(c), parent, parentID)
	} else {
		items, err = r.Manager.List(ctx, Caller(c))
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.Paginate(items, pagination.FromContext(c)))
}

func (r *Resource[E, P]) parentFilter(c echo.Context) (manager.Parent[E], int64, bool, error) {
	for _, key := range slices.Sorted(maps.Keys(r.Parents)) {
		raw := c.QueryParam(key)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return manager.Parent[E]{}, 0, false, apperr.Invalidf("web.Index", "%s must be an integer", key)
		}
		return r.Parents[key], id, true, nil
	}
	return manager.Parent[E]{}, 0, false, nil
}

func (r *Resource[E, P]) Details(c echo.Context) error {
	id, err := ParamID(c, "id")
	if err != nil {
		return err
	}
	e, err := r.Manager.Get(c.Request().Context(), Caller(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (r *Resource[E, P]) Create(c echo.Context) error {
	e := new(E)
	if err := c.Bind(e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	out, err := r.Manager.Create(c.Request().Context(), Caller(c), e)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

// Edit replaces the record named by the path. The body must carry the
// version the client last read.
func (r *Resource[E, P]) Edit(c echo.Context) error {
	id, err := ParamID(c, "id")
	if err != nil {
		return err
	}
	e := new(E)
	if err := c.Bind(e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	P(e).SetID(id)
	if err := r.Manager.Update(c.Request().Context(), Caller(c), e); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (r *Resource[E, P]) Delete(c echo.Context) error {
	id, err := ParamID(c, "id")
	if err != nil {
		return err
	}
	if err := r.Manager.Delete(c.Request().Context(), Caller(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
