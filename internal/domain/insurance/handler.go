package insurance

import (
	"github.com/labstack/echo/v4"

	"github.com/caremgr/caremgr/internal/platform/manager"
	"github.com/caremgr/caremgr/internal/platform/web"
)

type Handler struct {
	insurers  *web.Resource[Insurer, *Insurer]
	requests  *web.Resource[AuthorizationRequest, *AuthorizationRequest]
	notes     *web.Resource[AuthorizationNote, *AuthorizationNote]
	followUps *web.Resource[AuthorizationFollowUp, *AuthorizationFollowUp]
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		insurers: &web.Resource[Insurer, *Insurer]{Manager: svc.insurers},
		requests: &web.Resource[AuthorizationRequest, *AuthorizationRequest]{
			Manager: svc.requests,
			Parents: map[string]manager.Parent[AuthorizationRequest]{"insurer_id": svc.requestsByInsurer},
		},
		notes: &web.Resource[AuthorizationNote, *AuthorizationNote]{
			Manager: svc.notes,
			Parents: map[string]manager.Parent[AuthorizationNote]{"authorization_request_id": svc.notesByRequest},
		},
		followUps: &web.Resource[AuthorizationFollowUp, *AuthorizationFollowUp]{
			Manager: svc.followUps,
			Parents: map[string]manager.Parent[AuthorizationFollowUp]{"authorization_request_id": svc.followUpsByRequest},
		},
	}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	h.insurers.Register(api, "/insurers")
	h.requests.Register(api, "/authorization-requests")
	h.notes.Register(api, "/authorization-notes")
	h.followUps.Register(api, "/authorization-follow-ups")
}
