package insurance

import (
	"context"

	"github.com/caremgr/caremgr/internal/platform/auth"
	"github.com/caremgr/caremgr/internal/platform/web"
)

// NewFacade builds the Insurance service contract.
func NewFacade(svc *Service, verifier auth.CredentialVerifier) *web.Facade {
	f := web.NewFacade("Insurance", verifier)
	web.CRUD(f, "Insurer", "Insurers", svc.insurers)
	web.CRUD(f, "AuthorizationRequest", "AuthorizationRequests", svc.requests)
	web.CRUD(f, "AuthorizationNote", "AuthorizationNotes", svc.notes)
	web.CRUD(f, "AuthorizationFollowUp", "AuthorizationFollowUps", svc.followUps)

	f.Handle("GetAuthorizationRequestsByInsurer", func(ctx context.Context, id auth.Identity, req *web.Request) (any, error) {
		return svc.GetAuthorizationRequestsByInsurer(ctx, id, req.ParentID)
	})
	f.Handle("GetAuthorizationNotesByRequest", func(ctx context.Context, id auth.Identity, req *web.Request) (any, error) {
		return svc.GetAuthorizationNotesByRequest(ctx, id, req.ParentID)
	})
	f.Handle("GetAuthorizationFollowUpsByRequest", func(ctx context.Context, id auth.Identity, req *web.Request) (any, error) {
		return svc.GetAuthorizationFollowUpsByRequest(ctx, id, req.ParentID)
	})
	return f
}
