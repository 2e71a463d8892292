package utils

import (
	"context"
	"net/http"

	"shophub/globals"
	"shophub/models"
)

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, globals.IdentityKey, id)
}

// IdentityFromRequest returns the caller attached by the authentication gate.
func IdentityFromRequest(r *http.Request) (models.Identity, bool) {
	id, ok := r.Context().Value(globals.IdentityKey).(models.Identity)
	if !ok || id.AccountID == "" {
		return models.Identity{}, false
	}
	return id, true
}

func GetUserIDFromRequest(r *http.Request) string {
	id, _ := IdentityFromRequest(r)
	return id.AccountID
}
