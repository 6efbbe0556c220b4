package auth

import (
	"net/http"

	"arenachat/pkg/models"
)

// ViewerKind maps the caller's API-key role to the author kind their
// messages and view composition run under. Frontend keys act for teams;
// backend and admin keys act institutionally.
func ViewerKind(r *http.Request) models.AuthorKind {
	switch r.Header.Get("X-Role-Name") {
	case "frontend":
		return models.AuthorTeam
	case "backend":
		return models.AuthorSupport
	case "admin":
		return models.AuthorAdmin
	default:
		return models.AuthorUnknown
	}
}
