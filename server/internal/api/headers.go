package api

import (
	"net/http"

	"github.com/inkfs/inkfs/internal/apierror"
	"github.com/inkfs/inkfs/internal/model"
)

// ifMatch reads and unquotes the If-Match header, required on every
// conditional write (spec §4.5): its absence is KindPreconditionRequired,
// not KindBadRequest, since a write without any stated expectation is a
// protocol violation distinct from a malformed one.
func ifMatch(r *http.Request) (model.Hash, error) {
	raw := r.Header.Get("If-Match")
	if raw == "" {
		return "", apierror.New(apierror.KindPreconditionRequired, "If-Match header required")
	}
	h, ok := model.UnquoteHash(raw)
	if !ok || !h.Valid() {
		return "", apierror.New(apierror.KindBadRequest, "malformed If-Match header")
	}
	return h, nil
}

// optIfMatch reads an optional If-Match header used by GET /api/file/{id}/data
// to let a caller assert "give me this content only if it's still this hash".
func optIfMatch(r *http.Request) (model.Hash, bool, error) {
	raw := r.Header.Get("If-Match")
	if raw == "" {
		return "", false, nil
	}
	h, ok := model.UnquoteHash(raw)
	if !ok || !h.Valid() {
		return "", false, apierror.New(apierror.KindBadRequest, "malformed If-Match header")
	}
	return h, true, nil
}

// optIfNoneMatch reads the If-None-Match header used by GET .../data to let
// a caller skip re-downloading unchanged content.
func optIfNoneMatch(r *http.Request) (model.Hash, bool, error) {
	raw := r.Header.Get("If-None-Match")
	if raw == "" {
		return "", false, nil
	}
	h, ok := model.UnquoteHash(raw)
	if !ok || !h.Valid() {
		return "", false, apierror.New(apierror.KindBadRequest, "malformed If-None-Match header")
	}
	return h, true, nil
}
