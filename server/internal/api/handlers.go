package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inkfs/inkfs/internal/apierror"
	"github.com/inkfs/inkfs/internal/logger"
	"github.com/inkfs/inkfs/internal/model"
	"github.com/inkfs/inkfs/server/internal/contentstore"
	"github.com/inkfs/inkfs/server/internal/hashstream"
	"github.com/inkfs/inkfs/server/internal/metastore"
	"github.com/inkfs/inkfs/server/internal/nodelock"
)

type handler struct {
	store   metastore.Store
	content *contentstore.Store
	locker  *nodelock.Locker
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func idParam(r *http.Request) (model.NodeID, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apierror.New(apierror.KindBadRequest, "malformed node id")
	}
	return model.NodeID(id), nil
}

func decodeName(r *http.Request) (string, error) {
	var body model.WireNewNameRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return "", apierror.New(apierror.KindBadRequest, "malformed request body")
	}
	if body.Name == "" {
		return "", apierror.New(apierror.KindBadRequest, "name must not be empty")
	}
	return body.Name, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err per spec §7: a known *apierror.Error maps to its
// exact status/body; anything else is logged in full and rendered as a bare
// 500 with no internal detail on the wire.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		if apiErr.Kind == apierror.KindAlreadyExists {
			w.Header().Set("Location", apiErr.Location)
		}
		http.Error(w, apiErr.Body(), apiErr.Status())
		return
	}

	logger.Error("internal server error", "path", r.URL.Path, "method", r.Method, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (h *handler) nodeInfo(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	info, err := h.store.LookupNode(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, info.ToWire())
}

func (h *handler) dirInfo(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	info, err := h.store.LookupDir(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, info.ToWire())
}

func (h *handler) fileInfo(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	info, err := h.store.LookupFile(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("ETag", info.Hash.Quote())
	writeJSON(w, http.StatusOK, info.ToWire())
}

// fileData serves GET /api/file/{id}/data, honoring the conditional headers
// spec §4.5/§6 define: If-Match mismatch is a stale read (412 Modified),
// If-None-Match match lets the caller skip the body entirely (304).
func (h *handler) fileData(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	info, err := h.store.LookupFile(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if want, ok, err := optIfMatch(r); err != nil {
		writeError(w, r, err)
		return
	} else if ok && want != info.Hash {
		writeError(w, r, apierror.New(apierror.KindModified, "content changed since If-Match"))
		return
	}

	if notWant, ok, err := optIfNoneMatch(r); err != nil {
		writeError(w, r, err)
		return
	} else if ok && notWant == info.Hash {
		w.Header().Set("ETag", info.Hash.Quote())
		w.WriteHeader(http.StatusNotModified)
		return
	}

	body, err := h.content.Read(info.Hash)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("ETag", info.Hash.Quote())
	w.Header().Set("Content-Length", strconv.FormatUint(info.Size, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}

// writeFileData serves PUT /api/file/{id}/data, the sole mutating content
// route (spec §4.5): acquire the per-node write lock, verify the caller's
// stated If-Match against the file's current hash, stream the body through
// a hashing reader into a staged upload, then conditionally publish inside
// the same transaction as the metadata update.
func (h *handler) writeFileData(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	prevHash, err := ifMatch(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	guard := h.locker.Lock(id)
	defer guard.Unlock()

	info, err := h.store.LookupFile(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if info.Hash != prevHash {
		writeError(w, r, apierror.New(apierror.KindModified, "content changed since If-Match"))
		return
	}

	upload, err := h.content.OpenUpload(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer upload.Close()

	hr := hashstream.NewReader(r.Body)
	if _, err := io.Copy(upload, hr); err != nil {
		writeError(w, r, err)
		return
	}

	newHash := hr.Hash()
	found, err := h.store.UpdateFileContent(r.Context(), id, prevHash, newHash, hr.TotalSize(), func() error {
		return upload.Publish(newHash)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !found {
		writeError(w, r, apierror.New(apierror.KindModified, "content changed during upload"))
		return
	}

	w.Header().Set("ETag", newHash.Quote())
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) createDir(w http.ResponseWriter, r *http.Request) {
	parent, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	name, err := decodeName(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := h.store.CreateDir(r.Context(), parent, name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/dir/"+id.String())
	w.WriteHeader(http.StatusCreated)
}

func (h *handler) createFile(w http.ResponseWriter, r *http.Request) {
	parent, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	name, err := decodeName(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := h.store.CreateFile(r.Context(), parent, name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/file/"+id.String())
	w.Header().Set("ETag", model.EmptyHash.Quote())
	w.WriteHeader(http.StatusCreated)
}

func (h *handler) deleteDir(w http.ResponseWriter, r *http.Request) {
	parent, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	name, err := decodeName(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.store.DeleteDir(r.Context(), parent, name); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) deleteFile(w http.ResponseWriter, r *http.Request) {
	parent, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	name, err := decodeName(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.store.DeleteFile(r.Context(), parent, name); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
