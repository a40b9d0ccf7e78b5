// Package remoteclient is the thin HTTP transport to the inkfs server: one
// method per route spec §6 exposes, translating JSON wire bodies and
// conditional headers into model values and classifying every failure
// through internal/rpcerror. It is the Go analogue of the original
// implementation's RemoteDataService, minus its per-route narrowed error
// enums — callers switch on a single rpcerror.Kind instead.
package remoteclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/inkfs/inkfs/internal/model"
	"github.com/inkfs/inkfs/internal/rpcerror"
)

// Client speaks the inkfs server's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client against baseURL, e.g. "http://127.0.0.1:3000".
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) url(format string, args ...any) string {
	return c.baseURL + fmt.Sprintf(format, args...)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, rpcerror.Timeout(ctxErr.Error())
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, rpcerror.Timeout(err.Error())
		}
		return nil, rpcerror.Other(err.Error())
	}
	return resp, nil
}

// readErr drains resp's body and classifies the response as an
// *rpcerror.Error. Callers invoke this only once resp.StatusCode is known
// not to be the expected success code.
func readErr(resp *http.Response) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return rpcerror.FromHTTPStatus(resp.StatusCode, string(body), resp.Header.Get("Location"))
}

// FetchNodeInfo fetches GET /api/node/{id}.
func (c *Client) FetchNodeInfo(ctx context.Context, id model.NodeID) (model.NodeInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/api/node/%s", id), nil)
	if err != nil {
		return model.NodeInfo{}, rpcerror.Other(err.Error())
	}

	resp, err := c.do(req)
	if err != nil {
		return model.NodeInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.NodeInfo{}, readErr(resp)
	}

	var wire model.WireNodeInfo
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return model.NodeInfo{}, rpcerror.New(rpcerror.KindProtocolMismatch, err.Error())
	}
	info, ok := wire.FromWire()
	if !ok {
		return model.NodeInfo{}, rpcerror.New(rpcerror.KindProtocolMismatch, "node body has neither directory nor file")
	}
	return info, nil
}

// FetchDirInfo fetches GET /api/dir/{id}/.
func (c *Client) FetchDirInfo(ctx context.Context, id model.NodeID) (model.DirectoryInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/api/dir/%s/", id), nil)
	if err != nil {
		return model.DirectoryInfo{}, rpcerror.Other(err.Error())
	}

	resp, err := c.do(req)
	if err != nil {
		return model.DirectoryInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.DirectoryInfo{}, readErr(resp)
	}

	var wire model.WireDirectoryInfo
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return model.DirectoryInfo{}, rpcerror.New(rpcerror.KindProtocolMismatch, err.Error())
	}
	return wire.FromWire(), nil
}

// FetchFileInfo fetches GET /api/file/{id}/, returning the ETag-bearing hash.
func (c *Client) FetchFileInfo(ctx context.Context, id model.NodeID) (model.FileInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/api/file/%s/", id), nil)
	if err != nil {
		return model.FileInfo{}, rpcerror.Other(err.Error())
	}

	resp, err := c.do(req)
	if err != nil {
		return model.FileInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.FileInfo{}, readErr(resp)
	}

	var wire model.WireFileInfo
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return model.FileInfo{}, rpcerror.New(rpcerror.KindProtocolMismatch, err.Error())
	}
	return wire.FromWire(), nil
}

// FetchFileData fetches GET /api/file/{id}/data.
func (c *Client) FetchFileData(ctx context.Context, id model.NodeID) ([]byte, model.Hash, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/api/file/%s/data", id), nil)
	if err != nil {
		return nil, "", rpcerror.Other(err.Error())
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", readErr(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", rpcerror.Other(err.Error())
	}
	hash, _ := model.UnquoteHash(resp.Header.Get("ETag"))
	return data, hash, nil
}

// WriteFileData sends PUT /api/file/{id}/data with If-Match: prevHash,
// returning the new content's hash on success.
func (c *Client) WriteFileData(ctx context.Context, id model.NodeID, prevHash model.Hash, data []byte) (model.Hash, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.url("/api/file/%s/data", id), bytes.NewReader(data))
	if err != nil {
		return "", rpcerror.Other(err.Error())
	}
	req.Header.Set("If-Match", prevHash.Quote())
	req.ContentLength = int64(len(data))

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return "", readErr(resp)
	}

	hash, ok := model.UnquoteHash(resp.Header.Get("ETag"))
	if !ok {
		return "", rpcerror.New(rpcerror.KindProtocolMismatch, "missing ETag on write response")
	}
	return hash, nil
}

func (c *Client) postName(ctx context.Context, path string, name string) (*http.Response, error) {
	body, err := json.Marshal(model.WireNewNameRequest{Name: name})
	if err != nil {
		return nil, rpcerror.Other(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("%s", path), bytes.NewReader(body))
	if err != nil {
		return nil, rpcerror.Other(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// locationID parses the trailing NodeID off a Location response header, the
// same rfind('/')-based extraction the original remote_data_service.rs uses.
func locationID(location string) (model.NodeID, error) {
	idx := strings.LastIndexByte(location, '/')
	if idx < 0 || idx+1 >= len(location) {
		return 0, rpcerror.New(rpcerror.KindProtocolMismatch, "malformed Location header: "+location)
	}
	var id uint64
	if _, err := fmt.Sscanf(location[idx+1:], "%d", &id); err != nil {
		return 0, rpcerror.New(rpcerror.KindProtocolMismatch, "malformed Location header: "+location)
	}
	return model.NodeID(id), nil
}

// CreateDir sends POST /api/dir/{parent}/new-dir.
func (c *Client) CreateDir(ctx context.Context, parent model.NodeID, name string) (model.NodeID, error) {
	resp, err := c.postName(ctx, fmt.Sprintf("/api/dir/%s/new-dir", parent), name)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return 0, readErr(resp)
	}
	return locationID(resp.Header.Get("Location"))
}

// CreateFile sends POST /api/dir/{parent}/new-file.
func (c *Client) CreateFile(ctx context.Context, parent model.NodeID, name string) (model.NodeID, error) {
	resp, err := c.postName(ctx, fmt.Sprintf("/api/dir/%s/new-file", parent), name)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return 0, readErr(resp)
	}
	return locationID(resp.Header.Get("Location"))
}

// DeleteDir sends POST /api/dir/{parent}/delete-dir.
func (c *Client) DeleteDir(ctx context.Context, parent model.NodeID, name string) error {
	resp, err := c.postName(ctx, fmt.Sprintf("/api/dir/%s/delete-dir", parent), name)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return readErr(resp)
	}
	return nil
}

// DeleteFile sends POST /api/dir/{parent}/delete-file.
func (c *Client) DeleteFile(ctx context.Context, parent model.NodeID, name string) error {
	resp, err := c.postName(ctx, fmt.Sprintf("/api/dir/%s/delete-file", parent), name)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return readErr(resp)
	}
	return nil
}
