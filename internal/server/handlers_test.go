package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localbridge-dev/localbridge/internal/approval"
	"github.com/localbridge-dev/localbridge/internal/audit"
	"github.com/localbridge-dev/localbridge/internal/config"
	"github.com/localbridge-dev/localbridge/internal/event"
	"github.com/localbridge-dev/localbridge/internal/file"
	"github.com/localbridge-dev/localbridge/internal/workspace"
	"github.com/localbridge-dev/localbridge/pkg/types"
)

const testToken = "test-token"

func setupTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	canonical, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.WorkspaceRoots = []string{canonical}
	cfg.Token = testToken
	cfg.DecisionTimeoutSeconds = 1

	resolver, err := workspace.NewResolver(cfg.WorkspaceRoots, cfg.DeniedExtensions)
	require.NoError(t, err)

	bus := event.NewBus()
	t.Cleanup(func() { bus.Close() })

	approvals := approval.NewService(resolver, bus, approval.Config{
		DefaultTTL: cfg.DefaultTTL(),
	})
	ledger := audit.NewLedger(cfg.AuditCapacity)
	files := file.NewService(resolver, approvals, ledger, bus, cfg.MaxFileSizeMB)

	return New(cfg, resolver, approvals, files, ledger, bus), canonical
}

func doJSON(t *testing.T, srv *Server, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeApproval(t *testing.T, w *httptest.ResponseRecorder) types.Approval {
	t.Helper()
	var a types.Approval
	require.NoError(t, json.NewDecoder(w.Body).Decode(&a))
	return a
}

func TestRequestApproval_NoWait(t *testing.T) {
	srv, root := setupTestServer(t)
	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w := doJSON(t, srv, "POST", "/approvals/request?wait=false", testToken, types.ApprovalRequest{
		Path:   path,
		Reason: "peek at config",
	})

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	a := decodeApproval(t, w)
	assert.Equal(t, types.StatusPending, a.Status)
	assert.NotEmpty(t, a.ID)
}

func TestRequestApproval_RequiresToken(t *testing.T) {
	srv, root := setupTestServer(t)

	w := doJSON(t, srv, "POST", "/approvals/request?wait=false", "", types.ApprovalRequest{
		Path: filepath.Join(root, "a.txt"),
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, srv, "POST", "/approvals/request?wait=false", "wrong", types.ApprovalRequest{
		Path: filepath.Join(root, "a.txt"),
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestApproval_OutsideRoot(t *testing.T) {
	srv, _ := setupTestServer(t)

	w := doJSON(t, srv, "POST", "/approvals/request?wait=false", testToken, types.ApprovalRequest{
		Path: "/etc/passwd",
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, ErrCodePermissionDenied, resp.Error.Code)
}

func TestRequestApproval_BlocksUntilDecision(t *testing.T) {
	srv, root := setupTestServer(t)
	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	type result struct {
		code int
		a    types.Approval
	}
	done := make(chan result, 1)
	go func() {
		w := doJSON(t, srv, "POST", "/approvals/request", testToken, types.ApprovalRequest{Path: path})
		var a types.Approval
		json.NewDecoder(w.Body).Decode(&a)
		done <- result{code: w.Code, a: a}
	}()

	// Wait for the record to appear, then decide as the operator.
	var pending types.Approval
	require.Eventually(t, func() bool {
		w := doJSON(t, srv, "GET", "/approvals/pending", "", nil)
		var list []types.Approval
		json.NewDecoder(w.Body).Decode(&list)
		if len(list) == 0 {
			return false
		}
		pending = list[0]
		return true
	}, time.Second, 10*time.Millisecond)

	w := doJSON(t, srv, "POST", "/approvals/"+pending.ID+"/decide", "", types.Decision{Approved: false})
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case r := <-done:
		assert.Equal(t, http.StatusOK, r.code)
		assert.Equal(t, types.StatusDenied, r.a.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("blocking request did not return after decision")
	}
}

func TestRequestApproval_TimesOut(t *testing.T) {
	srv, root := setupTestServer(t)
	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w := doJSON(t, srv, "POST", "/approvals/request", testToken, types.ApprovalRequest{Path: path})

	assert.Equal(t, http.StatusRequestTimeout, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, ErrCodeDecisionTimeout, resp.Error.Code)
}

func TestRequestApproval_ShortCircuitsExistingGrant(t *testing.T) {
	srv, root := setupTestServer(t)
	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w := doJSON(t, srv, "POST", "/approvals/request?wait=false", testToken, types.ApprovalRequest{Path: path})
	first := decodeApproval(t, w)

	w = doJSON(t, srv, "POST", "/approvals/"+first.ID+"/decide", "", types.Decision{Approved: true})
	require.Equal(t, http.StatusOK, w.Code)

	// A second request for the same path returns the existing grant without
	// creating a new pending record.
	w = doJSON(t, srv, "POST", "/approvals/request", testToken, types.ApprovalRequest{Path: path})
	require.Equal(t, http.StatusOK, w.Code)
	again := decodeApproval(t, w)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, types.StatusApproved, again.Status)
}

func TestDecide_Conflicts(t *testing.T) {
	srv, root := setupTestServer(t)
	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w := doJSON(t, srv, "POST", "/approvals/request?wait=false", testToken, types.ApprovalRequest{Path: path})
	a := decodeApproval(t, w)

	w = doJSON(t, srv, "POST", "/approvals/"+a.ID+"/decide", "", types.Decision{Approved: true})
	require.Equal(t, http.StatusOK, w.Code)

	// Re-deciding a terminal record is a conflict, not an overwrite.
	w = doJSON(t, srv, "POST", "/approvals/"+a.ID+"/decide", "", types.Decision{Approved: false})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, srv, "POST", "/approvals/unknown/decide", "", types.Decision{Approved: true})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRevoke(t *testing.T) {
	srv, root := setupTestServer(t)
	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w := doJSON(t, srv, "POST", "/approvals/request?wait=false", testToken, types.ApprovalRequest{Path: path})
	a := decodeApproval(t, w)
	doJSON(t, srv, "POST", "/approvals/"+a.ID+"/decide", "", types.Decision{Approved: true})

	w = doJSON(t, srv, "DELETE", "/approvals/"+a.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	revoked := decodeApproval(t, w)
	assert.Equal(t, types.StatusRevoked, revoked.Status)

	w = doJSON(t, srv, "DELETE", "/approvals/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFileReadFlow(t *testing.T) {
	srv, root := setupTestServer(t)
	path := filepath.Join(root, "app.py")
	require.NoError(t, os.WriteFile(path, []byte("print('hi')"), 0o644))

	// Without approval the read is refused and distinguishable from a
	// sandbox rejection.
	w := doJSON(t, srv, "GET", "/files/read?path="+path, testToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, ErrCodeApprovalRequired, resp.Error.Code)

	// Approve, then read.
	w = doJSON(t, srv, "POST", "/approvals/request?wait=false", testToken, types.ApprovalRequest{Path: path})
	a := decodeApproval(t, w)
	doJSON(t, srv, "POST", "/approvals/"+a.ID+"/decide", "", types.Decision{Approved: true})

	w = doJSON(t, srv, "GET", "/files/read?path="+path, testToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result types.FileReadResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, "print('hi')", result.Content)
	assert.Equal(t, "python", result.Language)
}

func TestFileWriteFlow(t *testing.T) {
	srv, root := setupTestServer(t)
	path := filepath.Join(root, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	w := doJSON(t, srv, "POST", "/approvals/request?wait=false", testToken, types.ApprovalRequest{
		Path:   path,
		Access: types.AccessWrite,
	})
	a := decodeApproval(t, w)
	doJSON(t, srv, "POST", "/approvals/"+a.ID+"/decide", "", types.Decision{Approved: true})

	w = doJSON(t, srv, "PUT", "/files/write", testToken, types.FileWriteRequest{
		Path:    path,
		Content: "new",
		Backup:  true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result types.FileWriteResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, 3, result.BytesWritten)
	assert.NotEmpty(t, result.BackupPath)
}

func TestAuditEndpoints(t *testing.T) {
	srv, root := setupTestServer(t)
	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w := doJSON(t, srv, "POST", "/approvals/request?wait=false", testToken, types.ApprovalRequest{Path: path})
	a := decodeApproval(t, w)
	doJSON(t, srv, "POST", "/approvals/"+a.ID+"/decide", "", types.Decision{Approved: true})

	w = doJSON(t, srv, "GET", "/audit", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []types.AuditEntry
	require.NoError(t, json.NewDecoder(w.Body).Decode(&entries))
	require.Len(t, entries, 2)
	assert.Equal(t, types.AuditApprovalRequested, entries[0].Action)
	assert.Equal(t, types.AuditApprovalGranted, entries[1].Action)

	w = doJSON(t, srv, "GET", "/audit/path?path="+a.ResolvedPath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries = nil
	require.NoError(t, json.NewDecoder(w.Body).Decode(&entries))
	assert.Len(t, entries, 2)

	w = doJSON(t, srv, "GET", "/audit/path", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListApprovals(t *testing.T) {
	srv, root := setupTestServer(t)
	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w := doJSON(t, srv, "POST", "/approvals/request?wait=false", testToken, types.ApprovalRequest{Path: path})
	a := decodeApproval(t, w)
	doJSON(t, srv, "POST", "/approvals/"+a.ID+"/decide", "", types.Decision{Approved: false})

	w = doJSON(t, srv, "GET", "/approvals", "", nil)
	var list []types.Approval
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Empty(t, list, "denied records are filtered by default")

	w = doJSON(t, srv, "GET", "/approvals?includeExpired=true", "", nil)
	list = nil
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, types.StatusDenied, list[0].Status)
}

func TestGetApproval(t *testing.T) {
	srv, root := setupTestServer(t)
	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w := doJSON(t, srv, "POST", "/approvals/request?wait=false", testToken, types.ApprovalRequest{Path: path})
	a := decodeApproval(t, w)

	w = doJSON(t, srv, "GET", "/approvals/"+a.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeApproval(t, w)
	assert.Equal(t, a.ID, got.ID)

	w = doJSON(t, srv, "GET", "/approvals/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	srv, _ := setupTestServer(t)

	w := doJSON(t, srv, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
