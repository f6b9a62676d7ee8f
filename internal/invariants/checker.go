//
// 🔒 CRITICAL SYSTEM FILE - Invariant Contract Testing
// ⚠️  These tests ensure system invariants are never violated
// 🛡️  Uses customer-facing APIs only (blackbox testing)
// 📋  Never mutate invariants to get incremental changes working
//

package invariants

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// InvariantChecker tests system invariants using customer-facing APIs.
// This is a blackbox test that treats the service as an external system.
type InvariantChecker struct {
	baseURL string
	client  *http.Client
}

// NewInvariantChecker creates a new invariant checker
func NewInvariantChecker(baseURL string) *InvariantChecker {
	return &InvariantChecker{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

var resourceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]{12}$`)

type submitResponse struct {
	ID     *string `json:"id"`
	Status string  `json:"status"`
}

// 🔒 INVARIANT: One identity per canonical URL, never reassigned
func (ic *InvariantChecker) TestIdentityStabilityInvariant(t *testing.T, userID string) {
	pageURL := ic.uniqueURL("identity")

	// Step 1: First submission mints a well-formed id
	first := ic.submit(t, userID, pageURL)
	require.NotNil(t, first.ID, "publish must return an id")
	assert.Equal(t, "PUBLISHED", first.Status)
	assert.Regexp(t, resourceIDPattern, *first.ID,
		"resource ids must be 12 alphanumeric characters")

	// 🔒 INVARIANT: Resubmitting the same URL returns the existing id
	t.Run("ResubmissionReturnsExistingID", func(t *testing.T) {
		second := ic.submit(t, userID, pageURL)
		require.NotNil(t, second.ID)
		assert.Equal(t, "RESUBMITTED", second.Status)
		assert.Equal(t, *first.ID, *second.ID,
			"the same URL must never receive a second id")
	})

	// 🔒 INVARIANT: A different user resubmitting does not mint a new id
	t.Run("ResubmissionByOtherUserKeepsID", func(t *testing.T) {
		other := ic.submit(t, userID+"-other", pageURL)
		require.NotNil(t, other.ID)
		assert.Equal(t, "RESUBMITTED", other.Status)
		assert.Equal(t, *first.ID, *other.ID)
	})
}

// 🔒 INVARIANT: View counts only grow, and by exactly the recorded amount
func (ic *InvariantChecker) TestViewMonotonicityInvariant(t *testing.T, userID string) {
	pageURL := ic.uniqueURL("views")
	published := ic.submit(t, userID, pageURL)
	require.NotNil(t, published.ID)
	resourceID := *published.ID

	const views = 3
	for i := 0; i < views; i++ {
		ic.makeRequest(t, http.MethodPut, "/view",
			map[string]string{"resourceId": resourceID, "userId": userID},
			http.StatusOK)
	}

	// Per-user effects land asynchronously; poll the profile
	ic.waitFor(t, "profile view count", func() bool {
		return ic.profileViews(t, userID)[resourceID] == views
	})
}

// 🔒 INVARIANT: Bookmarks are a set; repeated operations do not accumulate
func (ic *InvariantChecker) TestBookmarkIdempotencyInvariant(t *testing.T, userID string) {
	pageURL := ic.uniqueURL("bookmarks")
	published := ic.submit(t, userID, pageURL)
	require.NotNil(t, published.ID)
	resourceID := *published.ID

	// 🔒 INVARIANT: Double bookmark produces a single entry
	t.Run("DoubleBookmarkSingleEntry", func(t *testing.T) {
		ic.makeRequest(t, http.MethodPut, "/bookmark",
			map[string]string{"resourceId": resourceID, "userId": userID},
			http.StatusOK)
		ic.makeRequest(t, http.MethodPut, "/bookmark",
			map[string]string{"resourceId": resourceID, "userId": userID},
			http.StatusOK)

		ic.waitFor(t, "bookmark on profile", func() bool {
			return ic.bookmarkCount(t, userID, resourceID) == 1
		})
	})

	// 🔒 INVARIANT: Unbookmark is safe to repeat
	t.Run("UnbookmarkSafeToRepeat", func(t *testing.T) {
		ic.makeRequest(t, http.MethodDelete, "/bookmark",
			map[string]string{"resourceId": resourceID, "userId": userID},
			http.StatusOK)
		ic.makeRequest(t, http.MethodDelete, "/bookmark",
			map[string]string{"resourceId": resourceID, "userId": userID},
			http.StatusOK)

		ic.waitFor(t, "bookmark removed", func() bool {
			return ic.bookmarkCount(t, userID, resourceID) == 0
		})
	})
}

// 🔒 INVARIANT: Restoring a dump preserves the dedup index
func (ic *InvariantChecker) TestRestoreFidelityInvariant(t *testing.T, userID string) {
	pageURL := ic.uniqueURL("restore")
	published := ic.submit(t, userID, pageURL)
	require.NotNil(t, published.ID)
	resourceID := *published.ID

	dumpBytes := ic.makeRequest(t, http.MethodPost, "/backup", nil, http.StatusOK)
	var dump map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(dumpBytes, &dump))
	require.NotEmpty(t, dump, "backup must return the partition contents")

	ic.makeRequest(t, http.MethodPost, "/restore", dump, http.StatusOK)

	// The same URL must still dedup to the same id after the restore
	restored := ic.submit(t, userID, pageURL)
	require.NotNil(t, restored.ID)
	assert.Equal(t, "RESUBMITTED", restored.Status)
	assert.Equal(t, resourceID, *restored.ID,
		"restore must reload the URL index before serving requests")
}

// 🔒 INVARIANT: Failures follow the error contract and never leak internals
func (ic *InvariantChecker) TestErrorContractInvariant(t *testing.T, userID string) {
	// 🔒 INVARIANT: Malformed URLs are rejected with 400
	t.Run("MalformedURLRejected", func(t *testing.T) {
		ic.makeRequest(t, http.MethodPost, "/submit",
			map[string]string{"url": "not-a-url", "userId": userID},
			http.StatusBadRequest)
	})

	// 🔒 INVARIANT: Unknown resources yield a generic 404 body
	t.Run("UnknownResourceGeneric404", func(t *testing.T) {
		body := ic.makeRequest(t, http.MethodGet,
			"/details?resourceId=AAAAAAAAAAAA", nil, http.StatusNotFound)

		var errResp struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(body, &errResp))
		assert.Equal(t, "not found", errResp.Message,
			"404 bodies must not describe what is missing")
	})

	// 🔒 INVARIANT: Missing identity is rejected before any state changes
	t.Run("MissingUserRejected", func(t *testing.T) {
		ic.makeRequest(t, http.MethodPost, "/submit",
			map[string]string{"url": ic.uniqueURL("no-user")},
			http.StatusBadRequest)
	})
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func (ic *InvariantChecker) uniqueURL(label string) string {
	return fmt.Sprintf("https://example.com/invariants/%s/%d", label, time.Now().UnixNano())
}

func (ic *InvariantChecker) submit(t *testing.T, userID, pageURL string) submitResponse {
	t.Helper()
	body := ic.makeRequest(t, http.MethodPost, "/submit",
		map[string]string{"url": pageURL, "userId": userID},
		http.StatusCreated)
	var resp submitResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func (ic *InvariantChecker) profileViews(t *testing.T, userID string) map[string]int64 {
	t.Helper()
	resp, err := ic.client.Get(ic.baseURL + "/users/" + userID)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	var profile struct {
		Views map[string]int64 `json:"views"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profile))
	return profile.Views
}

func (ic *InvariantChecker) bookmarkCount(t *testing.T, userID, resourceID string) int {
	t.Helper()
	resp, err := ic.client.Get(ic.baseURL + "/users/" + userID)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return 0
	}
	var profile struct {
		Bookmarks []string `json:"bookmarks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profile))
	n := 0
	for _, id := range profile.Bookmarks {
		if id == resourceID {
			n++
		}
	}
	return n
}

func (ic *InvariantChecker) waitFor(t *testing.T, msg string, pred func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if pred() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("condition not met within 10s: %s", msg)
}

// makeRequest performs an HTTP request and asserts the expected status code.
// It returns the response body for further assertions.
func (ic *InvariantChecker) makeRequest(t *testing.T, method, path string, payload interface{}, expectedStatus int) []byte {
	t.Helper()

	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ic.baseURL+path, bodyReader)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ic.client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, expectedStatus, resp.StatusCode,
		"%s %s returned %d (body: %s)", method, path, resp.StatusCode, string(data))
	return data
}
