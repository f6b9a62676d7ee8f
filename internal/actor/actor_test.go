package actor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/devshelf/devshelf/internal/contentstore"
	"github.com/devshelf/devshelf/internal/kv"
	kvmemory "github.com/devshelf/devshelf/internal/kv/memory"
	"github.com/devshelf/devshelf/internal/model"
	"github.com/devshelf/devshelf/internal/pages"
)

const testPartition = "resources"

// countingStore wraps a kv.Store and counts Put calls per partition/key, so
// tests can assert that unchanged records skip the persist.
type countingStore struct {
	kv.Store
	mu   sync.Mutex
	puts map[string]int
}

func (c *countingStore) Put(ctx context.Context, partition, key string, value []byte) error {
	c.mu.Lock()
	c.puts[partition+"/"+key]++
	c.mu.Unlock()
	return c.Store.Put(ctx, partition, key, value)
}

func (c *countingStore) putCount(partition, key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.puts[partition+"/"+key]
}

type scriptedScraper struct {
	mu    sync.Mutex
	pages map[string]model.Page
	calls int
}

func (s *scriptedScraper) Scrape(_ context.Context, url string) (*model.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	p, ok := s.pages[url]
	if !ok {
		p = model.Page{URL: url, Title: "Untitled"}
	}
	if p.URL == "" {
		p.URL = url
	}
	cp := p
	return &cp, nil
}

func (s *scriptedScraper) set(url string, p model.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[url] = p
}

type verdictChecker struct {
	unsafe map[string]bool
}

func (v *verdictChecker) Check(_ context.Context, url string) (bool, error) {
	return !v.unsafe[url], nil
}

type fixture struct {
	store   *countingStore
	scraper *scriptedScraper
	safety  *verdictChecker
	content contentstore.Store
	actor   *Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &countingStore{Store: kvmemory.New(), puts: make(map[string]int)}
	scraper := &scriptedScraper{pages: make(map[string]model.Page)}
	safety := &verdictChecker{unsafe: make(map[string]bool)}
	repo := pages.NewRepository(store, scraper, safety, zerolog.Nop())
	content := contentstore.New(store, zerolog.Nop())
	a, err := newActor(context.Background(), testPartition, store, repo, content, zerolog.Nop())
	if err != nil {
		t.Fatalf("newActor: %v", err)
	}
	return &fixture{store: store, scraper: scraper, safety: safety, content: content, actor: a}
}

func (f *fixture) mustSubmit(t *testing.T, userID, url string) string {
	t.Helper()
	res, err := f.actor.Submit(context.Background(), userID, url)
	if err != nil {
		t.Fatalf("Submit(%s, %s): %v", userID, url, err)
	}
	if res.Status != model.SubmitPublished || res.ID == nil {
		t.Fatalf("Submit(%s, %s) = %+v, want PUBLISHED", userID, url, res)
	}
	return *res.ID
}

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9]{12}$`)

func TestSubmit_PublishThenResubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.actor.Submit(ctx, "userA", "https://a.test/docs")
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if first.Status != model.SubmitPublished || first.ID == nil {
		t.Fatalf("first Submit = %+v, want PUBLISHED", first)
	}
	if !idPattern.MatchString(*first.ID) {
		t.Fatalf("id %q is not 12 alphanumerics", *first.ID)
	}

	second, err := f.actor.Submit(ctx, "userB", "https://a.test/docs")
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if second.Status != model.SubmitResubmitted || second.ID == nil || *second.ID != *first.ID {
		t.Fatalf("second Submit = %+v, want RESUBMITTED with id %s", second, *first.ID)
	}

	rows, err := f.store.Dump(ctx, testPartition)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	// one summary plus the url index blob, nothing else
	if len(rows) != 2 {
		t.Fatalf("partition has %d keys, want 2: %v", len(rows), keysOf(rows))
	}
	if _, ok := rows[*first.ID]; !ok {
		t.Fatalf("summary key %s missing: %v", *first.ID, keysOf(rows))
	}
	if _, ok := rows[keyURLIndex]; !ok {
		t.Fatalf("url index blob missing: %v", keysOf(rows))
	}
}

func TestSubmit_UnsafeLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	f.safety.unsafe["https://sketchy.test"] = true
	ctx := context.Background()

	res, err := f.actor.Submit(ctx, "userA", "https://sketchy.test")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Status != model.SubmitInvalid || res.ID != nil {
		t.Fatalf("Submit = %+v, want INVALID with nil id", res)
	}

	rows, err := f.store.Dump(ctx, testPartition)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("unsafe submit wrote actor state: %v", keysOf(rows))
	}
	list, err := f.content.ListMetadata(ctx)
	if err != nil {
		t.Fatalf("ListMetadata: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("unsafe submit reached the content store: %+v", list)
	}
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name, user, url string
	}{
		{"missing user", "", "https://a.test"},
		{"missing url", "userA", ""},
		{"not a url", "userA", "::::"},
		{"wrong scheme", "userA", "ftp://a.test/file"},
		{"no host", "userA", "https://"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.actor.Submit(ctx, tc.user, tc.url)
			if !errors.Is(err, model.ErrValidation) {
				t.Fatalf("Submit(%q, %q) err = %v, want ErrValidation", tc.user, tc.url, err)
			}
		})
	}
}

func TestView_Monotonic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mustSubmit(t, "userA", "https://a.test")

	for i := 0; i < 3; i++ {
		ok, err := f.actor.View(ctx, id)
		if err != nil || !ok {
			t.Fatalf("View #%d = (%v, %v)", i+1, ok, err)
		}
	}
	res, err := f.actor.GetDetails(ctx, id)
	if err != nil {
		t.Fatalf("GetDetails: %v", err)
	}
	if res.ViewCounts != 3 {
		t.Fatalf("viewCounts = %d, want 3", res.ViewCounts)
	}
}

func TestView_MissingResourceMutatesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustSubmit(t, "userA", "https://a.test")

	before, _ := f.store.Dump(ctx, testPartition)
	ok, err := f.actor.View(ctx, "nosuchid0000")
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if ok {
		t.Fatalf("View on missing id reported true")
	}
	after, _ := f.store.Dump(ctx, testPartition)
	if !dumpsEqual(before, after) {
		t.Fatalf("View on missing id mutated the partition")
	}
}

func TestBookmark_IdempotentAndSkipsRedundantPersist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mustSubmit(t, "userA", "https://a.test")

	if ok, err := f.actor.Bookmark(ctx, "userA", id); err != nil || !ok {
		t.Fatalf("first Bookmark = (%v, %v)", ok, err)
	}
	writes := f.store.putCount(testPartition, id)

	if ok, err := f.actor.Bookmark(ctx, "userA", id); err != nil || !ok {
		t.Fatalf("second Bookmark = (%v, %v)", ok, err)
	}
	if got := f.store.putCount(testPartition, id); got != writes {
		t.Fatalf("redundant bookmark persisted: %d writes, want %d", got, writes)
	}

	if ok, err := f.actor.Unbookmark(ctx, "userB", id); err != nil || !ok {
		t.Fatalf("Unbookmark of absent user = (%v, %v), want true", ok, err)
	}
	if got := f.store.putCount(testPartition, id); got != writes {
		t.Fatalf("no-op unbookmark persisted: %d writes, want %d", got, writes)
	}

	res, err := f.actor.GetDetails(ctx, id)
	if err != nil {
		t.Fatalf("GetDetails: %v", err)
	}
	if len(res.Bookmarked) != 1 || res.Bookmarked[0] != "userA" {
		t.Fatalf("bookmarked = %v, want [userA]", res.Bookmarked)
	}

	if ok, err := f.actor.Unbookmark(ctx, "userA", id); err != nil || !ok {
		t.Fatalf("Unbookmark = (%v, %v)", ok, err)
	}
	res, err = f.actor.GetDetails(ctx, id)
	if err != nil {
		t.Fatalf("GetDetails: %v", err)
	}
	if len(res.Bookmarked) != 0 {
		t.Fatalf("bookmarked = %v, want empty", res.Bookmarked)
	}
}

func TestBookmark_MissingResource(t *testing.T) {
	f := newFixture(t)
	ok, err := f.actor.Bookmark(context.Background(), "userA", "nosuchid0000")
	if err != nil {
		t.Fatalf("Bookmark: %v", err)
	}
	if ok {
		t.Fatalf("Bookmark on missing id reported true")
	}
}

func TestBackupRestore_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	idA := f.mustSubmit(t, "userA", "https://a.test")
	f.mustSubmit(t, "userA", "https://b.test")
	if ok, err := f.actor.View(ctx, idA); err != nil || !ok {
		t.Fatalf("View: %v %v", ok, err)
	}
	if ok, err := f.actor.Bookmark(ctx, "userA", idA); err != nil || !ok {
		t.Fatalf("Bookmark: %v %v", ok, err)
	}

	snapshot, err := f.actor.Backup(ctx)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}

	// Diverge from the snapshot, then restore it.
	if ok, err := f.actor.View(ctx, idA); err != nil || !ok {
		t.Fatalf("post-backup View: %v %v", ok, err)
	}
	idC := f.mustSubmit(t, "userB", "https://c.test")

	if err := f.actor.Restore(ctx, snapshot); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	again, err := f.actor.Backup(ctx)
	if err != nil {
		t.Fatalf("second Backup: %v", err)
	}
	if len(again) != len(snapshot) {
		t.Fatalf("restored key count %d, want %d", len(again), len(snapshot))
	}
	for k, v := range snapshot {
		if !bytes.Equal(again[k], v) {
			t.Fatalf("key %s not byte-identical after restore", k)
		}
	}

	// Indices were rebuilt, not left stale: the pre-backup URL dedups to its
	// old id, the post-backup URL publishes under a fresh one.
	res, err := f.actor.Submit(ctx, "userB", "https://a.test")
	if err != nil {
		t.Fatalf("Submit after restore: %v", err)
	}
	if res.Status != model.SubmitResubmitted || *res.ID != idA {
		t.Fatalf("Submit after restore = %+v, want RESUBMITTED %s", res, idA)
	}
	res, err = f.actor.Submit(ctx, "userB", "https://c.test")
	if err != nil {
		t.Fatalf("re-Submit of dropped url: %v", err)
	}
	if res.Status != model.SubmitPublished {
		t.Fatalf("re-Submit of dropped url = %+v, want PUBLISHED", res)
	}
	if *res.ID == idC {
		t.Fatalf("id %s reused after restore", idC)
	}
}

func TestRestore_BadIndexBlobFailsAndBlocksOps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustSubmit(t, "userA", "https://a.test")

	good, err := f.actor.Backup(ctx)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}

	bad := map[string]json.RawMessage{keyURLIndex: json.RawMessage(`{broken`)}
	if err := f.actor.Restore(ctx, bad); err == nil {
		t.Fatalf("Restore of broken index blob succeeded")
	}
	if _, err := f.actor.Submit(ctx, "userA", "https://b.test"); err == nil {
		t.Fatalf("uninitialized actor accepted an operation")
	}

	if err := f.actor.Restore(ctx, good); err != nil {
		t.Fatalf("recovery Restore: %v", err)
	}
	if _, err := f.actor.Submit(ctx, "userA", "https://b.test"); err != nil {
		t.Fatalf("Submit after recovery: %v", err)
	}
}

func TestRefresh_MissingResource(t *testing.T) {
	f := newFixture(t)
	ok, err := f.actor.Refresh(context.Background(), "userA", "nosuchid0000")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if ok {
		t.Fatalf("Refresh on missing id reported true")
	}
}

func TestRefresh_UpdatesContentPreservesCreatedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.scraper.set("https://a.test", model.Page{URL: "https://a.test", Title: "v1"})
	id := f.mustSubmit(t, "userA", "https://a.test")

	created, err := f.actor.GetDetails(ctx, id)
	if err != nil {
		t.Fatalf("GetDetails: %v", err)
	}

	f.scraper.set("https://a.test", model.Page{URL: "https://a.test", Title: "v2"})
	ok, err := f.actor.Refresh(ctx, "userB", id)
	if err != nil || !ok {
		t.Fatalf("Refresh = (%v, %v)", ok, err)
	}

	res, err := f.actor.GetDetails(ctx, id)
	if err != nil {
		t.Fatalf("GetDetails: %v", err)
	}
	if res.Title != "v2" {
		t.Fatalf("title = %q, want v2", res.Title)
	}
	if !res.CreatedAt.Equal(created.CreatedAt) || res.CreatedBy != "userA" {
		t.Fatalf("createdAt/createdBy not preserved: %+v", res.ResourceSummary)
	}
	if res.UpdatedBy != "userB" {
		t.Fatalf("updatedBy = %q, want userB", res.UpdatedBy)
	}
}

func TestRefresh_CanonicalURLChangeDedupsBothURLs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.scraper.set("https://old.test/g", model.Page{URL: "https://old.test/g", Title: "G"})
	id := f.mustSubmit(t, "userA", "https://old.test/g")

	f.scraper.set("https://old.test/g", model.Page{URL: "https://new.test/g", Title: "G"})
	if ok, err := f.actor.Refresh(ctx, "userA", id); err != nil || !ok {
		t.Fatalf("Refresh = (%v, %v)", ok, err)
	}

	res, err := f.actor.GetDetails(ctx, id)
	if err != nil {
		t.Fatalf("GetDetails: %v", err)
	}
	if res.URL != "https://new.test/g" {
		t.Fatalf("summary url = %q, want the new canonical", res.URL)
	}

	for _, u := range []string{"https://old.test/g", "https://new.test/g"} {
		got, err := f.actor.Submit(ctx, "userB", u)
		if err != nil {
			t.Fatalf("Submit(%s): %v", u, err)
		}
		if got.Status != model.SubmitResubmitted || *got.ID != id {
			t.Fatalf("Submit(%s) = %+v, want RESUBMITTED %s", u, got, id)
		}
	}
}

func TestIntegrations_DerivedAgainstCurrentIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.scraper.set("https://remix.run", model.Page{URL: "https://remix.run", Title: "Remix", PackageName: "remix"})
	f.mustSubmit(t, "userA", "https://remix.run")

	f.scraper.set("https://blog.test/post", model.Page{
		URL:          "https://blog.test/post",
		Title:        "Post",
		Dependencies: map[string]string{"remix": "^2.0.0", "react": "^18.0.0"},
		Configs:      []string{"vite"},
	})
	id := f.mustSubmit(t, "userA", "https://blog.test/post")

	res, err := f.actor.GetDetails(ctx, id)
	if err != nil {
		t.Fatalf("GetDetails: %v", err)
	}
	if len(res.Integrations) != 1 || res.Integrations[0] != "remix" {
		t.Fatalf("integrations = %v, want [remix]", res.Integrations)
	}

	// Registering vite afterwards changes what the next read derives.
	f.scraper.set("https://vite.dev", model.Page{URL: "https://vite.dev", Title: "Vite", PackageName: "vite"})
	f.mustSubmit(t, "userA", "https://vite.dev")

	res, err = f.actor.GetDetails(ctx, id)
	if err != nil {
		t.Fatalf("GetDetails: %v", err)
	}
	if len(res.Integrations) != 2 || res.Integrations[0] != "remix" || res.Integrations[1] != "vite" {
		t.Fatalf("integrations = %v, want [remix vite]", res.Integrations)
	}
}

func TestGetDetails_RepairsContentRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mustSubmit(t, "userA", "https://a.test")

	if err := f.store.Delete(ctx, "content", "resources/"+id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.content.GetResource(ctx, id); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("content record still present: %v", err)
	}

	res, err := f.actor.GetDetails(ctx, id)
	if err != nil {
		t.Fatalf("GetDetails: %v", err)
	}
	if res == nil || res.ID != id {
		t.Fatalf("GetDetails = %+v", res)
	}
	if _, err := f.content.GetResource(ctx, id); err != nil {
		t.Fatalf("content record not repaired: %v", err)
	}
}

func TestGetDetails_MissingIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.actor.GetDetails(context.Background(), "nosuchid0000")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestEndToEndScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const docs = "https://remix.run/docs"

	first, err := f.actor.Submit(ctx, "userA", docs)
	if err != nil || first.Status != model.SubmitPublished {
		t.Fatalf("submit userA = %+v, %v", first, err)
	}
	second, err := f.actor.Submit(ctx, "userB", docs)
	if err != nil || second.Status != model.SubmitResubmitted || *second.ID != *first.ID {
		t.Fatalf("submit userB = %+v, %v", second, err)
	}
	for i := 0; i < 2; i++ {
		if ok, err := f.actor.View(ctx, *first.ID); err != nil || !ok {
			t.Fatalf("view #%d = (%v, %v)", i+1, ok, err)
		}
	}
	for i := 0; i < 2; i++ {
		if ok, err := f.actor.Bookmark(ctx, "userA", *first.ID); err != nil || !ok {
			t.Fatalf("bookmark #%d = (%v, %v)", i+1, ok, err)
		}
	}

	res, err := f.actor.GetDetails(ctx, *first.ID)
	if err != nil {
		t.Fatalf("GetDetails: %v", err)
	}
	if res.ViewCounts != 2 {
		t.Fatalf("viewCounts = %d, want 2", res.ViewCounts)
	}
	if len(res.Bookmarked) != 1 || res.Bookmarked[0] != "userA" {
		t.Fatalf("bookmarked = %v, want [userA]", res.Bookmarked)
	}
}

func keysOf(rows map[string][]byte) []string {
	out := make([]string, 0, len(rows))
	for k := range rows {
		out = append(out, k)
	}
	return out
}

func dumpsEqual(a, b map[string][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if !bytes.Equal(b[k], v) {
			return false
		}
	}
	return true
}
