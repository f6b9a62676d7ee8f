// Package actor implements the single-writer resource actor. One actor owns
// one partition of resource summaries plus the two dedup indices, serializes
// every operation behind a per-partition mutex, and writes denormalized read
// models through to the content store.
package actor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/devshelf/devshelf/internal/contentstore"
	"github.com/devshelf/devshelf/internal/kv"
	"github.com/devshelf/devshelf/internal/model"
	"github.com/devshelf/devshelf/internal/pages"
)

// Storage keys inside an actor partition. Resource ids are plain
// alphanumerics, so the index/ prefix cannot collide with them.
const (
	keyURLIndex     = "index/URL"
	keyPackageIndex = "index/PackageName"
)

// indexEnvelope is the persisted form of a dedup index: the whole map as one
// versioned blob, rewritten on every structural change.
type indexEnvelope struct {
	SchemaVersion int               `json:"schemaVersion"`
	Entries       map[string]string `json:"entries"`
}

// Actor owns the canonical resource records of one partition. All exported
// methods lock the actor mutex, so at most one operation runs at a time and
// the in-memory indices never race with durable state.
type Actor struct {
	mu        sync.Mutex
	partition string
	store     kv.Store
	pages     *pages.Repository
	content   contentstore.Store
	log       zerolog.Logger

	urlIndex     map[string]string
	packageIndex map[string]string
	initErr      error
}

// newActor loads both dedup indices before returning; an actor is never
// handed out half-initialized.
func newActor(ctx context.Context, partition string, store kv.Store, pageRepo *pages.Repository, content contentstore.Store, log zerolog.Logger) (*Actor, error) {
	a := &Actor{
		partition: partition,
		store:     store,
		pages:     pageRepo,
		content:   content,
		log:       log.With().Str("partition", partition).Logger(),
	}
	if err := a.reinitializeLocked(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// reinitializeLocked reloads both indices from durable storage. On failure
// the actor is marked uninitialized and refuses further operations until a
// reload succeeds.
func (a *Actor) reinitializeLocked(ctx context.Context) error {
	urls, err := a.loadIndexLocked(ctx, keyURLIndex)
	if err != nil {
		a.initErr = err
		return err
	}
	pkgs, err := a.loadIndexLocked(ctx, keyPackageIndex)
	if err != nil {
		a.initErr = err
		return err
	}
	a.urlIndex = urls
	a.packageIndex = pkgs
	a.initErr = nil
	a.log.Info().Int("urls", len(urls)).Int("packages", len(pkgs)).Msg("dedup indices loaded")
	return nil
}

func (a *Actor) loadIndexLocked(ctx context.Context, key string) (map[string]string, error) {
	raw, err := a.store.Get(ctx, a.partition, key)
	if errors.Is(err, model.ErrNotFound) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	var env indexEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if env.SchemaVersion != model.SchemaVersion {
		return nil, fmt.Errorf("decode %s: unsupported schema version %d", key, env.SchemaVersion)
	}
	if env.Entries == nil {
		env.Entries = make(map[string]string)
	}
	return env.Entries, nil
}

func (a *Actor) persistIndexLocked(ctx context.Context, key string, entries map[string]string) error {
	raw, err := json.Marshal(indexEnvelope{SchemaVersion: model.SchemaVersion, Entries: entries})
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return a.store.Put(ctx, a.partition, key, raw)
}

// enter acquires the actor mutex and detaches the operation from caller
// cancellation: an abandoned request must not abort a persist mid-flight.
func (a *Actor) enter(ctx context.Context) (context.Context, func(), error) {
	a.mu.Lock()
	if a.initErr != nil {
		a.mu.Unlock()
		return nil, nil, fmt.Errorf("actor %s uninitialized: %w", a.partition, a.initErr)
	}
	return context.WithoutCancel(ctx), a.mu.Unlock, nil
}

// Submit publishes url for userID. The page stage resolves (or scrapes) the
// page first; unsafe pages return INVALID without touching any state, known
// URLs return RESUBMITTED with the existing id, and everything else becomes
// a fresh PUBLISHED record registered in the dedup indices.
func (a *Actor) Submit(ctx context.Context, userID, rawURL string) (*model.SubmitResult, error) {
	if err := validateSubmit(userID, rawURL); err != nil {
		return nil, err
	}
	ctx, release, err := a.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	page, err := a.pages.Resolve(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if !page.IsSafe {
		a.log.Info().Str("url", rawURL).Msg("submission rejected by safety verdict")
		return &model.SubmitResult{Status: model.SubmitInvalid}, nil
	}
	if id, ok := a.urlIndex[page.URL]; ok {
		return &model.SubmitResult{ID: &id, Status: model.SubmitResubmitted}, nil
	}

	id, err := newResourceID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	summary := &model.ResourceSummary{
		SchemaVersion: model.SchemaVersion,
		ID:            id,
		URL:           page.URL,
		Bookmarked:    []string{},
		CreatedAt:     now,
		CreatedBy:     userID,
		UpdatedAt:     now,
		UpdatedBy:     userID,
	}
	if err := a.persistSummaryLocked(ctx, summary); err != nil {
		return nil, err
	}
	if err := a.content.PutResource(ctx, buildResource(summary, page, a.packageIndex)); err != nil {
		return nil, err
	}
	if err := a.registerLocked(ctx, page.URL, page.PackageName, id); err != nil {
		return nil, err
	}
	a.log.Info().Str("resourceId", id).Str("url", page.URL).Msg("resource published")
	return &model.SubmitResult{ID: &id, Status: model.SubmitPublished}, nil
}

// registerLocked adds url (and packageName when set) to the in-memory
// indices and re-persists the touched blobs. A failed persist rolls the
// in-memory entry back so memory keeps mirroring durable state.
func (a *Actor) registerLocked(ctx context.Context, pageURL, packageName, id string) error {
	a.urlIndex[pageURL] = id
	if err := a.persistIndexLocked(ctx, keyURLIndex, a.urlIndex); err != nil {
		delete(a.urlIndex, pageURL)
		return err
	}
	if packageName == "" {
		return nil
	}
	if existing, ok := a.packageIndex[packageName]; ok && existing != id {
		a.log.Warn().Str("packageName", packageName).Str("resourceId", existing).Msg("package name already registered, keeping first owner")
		return nil
	}
	a.packageIndex[packageName] = id
	if err := a.persistIndexLocked(ctx, keyPackageIndex, a.packageIndex); err != nil {
		delete(a.packageIndex, packageName)
		return err
	}
	return nil
}

// Refresh re-scrapes the resource's page and persists the updated record.
// createdAt survives; when the canonical URL moved, the new URL is
// registered alongside the old so both dedup to the same id.
func (a *Actor) Refresh(ctx context.Context, userID, resourceID string) (bool, error) {
	if userID == "" || resourceID == "" {
		return false, fmt.Errorf("refresh needs userId and resourceId: %w", model.ErrValidation)
	}
	ctx, release, err := a.enter(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	summary, err := a.loadSummaryLocked(ctx, resourceID)
	if err != nil {
		return false, err
	}
	if summary == nil {
		return false, nil
	}

	page, err := a.pages.Refresh(ctx, summary.URL)
	if err != nil {
		return false, err
	}
	if page.URL != summary.URL {
		if err := a.registerLocked(ctx, page.URL, "", summary.ID); err != nil {
			return false, err
		}
		a.log.Info().Str("resourceId", summary.ID).Str("from", summary.URL).Str("to", page.URL).Msg("canonical URL changed on refresh")
		summary.URL = page.URL
	}
	if page.PackageName != "" {
		if _, ok := a.packageIndex[page.PackageName]; !ok {
			a.packageIndex[page.PackageName] = summary.ID
			if err := a.persistIndexLocked(ctx, keyPackageIndex, a.packageIndex); err != nil {
				delete(a.packageIndex, page.PackageName)
				return false, err
			}
		}
	}
	summary.UpdatedAt = time.Now().UTC()
	summary.UpdatedBy = userID
	if err := a.persistSummaryLocked(ctx, summary); err != nil {
		return false, err
	}
	if err := a.content.PutResource(ctx, buildResource(summary, page, a.packageIndex)); err != nil {
		return false, err
	}
	return true, nil
}

// GetDetails returns the full resource, rebuilding it from the summary and
// its page record. The content-store copy is rewritten on every hit, which
// doubles as an idempotent repair after a restore.
func (a *Actor) GetDetails(ctx context.Context, resourceID string) (*model.Resource, error) {
	if resourceID == "" {
		return nil, fmt.Errorf("details needs resourceId: %w", model.ErrValidation)
	}
	ctx, release, err := a.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	summary, err := a.loadSummaryLocked(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, fmt.Errorf("resource %s: %w", resourceID, model.ErrNotFound)
	}
	page, err := a.pages.Resolve(ctx, summary.URL)
	if err != nil {
		return nil, err
	}
	res := buildResource(summary, page, a.packageIndex)
	if err := a.content.PutResource(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// View bumps the view counter by exactly one. Missing resources report
// false without mutating anything.
func (a *Actor) View(ctx context.Context, resourceID string) (bool, error) {
	if resourceID == "" {
		return false, fmt.Errorf("view needs resourceId: %w", model.ErrValidation)
	}
	ctx, release, err := a.enter(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	summary, err := a.loadSummaryLocked(ctx, resourceID)
	if err != nil {
		return false, err
	}
	if summary == nil {
		return false, nil
	}
	summary.ViewCounts++
	if err := a.persistSummaryLocked(ctx, summary); err != nil {
		return false, err
	}
	a.patchDenormalizedLocked(ctx, summary)
	return true, nil
}

// Bookmark adds userID to the resource's bookmark set. Re-bookmarking is a
// no-op that skips the persist entirely.
func (a *Actor) Bookmark(ctx context.Context, userID, resourceID string) (bool, error) {
	return a.setBookmark(ctx, userID, resourceID, true)
}

// Unbookmark removes userID from the bookmark set, skipping the persist
// when the user was not bookmarked.
func (a *Actor) Unbookmark(ctx context.Context, userID, resourceID string) (bool, error) {
	return a.setBookmark(ctx, userID, resourceID, false)
}

func (a *Actor) setBookmark(ctx context.Context, userID, resourceID string, want bool) (bool, error) {
	if userID == "" || resourceID == "" {
		return false, fmt.Errorf("bookmark needs userId and resourceId: %w", model.ErrValidation)
	}
	ctx, release, err := a.enter(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	summary, err := a.loadSummaryLocked(ctx, resourceID)
	if err != nil {
		return false, err
	}
	if summary == nil {
		return false, nil
	}

	idx := -1
	for i, u := range summary.Bookmarked {
		if u == userID {
			idx = i
			break
		}
	}
	changed := false
	switch {
	case want && idx < 0:
		summary.Bookmarked = append(summary.Bookmarked, userID)
		changed = true
	case !want && idx >= 0:
		summary.Bookmarked = append(summary.Bookmarked[:idx], summary.Bookmarked[idx+1:]...)
		changed = true
	}
	if !changed {
		return true, nil
	}
	summary.UpdatedAt = time.Now().UTC()
	summary.UpdatedBy = userID
	if err := a.persistSummaryLocked(ctx, summary); err != nil {
		return false, err
	}
	a.patchDenormalizedLocked(ctx, summary)
	return true, nil
}

// Backup dumps the partition's raw key space verbatim: every summary plus
// both index blobs, byte for byte.
func (a *Actor) Backup(ctx context.Context) (map[string]json.RawMessage, error) {
	ctx, release, err := a.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := a.store.Dump(ctx, a.partition)
	if err != nil {
		return nil, fmt.Errorf("dump partition %s: %w", a.partition, err)
	}
	out := make(map[string]json.RawMessage, len(rows))
	for k, v := range rows {
		out[k] = json.RawMessage(v)
	}
	return out, nil
}

// Restore overwrites the partition with data and then reloads the dedup
// indices. Skipping the reload would leave the in-memory indices describing
// the pre-restore world, so it is not optional.
func (a *Actor) Restore(ctx context.Context, data map[string]json.RawMessage) error {
	if data == nil {
		return fmt.Errorf("restore needs a dump: %w", model.ErrValidation)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	rows := make(map[string][]byte, len(data))
	for k, v := range data {
		rows[k] = []byte(v)
	}
	if err := a.store.Replace(ctx, a.partition, rows); err != nil {
		return fmt.Errorf("replace partition %s: %w", a.partition, err)
	}
	if err := a.reinitializeLocked(ctx); err != nil {
		return fmt.Errorf("reinitialize after restore: %w", err)
	}
	a.log.Info().Int("keys", len(rows)).Msg("partition restored")
	return nil
}

func (a *Actor) loadSummaryLocked(ctx context.Context, id string) (*model.ResourceSummary, error) {
	raw, err := a.store.Get(ctx, a.partition, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load summary %s: %w", id, err)
	}
	var s model.ResourceSummary
	if err := json.Unmarshal(raw, &s); err != nil || s.SchemaVersion != model.SchemaVersion || s.ID == "" {
		a.log.Warn().Str("resourceId", id).Msg("undecodable summary treated as absent")
		return nil, nil
	}
	return &s, nil
}

func (a *Actor) persistSummaryLocked(ctx context.Context, s *model.ResourceSummary) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary %s: %w", s.ID, err)
	}
	return a.store.Put(ctx, a.partition, s.ID, raw)
}

// patchDenormalizedLocked folds an updated summary into the existing
// content-store record. When that record is missing the patch is skipped;
// the next GetDetails rebuilds it from the page stage.
func (a *Actor) patchDenormalizedLocked(ctx context.Context, summary *model.ResourceSummary) {
	res, err := a.content.GetResource(ctx, summary.ID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			a.log.Warn().Err(err).Str("resourceId", summary.ID).Msg("denormalized record not patched")
		}
		return
	}
	res.ResourceSummary = *summary
	if err := a.content.PutResource(ctx, res); err != nil {
		a.log.Warn().Err(err).Str("resourceId", summary.ID).Msg("denormalized record not patched")
	}
}

func buildResource(s *model.ResourceSummary, p *model.Page, known map[string]string) *model.Resource {
	return &model.Resource{
		ResourceSummary: *s,
		Category:        p.Category,
		Author:          p.Author,
		Title:           p.Title,
		Description:     p.Description,
		Image:           p.Image,
		Video:           p.Video,
		IsSafe:          p.IsSafe,
		PackageName:     p.PackageName,
		Dependencies:    p.Dependencies,
		Configs:         p.Configs,
		Integrations:    deriveIntegrations(p, known),
	}
}

func validateSubmit(userID, rawURL string) error {
	if userID == "" {
		return fmt.Errorf("submit needs userId: %w", model.ErrValidation)
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("submit needs an http(s) url: %w", model.ErrValidation)
	}
	return nil
}
