package feed

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/google/uuid"
	"github.com/juju/errors"

	"feedboard/domain"
	"feedboard/realtime"
	"feedboard/store"

	_ "modernc.org/sqlite"
)

type fakeImages struct {
	removed []string
}

func (f *fakeImages) Remove(path string) error {
	f.removed = append(f.removed, path)
	return nil
}

type fixture struct {
	svc    *Service
	store  *store.Store
	images *fakeImages
	events chan domain.PostEvent
	author *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	schema, err := os.ReadFile("../db/migrations/000001_init.up.sql")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	hub := realtime.NewHub(nil)
	images := &fakeImages{}

	events := make(chan domain.PostEvent, 16)
	unsub := hub.Subscribe(func(ev domain.PostEvent) {
		events <- ev
	})
	t.Cleanup(unsub)

	now := time.Now().UTC()
	author := &domain.User{
		ID:        uuid.NewString(),
		Email:     "author@example.com",
		Name:      "author",
		Status:    domain.DefaultStatus,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.InsertUser(context.Background(), author, "hashed"); err != nil {
		t.Fatal(err)
	}

	return &fixture{
		svc:    NewService(st, images, hub, nil),
		store:  st,
		images: images,
		events: events,
		author: author,
	}
}

func (f *fixture) waitEvent(t *testing.T) domain.PostEvent {
	t.Helper()
	select {
	case ev := <-f.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return domain.PostEvent{}
	}
}

func (f *fixture) assertNoEvent(t *testing.T) {
	t.Helper()
	select {
	case ev := <-f.events:
		t.Fatalf("unexpected event %q for %s", ev.Action, ev.PostID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCreatePublishesOneEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	post, err := f.svc.Create(ctx, f.author.ID, "A fresh post", "Some has-to-be-long-enough content", "images/a.png")
	assert.Equal(t, err, nil)
	assert.NotEqual(t, post.ID, "")
	assert.Equal(t, post.Creator, domain.Creator{ID: f.author.ID, Name: f.author.Name})

	ev := f.waitEvent(t)
	assert.Equal(t, ev.Action, domain.ActionCreate)
	assert.Equal(t, ev.Post.ID, post.ID)
	f.assertNoEvent(t)

	// The back-reference set now carries the new id.
	ids, err := f.store.AuthorPostIDs(ctx, f.author.ID)
	assert.Equal(t, err, nil)
	assert.Equal(t, ids, []string{post.ID})
}

func TestCreateIDsAreUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		post, err := f.svc.Create(ctx, f.author.ID, "Title long enough", "Content long enough", "images/x.png")
		assert.Equal(t, err, nil)
		assert.Equal(t, seen[post.ID], false)
		seen[post.ID] = true
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Too-short title after trimming; stored image is compensated.
	_, err := f.svc.Create(ctx, f.author.ID, "  ab  ", "Content long enough", "images/orphan.png")
	assert.Equal(t, errors.Is(err, errors.NotValid), true)
	assert.Equal(t, f.images.removed, []string{"images/orphan.png"})

	// Missing image.
	_, err = f.svc.Create(ctx, f.author.ID, "Title long enough", "Content long enough", "")
	assert.Equal(t, errors.Is(err, errors.NotValid), true)

	f.assertNoEvent(t)
}

func TestCreateUnknownAuthorCompensatesImage(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), "ghost", "Title long enough", "Content long enough", "images/ghost.png")
	assert.Equal(t, errors.Is(err, errors.NotFound), true)
	assert.Equal(t, f.images.removed, []string{"images/ghost.png"})
	f.assertNoEvent(t)
}

func TestUpdateReplacesFieldsAndOldImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	post, err := f.svc.Create(ctx, f.author.ID, "Original title", "Original content here", "images/old.png")
	assert.Equal(t, err, nil)
	f.waitEvent(t)

	updated, err := f.svc.Update(ctx, post.ID, f.author.ID, "Updated title", "Updated content here", "images/new.png")
	assert.Equal(t, err, nil)
	assert.Equal(t, updated.ID, post.ID)
	assert.Equal(t, updated.Title, "Updated title")
	assert.Equal(t, updated.ImageURL, "images/new.png")

	ev := f.waitEvent(t)
	assert.Equal(t, ev.Action, domain.ActionUpdate)
	assert.Equal(t, ev.Post.ID, post.ID)

	// The replaced image is removed after the write succeeds.
	assert.Equal(t, f.images.removed, []string{"images/old.png"})
}

func TestUpdateWithoutNewImageKeepsOld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	post, err := f.svc.Create(ctx, f.author.ID, "Original title", "Original content here", "images/keep.png")
	assert.Equal(t, err, nil)
	f.waitEvent(t)

	updated, err := f.svc.Update(ctx, post.ID, f.author.ID, "Updated title", "Updated content here", "")
	assert.Equal(t, err, nil)
	assert.Equal(t, updated.ImageURL, "images/keep.png")
	assert.Equal(t, len(f.images.removed), 0)
}

func TestUpdateByNonOwnerForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	post, err := f.svc.Create(ctx, f.author.ID, "Original title", "Original content here", "images/a.png")
	assert.Equal(t, err, nil)
	f.waitEvent(t)

	_, err = f.svc.Update(ctx, post.ID, "intruder", "Updated title", "Updated content here", "images/new.png")
	assert.Equal(t, errors.Is(err, errors.Forbidden), true)
	// The stored replacement image is compensated.
	assert.Equal(t, f.images.removed, []string{"images/new.png"})
	f.assertNoEvent(t)
}

func TestUpdateMissingPostNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Update(context.Background(), "no-such-post", f.author.ID, "Updated title", "Updated content here", "")
	assert.Equal(t, errors.Is(err, errors.NotFound), true)
}

func TestDeleteRemovesEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	post, err := f.svc.Create(ctx, f.author.ID, "Doomed title", "Doomed content here", "images/doomed.png")
	assert.Equal(t, err, nil)
	f.waitEvent(t)

	assert.Equal(t, f.svc.Delete(ctx, post.ID, f.author.ID), nil)

	ev := f.waitEvent(t)
	assert.Equal(t, ev.Action, domain.ActionDelete)
	assert.Equal(t, ev.PostID, post.ID)

	_, err = f.svc.Post(ctx, post.ID)
	assert.Equal(t, errors.Is(err, errors.NotFound), true)

	ids, err := f.store.AuthorPostIDs(ctx, f.author.ID)
	assert.Equal(t, err, nil)
	assert.Equal(t, len(ids), 0)
	assert.Equal(t, f.images.removed, []string{"images/doomed.png"})
}

func TestDeleteByNonOwnerForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	post, err := f.svc.Create(ctx, f.author.ID, "Sturdy title", "Sturdy content here", "images/a.png")
	assert.Equal(t, err, nil)
	f.waitEvent(t)

	err = f.svc.Delete(ctx, post.ID, "intruder")
	assert.Equal(t, errors.Is(err, errors.Forbidden), true)
	f.assertNoEvent(t)

	_, err = f.svc.Post(ctx, post.ID)
	assert.Equal(t, err, nil)
}

func TestPostsPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Created in order A, B, C with distinct timestamps.
	a, err := f.svc.Create(ctx, f.author.ID, "Post A title", "Post A content here", "images/a.png")
	assert.Equal(t, err, nil)
	time.Sleep(5 * time.Millisecond)
	b, err := f.svc.Create(ctx, f.author.ID, "Post B title", "Post B content here", "images/b.png")
	assert.Equal(t, err, nil)
	time.Sleep(5 * time.Millisecond)
	c, err := f.svc.Create(ctx, f.author.ID, "Post C title", "Post C content here", "images/c.png")
	assert.Equal(t, err, nil)

	pageOne, total, err := f.svc.Posts(ctx, 1)
	assert.Equal(t, err, nil)
	assert.Equal(t, total, 3)
	assert.Equal(t, []string{pageOne[0].ID, pageOne[1].ID}, []string{c.ID, b.ID})

	pageTwo, total, err := f.svc.Posts(ctx, 2)
	assert.Equal(t, err, nil)
	assert.Equal(t, total, 3)
	assert.Equal(t, []string{pageTwo[0].ID}, []string{a.ID})

	pageThree, total, err := f.svc.Posts(ctx, 3)
	assert.Equal(t, err, nil)
	assert.Equal(t, total, 3)
	assert.Equal(t, len(pageThree), 0)

	// Fetching the same page twice returns the same ordered list.
	again, _, err := f.svc.Posts(ctx, 1)
	assert.Equal(t, err, nil)
	assert.Equal(t, again, pageOne)
}

func TestValidationTrimsAndSanitizes(t *testing.T) {
	title, content, err := validatePostText("  <b>Bold title</b>  ", "  plain content  ")
	assert.Equal(t, err, nil)
	assert.Equal(t, title, "Bold title")
	assert.Equal(t, content, "plain content")
}

func TestValidationCountsCharactersNotBytes(t *testing.T) {
	// Three characters, nine bytes: below the five-character minimum.
	_, _, err := validatePostText(strings.Repeat("あ", 3), "Content long enough")
	assert.Equal(t, errors.Is(err, errors.NotValid), true)

	// A hundred characters, three hundred bytes: within the limit.
	long := strings.Repeat("あ", 100)
	title, _, err := validatePostText(long, "Content long enough")
	assert.Equal(t, err, nil)
	assert.Equal(t, title, long)
}

func TestValidationLengthBoundaries(t *testing.T) {
	exact := strings.Repeat("x", minTextLen)
	title, _, err := validatePostText(exact, "Content long enough")
	assert.Equal(t, err, nil)
	assert.Equal(t, title, exact)

	_, _, err = validatePostText(strings.Repeat("x", minTextLen-1), "Content long enough")
	assert.Equal(t, errors.Is(err, errors.NotValid), true)

	_, _, err = validatePostText("Title long enough", strings.Repeat("x", maxTextLen+1))
	assert.Equal(t, errors.Is(err, errors.NotValid), true)
}
