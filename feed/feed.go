// Package feed implements the post mutation and query operations. Every
// successful mutation publishes exactly one event on the hub, after the
// database write has committed.
package feed

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/labstack/gommon/log"
	"github.com/microcosm-cc/bluemonday"

	"feedboard/domain"
	"feedboard/realtime"
	"feedboard/store"
)

// PerPage is the page size shared by the server query and every client
// view. Both sides must agree on it.
const PerPage = 2

const (
	minTextLen = 5
	maxTextLen = 255
)

var sanitizerStrict = bluemonday.StrictPolicy()

// ImageRemover deletes a stored image, used for compensating cleanup
// when a mutation fails after its image was already stored.
type ImageRemover interface {
	Remove(path string) error
}

type Service struct {
	store  *store.Store
	images ImageRemover
	hub    *realtime.Hub
	log    *log.Logger
}

func NewService(st *store.Store, images ImageRemover, hub *realtime.Hub, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New("feed")
	}
	return &Service{store: st, images: images, hub: hub, log: logger}
}

// Posts returns one page of posts, newest first, and the total number
// of posts across all pages.
func (s *Service) Posts(ctx context.Context, page int) ([]domain.Post, int, error) {
	if page < 1 {
		page = 1
	}
	return s.store.ListPosts(ctx, page, PerPage)
}

func (s *Service) Post(ctx context.Context, id string) (*domain.Post, error) {
	return s.store.PostByID(ctx, id)
}

// Create persists a new post owned by authorID. imageURL names an
// already-stored upload; on any failure it is removed before the error
// is returned.
func (s *Service) Create(ctx context.Context, authorID, title, content, imageURL string) (*domain.Post, error) {
	post, err := s.create(ctx, authorID, title, content, imageURL)
	if err != nil {
		s.discardImage(imageURL)
		return nil, err
	}
	s.hub.Publish(domain.CreatedEvent(post))
	return post, nil
}

func (s *Service) create(ctx context.Context, authorID, title, content, imageURL string) (*domain.Post, error) {
	title, content, err := validatePostText(title, content)
	if err != nil {
		return nil, err
	}
	if imageURL == "" {
		return nil, domain.NewValidationError("No image provided",
			domain.FieldError{Param: "image", Msg: "an image file is required"})
	}

	author, err := s.store.UserByID(ctx, authorID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	post := &domain.Post{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		ImageURL:  imageURL,
		Creator:   domain.Creator{ID: author.ID, Name: author.Name},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertPost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Update replaces title, content and, when newImageURL is non-empty,
// the stored image. Only the post's creator may update it. The old
// image is removed after a successful write; a newly-stored replacement
// is removed on failure.
func (s *Service) Update(ctx context.Context, postID, authorID, title, content, newImageURL string) (*domain.Post, error) {
	post, oldImage, err := s.update(ctx, postID, authorID, title, content, newImageURL)
	if err != nil {
		s.discardImage(newImageURL)
		return nil, err
	}
	s.hub.Publish(domain.UpdatedEvent(post))
	if newImageURL != "" && oldImage != newImageURL {
		s.discardImage(oldImage)
	}
	return post, nil
}

func (s *Service) update(ctx context.Context, postID, authorID, title, content, newImageURL string) (*domain.Post, string, error) {
	title, content, err := validatePostText(title, content)
	if err != nil {
		return nil, "", err
	}

	post, err := s.store.PostByID(ctx, postID)
	if err != nil {
		return nil, "", err
	}
	if post.Creator.ID != authorID {
		return nil, "", errors.Forbiddenf("post %q belongs to another user", postID)
	}

	oldImage := post.ImageURL
	post.Title = title
	post.Content = content
	if newImageURL != "" {
		post.ImageURL = newImageURL
	}
	post.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdatePost(ctx, post); err != nil {
		return nil, "", err
	}
	return post, oldImage, nil
}

// Delete removes the post, its author back-reference and its stored
// image. Back-reference and image cleanup are best effort: failures are
// logged, not surfaced.
func (s *Service) Delete(ctx context.Context, postID, authorID string) error {
	post, err := s.store.PostByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.Creator.ID != authorID {
		return errors.Forbiddenf("post %q belongs to another user", postID)
	}

	if err := s.store.DeletePost(ctx, postID); err != nil {
		return err
	}
	if err := s.store.RemoveAuthorPost(ctx, authorID, postID); err != nil {
		s.log.Errorf("removing back-reference %s/%s: %v", authorID, postID, err)
	}

	s.hub.Publish(domain.DeletedEvent(postID))
	s.discardImage(post.ImageURL)
	return nil
}

func (s *Service) discardImage(path string) {
	if path == "" {
		return
	}
	if err := s.images.Remove(path); err != nil {
		s.log.Errorf("removing image %s: %v", path, err)
	}
}

// validatePostText trims and sanitizes both fields and enforces the
// shared length constraints.
func validatePostText(title, content string) (string, string, error) {
	title = strings.TrimSpace(sanitizerStrict.Sanitize(title))
	content = strings.TrimSpace(sanitizerStrict.Sanitize(content))

	fields := []domain.FieldError{}
	if n := utf8.RuneCountInString(title); n < minTextLen || n > maxTextLen {
		fields = append(fields, domain.FieldError{
			Param: "title", Msg: "must be 5 to 255 characters long"})
	}
	if n := utf8.RuneCountInString(content); n < minTextLen || n > maxTextLen {
		fields = append(fields, domain.FieldError{
			Param: "content", Msg: "must be 5 to 255 characters long"})
	}
	if len(fields) > 0 {
		return "", "", domain.NewValidationError("Post validation failed", fields...)
	}
	return title, content, nil
}
