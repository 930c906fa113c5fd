package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/juju/errors"

	"feedboard/domain"
)

const postColumns = `p.id, p.title, p.content, p.image_url, p.creator_id, u.name, p.createdAt, p.updatedAt`

// InsertPost writes the post and the author back-reference row in one
// transaction.
func (s *Store) InsertPost(ctx context.Context, p *domain.Post) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error in begin transaction: %v", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO posts (id, title, content, image_url, creator_id, createdAt, updatedAt) VALUES (?,?,?,?,?,?,?)",
		p.ID, p.Title, p.Content, p.ImageURL, p.Creator.ID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error executing statement in table posts: %v", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO users_posts (user_id, post_id, createdAt, updatedAt) VALUES (?,?,?,?)",
		p.Creator.ID, p.ID, p.CreatedAt, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("error executing statement in table users_posts: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error in commit transaction: %v", err)
	}
	return nil
}

func (s *Store) UpdatePost(ctx context.Context, p *domain.Post) error {
	res, err := s.DB.ExecContext(ctx,
		"UPDATE posts SET title = ?, content = ?, image_url = ?, updatedAt = ? WHERE id = ?",
		p.Title, p.Content, p.ImageURL, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("error executing statement in table posts: %v", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.NotFoundf("post %q", p.ID)
	}
	return nil
}

// DeletePost removes only the post row. The author back-reference is
// removed separately by RemoveAuthorPost; the two steps are not
// transactional.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("error executing statement in table posts: %v", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.NotFoundf("post %q", id)
	}
	return nil
}

// RemoveAuthorPost drops the users_posts back-reference row.
func (s *Store) RemoveAuthorPost(ctx context.Context, userID, postID string) error {
	_, err := s.DB.ExecContext(ctx,
		"DELETE FROM users_posts WHERE user_id = ? AND post_id = ?", userID, postID)
	if err != nil {
		return fmt.Errorf("error executing statement in table users_posts: %v", err)
	}
	return nil
}

func (s *Store) PostByID(ctx context.Context, id string) (*domain.Post, error) {
	row := s.DB.QueryRowContext(ctx,
		"SELECT "+postColumns+" FROM posts p JOIN users u ON u.id = p.creator_id WHERE p.id = ?", id)

	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("post %q", id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPosts returns one page of posts, newest first, together with the
// unscoped total count. Ties on createdAt fall back to insertion order.
func (s *Store) ListPosts(ctx context.Context, page, perPage int) ([]domain.Post, int, error) {
	var total int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.QueryContext(ctx,
		"SELECT "+postColumns+` FROM posts p JOIN users u ON u.id = p.creator_id
		 ORDER BY p.createdAt DESC, p.rowid ASC LIMIT ? OFFSET ?`,
		perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts := []domain.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// AuthorPostIDs returns the back-reference set for one author, oldest
// first.
func (s *Store) AuthorPostIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT post_id FROM users_posts WHERE user_id = ? ORDER BY createdAt ASC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*domain.Post, error) {
	p := domain.Post{}
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.ImageURL,
		&p.Creator.ID, &p.Creator.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
