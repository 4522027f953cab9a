package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
)

const contentColumns = `
	id, type, title, source, video_source, duration, use_video_duration, active,
	position, left_background_image, right_background_image, created_at`

func (s *pgStore) ListContentItems(ctx context.Context) ([]model.ContentItem, error) {
	all := []model.ContentItem{}
	query := `SELECT` + contentColumns + `
	FROM content_items
	ORDER BY position, created_at;`

	if err := s.db.SelectContext(ctx, &all, query); err != nil {
		log.Error().Err(err).Msg("[content] failed to list content items")
		return nil, err
	}
	return all, nil
}

func (s *pgStore) GetContentItem(ctx context.Context, id string) (model.ContentItem, error) {
	return getContentItem(ctx, s.db, id)
}

func getContentItem(ctx context.Context, q sqlx.QueryerContext, id string) (model.ContentItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.ContentItem{}, ErrNotFound
	}

	var c model.ContentItem
	query := `SELECT` + contentColumns + `
	FROM content_items
	WHERE id = $1;`

	err := sqlx.GetContext(ctx, q, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ContentItem{}, ErrNotFound
	}
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("[content] failed to get content item")
		return model.ContentItem{}, err
	}
	return c, nil
}

func (s *pgStore) CreateContentItem(ctx context.Context, draft model.ContentDraft) (model.ContentItem, error) {
	items, err := s.CreateContentItems(ctx, []model.ContentDraft{draft})
	if err != nil {
		return model.ContentItem{}, err
	}
	return items[0], nil
}

func (s *pgStore) CreateContentItems(ctx context.Context, drafts []model.ContentDraft) ([]model.ContentItem, error) {
	prepared := make([]model.ContentDraft, 0, len(drafts))
	for i, d := range drafts {
		p, err := prepareDraft(d)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		prepared = append(prepared, p)
	}
	if len(prepared) == 0 {
		return []model.ContentItem{}, nil
	}

	created := make([]model.ContentItem, 0, len(prepared))
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var next int
		if err := tx.GetContext(ctx, &next, `SELECT COALESCE(MAX(position) + 1, 0) FROM content_items;`); err != nil {
			return err
		}

		query := `
		INSERT INTO content_items
		(id, type, title, source, video_source, duration, use_video_duration, active,
		 position, left_background_image, right_background_image, created_at)
		VALUES
		($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		RETURNING` + contentColumns + `;`

		for i, d := range prepared {
			var c model.ContentItem
			if err := tx.GetContext(ctx, &c, query,
				uuid.NewString(),
				d.Type,
				d.Title,
				d.Source,
				d.VideoSource,
				d.Duration,
				d.UseVideoDuration,
				d.Active,
				next+i,
				d.LeftBackgroundImage,
				d.RightBackgroundImage,
			); err != nil {
				return err
			}
			created = append(created, c)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Int("count", len(prepared)).Msg("[content] failed to create content items")
		return nil, err
	}

	s.notify(ctx)
	return created, nil
}

func (s *pgStore) UpdateContentItem(ctx context.Context, id string, patch model.ContentPatch) (model.ContentItem, error) {
	var updated model.ContentItem
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := getContentItem(ctx, tx, id)
		if err != nil {
			return err
		}
		existing.Apply(patch)
		if err := existing.Validate(); err != nil {
			return err
		}

		query := `
		UPDATE content_items
		SET type = $2, title = $3, source = $4, video_source = $5, duration = $6,
		    use_video_duration = $7, active = $8,
		    left_background_image = $9, right_background_image = $10
		WHERE id = $1
		RETURNING` + contentColumns + `;`

		return tx.GetContext(ctx, &updated, query,
			id,
			existing.Type,
			existing.Title,
			existing.Source,
			existing.VideoSource,
			existing.Duration,
			existing.UseVideoDuration,
			existing.Active,
			existing.LeftBackgroundImage,
			existing.RightBackgroundImage,
		)
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, model.ErrValidation) {
			log.Error().Err(err).Str("id", id).Msg("[content] failed to update content item")
		}
		return model.ContentItem{}, err
	}

	s.notify(ctx)
	return updated, nil
}

func (s *pgStore) SetContentItemActive(ctx context.Context, id string, active bool) (model.ContentItem, error) {
	return s.UpdateContentItem(ctx, id, model.ContentPatch{Active: &active})
}

func (s *pgStore) DeleteContentItem(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM content_items WHERE id = $1;`, id)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("[content] failed to delete content item")
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	s.notify(ctx)
	return nil
}

func (s *pgStore) MoveContentItem(ctx context.Context, from, to int) error {
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		ids, err := orderedIDs(ctx, tx)
		if err != nil {
			return err
		}
		moved, err := spliceMove(ids, from, to)
		if err != nil {
			return err
		}
		return writePositions(ctx, tx, moved)
	})
	if err != nil {
		return err
	}

	s.notify(ctx)
	return nil
}

func (s *pgStore) ReorderContentItems(ctx context.Context, ids []string) error {
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		current, err := orderedIDs(ctx, tx)
		if err != nil {
			return err
		}
		if err := checkPermutation(current, ids); err != nil {
			return err
		}
		return writePositions(ctx, tx, ids)
	})
	if err != nil {
		return err
	}

	s.notify(ctx)
	return nil
}

func orderedIDs(ctx context.Context, tx *sqlx.Tx) ([]string, error) {
	var ids []string
	err := tx.SelectContext(ctx, &ids, `SELECT id FROM content_items ORDER BY position, created_at FOR UPDATE;`)
	return ids, err
}

func writePositions(ctx context.Context, tx *sqlx.Tx, ids []string) error {
	for idx, id := range ids {
		if _, err := tx.ExecContext(ctx, `
			UPDATE content_items
			   SET position = $1
			 WHERE id = $2;
		`, idx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *pgStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(tx)
}

func (s *pgStore) notify(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx); err != nil {
		log.Warn().Err(err).Msg("[content] change notification failed")
	}
}
