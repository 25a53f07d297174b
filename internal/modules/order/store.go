// README: Order store backed by PostgreSQL.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"yumzy/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, o *Order) error {
	tracking, err := json.Marshal(trackingOrEmpty(o.Tracking))
	if err != nil {
		return err
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, user_id, status, tracking, created_at, updated_at, estimated_delivery_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(o.ID),
		string(o.UserID),
		string(o.Status),
		tracking,
		o.CreatedAt,
		o.UpdatedAt,
		o.EstimatedDeliveryTime,
	)
	if err != nil {
		return err
	}
	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, food_item_id, quantity, prep_time)
			VALUES ($1, $2, $3, $4)`,
			string(o.ID), string(it.FoodItemID), it.Quantity, it.PrepTime,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, status, tracking, created_at, updated_at,
		       estimated_delivery_time, actual_delivery_time
		FROM orders
		WHERE id = $1`, string(id),
	)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListActive returns every order that is still moving through the lifecycle.
// Items are not loaded; the reconciler only needs timestamps and status.
func (s *Store) ListActive(ctx context.Context) ([]*Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, status, tracking, created_at, updated_at,
		       estimated_delivery_time, actual_delivery_time
		FROM orders
		WHERE status NOT IN ('delivered', 'cancelled')
		ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateStatus advances an order from one status to another. The WHERE guard
// on the previous status makes the write conditional: a concurrent writer that
// already applied the same transition leaves nothing for this call to match,
// so the caller learns it lost the race instead of double-applying.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1,
		    updated_at = $2,
		    actual_delivery_time = CASE WHEN $1 = 'delivered' THEN $2 ELSE actual_delivery_time END
		WHERE id = $3 AND status = $4`,
		string(to),
		at,
		string(id),
		string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MergeTracking merges free-form tracking metadata, last writer wins per key.
func (s *Store) MergeTracking(ctx context.Context, id types.ID, kv map[string]string) error {
	patch, err := json.Marshal(trackingOrEmpty(kv))
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET tracking = tracking || $1::jsonb
		WHERE id = $2`,
		patch, string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) loadItems(ctx context.Context, o *Order) error {
	rows, err := s.db.Query(ctx, `
		SELECT food_item_id, quantity, prep_time
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`, string(o.ID),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.FoodItemID, &it.Quantity, &it.PrepTime); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var tracking []byte
	var actual *time.Time

	err := row.Scan(
		&o.ID, &o.UserID, &o.Status, &tracking,
		&o.CreatedAt, &o.UpdatedAt, &o.EstimatedDeliveryTime, &actual,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(tracking) > 0 {
		if err := json.Unmarshal(tracking, &o.Tracking); err != nil {
			return nil, err
		}
	}
	o.ActualDeliveryTime = actual
	return &o, nil
}

func trackingOrEmpty(kv map[string]string) map[string]string {
	if kv == nil {
		return map[string]string{}
	}
	return kv
}
