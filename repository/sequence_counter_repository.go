package repository

import (
	"context"
	"fmt"

	"github.com/inventara/inventara/models"
	"gorm.io/gorm"
)

// SequenceCounterRepositoryImpl implements the SequenceCounterRepository
// interface. Every mutation is written to run inside the caller's transaction
// context; Postgres row-level locking on the counter row serializes
// concurrent allocators for the same (inventory, scope) pair.
type SequenceCounterRepositoryImpl struct {
	*BaseRepository[models.SequenceCounter, models.SequenceCounterFilter]
}

// NewSequenceCounterRepository creates a new sequence counter repository
func NewSequenceCounterRepository(db *gorm.DB) SequenceCounterRepository {
	return &SequenceCounterRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SequenceCounter, models.SequenceCounterFilter](db),
	}
}

// Ensure creates the counter row at value 0 if it does not exist yet.
// Idempotent: an existing row is left untouched.
func (r *SequenceCounterRepositoryImpl) Ensure(ctx context.Context, inventoryID uint, scopeKey string) error {
	db := r.getDB(ctx)

	err := db.Exec(`
		INSERT INTO sequence_counters (inventory_id, scope_key, value)
		VALUES (?, ?, 0)
		ON CONFLICT (inventory_id, scope_key) DO NOTHING`,
		inventoryID, scopeKey).Error
	if err != nil {
		return fmt.Errorf("failed to ensure sequence counter: %w", err)
	}

	return nil
}

// RaiseTo lifts the counter to at least the given floor. Used to reconcile
// the counter with identifiers that were persisted outside its knowledge.
func (r *SequenceCounterRepositoryImpl) RaiseTo(ctx context.Context, inventoryID uint, scopeKey string, floor int64) error {
	db := r.getDB(ctx)

	err := db.Exec(`
		UPDATE sequence_counters
		SET value = GREATEST(value, ?), updated_at = CURRENT_TIMESTAMP
		WHERE inventory_id = ? AND scope_key = ?`,
		floor, inventoryID, scopeKey).Error
	if err != nil {
		return fmt.Errorf("failed to raise sequence counter: %w", err)
	}

	return nil
}

// IncrementAndGet advances the counter by one and returns the new value.
// The UPDATE takes the row lock, so two transactions can never observe the
// same post-increment value.
func (r *SequenceCounterRepositoryImpl) IncrementAndGet(ctx context.Context, inventoryID uint, scopeKey string) (int64, error) {
	db := r.getDB(ctx)

	var value int64
	err := db.Raw(`
		UPDATE sequence_counters
		SET value = value + 1, updated_at = CURRENT_TIMESTAMP
		WHERE inventory_id = ? AND scope_key = ?
		RETURNING value`,
		inventoryID, scopeKey).Scan(&value).Error
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence counter: %w", err)
	}

	return value, nil
}

// Current reads the counter without mutating it; 0 when the row does not exist
func (r *SequenceCounterRepositoryImpl) Current(ctx context.Context, inventoryID uint, scopeKey string) (int64, error) {
	db := r.getDB(ctx)

	var value int64
	err := db.Raw(`
		SELECT COALESCE(
			(SELECT value FROM sequence_counters WHERE inventory_id = ? AND scope_key = ?),
			0)`,
		inventoryID, scopeKey).Scan(&value).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read sequence counter: %w", err)
	}

	return value, nil
}
