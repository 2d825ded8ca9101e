package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"roomly/internal/models"
)

// UpsertRooms writes the configured room catalog and refreshes the in-memory
// cache. Called once at startup; rooms are otherwise read-only here.
func (db *DB) UpsertRooms(ctx context.Context, rooms []models.Room) error {
	query := `INSERT INTO rooms (id, name, capacity, equipment, is_active, sort_order, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  name = excluded.name,
                  capacity = excluded.capacity,
                  equipment = excluded.equipment,
                  is_active = excluded.is_active,
                  sort_order = excluded.sort_order,
                  updated_at = excluded.updated_at`

	now := time.Now().UTC()
	for _, room := range rooms {
		equipment, err := json.Marshal(room.Equipment)
		if err != nil {
			return fmt.Errorf("encode equipment for room %d: %w", room.ID, err)
		}
		if _, err := db.db.ExecContext(ctx, query,
			room.ID, room.Name, room.Capacity, string(equipment),
			room.IsActive, room.SortOrder, now,
		); err != nil {
			return fmt.Errorf("upsert room %d: %w", room.ID, err)
		}
	}

	db.mu.Lock()
	db.roomsCache = make(map[int64]models.Room, len(rooms))
	for _, room := range rooms {
		db.roomsCache[room.ID] = room
	}
	db.mu.Unlock()

	return nil
}

// GetRoom returns a room by id, preferring the cache.
func (db *DB) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	db.mu.RLock()
	cached, ok := db.roomsCache[id]
	db.mu.RUnlock()
	if ok {
		room := cached
		return &room, nil
	}

	query := `SELECT id, name, capacity, equipment, is_active, sort_order, created_at, updated_at
              FROM rooms WHERE id = ?`

	room, err := scanRoom(db.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room %d: %w", id, err)
	}
	return room, nil
}

// GetActiveRooms returns all active rooms in display order. Only active rooms
// participate in availability queries.
func (db *DB) GetActiveRooms(ctx context.Context) ([]*models.Room, error) {
	query := `SELECT id, name, capacity, equipment, is_active, sort_order, created_at, updated_at
              FROM rooms WHERE is_active = 1 ORDER BY sort_order ASC, id ASC`

	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get active rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// DeactivateRoom removes a room from availability queries without touching
// its historical bookings.
func (db *DB) DeactivateRoom(ctx context.Context, id int64) error {
	result, err := db.db.ExecContext(ctx,
		`UPDATE rooms SET is_active = 0, updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deactivate room %d: %w", id, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrRoomNotFound
	}

	db.mu.Lock()
	if room, ok := db.roomsCache[id]; ok {
		room.IsActive = false
		db.roomsCache[id] = room
	}
	db.mu.Unlock()

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*models.Room, error) {
	var room models.Room
	var equipment sql.NullString
	err := row.Scan(
		&room.ID, &room.Name, &room.Capacity, &equipment,
		&room.IsActive, &room.SortOrder, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if equipment.Valid && equipment.String != "" {
		if err := json.Unmarshal([]byte(equipment.String), &room.Equipment); err != nil {
			return nil, fmt.Errorf("decode equipment: %w", err)
		}
	}
	return &room, nil
}
