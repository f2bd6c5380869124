package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"isru-daily/internal/model"
)

// AppendEvent records one audit event. The log is append-only and read back
// oldest-first; it never drives state.
func (s *Store) AppendEvent(typ, entityID string, payload any) error {
	ev := model.Event{
		ID:       "ev-" + uuid.NewString(),
		TS:       time.Now().UTC(),
		Type:     typ,
		EntityID: entityID,
		Payload:  payload,
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO events(id, ts_unixms, type, entity_id, json) VALUES(?, ?, ?, ?, ?)`,
		ev.ID, ev.TS.UnixMilli(), ev.Type, ev.EntityID, string(raw),
	)
	return err
}

// ReadEvents returns events in insertion order. If limit > 0, only the
// most recent limit events are returned (still oldest-first).
func (s *Store) ReadEvents(limit int) ([]model.Event, error) {
	// rowid keeps same-millisecond appends in order; ts alone would not.
	q := `SELECT json FROM events ORDER BY rowid`
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var ev model.Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func nowUnixMilli() int64 { return time.Now().UTC().UnixMilli() }
