package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/escolta-mx/booking-api/internal/model"
)

// GuardRepo provides the matching engine's view of the guards table.
type GuardRepo struct {
	db *sql.DB
}

// NewGuardRepo returns a new GuardRepo bound to the given database.
func NewGuardRepo(db *sql.DB) *GuardRepo { return &GuardRepo{db: db} }

// ListOnlineByCity returns guards who are online in the given city, in
// id order so repeated matching runs see the same candidates.  The
// skills JSON document is decoded per row; rows with an unreadable
// document are treated as having no skills rather than failing the
// whole query.
func (r *GuardRepo) ListOnlineByCity(ctx context.Context, city string) ([]model.Guard, error) {
	const q = `SELECT id, city, skills, availability_status
			   FROM guards
			   WHERE availability_status = ? AND city = ?
			   ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, model.GuardOnline, city)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	guards := make([]model.Guard, 0)
	for rows.Next() {
		var g model.Guard
		var skills sql.NullString
		if err := rows.Scan(&g.ID, &g.City, &skills, &g.Availability); err != nil {
			return nil, err
		}
		if skills.Valid && skills.String != "" {
			_ = json.Unmarshal([]byte(skills.String), &g.Skills)
		}
		if g.Skills == nil {
			g.Skills = map[string]bool{}
		}
		guards = append(guards, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return guards, nil
}
