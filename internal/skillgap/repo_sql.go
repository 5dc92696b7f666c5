package skillgap

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// DBTX is satisfied by *sql.DB and *sql.Tx so the repo can join a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// SQLRepo implements Repo on Postgres (schema from the goose migrations) or
// SQLite (schema from EnsureSchema). Queries are written with $n placeholders
// and rebound for SQLite.
type SQLRepo struct {
	DB      DBTX
	Dialect string
}

// NewSQLRepo constructs a SQLRepo. An empty dialect means Postgres.
func NewSQLRepo(db DBTX, dialect string) *SQLRepo {
	if dialect == "" {
		dialect = DialectPostgres
	}
	return &SQLRepo{DB: db, Dialect: dialect}
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS skills (
	name                   TEXT PRIMARY KEY,
	importance             TEXT NOT NULL CHECK (importance IN ('High', 'Medium', 'Low')),
	demand_score           INTEGER NOT NULL DEFAULT 0,
	default_current_level  INTEGER NOT NULL DEFAULT 0,
	default_required_level INTEGER NOT NULL DEFAULT 70
);
CREATE TABLE IF NOT EXISTS courses (
	skill_name TEXT NOT NULL REFERENCES skills (name) ON DELETE CASCADE,
	title      TEXT NOT NULL,
	provider   TEXT NOT NULL DEFAULT '',
	duration   TEXT NOT NULL DEFAULT '',
	rating     REAL NOT NULL DEFAULT 0,
	students   TEXT NOT NULL DEFAULT '',
	price      TEXT NOT NULL DEFAULT '',
	level      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (skill_name, title)
);
CREATE TABLE IF NOT EXISTS user_skills (
	user_id        TEXT NOT NULL,
	skill_name     TEXT NOT NULL REFERENCES skills (name) ON DELETE CASCADE,
	current_level  INTEGER NOT NULL DEFAULT 0,
	required_level INTEGER NOT NULL DEFAULT 70,
	updated_at     DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, skill_name)
)`

// EnsureSchema creates the SQLite tables. Postgres is migrated by goose, so
// this is a no-op there.
func (r *SQLRepo) EnsureSchema(ctx context.Context) error {
	if r.Dialect != DialectSQLite {
		return nil
	}
	for _, stmt := range strings.Split(sqliteSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := r.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating skill gap schema: %w", err)
		}
	}
	return nil
}

func (r *SQLRepo) Seed(ctx context.Context, skills []Skill) error {
	if b, ok := r.DB.(txBeginner); ok {
		tx, err := b.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin seed: %w", err)
		}
		if err := r.seed(ctx, tx, skills); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	}
	return r.seed(ctx, r.DB, skills)
}

func (r *SQLRepo) seed(ctx context.Context, db DBTX, skills []Skill) error {
	const upsertSkill = `
INSERT INTO skills (name, importance, demand_score, default_current_level, default_required_level)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (name) DO UPDATE SET
	importance = excluded.importance,
	demand_score = excluded.demand_score,
	default_current_level = excluded.default_current_level,
	default_required_level = excluded.default_required_level`
	const deleteCourses = `DELETE FROM courses WHERE skill_name = $1`
	const insertCourse = `
INSERT INTO courses (skill_name, title, provider, duration, rating, students, price, level)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, s := range skills {
		if _, err := db.ExecContext(ctx, r.rebind(upsertSkill),
			s.Name, string(s.Importance), s.DemandScore, s.CurrentLevel, s.RequiredLevel,
		); err != nil {
			return fmt.Errorf("seeding skill %q: %w", s.Name, err)
		}
		if _, err := db.ExecContext(ctx, r.rebind(deleteCourses), s.Name); err != nil {
			return fmt.Errorf("clearing courses for %q: %w", s.Name, err)
		}
		for _, c := range s.Courses {
			if _, err := db.ExecContext(ctx, r.rebind(insertCourse),
				s.Name, c.Title, c.Provider, c.Duration, c.Rating, c.Students, c.Price, c.Level,
			); err != nil {
				return fmt.Errorf("seeding course %q: %w", c.Title, err)
			}
		}
	}
	return nil
}

func (r *SQLRepo) Skills(ctx context.Context) ([]Skill, error) {
	const skillQuery = `
SELECT name, importance, demand_score, default_current_level, default_required_level
FROM skills
ORDER BY name`
	const courseQuery = `
SELECT skill_name, title, provider, duration, rating, students, price, level
FROM courses
ORDER BY skill_name, rating DESC, title`

	rows, err := r.DB.QueryContext(ctx, skillQuery)
	if err != nil {
		return nil, fmt.Errorf("listing skills: %w", err)
	}
	var skills []Skill
	index := make(map[string]int)
	for rows.Next() {
		var s Skill
		var importance string
		if err := rows.Scan(&s.Name, &importance, &s.DemandScore, &s.CurrentLevel, &s.RequiredLevel); err != nil {
			rows.Close()
			return nil, err
		}
		s.Importance = Importance(importance)
		index[s.Name] = len(skills)
		skills = append(skills, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	crows, err := r.DB.QueryContext(ctx, courseQuery)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var skill string
		var c Course
		if err := crows.Scan(&skill, &c.Title, &c.Provider, &c.Duration, &c.Rating, &c.Students, &c.Price, &c.Level); err != nil {
			return nil, err
		}
		if i, ok := index[skill]; ok {
			skills[i].Courses = append(skills[i].Courses, c)
		}
	}
	return skills, crows.Err()
}

func (r *SQLRepo) UserLevels(ctx context.Context, userID string) (map[string]Level, error) {
	const query = `
SELECT skill_name, current_level, required_level
FROM user_skills
WHERE user_id = $1`

	rows, err := r.DB.QueryContext(ctx, r.rebind(query), userID)
	if err != nil {
		return nil, fmt.Errorf("listing user levels: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Level)
	for rows.Next() {
		var lvl Level
		if err := rows.Scan(&lvl.Skill, &lvl.Current, &lvl.Required); err != nil {
			return nil, err
		}
		out[lvl.Skill] = lvl
	}
	return out, rows.Err()
}

func (r *SQLRepo) UpsertLevel(ctx context.Context, userID string, level Level) error {
	const query = `
INSERT INTO user_skills (user_id, skill_name, current_level, required_level, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, skill_name) DO UPDATE SET
	current_level = excluded.current_level,
	required_level = excluded.required_level,
	updated_at = excluded.updated_at`

	updated := level.Updated
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	if _, err := r.DB.ExecContext(ctx, r.rebind(query),
		userID, level.Skill, level.Current, level.Required, updated,
	); err != nil {
		return fmt.Errorf("saving level for %q: %w", level.Skill, err)
	}
	return nil
}

func (r *SQLRepo) ReassignUser(ctx context.Context, fromUserID, toUserID string) (int64, error) {
	const move = `
UPDATE user_skills SET user_id = $1
WHERE user_id = $2
  AND skill_name NOT IN (SELECT skill_name FROM user_skills WHERE user_id = $3)`
	const drop = `DELETE FROM user_skills WHERE user_id = $1`

	res, err := r.DB.ExecContext(ctx, r.rebind(move), toUserID, fromUserID, toUserID)
	if err != nil {
		return 0, fmt.Errorf("reassigning skill levels: %w", err)
	}
	moved, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if _, err := r.DB.ExecContext(ctx, r.rebind(drop), fromUserID); err != nil {
		return 0, fmt.Errorf("dropping shadowed skill levels: %w", err)
	}
	return moved, nil
}

// rebind turns $1..$n into ? for SQLite. Placeholders must appear in order,
// each once.
func (r *SQLRepo) rebind(query string) string {
	if r.Dialect != DialectSQLite {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		if query[i] != '$' {
			b.WriteByte(query[i])
			continue
		}
		j := i + 1
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
		if _, err := strconv.Atoi(query[i+1 : j]); err != nil {
			b.WriteByte(query[i])
			continue
		}
		b.WriteByte('?')
		i = j - 1
	}
	return b.String()
}
