// Package pgstore persists the tracker in PostgreSQL through gorm. The
// connection is a pgx pool exposed as database/sql, so pgx handles the wire
// protocol and gorm handles mapping and transactions.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/DoyleJ11/swim24-backend/internal/race"
	"github.com/DoyleJ11/swim24-backend/internal/store"
)

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

func Open(dsn string, log *zap.Logger) (*Store, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: parse dsn: %w", err)
	}

	sqlDB := stdlib.OpenDB(*cfg)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:  newGormLogger(log),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("pgstore: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Migrate creates or updates the schema. The partial unique index backs the
// one-active-session-per-team rule at the database level too.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(&competitionRow{}, &teamRow{}, &swimmerRow{}, &refereeRow{}, &sessionRow{}, &lapRow{}); err != nil {
		return fmt.Errorf("pgstore: migrate: %w", err)
	}
	err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_one_active_session
		ON swim_sessions (competition_id, team_id) WHERE is_active`).Error
	if err != nil {
		return fmt.Errorf("pgstore: active session index: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

func mapRows[T any, R interface{ domain() T }](rows []R) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.domain())
	}
	return out
}

// update writes every column of row and reports ErrNotFound when no row matched.
func (s *Store) update(ctx context.Context, model any, id string) error {
	res := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Select("*").Updates(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) remove(ctx context.Context, model any, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- competitions ---

func (s *Store) CreateCompetition(ctx context.Context, c race.Competition) error {
	row := toCompetitionRow(c)
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) GetCompetition(ctx context.Context, id string) (race.Competition, error) {
	var row competitionRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return race.Competition{}, notFound(err)
	}
	return row.domain(), nil
}

func (s *Store) ListCompetitions(ctx context.Context) ([]race.Competition, error) {
	var rows []competitionRow
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows[race.Competition](rows), nil
}

func (s *Store) UpdateCompetition(ctx context.Context, c race.Competition) error {
	row := toCompetitionRow(c)
	return s.update(ctx, &row, c.ID)
}

func (s *Store) DeleteCompetition(ctx context.Context, id string) (store.Deleted, error) {
	var d store.Deleted
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found int64
		if err := tx.Model(&competitionRow{}).Where("id = ?", id).Count(&found).Error; err != nil {
			return err
		}
		if found == 0 {
			return store.ErrNotFound
		}

		// Dependency order: laps and sessions reference teams and swimmers.
		steps := []struct {
			model any
			n     *int
		}{
			{&lapRow{}, &d.LapCounts},
			{&sessionRow{}, &d.SwimSessions},
			{&refereeRow{}, &d.Referees},
			{&swimmerRow{}, &d.Swimmers},
			{&teamRow{}, &d.Teams},
		}
		for _, step := range steps {
			res := tx.Where("competition_id = ?", id).Delete(step.model)
			if res.Error != nil {
				return res.Error
			}
			*step.n = int(res.RowsAffected)
		}
		return tx.Where("id = ?", id).Delete(&competitionRow{}).Error
	})
	return d, err
}

// --- teams ---

func (s *Store) CreateTeam(ctx context.Context, t race.Team) error {
	row := toTeamRow(t)
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) GetTeam(ctx context.Context, id string) (race.Team, error) {
	var row teamRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return race.Team{}, notFound(err)
	}
	return row.domain(), nil
}

func (s *Store) ListTeams(ctx context.Context, competitionID string) ([]race.Team, error) {
	var rows []teamRow
	q := s.db.WithContext(ctx).Order("assigned_lane, name")
	if competitionID != "" {
		q = q.Where("competition_id = ?", competitionID)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows[race.Team](rows), nil
}

func (s *Store) UpdateTeam(ctx context.Context, t race.Team) error {
	row := toTeamRow(t)
	return s.update(ctx, &row, t.ID)
}

func (s *Store) DeleteTeam(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&lapRow{}, &sessionRow{}, &swimmerRow{}} {
			if err := tx.Where("team_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&teamRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

// --- swimmers ---

func (s *Store) CreateSwimmer(ctx context.Context, sw race.Swimmer) error {
	row := toSwimmerRow(sw)
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) GetSwimmer(ctx context.Context, id string) (race.Swimmer, error) {
	var row swimmerRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return race.Swimmer{}, notFound(err)
	}
	return row.domain(), nil
}

func (s *Store) ListSwimmers(ctx context.Context, competitionID, teamID string) ([]race.Swimmer, error) {
	var rows []swimmerRow
	q := s.db.WithContext(ctx).Order("name")
	if competitionID != "" {
		q = q.Where("competition_id = ?", competitionID)
	}
	if teamID != "" {
		q = q.Where("team_id = ?", teamID)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows[race.Swimmer](rows), nil
}

func (s *Store) UpdateSwimmer(ctx context.Context, sw race.Swimmer) error {
	row := toSwimmerRow(sw)
	return s.update(ctx, &row, sw.ID)
}

func (s *Store) DeleteSwimmer(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&lapRow{}, &sessionRow{}} {
			if err := tx.Where("swimmer_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&swimmerRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

// --- referees ---

func (s *Store) CreateReferee(ctx context.Context, r race.Referee) error {
	row := toRefereeRow(r)
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) GetReferee(ctx context.Context, id string) (race.Referee, error) {
	var row refereeRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return race.Referee{}, notFound(err)
	}
	return row.domain(), nil
}

func (s *Store) ListReferees(ctx context.Context, competitionID string) ([]race.Referee, error) {
	var rows []refereeRow
	q := s.db.WithContext(ctx).Order("created_at")
	if competitionID != "" {
		q = q.Where("competition_id = ?", competitionID)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows[race.Referee](rows), nil
}

func (s *Store) DeleteReferee(ctx context.Context, id string) error {
	return s.remove(ctx, &refereeRow{}, id)
}

// --- sessions ---

func (s *Store) CreateSession(ctx context.Context, sess race.Session) error {
	row := toSessionRow(sess)
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) GetSession(ctx context.Context, id string) (race.Session, error) {
	var row sessionRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return race.Session{}, notFound(err)
	}
	return row.domain(), nil
}

func (s *Store) UpdateSession(ctx context.Context, sess race.Session) error {
	row := toSessionRow(sess)
	return s.update(ctx, &row, sess.ID)
}

func (s *Store) ListSessions(ctx context.Context, f store.SessionFilter) ([]race.Session, error) {
	var rows []sessionRow
	q := s.db.WithContext(ctx).Order("start_time DESC")
	if f.CompetitionID != "" {
		q = q.Where("competition_id = ?", f.CompetitionID)
	}
	if f.TeamID != "" {
		q = q.Where("team_id = ?", f.TeamID)
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows[race.Session](rows), nil
}

func (s *Store) ActiveSession(ctx context.Context, competitionID, teamID string) (race.Session, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).
		Where("competition_id = ? AND team_id = ? AND is_active", competitionID, teamID).
		First(&row).Error
	if err != nil {
		return race.Session{}, notFound(err)
	}
	return row.domain(), nil
}

func (s *Store) IncrementActiveLap(ctx context.Context, competitionID, teamID string) error {
	return incrementActive(s.db.WithContext(ctx), competitionID, teamID)
}

func incrementActive(db *gorm.DB, competitionID, teamID string) error {
	return db.Model(&sessionRow{}).
		Where("competition_id = ? AND team_id = ? AND is_active", competitionID, teamID).
		UpdateColumn("lap_count", gorm.Expr("lap_count + 1")).Error
}

func (s *Store) CloseActive(ctx context.Context, scope store.Scope, at time.Time) (int, error) {
	q := s.db.WithContext(ctx).Model(&sessionRow{}).Where("is_active")
	switch {
	case scope.SwimmerID != "":
		q = q.Where("swimmer_id = ?", scope.SwimmerID)
	case scope.TeamID != "":
		q = q.Where("team_id = ?", scope.TeamID)
	case scope.CompetitionID != "":
		q = q.Where("competition_id = ?", scope.CompetitionID)
	default:
		return 0, nil
	}
	res := q.Updates(map[string]any{"is_active": false, "end_time": at})
	return int(res.RowsAffected), res.Error
}

// --- laps ---

func (s *Store) AppendLap(ctx context.Context, lap race.LapCount) error {
	row := toLapRow(lap)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return incrementActive(tx, lap.CompetitionID, lap.TeamID)
	})
}

func (s *Store) LastLap(ctx context.Context, competitionID, teamID string) (race.LapCount, error) {
	var row lapRow
	err := s.db.WithContext(ctx).
		Where("competition_id = ? AND team_id = ?", competitionID, teamID).
		Order("timestamp DESC").
		First(&row).Error
	if err != nil {
		return race.LapCount{}, notFound(err)
	}
	return row.domain(), nil
}

func (s *Store) CountLaps(ctx context.Context, competitionID, teamID string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&lapRow{}).
		Where("competition_id = ? AND team_id = ?", competitionID, teamID).
		Count(&n).Error
	return int(n), err
}

func (s *Store) ListLaps(ctx context.Context, f store.LapFilter) ([]race.LapCount, error) {
	var rows []lapRow
	q := s.db.WithContext(ctx).Order("timestamp ASC")
	if f.CompetitionID != "" {
		q = q.Where("competition_id = ?", f.CompetitionID)
	}
	if f.TeamID != "" {
		q = q.Where("team_id = ?", f.TeamID)
	}
	if f.SwimmerID != "" {
		q = q.Where("swimmer_id = ?", f.SwimmerID)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows[race.LapCount](rows), nil
}

func (s *Store) DetachReferee(ctx context.Context, refereeID string) (int, error) {
	res := s.db.WithContext(ctx).Model(&lapRow{}).
		Where("referee_id = ?", refereeID).
		Update("referee_id", nil)
	return int(res.RowsAffected), res.Error
}
