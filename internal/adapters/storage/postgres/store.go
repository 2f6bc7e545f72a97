// Package postgres is the gorm-backed core.Store.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/StreamBingo/internal/core"
	"github.com/dkeye/StreamBingo/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

var _ core.Store = (*Store)(nil)

// Open connects to dsn. The schema is expected to exist; see Migrate.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	log.Info().Str("module", "storage.postgres").Msg("database connected")
	return &Store{db: db}, nil
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates every table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info().Str("module", "storage.postgres").Msg("schema migrated")
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps gorm's not-found onto the domain sentinel.
func translate(err error, what string, key any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", what, key, domain.ErrNotFound)
	}
	return fmt.Errorf("%s %v: %w", what, key, err)
}

func (s *Store) GameByName(ctx context.Context, name string) (*domain.Game, error) {
	var r gameRow
	if err := s.db.WithContext(ctx).Where("name = ?", name).Take(&r).Error; err != nil {
		return nil, translate(err, "game", name)
	}
	return r.toDomain(), nil
}

func (s *Store) GameByToken(ctx context.Context, token string) (*domain.Game, error) {
	var r gameRow
	if err := s.db.WithContext(ctx).Where("token = ?", token).Take(&r).Error; err != nil {
		return nil, translate(err, "game token", "***")
	}
	return r.toDomain(), nil
}

func (s *Store) SaveGame(ctx context.Context, g *domain.Game) error {
	r := gameToRow(g)
	res := s.db.WithContext(ctx).Model(&gameRow{}).
		Where("id = ? AND name = ?", r.ID, r.Name).
		Select("*").Omit("id").
		Updates(&r)
	if res.Error != nil {
		return fmt.Errorf("save game %d: %w", g.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("game %d: %w", g.ID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) ReplaceGame(ctx context.Context, g *domain.Game) (*domain.GameID, error) {
	if g.Token == "" {
		g.Token = uuid.NewString()
	}
	var old *domain.GameID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev gameRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("name = ?", g.Name).Take(&prev).Error
		switch {
		case err == nil:
			id := domain.GameID(prev.ID)
			old = &id
			if err := tx.Where("game_id = ?", prev.ID).Delete(&cardRow{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&gameRow{}, prev.ID).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		r := gameToRow(g)
		r.ID = 0
		if err := tx.Create(&r).Error; err != nil {
			return err
		}
		g.ID = domain.GameID(r.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("replace game %s: %w", g.Name, err)
	}
	return old, nil
}

func (s *Store) CardFor(ctx context.Context, user domain.UserID, game domain.GameID) (*domain.Card, error) {
	var r cardRow
	if err := s.db.WithContext(ctx).Where("user_id = ? AND game_id = ?", user, game).Take(&r).Error; err != nil {
		return nil, translate(err, "card", fmt.Sprintf("%d/%d", user, game))
	}
	return r.toDomain(), nil
}

func (s *Store) SaveCard(ctx context.Context, c *domain.Card) error {
	r := cardToRow(c)
	res := s.db.WithContext(ctx).Model(&cardRow{}).
		Where("user_id = ? AND game_id = ?", r.UserID, r.GameID).
		Updates(map[string]any{"marked": r.Marked, "updated": r.Updated})
	if res.Error != nil {
		return fmt.Errorf("save card %d: %w", c.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("card %d: %w", c.ID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) CreateCardIfMissing(ctx context.Context, c *domain.Card) (*domain.Card, bool, error) {
	r := cardToRow(c)
	r.ID = 0
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "game_id"}},
		DoNothing: true,
	}).Create(&r)
	if res.Error != nil {
		return nil, false, fmt.Errorf("create card: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		c.ID = domain.CardID(r.ID)
		return r.toDomain(), true, nil
	}
	stored, err := s.CardFor(ctx, c.UserID, c.GameID)
	if err != nil {
		return nil, false, err
	}
	return stored, false, nil
}

func (s *Store) CountCards(ctx context.Context, game domain.GameID) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&cardRow{}).Where("game_id = ?", game).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count cards %d: %w", game, err)
	}
	return int(n), nil
}

func (s *Store) UserCards(ctx context.Context, user domain.UserID) ([]*domain.Card, error) {
	var rows []cardRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", user).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("user cards %d: %w", user, err)
	}
	out := make([]*domain.Card, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) UserByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var r userRow
	if err := s.db.WithContext(ctx).Take(&r, int64(id)).Error; err != nil {
		return nil, translate(err, "user", id)
	}
	return r.toDomain(), nil
}

func (s *Store) UserByTwitchID(ctx context.Context, twitchID int64) (*domain.User, error) {
	var r userRow
	if err := s.db.WithContext(ctx).Where("twitch_id = ?", twitchID).Take(&r).Error; err != nil {
		return nil, translate(err, "twitch user", twitchID)
	}
	return r.toDomain(), nil
}

func (s *Store) UserByToken(ctx context.Context, token string) (*domain.User, error) {
	var r userRow
	if err := s.db.WithContext(ctx).Where("token = ?", token).Take(&r).Error; err != nil {
		return nil, translate(err, "user token", "***")
	}
	return r.toDomain(), nil
}

// GetOrCreateTwitchUser upserts on twitch_id so concurrent joins of the
// same viewer end up with one row.
func (s *Store) GetOrCreateTwitchUser(ctx context.Context, twitchID int64, name string) (*domain.User, error) {
	u, err := domain.NewUser(twitchID, name)
	if err != nil {
		return nil, err
	}
	r := userRow{TwitchID: u.TwitchID, Name: u.Name, Token: u.Token}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "twitch_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&r).Error
	if err != nil {
		return nil, fmt.Errorf("upsert twitch user %d: %w", twitchID, err)
	}
	return s.UserByTwitchID(ctx, twitchID)
}

func (s *Store) SaveStat(ctx context.Context, st *domain.StatRecord) error {
	r := statToRow(st)
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return fmt.Errorf("save stat: %w", err)
	}
	st.ID = r.ID
	return nil
}
