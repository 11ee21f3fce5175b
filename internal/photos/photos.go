// internal/photos/photos.go
//
// Photo provider for game rounds.
// Responsibilities:
//   - Random mode: a fresh shuffle of approved, located photos per match.
//   - Daily mode: the same photos in the same order for every player on a
//     reference-timezone date, cached in daily_photo_cache on first request.
//   - Pruning cache rows older than the retention window.
//   - Seeding the catalog from the embedded asset list.
//
// Notes:
//   - Photos without coordinates are never served; they cannot be scored.
//   - The daily selection is HMAC-seeded (daily.Pick) so independent instances
//     agree on the same set even before the cache row exists.

package photos

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/uwguessr/internal/daily"
	"github.com/robalobadob/uwguessr/internal/game"
)

// ErrNotEnoughPhotos means the catalog cannot fill a match.
var ErrNotEnoughPhotos = errors.New("not enough approved photos")

// StatusApproved marks photos eligible for play.
const StatusApproved = "approved"

// Provider returns the ordered photo sequence for a match.
type Provider interface {
	Photos(ctx context.Context, mode game.Mode, count int) ([]game.Photo, error)
}

// SQLStore serves photos from SQLite.
type SQLStore struct {
	db   *sql.DB
	salt string
	now  daily.Clock
}

// NewSQLStore constructs a store. now defaults to time.Now.
func NewSQLStore(db *sql.DB, salt string, now daily.Clock) *SQLStore {
	if now == nil {
		now = time.Now
	}
	return &SQLStore{db: db, salt: salt, now: now}
}

// Photos implements Provider.
func (s *SQLStore) Photos(ctx context.Context, mode game.Mode, count int) ([]game.Photo, error) {
	switch mode {
	case game.ModeDaily:
		return s.Daily(ctx, count)
	case game.ModeRandom:
		return s.Random(ctx, count)
	}
	return nil, fmt.Errorf("unknown mode %q", mode)
}

// Random returns count approved photos in random order.
func (s *SQLStore) Random(ctx context.Context, count int) ([]game.Photo, error) {
	all, err := s.approved(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) < count {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughPhotos, len(all), count)
	}
	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	return all[:count], nil
}

// Daily returns today's photos, generating and caching the selection if
// needed. A cached selection that no longer resolves to count approved
// photos is regenerated.
func (s *SQLStore) Daily(ctx context.Context, count int) ([]game.Photo, error) {
	now := s.now()
	date := daily.DateKey(now)

	if ids, err := s.cachedIDs(ctx, date); err == nil {
		if out, err := s.byIDs(ctx, ids); err == nil && len(out) == count {
			return out, nil
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		log.Warn().Err(err).Str("date", date).Msg("read daily photo cache; regenerating")
	}

	all, err := s.approved(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) < count {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughPhotos, len(all), count)
	}

	out := make([]game.Photo, 0, count)
	ids := make([]string, 0, count)
	for _, i := range daily.Pick(date, s.salt, len(all), count) {
		out = append(out, all[i])
		ids = append(ids, all[i].ID)
	}

	raw, _ := json.Marshal(ids)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_photo_cache(date, photo_ids, created_at) VALUES(?,?,?)
		 ON CONFLICT(date) DO UPDATE SET photo_ids=excluded.photo_ids, created_at=excluded.created_at`,
		date, string(raw), now.UTC().Format(time.RFC3339),
	); err != nil {
		return nil, fmt.Errorf("cache daily photos: %w", err)
	}
	log.Info().Str("date", date).Strs("photos", ids).Msg("generated daily photos")

	if n, err := s.PruneCache(ctx, now); err != nil {
		log.Warn().Err(err).Msg("prune daily photo cache")
	} else if n > 0 {
		log.Info().Int64("removed", n).Msg("pruned daily photo cache")
	}
	return out, nil
}

// PruneCache removes cached selections older than the retention window.
func (s *SQLStore) PruneCache(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM daily_photo_cache WHERE date < ?`, daily.RetentionCutoff(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Upsert inserts or replaces a catalog photo.
func (s *SQLStore) Upsert(ctx context.Context, p game.Photo) error {
	status := p.Status
	if status == "" {
		status = "pending"
	}
	created := p.CreatedAt
	if created == "" {
		created = s.now().UTC().Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO photos(id, url, lat, lng, building, floor, added_by, created_at, status)
		 VALUES(?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   url=excluded.url, lat=excluded.lat, lng=excluded.lng, building=excluded.building,
		   floor=excluded.floor, added_by=excluded.added_by, status=excluded.status`,
		p.ID, p.URL, p.Lat, p.Lng, p.Building, p.Floor, p.AddedBy, created, status,
	)
	return err
}

// Seed loads photos into an empty catalog. A populated catalog is left as is.
func (s *SQLStore) Seed(ctx context.Context, seed []game.Photo) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM photos`).Scan(&n); err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	for _, p := range seed {
		if err := s.Upsert(ctx, p); err != nil {
			return 0, fmt.Errorf("seed %s: %w", p.ID, err)
		}
	}
	return len(seed), nil
}

const photoColumns = `id, url, lat, lng, building, floor, added_by, created_at, status`

// approved lists playable photos ordered by id so index picks are stable.
func (s *SQLStore) approved(ctx context.Context) ([]game.Photo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+photoColumns+` FROM photos
		 WHERE status=? AND lat IS NOT NULL AND lng IS NOT NULL
		 ORDER BY id`, StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("query photos: %w", err)
	}
	defer rows.Close()

	var out []game.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) cachedIDs(ctx context.Context, date string) ([]string, error) {
	var raw string
	if err := s.db.QueryRowContext(ctx,
		`SELECT photo_ids FROM daily_photo_cache WHERE date=?`, date).Scan(&raw); err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decode cached ids: %w", err)
	}
	return ids, nil
}

// byIDs loads approved photos preserving the order of ids; missing or
// unapproved ids are skipped.
func (s *SQLStore) byIDs(ctx context.Context, ids []string) ([]game.Photo, error) {
	out := make([]game.Photo, 0, len(ids))
	for _, id := range ids {
		row := s.db.QueryRowContext(ctx,
			`SELECT `+photoColumns+` FROM photos
			 WHERE id=? AND status=? AND lat IS NOT NULL AND lng IS NOT NULL`, id, StatusApproved)
		p, err := scanPhoto(row)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPhoto(sc scanner) (game.Photo, error) {
	var (
		p        game.Photo
		lat, lng sql.NullFloat64
	)
	if err := sc.Scan(&p.ID, &p.URL, &lat, &lng, &p.Building, &p.Floor, &p.AddedBy, &p.CreatedAt, &p.Status); err != nil {
		return game.Photo{}, err
	}
	if lat.Valid {
		p.Lat = &lat.Float64
	}
	if lng.Valid {
		p.Lng = &lng.Float64
	}
	return p, nil
}
