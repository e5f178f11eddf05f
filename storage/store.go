package storage

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/denisb0/resource_catalog/models"
)

const defaultMaxOpenConns = 4

// Options configure a Store. The zero value is usable.
type Options struct {
	Logger             *zap.Logger
	MaxOpenConns       int  // size of the connection pool, 4 when unset
	InsecureSkipVerify bool // accept any server certificate, PostgreSQL only
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Store persists resources and answers substring queries over their
// descriptions. It holds a connection pool and is safe for concurrent use.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// readColumns are the only columns populated on resources returned by
// Search and Sample.
var readColumns = []string{"user_id", "channel_id", "url", "description"}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Open wraps an already configured gorm dialector. Connect is the usual entry
// point; Open lets callers bring their own driver.
func Open(dialector gorm.Dialector, opts Options) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, backendError("open", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, backendError("open", err)
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)

	return &Store{db: db, log: opts.logger()}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate creates the resources, channels and types tables with their
// indexes when they do not exist yet and registers the link resource type.
// Existing tables are never altered.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	migrator := db.Migrator()

	for _, model := range []any{&models.Resource{}, &models.Channel{}, &models.ResourceType{}} {
		if migrator.HasTable(model) {
			continue
		}
		if err := migrator.CreateTable(model); err != nil {
			return backendError("migrate", err)
		}
	}

	linkType := models.ResourceType{Type: models.TypeLink, TypeName: "link"}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&linkType).Error; err != nil {
		return backendError("migrate", err)
	}

	return nil
}

// Insert stores r as a new row. A resource without url or description is
// rejected with ErrValidation before the database is touched. Duplicate
// fingerprints are not checked here, see HasFingerprint.
func (s *Store) Insert(ctx context.Context, r models.Resource) error {
	switch {
	case r.URL == "" && r.Description == "":
		return validationError("insert", "empty url and description")
	case r.URL == "":
		return validationError("insert", "empty url")
	case r.Description == "":
		return validationError("insert", "empty description")
	}

	r.ID = 0
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		s.log.Warn("insert resource", zap.String("shash", r.Shash), zap.Error(err))
		return backendError("insert", err)
	}

	s.log.Debug("resource inserted", zap.Uint64("id", r.ID), zap.String("shash", r.Shash))
	return nil
}

// Search returns up to limit resources whose description contains term,
// newest first, skipping page*limit rows. An empty term matches every row.
// Only UserID, ChannelID, URL and Description are set on the results.
func (s *Store) Search(ctx context.Context, term string, limit, page int) ([]models.Resource, error) {
	if page < 0 {
		return nil, validationError("search", "negative page %d", page)
	}
	// an offset past math.MaxInt cannot hold any row
	if limit <= 0 || page > math.MaxInt/limit {
		return []models.Resource{}, nil
	}

	var rows []models.Resource
	err := s.matching(ctx, term).
		Select(readColumns).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).
		Offset(page * limit).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, backendError("search", err)
	}

	s.log.Debug("search", zap.String("term", term), zap.Int("limit", limit), zap.Int("page", page), zap.Int("rows", len(rows)))
	return s.sanitize(rows), nil
}

// Sample returns at most one randomly chosen resource whose description
// contains term. No match is an empty result, not an error.
func (s *Store) Sample(ctx context.Context, term string) ([]models.Resource, error) {
	var rows []models.Resource
	err := s.matching(ctx, term).
		Select(readColumns).
		Order("random()").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, backendError("sample", err)
	}

	return s.sanitize(rows), nil
}

// Count returns how many resources Search would page through for term.
func (s *Store) Count(ctx context.Context, term string) (int64, error) {
	var n int64
	if err := s.matching(ctx, term).Count(&n).Error; err != nil {
		return 0, backendError("count", err)
	}
	return n, nil
}

// HasFingerprint reports whether a resource with the given shash is stored.
func (s *Store) HasFingerprint(ctx context.Context, shash string) (bool, error) {
	if shash == "" {
		return false, validationError("fingerprint", "empty shash")
	}

	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Resource{}).
		Where(&models.Resource{Shash: shash}).
		Count(&n).Error
	if err != nil {
		return false, backendError("fingerprint", err)
	}
	return n > 0, nil
}

func (s *Store) matching(ctx context.Context, term string) *gorm.DB {
	pattern := "%" + likeEscaper.Replace(term) + "%"
	return s.db.WithContext(ctx).
		Model(&models.Resource{}).
		Where(`description LIKE ? ESCAPE '\'`, pattern)
}

// sanitize strips quote characters left in urls by older writers.
func (s *Store) sanitize(rows []models.Resource) []models.Resource {
	if rows == nil {
		return []models.Resource{}
	}
	for i := range rows {
		if !strings.Contains(rows[i].URL, `"`) {
			continue
		}
		cleaned := strings.ReplaceAll(rows[i].URL, `"`, "")
		s.log.Warn("stripped quotes from stored url", zap.String("url", rows[i].URL), zap.String("cleaned", cleaned))
		rows[i].URL = cleaned
	}
	return rows
}
