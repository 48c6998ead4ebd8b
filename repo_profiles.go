package session

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Profiles is the bun-backed profile store.
type Profiles interface {
	repository.Repository[*ProfileRecord]

	GetByUserID(ctx context.Context, userID string) (*ProfileRecord, error)
	GetByUserIDTx(ctx context.Context, tx bun.IDB, userID string) (*ProfileRecord, error)

	Insert(ctx context.Context, record *ProfileRecord) (*ProfileRecord, error)
	InsertTx(ctx context.Context, tx bun.IDB, record *ProfileRecord) (*ProfileRecord, error)

	GetOrCreate(ctx context.Context, record *ProfileRecord) (*ProfileRecord, error)
	GetOrCreateTx(ctx context.Context, tx bun.IDB, record *ProfileRecord) (*ProfileRecord, error)
}

type profiles struct {
	repository.Repository[*ProfileRecord]
	db *bun.DB
}

var (
	_ Profiles                              = (*profiles)(nil)
	_ ProfileStore                          = (*profiles)(nil)
	_ repository.Repository[*ProfileRecord] = (*profiles)(nil)
)

func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*ProfileRecord](db, repository.ModelHandlers[*ProfileRecord]{
		NewRecord: func() *ProfileRecord { return &ProfileRecord{} },
		GetID: func(r *ProfileRecord) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *ProfileRecord, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "user_id"
		},
	})

	return &profiles{
		Repository: repo,
		db:         db,
	}
}

func (a *profiles) GetByUserID(ctx context.Context, userID string) (*ProfileRecord, error) {
	return a.GetByUserIDTx(ctx, a.db, userID)
}

func (a *profiles) GetByUserIDTx(ctx context.Context, tx bun.IDB, userID string) (*ProfileRecord, error) {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"user_id": userID,
			})
	}

	record := &ProfileRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", trimmed).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id": trimmed,
				})
		}
		return nil, err
	}

	record.EnsurePlan()
	return record, nil
}

func (a *profiles) Insert(ctx context.Context, record *ProfileRecord) (*ProfileRecord, error) {
	return a.InsertTx(ctx, a.db, record)
}

func (a *profiles) InsertTx(ctx context.Context, tx bun.IDB, record *ProfileRecord) (*ProfileRecord, error) {
	prepareProfileDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *profiles) GetOrCreate(ctx context.Context, record *ProfileRecord) (*ProfileRecord, error) {
	return a.GetOrCreateTx(ctx, a.db, record)
}

func (a *profiles) GetOrCreateTx(ctx context.Context, tx bun.IDB, record *ProfileRecord) (*ProfileRecord, error) {
	existing, err := a.GetByUserIDTx(ctx, tx, record.UserID)
	if err == nil {
		return existing, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return a.InsertTx(ctx, tx, record)
}

func prepareProfileDefaults(record *ProfileRecord) {
	if record == nil {
		return
	}

	record.EnsurePlan()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
