package wiki

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UnitOfWork groups repository writes into a single transaction. Callers defer
// Rollback right after acquiring one; Rollback after a successful Commit is a no-op.
type UnitOfWork interface {
	Pages() PageRepository
	Submissions() SubmissionRepository
	Characters() CharacterRepository
	Commit() error
	Rollback() error
}

// UnitOfWorkFactory begins a new unit of work.
type UnitOfWorkFactory func(ctx context.Context) (UnitOfWork, error)

type gormUnitOfWork struct {
	tx       *gorm.DB
	repo     *GormRepository
	finished bool
}

var _ UnitOfWork = (*gormUnitOfWork)(nil)

// NewUnitOfWorkFactory returns a factory that opens a Gorm transaction per unit of work.
func NewUnitOfWorkFactory(db *gorm.DB, logger *logrus.Logger) (UnitOfWorkFactory, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return func(ctx context.Context) (UnitOfWork, error) {
		tx := db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return nil, eris.Wrap(tx.Error, "beginning transaction")
		}

		return &gormUnitOfWork{
			tx:   tx,
			repo: &GormRepository{db: tx, logger: logger},
		}, nil
	}, nil
}

func (u *gormUnitOfWork) Pages() PageRepository {
	return u.repo.Pages()
}

func (u *gormUnitOfWork) Submissions() SubmissionRepository {
	return u.repo.Submissions()
}

func (u *gormUnitOfWork) Characters() CharacterRepository {
	return u.repo.Characters()
}

func (u *gormUnitOfWork) Commit() error {
	if u.finished {
		return eris.New("unit of work already finished")
	}

	if err := u.tx.Commit().Error; err != nil {
		return eris.Wrap(err, "committing transaction")
	}

	u.finished = true
	return nil
}

func (u *gormUnitOfWork) Rollback() error {
	if u.finished {
		return nil
	}
	u.finished = true

	if err := u.tx.Rollback().Error; err != nil && !eris.Is(err, sql.ErrTxDone) {
		return eris.Wrap(err, "rolling back transaction")
	}

	return nil
}
