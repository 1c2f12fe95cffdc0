package repository

import (
	"context"
	"fmt"

	"doorman/database"
	"doorman/events"
	"doorman/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the service.UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	userRepo         service.UserRepository
	adminRepo        service.AdminRepository
	referralRepo     service.ReferralRepository
	claimRepo        service.ClaimRepository
	settingRepo      service.SettingRepository
	quizResultRepo   service.QuizResultRepository
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.userRepo = newUserRepositoryWithTx(tx)
	u.adminRepo = newAdminRepositoryWithTx(tx)
	u.referralRepo = newReferralRepositoryWithTx(tx)
	u.claimRepo = newClaimRepositoryWithTx(tx)
	u.settingRepo = newSettingRepositoryWithTx(tx)
	u.quizResultRepo = newQuizResultRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

// UserRepository returns the user repository for this unit of work
func (u *unitOfWork) UserRepository() service.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

// AdminRepository returns the admin repository for this unit of work
func (u *unitOfWork) AdminRepository() service.AdminRepository {
	if u.adminRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.adminRepo
}

// ReferralRepository returns the referral repository for this unit of work
func (u *unitOfWork) ReferralRepository() service.ReferralRepository {
	if u.referralRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.referralRepo
}

// ClaimRepository returns the claim repository for this unit of work
func (u *unitOfWork) ClaimRepository() service.ClaimRepository {
	if u.claimRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.claimRepo
}

// SettingRepository returns the setting repository for this unit of work
func (u *unitOfWork) SettingRepository() service.SettingRepository {
	if u.settingRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.settingRepo
}

// QuizResultRepository returns the quiz result repository for this unit of work
func (u *unitOfWork) QuizResultRepository() service.QuizResultRepository {
	if u.quizResultRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.quizResultRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	return u.transactionalBus
}
