package service

import (
	"context"
	"time"

	"doorman/events"
	"doorman/models"
)

// UserRepository defines the interface for subscriber data access
type UserRepository interface {
	// GetByTelegramID retrieves a user, or nil when absent
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)

	// Upsert inserts a user on first contact, or refreshes the handle,
	// display name and last-active timestamp. Subscription fields are
	// never touched here.
	Upsert(ctx context.Context, telegramID int64, username, fullName string) (*models.User, error)

	// SetSubscription writes the subscription flag and end date directly.
	// Callers are responsible for date ordering.
	SetSubscription(ctx context.Context, telegramID int64, active bool, end *time.Time) error

	// AllActive returns every user with an active subscription
	AllActive(ctx context.Context) ([]*models.User, error)

	// ExpiringWithin returns active users whose subscription ends on or
	// before today+days, soonest first
	ExpiringWithin(ctx context.Context, days int) ([]*models.User, error)

	// ExpireOverdue flips has_subscription off for every user whose end
	// date has passed and returns the affected users
	ExpireOverdue(ctx context.Context) ([]*models.User, error)

	// Recent returns the most recently joined users
	Recent(ctx context.Context, limit int) ([]*models.User, error)

	// CountStats returns the aggregate user snapshot for the admin panel
	CountStats(ctx context.Context) (*models.UserStats, error)

	// Delete removes the user row
	Delete(ctx context.Context, telegramID int64) error
}

// AdminRepository defines the interface for admin roster data access
type AdminRepository interface {
	// Add grants admin capability, ignoring duplicates
	Add(ctx context.Context, telegramID int64, fullName string) error

	// Remove revokes admin capability
	Remove(ctx context.Context, telegramID int64) error

	// IsAdmin reports whether the user is on the roster
	IsAdmin(ctx context.Context, telegramID int64) (bool, error)

	// All returns every admin
	All(ctx context.Context) ([]*models.Admin, error)
}

// ReferralRepository defines the interface for the referral ledger
type ReferralRepository interface {
	// Create records the edge once; returns false without error when the
	// ordered pair already exists
	Create(ctx context.Context, referrerID, referredID int64) (bool, error)

	// Stats derives referral counts and earned free days from live
	// subscription state
	Stats(ctx context.Context, referrerID int64) (*models.ReferralStats, error)

	// DeleteByUser removes all edges touching the user
	DeleteByUser(ctx context.Context, telegramID int64) error
}

// ClaimRepository defines the interface for payment claim data access
type ClaimRepository interface {
	// Create inserts a new pending claim and fills its ID
	Create(ctx context.Context, claim *models.PaymentClaim) error

	// LatestPending returns the most recent pending claim for a user, or
	// nil when none exists
	LatestPending(ctx context.Context, telegramID int64) (*models.PaymentClaim, error)

	// Resolve transitions a specific claim out of pending; returns false
	// when the claim was not pending (already resolved or absent)
	Resolve(ctx context.Context, claimID int64, status models.ClaimStatus) (bool, error)

	// Pending returns all pending claims, newest first
	Pending(ctx context.Context) ([]*models.PaymentClaim, error)

	// History returns resolved claims, newest first
	History(ctx context.Context, limit int) ([]*models.PaymentClaim, error)

	// UserHistory returns all claims for a user, newest first
	UserHistory(ctx context.Context, telegramID int64) ([]*models.PaymentClaim, error)

	// DeleteResolvedBefore prunes resolved claims older than the cutoff
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteByUser removes all claims for a user
	DeleteByUser(ctx context.Context, telegramID int64) error
}

// SettingRepository defines the interface for the bot settings store
type SettingRepository interface {
	// Set upserts a key
	Set(ctx context.Context, key, value string) error

	// Get returns the value for a key, or "" when unset
	Get(ctx context.Context, key string) (string, error)
}

// QuizResultRepository defines the interface for quiz result data access
type QuizResultRepository interface {
	// Save records a completed attempt
	Save(ctx context.Context, result *models.QuizResult) error

	// ByUser returns a user's results, newest first
	ByUser(ctx context.Context, telegramID int64) ([]*models.QuizResult, error)

	// HasCompleted reports whether the user already finished a quiz
	HasCompleted(ctx context.Context, telegramID int64, quizID int) (bool, error)

	// Stats returns the aggregate quiz snapshot
	Stats(ctx context.Context) (*models.QuizStats, error)

	// DeleteByUser removes all results for a user
	DeleteByUser(ctx context.Context, telegramID int64) error
}

// SubscriberService defines the interface for subscription lifecycle operations
type SubscriberService interface {
	// Upsert registers a user on first contact or refreshes their handle,
	// display name and last-active timestamp
	Upsert(ctx context.Context, telegramID int64, username, fullName string) (*models.User, error)

	// Activate grants a fresh entitlement window for a plan, starting now
	Activate(ctx context.Context, telegramID int64, planKey string) (time.Time, error)

	// Extend adds days on top of the current end date, or from today when
	// the subscription already lapsed
	Extend(ctx context.Context, telegramID int64, days int) (time.Time, error)

	// Renew restarts the subscription from today, replacing the current term
	Renew(ctx context.Context, telegramID int64, days int) (time.Time, error)

	// Suspend clears the subscription immediately
	Suspend(ctx context.Context, telegramID int64) error

	// Get returns a user, or nil when unknown
	Get(ctx context.Context, telegramID int64) (*models.User, error)

	// ExpiringWithin lists active users ending inside the look-ahead window
	ExpiringWithin(ctx context.Context, days int) ([]*models.User, error)

	// AllActive lists every user with an active subscription
	AllActive(ctx context.Context) ([]*models.User, error)

	// Recent lists the most recently registered users
	Recent(ctx context.Context, limit int) ([]*models.User, error)

	// Stats returns the aggregate user snapshot
	Stats(ctx context.Context) (*models.UserStats, error)
}

// ReferralService defines the interface for the referral ledger
type ReferralService interface {
	// Record registers a referral edge once; self-referrals and duplicate
	// pairs are reported as not-created
	Record(ctx context.Context, referrerID, referredID int64) (bool, error)

	// Stats derives referral counts and earned free days for a user
	Stats(ctx context.Context, telegramID int64) (*models.ReferralStats, error)
}

// PaymentService defines the interface for the manual payment-claim workflow
type PaymentService interface {
	// Submit records a pending claim and notifies every admin
	Submit(ctx context.Context, telegramID int64, username, fullName, planKey string) (*models.PaymentClaim, error)

	// Approve resolves the user's latest pending claim, activates the
	// subscription and issues group access
	Approve(ctx context.Context, reviewerID, telegramID int64) (*models.PaymentClaim, error)

	// Reject resolves the user's latest pending claim without touching the
	// subscription
	Reject(ctx context.Context, reviewerID, telegramID int64) (*models.PaymentClaim, error)

	// Pending lists all unresolved claims
	Pending(ctx context.Context) ([]*models.PaymentClaim, error)

	// History lists recent claims across all users
	History(ctx context.Context, limit int) ([]*models.PaymentClaim, error)

	// UserHistory lists one user's claims, newest first
	UserHistory(ctx context.Context, telegramID int64) ([]*models.PaymentClaim, error)

	// CleanupResolved deletes resolved claims older than the cutoff
	CleanupResolved(ctx context.Context, olderThan time.Time) (int64, error)
}

// AccessService defines the interface for group membership alignment
type AccessService interface {
	// GrantAccess mints a one-time invite to the linked group and delivers it
	GrantAccess(ctx context.Context, telegramID int64) error

	// HandleJoin tears down the invite artifacts once the user joins
	HandleJoin(ctx context.Context, groupID, telegramID int64) error

	// HandleJoinRequest approves requests from active subscribers and
	// declines everyone else; returns whether the request was approved
	HandleJoinRequest(ctx context.Context, groupID, telegramID int64) (bool, error)

	// RemoveFromGroup ejects a user without a permanent ban
	RemoveFromGroup(ctx context.Context, telegramID int64) error

	// Suspend ends a subscription immediately and removes the user from
	// the group
	Suspend(ctx context.Context, telegramID int64) error

	// ReconcileExpired flips overdue subscriptions inactive, then removes
	// and notifies each affected user
	ReconcileExpired(ctx context.Context) (*ReconcileReport, error)

	// MemberCount reports the linked group's current size
	MemberCount(ctx context.Context) (int, error)
}

// AdminService defines the interface for roster, settings and erasure
// operations
type AdminService interface {
	// RoleOf resolves a user's role
	RoleOf(ctx context.Context, telegramID int64) (models.Role, error)

	// Promote adds a user to the admin roster; main-admin only
	Promote(ctx context.Context, actorID, targetID int64) (bool, error)

	// Demote removes a user from the admin roster; main-admin only
	Demote(ctx context.Context, actorID, targetID int64) (bool, error)

	// SetMainAdmin designates the main admin
	SetMainAdmin(ctx context.Context, actorID, targetID int64) error

	// Admins lists the roster
	Admins(ctx context.Context) ([]*models.Admin, error)

	// EraseUser hard-deletes a user and every dependent row; main-admin only
	EraseUser(ctx context.Context, actorID, targetID int64) error

	// QuizStats returns the aggregate quiz snapshot
	QuizStats(ctx context.Context) (*models.QuizStats, error)

	// SetAdminUsername stores the public contact handle
	SetAdminUsername(ctx context.Context, username string) error

	// AdminUsername returns the public contact handle, or ""
	AdminUsername(ctx context.Context) (string, error)

	// SetPaymentInfo stores the payment destination details
	SetPaymentInfo(ctx context.Context, info PaymentInfo) error

	// GetPaymentInfo returns the stored payment destination details
	GetPaymentInfo(ctx context.Context) (*PaymentInfo, error)

	// LinkGroup records the managed group
	LinkGroup(ctx context.Context, groupID int64, title string) error

	// LinkedGroup returns the managed group id and title
	LinkedGroup(ctx context.Context) (int64, string, error)
}

// Messenger is the consumed surface of the messaging transport. All group
// operations take the linked group id explicitly so the service layer stays
// ignorant of transport configuration.
type Messenger interface {
	// SendMessage delivers text to a chat and returns the message id
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)

	// CreateOneTimeInvite creates a single-use invite link valid for ttl
	CreateOneTimeInvite(ctx context.Context, groupID int64, ttl time.Duration) (string, error)

	// RevokeInvite invalidates an invite link
	RevokeInvite(ctx context.Context, groupID int64, inviteLink string) error

	// DeleteMessage removes a previously sent message
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error

	// IsMember reports whether the user currently belongs to the group
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)

	// BanMember removes the user from the group
	BanMember(ctx context.Context, groupID, userID int64) error

	// UnbanMember lifts a ban so the user may rejoin later
	UnbanMember(ctx context.Context, groupID, userID int64) error

	// MemberCount returns the group's member count
	MemberCount(ctx context.Context, groupID int64) (int, error)

	// ApproveJoinRequest accepts a pending join request
	ApproveJoinRequest(ctx context.Context, groupID, userID int64) error

	// DeclineJoinRequest refuses a pending join request
	DeclineJoinRequest(ctx context.Context, groupID, userID int64) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	AdminRepository() AdminRepository
	ReferralRepository() ReferralRepository
	ClaimRepository() ClaimRepository
	SettingRepository() SettingRepository
	QuizResultRepository() QuizResultRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
