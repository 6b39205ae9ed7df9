// Package seed fills a development database with demo accounts for the
// moderation console. Intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"warden/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	Users          int
	Admins         int
	PendingAdmins  int
	FormalRequests int
	Banned         int
	ShouldClean    bool
	// Seed makes the generated data reproducible. Zero picks a random seed.
	Seed int64
}

// DefaultOptions gives one console page of every kind of account.
func DefaultOptions() Options {
	return Options{Users: 20, Admins: 3, PendingAdmins: 3, FormalRequests: 2, Banned: 2}
}

// Summary reports how many rows were written.
type Summary struct {
	Users     int
	Requests  int
	Banned    int
	Pending   int
	Cleaned   bool
	StartedAt time.Time
}

func (s Summary) String() string {
	return fmt.Sprintf("%d users (%d banned, %d pending_admin), %d approval requests",
		s.Users, s.Banned, s.Pending, s.Requests)
}

// Seeder writes demo data.
type Seeder struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
	built int
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{db: db, opts: opts, faker: gofakeit.New(seed)}
}

// ClearAll removes every row the console reads.
func (s *Seeder) ClearAll(ctx context.Context) error {
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{
		&models.Notification{},
		&models.AdminNotification{},
		&models.ApprovalRequest{},
		&models.User{},
	} {
		if err := db.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	log.Println("Cleared users, approval requests and notifications")
	return nil
}

// Run seeds plain users, admins, banned users, pending_admin users without a
// request row and users with a formal pending request.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	sum := Summary{StartedAt: time.Now()}
	if s.opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return sum, err
		}
		sum.Cleaned = true
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		create := func(u *models.User) error {
			if err := tx.Create(u).Error; err != nil {
				return fmt.Errorf("create user %s: %w", u.Email, err)
			}
			sum.Users++
			return nil
		}

		for i := 0; i < s.opts.Users; i++ {
			u := s.BuildUser(models.RoleUser)
			if i < s.opts.Banned {
				s.ban(u, i)
				sum.Banned++
			}
			if err := create(u); err != nil {
				return err
			}
		}
		for i := 0; i < s.opts.Admins; i++ {
			if err := create(s.BuildUser(models.RoleAdmin)); err != nil {
				return err
			}
		}
		for i := 0; i < s.opts.PendingAdmins; i++ {
			u := s.BuildUser(models.RoleUser)
			u.Status = models.UserStatusPendingAdmin
			if err := create(u); err != nil {
				return err
			}
			sum.Pending++
		}
		for i := 0; i < s.opts.FormalRequests; i++ {
			u := s.BuildUser(models.RoleUser)
			role := models.RoleAdmin
			u.RequestedRole = &role
			if err := create(u); err != nil {
				return err
			}
			req := models.ApprovalRequest{
				UserID:        u.ID,
				RequestedRole: models.RoleAdmin,
				RequestedAt:   u.CreatedAt.Add(time.Hour),
				Status:        models.ApprovalStatusPending,
			}
			if err := tx.Create(&req).Error; err != nil {
				return fmt.Errorf("create approval request: %w", err)
			}
			sum.Requests++
		}
		return nil
	})
	return sum, err
}

// BuildUser returns an unsaved user with a realistic name and contact details.
func (s *Seeder) BuildUser(role models.Role) *models.User {
	f := s.faker
	s.built++
	first, last := f.FirstName(), f.LastName()
	local := strings.ReplaceAll(strings.ToLower(first+"."+last), " ", "")
	u := &models.User{
		FirstName: first,
		LastName:  last,
		Email:     fmt.Sprintf("%s.%d@%s", local, s.built, f.DomainName()),
		UserType:  role,
		Status:    models.UserStatusActive,
		CreatedAt: f.DateRange(time.Now().AddDate(0, 0, -90), time.Now()),
	}
	if f.Bool() {
		mobile := f.Phone()
		u.MobileNumber = &mobile
	}
	if f.Number(0, 4) == 0 {
		middle := f.MiddleName()
		u.MiddleName = &middle
	}
	return u
}

func (s *Seeder) ban(u *models.User, i int) {
	reason := s.faker.Sentence(6)
	u.IsBanned = true
	u.BanReason = &reason
	if i%2 == 0 {
		until := time.Now().Add(time.Duration(s.faker.Number(1, 30)) * 24 * time.Hour)
		u.BannedUntil = &until
	}
}
