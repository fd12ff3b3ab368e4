// cmd/tools/seed-data/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"apptrackr/internal/common/config"
	"apptrackr/internal/common/database"
	"apptrackr/internal/models"
	"apptrackr/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// Seeder is the part of the store the seed needs.
type Seeder interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateApplication(ctx context.Context, app *models.Application) error
}

func main() {
	email := flag.String("email", "demo@example.com", "Demo user email")
	password := flag.String("password", "password123", "Demo user password")
	migrate := flag.Bool("migrate", true, "Create the schema before seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		fmt.Printf("Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	ctx := context.Background()
	st := store.New(pg.DB)
	if *migrate {
		if err := st.Migrate(ctx); err != nil {
			fmt.Printf("Error migrating schema: %v\n", err)
			os.Exit(1)
		}
	}

	n, err := seed(ctx, st, *email, *password, time.Now().UTC())
	if err != nil {
		fmt.Printf("Error seeding: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Demo user %s and %d applications seeded.\n", *email, n)
}

// seed creates the demo user, or reuses it, and adds the demo applications.
func seed(ctx context.Context, st Seeder, email, password string, now time.Time) (int, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	name := "Demo User"
	user := &models.User{Email: email, PasswordHash: string(hash), Name: &name, IsActive: true}
	if err := st.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, store.ErrEmailTaken) {
			return 0, err
		}
		if user, err = st.GetUserByEmail(ctx, email); err != nil {
			return 0, err
		}
	}

	apps := demoApplications(user.ID, now)
	for i := range apps {
		if err := st.CreateApplication(ctx, &apps[i]); err != nil {
			return i, fmt.Errorf("create %s: %w", apps[i].Label(), err)
		}
	}
	return len(apps), nil
}

func demoApplications(userID int64, now time.Time) []models.Application {
	str := func(s string) *string { return &s }
	date := func(t time.Time) *time.Time { d := models.DateOf(t); return &d }
	day := 24 * time.Hour

	return []models.Application{
		{
			UserID:         userID,
			CompanyName:    "FinTech Bros",
			RoleTitle:      "Backend Developer",
			City:           "Bangalore",
			Country:        "India",
			Salary:         str("Comp"),
			AppliedDate:    now,
			FollowupDate:   date(now.Add(7 * day)),
			Status:         models.StatusPending,
			FollowupMethod: str("email"),
			Notes:          str("Applied via company portal."),
			UpdatedAt:      now,
		},
		{
			UserID:         userID,
			CompanyName:    "CloudWorks",
			RoleTitle:      "SWE",
			City:           "Remote",
			Country:        "India",
			Salary:         str("Unknown"),
			AppliedDate:    now.Add(-8 * day),
			FollowupDate:   date(now.Add(-1 * day)),
			FollowedUpAt:   str(models.FormatTimestamp(now.Add(-1 * day))),
			Status:         models.StatusFollowedUp,
			FollowupMethod: str("LinkedIn"),
			Notes:          str("Follow-up sent after HR responded."),
			UpdatedAt:      now,
		},
		{
			UserID:         userID,
			CompanyName:    "BigData Group",
			RoleTitle:      "Data Engineer",
			City:           "Mumbai",
			Country:        "India",
			Salary:         str("900000"),
			AppliedDate:    now.Add(-15 * day),
			FollowupDate:   date(now.Add(-8 * day)),
			Status:         models.StatusNotResponded,
			FollowupMethod: str("email"),
			Notes:          str("Sent follow-up, no reply."),
			UpdatedAt:      now,
		},
	}
}
