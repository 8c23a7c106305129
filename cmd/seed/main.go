// Command seed provisions one account. There is no self-registration; every
// user is created by an operator.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"faculty-appraisal/config"
	"faculty-appraisal/internal/model"
	"faculty-appraisal/internal/repository"
	"faculty-appraisal/pkg/database"
	"faculty-appraisal/pkg/validator"
)

func main() {
	log.SetFlags(0)
	var (
		configPath = flag.String("config", os.Getenv("APPRAISAL_CONFIG"), "config file")
		userID     = flag.String("user", "", "login id")
		name       = flag.String("name", "", "display name")
		email      = flag.String("email", "", "email address")
		dept       = flag.String("dept", "", "department code")
		role       = flag.String("role", string(model.RoleFaculty), "role")
		desg       = flag.String("desg", "", "designation, defaults to the role")
		password   = flag.String("password", os.Getenv("APPRAISAL_SEED_PASSWORD"), "initial password")
		active     = flag.Bool("active", true, "account may log in")
		migrate    = flag.Bool("migrate", false, "apply the schema first")
	)
	flag.Parse()

	if err := validator.ValidateUserID(*userID); err != nil {
		log.Fatalf("user: %v", err)
	}
	if err := validator.ValidatePassword(*password); err != nil {
		log.Fatalf("password: %v", err)
	}
	r := model.Role(*role)
	if !r.Valid() {
		log.Fatalf("unknown role %q", *role)
	}
	if r != model.RoleAdmin && !model.ValidDepartment(*dept) {
		log.Fatalf("unknown department %q", *dept)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	db, err := database.NewDB(&cfg.Database, "error", zap.NewNop())
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	if *migrate {
		if err := database.Migrate(db); err != nil {
			log.Fatal(err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := repository.NewRepository(db).User
	user := &model.User{
		UserID:       *userID,
		Name:         *name,
		Email:        *email,
		Dept:         *dept,
		Role:         r,
		Desg:         *desg,
		PasswordHash: string(hash),
	}
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			log.Fatalf("user %s already exists", *userID)
		}
		log.Fatalf("create user: %v", err)
	}
	// the column defaults to true, so a disabled account needs a second write
	if !*active {
		if err := users.SetActive(ctx, *userID, false); err != nil {
			log.Fatalf("deactivate: %v", err)
		}
	}
	fmt.Printf("created %s (%s, %s)\n", user.UserID, user.Role, user.Dept)
}
