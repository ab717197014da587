// createrole 创建或提升员工/管理员账号
//
//	go run ./cmd/createrole --email chef@example.com --password secret --role staff
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/d60-Lab/eazyeats/config"
	"github.com/d60-Lab/eazyeats/internal/auth"
	"github.com/d60-Lab/eazyeats/internal/model"
	"github.com/d60-Lab/eazyeats/internal/repository"
	"github.com/d60-Lab/eazyeats/internal/service"
	"github.com/d60-Lab/eazyeats/pkg/database"
)

func main() {
	email := flag.String("email", "", "account email (required)")
	name := flag.String("name", "", "display name, defaults to the email prefix")
	password := flag.String("password", "", "password, required when the account does not exist")
	role := flag.String("role", string(model.RoleStaff), "staff or admin")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "--email is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*email, *name, *password, model.Role(*role)); err != nil {
		fmt.Fprintf(os.Stderr, "createrole: %v\n", err)
		os.Exit(1)
	}
}

func run(email, name, password string, role model.Role) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()
	if err := repository.Migrate(db, model.AllModels()...); err != nil {
		return err
	}

	tokens := auth.NewTokens(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	svc := service.NewAuthService(repository.NewUserRepository(db), tokens)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	u, created, err := svc.EnsureRole(ctx, service.RegisterInput{
		Email:    email,
		Password: password,
		Name:     name,
	}, role)
	if err != nil {
		return err
	}

	verb := "updated"
	if created {
		verb = "created"
	}
	fmt.Printf("%s %s (%s) role=%s\n", verb, u.Email, u.ID, u.Role)
	return nil
}
