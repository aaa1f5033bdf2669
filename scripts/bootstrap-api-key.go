package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/moodmeter/moodmeter/internal/auth"
	"github.com/moodmeter/moodmeter/internal/metrics"
	"github.com/moodmeter/moodmeter/internal/model"
	"github.com/moodmeter/moodmeter/internal/repository"
	"github.com/moodmeter/moodmeter/internal/service"
	"github.com/moodmeter/moodmeter/migrations"
)

type output struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password,omitempty"` // only when generated
	Credits   int    `json:"credits"`
	KeyID     string `json:"key_id"`
	Key       string `json:"key"`
	KeyPrefix string `json:"key_prefix"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		username    = flag.String("username", "moodmeter", "Account username (created if missing)")
		email       = flag.String("email", "ops@moodmeter.local", "Account email, used when creating")
		password    = flag.String("password", "", "Account password when creating; generated if empty")
		credits     = flag.Int("credits", model.DefaultCredits, "Starting credits when creating")
		migrate     = flag.Bool("migrate", false, "Apply migrations before bootstrapping")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	if *migrate {
		if _, err := repo.Migrate(ctx, migrations.FS); err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	recorder := metrics.NewNoop()
	accounts := service.NewAccountService(repo, *credits, recorder)
	keys := service.NewKeyService(repo, repo, nil, 0, logger, recorder)

	out := output{Username: *username}

	account, err := repo.GetAccountByUsername(ctx, *username)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrAccountNotFound):
		pw := *password
		if pw == "" {
			generated, err := auth.GenerateToken()
			if err != nil {
				fmt.Fprintln(os.Stderr, "generate password:", err)
				os.Exit(1)
			}
			pw = generated.Plaintext
			out.Password = pw
		}
		account, err = accounts.Register(ctx, service.RegisterInput{
			Username: *username,
			Email:    *email,
			Password: pw,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "create account:", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "look up account:", err)
		os.Exit(1)
	}

	issued, err := keys.IssueKey(ctx, account.ID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "issue api key:", err)
		os.Exit(1)
	}

	out.AccountID = account.ID
	out.Email = account.Email
	out.Credits = account.Credits
	out.KeyID = issued.Key.ID
	out.Key = issued.Token
	out.KeyPrefix = issued.Key.TokenPrefix

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.Key)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}
