// Command token mints an access token for the payroll API. Tokens are signed
// with the same JWT_SECRET_KEY and lifetime the API is configured with.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/config"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
)

func main() {
	var userID, role string
	flag.StringVar(&userID, "user", "", "user id carried in the user_id claim (required)")
	flag.StringVar(&role, "role", string(auth.RoleOperator), "one of "+strings.Join(auth.RoleNames, ", "))
	flag.Parse()

	if validator.IsEmpty(userID) {
		fmt.Println("missing -user")
		flag.Usage()
		os.Exit(2)
	}
	if !auth.Role(role).IsValid() {
		fmt.Printf("unknown role %q, want one of %s\n", role, strings.Join(auth.RoleNames, ", "))
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	svc := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	token, expiresAt, err := svc.GenerateAccessToken(userID, auth.Role(role))
	if err != nil {
		fmt.Println("Error generating token:", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "expires %s\n", time.Unix(expiresAt, 0).UTC().Format(time.RFC3339))
	fmt.Println(token)
}
