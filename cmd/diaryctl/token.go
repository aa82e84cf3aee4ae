package main

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"emotion-diary/internal/service"
)

type tokenOutput struct {
	AccessToken string `json:"access_token" yaml:"access_token"`
	TokenType   string `json:"token_type" yaml:"token_type"`
	ExpiresIn   int64  `json:"expires_in" yaml:"expires_in"`
}

func newTokenCmd(root *rootOptions) *cobra.Command {
	var (
		secret string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <uid>",
		Short: "Mint a bearer token for the diary API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return errors.New("jwt secret not configured (set JWT_SECRET or --secret)")
			}
			jwtSvc := service.NewJWTService(secret, ttl)
			token, err := jwtSvc.IssueAccessToken(args[0])
			if err != nil {
				return err
			}
			return root.write(cmd.OutOrStdout(), tokenOutput{
				AccessToken: token,
				TokenType:   "Bearer",
				ExpiresIn:   int64(jwtSvc.AccessTTL().Seconds()),
			})
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "HMAC secret (defaults to JWT_SECRET)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
