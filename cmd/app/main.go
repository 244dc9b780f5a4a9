package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/atvirokodosprendimai/stockapi/internal/app"
)

func main() {
	// Optional .env for local development; ignored if absent.
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "stockapi",
		Usage: "SQLite-backed inventory API with a full change log",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: ":8080",
				Usage: "HTTP listen address",
			},
			&cli.StringFlag{
				Name:  "db-path",
				Value: "./stockapi.sqlite",
				Usage: "SQLite file path",
			},
			&cli.StringFlag{
				Name:    "jwt-secret",
				Sources: cli.EnvVars("STOCKAPI_JWT_SECRET"),
				Usage:   "HMAC signing secret for auth tokens",
			},
			&cli.StringFlag{
				Name:    "jwt-issuer",
				Value:   "stockapi",
				Sources: cli.EnvVars("STOCKAPI_JWT_ISSUER"),
				Usage:   "Issuer claim for auth tokens",
			},
			&cli.DurationFlag{
				Name:    "token-ttl",
				Value:   24 * time.Hour,
				Sources: cli.EnvVars("STOCKAPI_TOKEN_TTL"),
				Usage:   "Auth token lifetime",
			},
			&cli.StringFlag{
				Name:    "admin-username",
				Value:   "admin",
				Sources: cli.EnvVars("STOCKAPI_ADMIN_USERNAME"),
				Usage:   "Admin account to ensure at startup",
			},
			&cli.StringFlag{
				Name:    "admin-password",
				Sources: cli.EnvVars("STOCKAPI_ADMIN_PASSWORD"),
				Usage:   "Password for the startup admin account (empty skips seeding)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := app.Config{
				Addr:          c.String("addr"),
				DBPath:        c.String("db-path"),
				JWTSecret:     c.String("jwt-secret"),
				JWTIssuer:     c.String("jwt-issuer"),
				TokenTTL:      c.Duration("token-ttl"),
				AdminUsername: c.String("admin-username"),
				AdminPassword: c.String("admin-password"),
			}

			server, closer, err := app.NewServer(ctx, cfg)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			defer func() {
				if closeErr := closer.Close(); closeErr != nil {
					log.Printf("close resources: %v", closeErr)
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				log.Printf("listening on %s", cfg.Addr)
				errCh <- server.ListenAndServe()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case sig := <-sigCh:
				log.Printf("received signal %s", sig)
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
