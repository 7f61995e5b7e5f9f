package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"bear-monitor/internal/alert"
	"bear-monitor/internal/models"
	"bear-monitor/internal/store"

	"github.com/spf13/cobra"
)

var (
	loginIdentifierFlag string
	loginPasswordFlag   string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to bear-relay and store the session token",
	Long: `Sign in with a username or email. The password can also be given
through BEAR_PASSWORD.

Examples:
  bear-monitor login --identifier bear@example.com --password secret
  BEAR_PASSWORD=secret bear-monitor login --identifier bear`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		password := loginPasswordFlag
		if password == "" {
			password = os.Getenv("BEAR_PASSWORD")
		}
		relay := alert.NewHTTPRelay(a.cfg.Alert.RelayURL, a.cfg.Alert.Timeout, a.logger)
		return login(ctx, relay, a.auth, loginIdentifierFlag, password, cmd.OutOrStdout())
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.auth.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear auth state: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	loginCmd.Flags().StringVar(&loginIdentifierFlag, "identifier", "", "Username or email")
	loginCmd.Flags().StringVar(&loginPasswordFlag, "password", "", "Password (or BEAR_PASSWORD)")
}

// signer alert.HTTPRelay 的登录能力
type signer interface {
	SignIn(ctx context.Context, identifier, password string) (*models.SignInResponse, error)
}

func login(ctx context.Context, relay signer, auth *store.AuthSession, identifier, password string, out io.Writer) error {
	if identifier == "" || password == "" {
		return errors.New("identifier and password are required")
	}
	resp, err := relay.SignIn(ctx, identifier, password)
	if err != nil {
		if errors.Is(err, alert.ErrUnauthorized) {
			return errors.New("invalid credentials")
		}
		return err
	}
	if err := auth.Save(ctx, store.AuthRecord{User: resp.User, Token: resp.Token}); err != nil {
		return fmt.Errorf("failed to save auth state: %w", err)
	}
	fmt.Fprintf(out, "Logged in as %s\n", resp.User.Username)
	return nil
}
