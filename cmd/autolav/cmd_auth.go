package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"autolav/internal/auth"
	"autolav/internal/backend"
)

var (
	loginUsername string
	loginPassword string
)

// authCmd groups credential operations.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage portal credentials held by the backend",
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the backend holds valid credentials",
	RunE:  authStatus,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Send portal credentials to the backend",
	RunE:  authLogin,
}

func init() {
	authLoginCmd.Flags().StringVar(&loginUsername, "username", "", "portal username")
	authLoginCmd.Flags().StringVar(&loginPassword, "password", "", "portal password (prompted if omitted)")

	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLoginCmd)
}

func authStatus(cmd *cobra.Command, args []string) error {
	_, _, gate, err := loadClient()
	if err != nil {
		return err
	}

	state, err := gate.Refresh(cmd.Context())
	if err != nil {
		return err
	}

	switch state {
	case auth.StatePresent:
		fmt.Printf("Credentials configured (user: %s)\n", gate.Username())
	case auth.StateAbsent:
		fmt.Println("No credentials configured. Run 'autolav auth login'.")
	default:
		fmt.Printf("Credential state: %s\n", state)
	}
	return nil
}

func authLogin(cmd *cobra.Command, args []string) error {
	_, client, gate, err := loadClient()
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	if loginUsername == "" {
		fmt.Print("Portal username: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
		loginUsername = strings.TrimSpace(line)
	}
	if loginPassword == "" {
		fmt.Print("Portal password: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		loginPassword = strings.TrimSpace(line)
	}
	if loginUsername == "" || loginPassword == "" {
		return fmt.Errorf("username and password are required")
	}

	if err := client.UpdateCredentials(cmd.Context(), backend.Credentials{
		Username: loginUsername,
		Password: loginPassword,
	}); err != nil {
		return fmt.Errorf("failed to update credentials: %w", err)
	}

	// Only the probe decides the new gate state.
	gate.MarkUpdated()
	state, err := gate.Refresh(cmd.Context())
	if err != nil {
		return err
	}
	if state != auth.StatePresent {
		return fmt.Errorf("credentials sent but backend still reports %s", state)
	}

	fmt.Println("Credentials updated.")
	return nil
}
