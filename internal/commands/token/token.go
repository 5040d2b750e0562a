// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package token manages the relay token stored in the system keychain.
package token

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/tombee/launcher/internal/commands/shared"
	"github.com/tombee/launcher/internal/secrets"
)

// NewCommand creates the token command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the relay authentication token",
		Long: `Store, inspect or remove the token the launcher presents to the relay
server. The token is kept in the system keychain. LAUNCHER_RELAY_TOKEN
overrides it for a single run.

Examples:
  launcher token set
  echo "$TOKEN" | launcher token set
  launcher token show
  launcher token clear`,
	}

	cmd.AddCommand(newSetCommand(), newShowCommand(), newClearCommand())
	return cmd
}

// store is the subset of secrets.Resolver the commands use.
type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

var newStore = func() store {
	return secrets.NewResolver(secrets.NewEnvBackend(), secrets.NewKeychainBackend())
}

func newSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Store the relay token in the keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := readToken(cmd.InOrStdin(), shared.IsStdinTerminal())
			if err != nil {
				return fmt.Errorf("failed to read token: %w", err)
			}
			if value == "" {
				return errors.New("token cannot be empty")
			}

			if err := newStore().Set(cmd.Context(), secrets.RelayTokenKey, value); err != nil {
				if errors.Is(err, secrets.ErrBackendUnavailable) {
					return fmt.Errorf("%w\n\nSet LAUNCHER_RELAY_TOKEN instead if no keychain is available", err)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("relay token stored in keychain"))
			return nil
		},
	}
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the masked relay token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := newStore().Get(cmd.Context(), secrets.RelayTokenKey)
			if errors.Is(err, secrets.ErrSecretNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), shared.RenderWarn("no relay token set"))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderField("relay token", mask(value)))
			return nil
		},
	}
}

func newClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the relay token from the keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := newStore().Delete(cmd.Context(), secrets.RelayTokenKey)
			if err != nil && !errors.Is(err, secrets.ErrSecretNotFound) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("relay token removed"))
			return nil
		},
	}
}

// readToken prompts with hidden input on a terminal and reads all of in
// otherwise.
func readToken(in io.Reader, interactive bool) (string, error) {
	if interactive {
		var value string
		if err := survey.AskOne(&survey.Password{Message: "Relay token:"}, &value); err != nil {
			return "", err
		}
		return strings.TrimSpace(value), nil
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func mask(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
