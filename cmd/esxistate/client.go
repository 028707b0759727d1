package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/vmware"
)

// resolvePassword finds the connection password: plan inline value first,
// then the named environment variable, then an interactive prompt when a
// terminal is attached.
func resolvePassword(conn config.Connection) (string, error) {
	if conn.Password != "" {
		return conn.Password, nil
	}

	if conn.PasswordEnv != "" {
		if value := os.Getenv(conn.PasswordEnv); value != "" {
			return value, nil
		}
		return "", fmt.Errorf("environment variable %s is not set", conn.PasswordEnv)
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no password configured and no terminal attached for prompting")
	}

	fmt.Fprintf(os.Stderr, "Password for %s@%s: ", conn.Username, conn.Endpoint)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	password := strings.TrimSpace(string(raw))
	if password == "" {
		return "", fmt.Errorf("empty password")
	}
	return password, nil
}

func connect(ctx context.Context, conn config.Connection) (*vmware.Client, error) {
	password, err := resolvePassword(conn)
	if err != nil {
		return nil, err
	}

	return vmware.New(ctx, vmware.Config{
		Endpoint:   conn.Endpoint,
		Username:   conn.Username,
		Password:   password,
		Insecure:   conn.Insecure,
		Datacenter: conn.Datacenter,
	})
}
