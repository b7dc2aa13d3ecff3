package commands

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/renatojobal/fomoff/internal/auth"
	"github.com/renatojobal/fomoff/internal/config"
)

// HashPassword handles the hash-password subcommand: it prompts for a
// username and password and stores the Argon2id hash in the viewer's
// basic_auth block of the config file.
func HashPassword(args []string, configPath string) int {
	fs := flag.NewFlagSet("hash-password", flag.ExitOnError)
	printOnly := fs.Bool("print", false, "Print the hash instead of writing it to the config file")
	insecureUnmask := fs.Bool("insecure-unmask-password", false, "Show password as plain text (INSECURE!)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fomoff-web hash-password [OPTIONS]\n\n")
		fmt.Fprintf(os.Stderr, "Protects the viewer with HTTP Basic Auth (Argon2id hash).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	fmt.Print("Enter username: ")
	var username string
	if _, err := fmt.Scanln(&username); err != nil || username == "" {
		fmt.Fprintf(os.Stderr, "Username cannot be empty\n")
		return 1
	}

	var password, confirm string
	if *insecureUnmask {
		fmt.Fprintf(os.Stderr, "⚠️  WARNING: Password will be visible on screen!\n")
		fmt.Print("Enter password:   ")
		fmt.Scanln(&password)
		fmt.Print("Confirm password: ")
		fmt.Scanln(&confirm)
	} else {
		password = readPasswordWithMask("Enter password:   ")
		confirm = readPasswordWithMask("Confirm password: ")
	}

	if password == "" {
		fmt.Fprintf(os.Stderr, "Password cannot be empty\n")
		return 1
	}
	if password != confirm {
		fmt.Fprintf(os.Stderr, "Passwords do not match\n")
		return 1
	}

	if err := StoreCredentials(os.Stdout, configPath, username, password, *printOnly); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// StoreCredentials hashes password and either prints the config snippet
// or writes it into the config at configPath.
func StoreCredentials(out io.Writer, configPath, username, password string, printOnly bool) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if printOnly {
		fmt.Fprintf(out, "viewer:\n  basic_auth:\n    username: %s\n    password_hash: %q\n", username, hash)
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.Viewer.BasicAuth = &config.BasicAuthConfig{Username: username, PasswordHash: hash}
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(out, "✅ Basic Auth enabled in %s\n", configPath)
	fmt.Fprintf(out, "   Username: %s\n", username)
	return nil
}

// readPasswordWithMask reads password input and echoes asterisks.
func readPasswordWithMask(prompt string) string {
	fmt.Print(prompt)

	fd := int(syscall.Stdin)
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		// Not a terminal: read without echo if possible.
		password, _ := term.ReadPassword(fd)
		fmt.Println()
		return string(password)
	}
	defer term.Restore(fd, oldState)

	var password []byte
	reader := bufio.NewReader(os.Stdin)
	for {
		char, _, err := reader.ReadRune()
		if err != nil {
			break
		}

		switch char {
		case '\n', '\r':
			fmt.Print("\r\n")
			return string(password)
		case 127, 8:
			if len(password) > 0 {
				password = password[:len(password)-1]
				fmt.Print("\b \b")
			}
		case 3: // Ctrl+C
			term.Restore(fd, oldState)
			fmt.Println()
			os.Exit(1)
		default:
			if char >= 32 && char <= 126 {
				password = append(password, byte(char))
				fmt.Print("*")
			}
		}
	}

	fmt.Print("\r\n")
	return string(password)
}
