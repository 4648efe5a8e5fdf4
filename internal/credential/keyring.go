// Package credential stores IMAP passwords in the system keyring.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
	"github.com/charmbracelet/huh"
)

const serviceName = "mailq"

// Store reads and writes credentials in a keyring.
type Store struct {
	ring keyring.Keyring
}

// Open returns a Store backed by the platform keyring.
func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/mailq/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("mailq-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewStore(ring), nil
}

func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// AccountKey is the keyring key holding the password of account.
func AccountKey(account string) string {
	return "imap-" + account
}

// Get retrieves a credential value by key from the keyring.
func (s *Store) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a credential value by key in the keyring.
func (s *Store) Set(key string, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential by key from the keyring.
func (s *Store) Delete(key string) error {
	if err := s.ring.Remove(key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// PromptFunc asks the user for a secret.
type PromptFunc func(title string) (string, error)

// Password returns the stored password for account. If none is stored it
// asks through prompt, and saves the answer when save is true.
func (s *Store) Password(account string, prompt PromptFunc, save bool) (string, error) {
	key := AccountKey(account)
	password, err := s.Get(key)
	if err == nil {
		return password, nil
	}
	if !errors.Is(err, keyring.ErrKeyNotFound) || prompt == nil {
		return "", err
	}

	password, err = prompt(fmt.Sprintf("IMAP password for %s", account))
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if save {
		if err := s.Set(key, password); err != nil {
			return "", err
		}
	}
	return password, nil
}

// PromptPassword asks for a password on the terminal with input hidden.
func PromptPassword(title string) (string, error) {
	var password string
	err := huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(&password).
		Validate(func(s string) error {
			if s == "" {
				return errors.New("password is required")
			}
			return nil
		}).
		Run()
	if err != nil {
		return "", err
	}
	return password, nil
}
