package wizard

import (
	"fmt"

	"github.com/stuga-cloud/console/internal/domain"
)

// AddEnv appends an empty environment variable.
func (w *Wizard) AddEnv() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.env = append(w.env, domain.NameValue{})
	return len(w.env) - 1
}

// SetEnv updates the environment variable at index.
func (w *Wizard) SetEnv(index int, name, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return setPair(w.env, index, name, value)
}

// RemoveEnv drops the environment variable at index.
func (w *Wizard) RemoveEnv(index int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	pairs, err := removePair(w.env, index)
	if err != nil {
		return err
	}
	w.env = pairs
	return nil
}

// Env returns a copy of the environment variables.
func (w *Wizard) Env() []domain.NameValue {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.NameValue(nil), w.env...)
}

// AddSecret appends an empty secret.
func (w *Wizard) AddSecret() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.secrets = append(w.secrets, domain.NameValue{})
	return len(w.secrets) - 1
}

// SetSecret updates the secret at index.
func (w *Wizard) SetSecret(index int, name, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return setPair(w.secrets, index, name, value)
}

// RemoveSecret drops the secret at index.
func (w *Wizard) RemoveSecret(index int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	pairs, err := removePair(w.secrets, index)
	if err != nil {
		return err
	}
	w.secrets = pairs
	return nil
}

// Secrets returns a copy of the secrets.
func (w *Wizard) Secrets() []domain.NameValue {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.NameValue(nil), w.secrets...)
}

func setPair(pairs []domain.NameValue, index int, name, value string) error {
	if index < 0 || index >= len(pairs) {
		return fmt.Errorf("no entry at index %d", index)
	}
	pairs[index] = domain.NameValue{Name: name, Value: value}
	return nil
}

func removePair(pairs []domain.NameValue, index int) ([]domain.NameValue, error) {
	if index < 0 || index >= len(pairs) {
		return pairs, fmt.Errorf("no entry at index %d", index)
	}
	return append(pairs[:index:index], pairs[index+1:]...), nil
}
