package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	pdftemplate "github.com/lvillar/pdftemplate"
)

// User is a registered account.
type User struct {
	ID             string `json:"user_id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	HashedPassword string `json:"hashed_password"`
	CreatedAt      string `json:"created_at"`
}

// Users keeps all accounts in a single JSON object keyed by username.
type Users struct {
	mu   sync.Mutex
	path string
}

// NewUsers returns a user store in dir, creating an empty users.json.
func NewUsers(dir string) (*Users, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating %s: %w", dir, err)
	}
	u := &Users{path: filepath.Join(dir, "users.json")}
	if _, err := os.Stat(u.path); errors.Is(err, fs.ErrNotExist) {
		if err := writeFile(u.path, []byte("{}")); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (u *Users) load() (map[string]User, error) {
	data, err := os.ReadFile(u.path)
	if err != nil {
		return nil, fmt.Errorf("store: reading users: %w", err)
	}
	users := map[string]User{}
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("store: decoding users: %w", err)
	}
	return users, nil
}

// Get returns the user registered as username.
func (u *Users) Get(username string) (*User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	users, err := u.load()
	if err != nil {
		return nil, err
	}
	usr, ok := users[username]
	if !ok {
		return nil, pdftemplate.NotFoundf("user %s", username)
	}
	return &usr, nil
}

// Create adds a user. A taken username or email is pdftemplate.ErrConflict.
func (u *Users) Create(usr User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	users, err := u.load()
	if err != nil {
		return err
	}
	if _, ok := users[usr.Username]; ok {
		return fmt.Errorf("%w: username already exists", pdftemplate.ErrConflict)
	}
	for _, other := range users {
		if other.Email == usr.Email {
			return fmt.Errorf("%w: email already exists", pdftemplate.ErrConflict)
		}
	}
	users[usr.Username] = usr
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encoding users: %w", err)
	}
	return writeFile(u.path, data)
}
