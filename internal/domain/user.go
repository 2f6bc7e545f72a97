// Package domain contains entities without transport or storage logic.
package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const MaxUsernameLen = 36

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

type UserID int64

// User is a chat viewer or host known to the system.
type User struct {
	ID       UserID `json:"id"`
	TwitchID int64  `json:"twitchId"`
	Name     string `json:"name"`
	Token    string `json:"-"`
	Host     bool   `json:"host"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(twitchID int64, username string) (*User, error) {
	u := &User{TwitchID: twitchID, Token: uuid.NewString()}
	if err := u.SetUsername(username); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) SetUsername(username string) error {
	username = strings.TrimSpace(username)
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	u.Name = username
	return nil
}
