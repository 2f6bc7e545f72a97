package core

import (
	"fmt"

	"github.com/dkeye/StreamBingo/internal/domain"
)

type Action string

const (
	ActionResetGame      Action = "resetGame"
	ActionEndGame        Action = "endGame"
	ActionCallNumber     Action = "callNumber"
	ActionUpdateSettings Action = "updateGameSettings"
)

// Notification is one state change reported by the owner of persistence.
type Notification struct {
	Action   Action           `json:"action"`
	GameName string           `json:"gameName"`
	GameID   *domain.GameID   `json:"gameId"`
	Number   int              `json:"number,omitempty"`
	Winner   *string          `json:"winner"`
	Settings *domain.Settings `json:"settings,omitempty"`
}

func (n Notification) Validate() error {
	if n.GameName == "" {
		return fmt.Errorf("notification without gameName: %w", domain.ErrInvalidInput)
	}
	switch n.Action {
	case ActionResetGame:
	case ActionEndGame:
		if n.GameID == nil {
			return fmt.Errorf("endGame without gameId: %w", domain.ErrInvalidInput)
		}
	case ActionCallNumber:
		if n.Number < 1 || n.Number > domain.MaxNumber {
			return fmt.Errorf("callNumber number=%d: %w", n.Number, domain.ErrInvalidInput)
		}
	case ActionUpdateSettings:
		if n.Settings == nil {
			return fmt.Errorf("updateGameSettings without settings: %w", domain.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("action %q: %w", n.Action, domain.ErrInvalidInput)
	}
	return nil
}

func ResetGameNotification(name string, old *domain.GameID) Notification {
	return Notification{Action: ActionResetGame, GameName: name, GameID: old}
}

func EndGameNotification(name string, id domain.GameID, winner *string) Notification {
	return Notification{Action: ActionEndGame, GameName: name, GameID: &id, Winner: winner}
}

func CallNumberNotification(name string, id domain.GameID, number int) Notification {
	return Notification{Action: ActionCallNumber, GameName: name, GameID: &id, Number: number}
}

func SettingsNotification(name string, s domain.Settings) Notification {
	return Notification{Action: ActionUpdateSettings, GameName: name, Settings: &s}
}
