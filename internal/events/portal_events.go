package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePasswordChangeRequired = "notice.password_change_required"
	EventTypeLoginFailed            = "notice.login_failed"
	EventTypeSessionDefined         = "session.defined"
	EventTypeSessionCleared         = "session.cleared"
)

// PasswordChangeRequiredEvent is the one-time notice emitted when a
// guard bounces an operator who still has to change their password.
type PasswordChangeRequiredEvent struct {
	BaseEvent
	Path string `json:"path"`
}

func NewPasswordChangeRequiredEvent(path string) *PasswordChangeRequiredEvent {
	return &PasswordChangeRequiredEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePasswordChangeRequired,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"path":    path,
				"message": "You must change your password before continuing",
			},
		},
		Path: path,
	}
}

type LoginFailedEvent struct {
	BaseEvent
	Reason string `json:"reason"`
}

func NewLoginFailedEvent(reason string) *LoginFailedEvent {
	return &LoginFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeLoginFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"reason":  reason,
				"message": "An error occurred during login",
			},
		},
		Reason: reason,
	}
}

type SessionDefinedEvent struct {
	BaseEvent
	PeriodID int64  `json:"period_id"`
	Title    string `json:"title"`
}

func NewSessionDefinedEvent(periodID int64, title string) *SessionDefinedEvent {
	return &SessionDefinedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeSessionDefined,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"period_id": periodID,
				"title":     title,
			},
		},
		PeriodID: periodID,
		Title:    title,
	}
}

func NewSessionClearedEvent() *BaseEvent {
	return &BaseEvent{
		ID:        uuid.New().String(),
		Type:      EventTypeSessionCleared,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{},
	}
}
