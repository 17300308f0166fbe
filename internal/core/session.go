package core

import (
	"strings"
	"time"
)

// Session identifies who is talking to the bookkeeper. It is passed
// explicitly into every service call.
type Session struct {
	AppName   string `json:"app_name"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// Key scopes per-session state such as idempotency keys.
func (s Session) Key() string {
	return strings.Join([]string{s.AppName, s.UserID, s.SessionID}, "/")
}

// CurrentDate returns the local calendar date and weekday, e.g.
// "2024-01-05 (Friday)". Agents use it to resolve "this week" or "last month".
func CurrentDate(now time.Time) string {
	return now.Format("2006-01-02 (Monday)")
}
