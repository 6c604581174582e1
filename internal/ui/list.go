package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/spotauth/internal/tokens"
)

var _ list.Item = tokenItem{}

// tokenItem wraps [tokens.StoredToken] to implement [list.Item].
type tokenItem struct {
	record tokens.StoredToken
}

func (i tokenItem) FilterValue() string { return i.record.UserID }
func (i tokenItem) Title() string       { return i.record.UserID }
func (i tokenItem) Description() string {
	now := time.Now()

	var desc string
	if i.record.Expired(now) {
		desc = "expired"
	} else {
		desc = fmt.Sprintf("expires in %s", i.record.ExpiresAt.Sub(now).Round(time.Second))
	}

	if i.record.HasRefreshToken {
		desc = fmt.Sprintf("%s • refreshable", desc)
	} else {
		desc = fmt.Sprintf("%s • no refresh token", desc)
	}

	if i.record.Scopes != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.record.Scopes)
	}

	return desc
}
