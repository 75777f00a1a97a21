// Package gate implements the mandatory channel-membership check applied
// before any flow-relevant processing.
package gate

import (
	"context"

	"github.com/Habibullo22/Kinouz/internal/transport"
	"github.com/Habibullo22/Kinouz/pkg/logx"
)

// MemberLookup is the slice of the transport the gate needs.
type MemberLookup interface {
	MemberStatus(ctx context.Context, channel string, userID int64) (transport.MemberStatus, error)
}

type Checker struct {
	lookup MemberLookup
	log    logx.Logger
}

func New(lookup MemberLookup, log logx.Logger) *Checker {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Checker{lookup: lookup, log: log}
}

// Check verifies the user's membership in every required channel. It returns
// whether all are satisfied and the unsatisfied channels in configured order.
//
// A lookup error (bot can't see the channel, user unknown to it) counts as
// unsatisfied for that channel only; the remaining channels are still checked.
func (c *Checker) Check(ctx context.Context, channels []string, userID int64) (bool, []string) {
	var missing []string
	for _, ch := range channels {
		if !c.satisfied(ctx, ch, userID) {
			missing = append(missing, ch)
		}
	}
	return len(missing) == 0, missing
}

func (c *Checker) satisfied(ctx context.Context, channel string, userID int64) bool {
	status, err := c.lookup.MemberStatus(ctx, channel, userID)
	if err != nil {
		// Conservative: a failed lookup never grants access.
		c.log.Debug("membership lookup failed", logx.String("channel", channel), logx.Int64("user", userID), logx.Err(err))
		return false
	}
	switch status {
	case transport.StatusMember, transport.StatusAdministrator, transport.StatusCreator:
		return true
	default:
		return false
	}
}
