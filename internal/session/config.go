package session

import (
	"sort"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/protocol"
)

// Config captures a session's participants at creation time.
type Config struct {
	SessionID    core.SessionID
	Host         core.ClientID
	HumanPlayers []core.PlayerID
	Observers    []core.PlayerID
	Bots         map[core.BotID]protocol.BotKind
}

// AllRecipients lists the clients a session broadcasts to: human players
// plus observers.
func (c Config) AllRecipients() []core.ClientID {
	recipients := make([]core.ClientID, 0, len(c.HumanPlayers)+len(c.Observers))
	for _, p := range c.HumanPlayers {
		recipients = append(recipients, core.ClientID(p))
	}
	for _, o := range c.Observers {
		recipients = append(recipients, core.ClientID(o))
	}
	return recipients
}

// IsBot reports whether a player id belongs to one of the session's bots.
func (c Config) IsBot(player core.PlayerID) bool {
	for botID := range c.Bots {
		if botID.PlayerID() == player {
			return true
		}
	}
	return false
}

// AllPlayers returns the participant identities in their stable order:
// the host first, remaining humans sorted, then sorted bots. Replay
// player indices refer to this list, so live sessions and playback agree
// on who is who.
func (c Config) AllPlayers() []core.PlayerIdentity {
	humans := make([]core.PlayerID, len(c.HumanPlayers))
	copy(humans, c.HumanPlayers)
	hostPlayer := c.Host.PlayerID()
	sort.Slice(humans, func(i, j int) bool {
		if humans[i] == hostPlayer {
			return humans[j] != hostPlayer
		}
		if humans[j] == hostPlayer {
			return false
		}
		return humans[i] < humans[j]
	})

	bots := make([]core.BotID, 0, len(c.Bots))
	for botID := range c.Bots {
		bots = append(bots, botID)
	}
	sort.Slice(bots, func(i, j int) bool { return bots[i] < bots[j] })

	identities := make([]core.PlayerIdentity, 0, len(humans)+len(bots))
	for _, p := range humans {
		identities = append(identities, core.PlayerIdentity{PlayerID: p})
	}
	for _, b := range bots {
		identities = append(identities, core.PlayerIdentity{PlayerID: b.PlayerID(), IsBot: true})
	}
	return identities
}

// SortedBots returns the session's bots in stable id order.
func (c Config) SortedBots() []core.BotID {
	bots := make([]core.BotID, 0, len(c.Bots))
	for botID := range c.Bots {
		bots = append(bots, botID)
	}
	sort.Slice(bots, func(i, j int) bool { return bots[i] < bots[j] })
	return bots
}
