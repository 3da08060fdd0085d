package roles

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Haibread/voicekeep/logging"
	"go.uber.org/zap"
)

var log *zap.SugaredLogger

func init() {
	log = logging.InitLogger()
}

// Mapper maps roster role names onto guild role ids by prefix. Prefixes
// match case-insensitively; keys decoded from config.yaml arrive lower-cased.
type Mapper struct {
	mu      sync.RWMutex
	mapping map[string]string
}

func NewMapper(mapping map[string]string) *Mapper {
	m := &Mapper{}
	m.SetMapping(mapping)
	return m
}

// SetMapping replaces the prefix table.
func (m *Mapper) SetMapping(mapping map[string]string) {
	normalized := make(map[string]string, len(mapping))
	for prefix, roleID := range mapping {
		normalized[strings.ToLower(prefix)] = roleID
	}
	m.mu.Lock()
	m.mapping = normalized
	m.mu.Unlock()
}

// Map returns the sorted, de-duplicated role ids whose prefix starts any of
// the roster roles.
func (m *Mapper) Map(rosterRoles []string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := make(map[string]struct{})
	for prefix, roleID := range m.mapping {
		for _, role := range rosterRoles {
			if strings.HasPrefix(strings.ToLower(role), prefix) {
				set[roleID] = struct{}{}
				break
			}
		}
	}

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Guild is the platform capability the Granter needs.
type Guild interface {
	GuildRoleIDs(ctx context.Context, guildID string) (map[string]bool, error)
	AddRole(ctx context.Context, guildID, userID, roleID string) error
}

type Granter struct {
	guild Guild
}

func NewGranter(guild Guild) *Granter {
	return &Granter{guild: guild}
}

// Grant adds every role to the member. It returns false without granting
// anything when one of the roles does not exist in the guild.
func (g *Granter) Grant(ctx context.Context, guildID, userID string, roleIDs []string) (bool, error) {
	known, err := g.guild.GuildRoleIDs(ctx, guildID)
	if err != nil {
		return false, fmt.Errorf("list roles of guild %v: %w", guildID, err)
	}
	for _, id := range roleIDs {
		if !known[id] {
			log.Warnf("Role %v is not defined on guild %v", id, guildID)
			return false, nil
		}
	}

	for _, id := range roleIDs {
		if err := g.guild.AddRole(ctx, guildID, userID, id); err != nil {
			return false, fmt.Errorf("grant role %v to %v: %w", id, userID, err)
		}
	}
	log.Infof("Granted %d roles to %v", len(roleIDs), userID)
	return true, nil
}
