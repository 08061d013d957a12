package cache

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	creditdomain "github.com/scailup/creditcore/internal/credit/domain"
)

const defaultPlanTTL = 45 * time.Second

// PlanCache stores hot-path plan lookups for balance reads. It only ever
// backs display snapshots; consumption re-reads the plan under its own
// transaction.
type PlanCache interface {
	GetPlan(clientID snowflake.ID, module creditdomain.Module, creditType creditdomain.CreditType) (*creditdomain.Plan, bool)
	SetPlan(clientID snowflake.ID, module creditdomain.Module, creditType creditdomain.CreditType, plan *creditdomain.Plan)
}

type planCache struct {
	plans Cache[string, *creditdomain.Plan]
	ttl   time.Duration
}

// NewPlanCache returns an in-memory cache tuned for the balance endpoint.
func NewPlanCache() PlanCache {
	return &planCache{
		plans: NewTTLCache[string, *creditdomain.Plan](),
		ttl:   defaultPlanTTL,
	}
}

func (c *planCache) GetPlan(clientID snowflake.ID, module creditdomain.Module, creditType creditdomain.CreditType) (*creditdomain.Plan, bool) {
	return c.plans.Get(cacheKey(clientID.String(), string(module), string(creditType)))
}

func (c *planCache) SetPlan(clientID snowflake.ID, module creditdomain.Module, creditType creditdomain.CreditType, plan *creditdomain.Plan) {
	if plan == nil {
		return
	}
	c.plans.Set(cacheKey(clientID.String(), string(module), string(creditType)), plan, c.ttl)
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, strings.ToLower(trimmed))
	}
	return strings.Join(values, "|")
}
