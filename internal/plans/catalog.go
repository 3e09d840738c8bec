// Package plans holds the read-only subscription plan table.
package plans

import (
	_ "embed"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/baharkarakas/paycore/internal/models"
)

//go:embed plans.yaml
var defaultPlans []byte

const DefaultPlan = "FREE"

type Fee struct {
	Percentage decimal.Decimal `yaml:"percentage" json:"percentage"`
	Fixed      decimal.Decimal `yaml:"fixed" json:"fixed"`
}

type Plan struct {
	ID           string          `yaml:"id" json:"id"`
	Name         string          `yaml:"name" json:"name"`
	Price        decimal.Decimal `yaml:"price" json:"price"`
	TxnLimit     int             `yaml:"txn_limit" json:"txn_limit"`
	Fee          Fee             `yaml:"fee" json:"fee"`
	Features     []string        `yaml:"features" json:"features"`
	SupportLevel string          `yaml:"support_level" json:"support_level"`
}

func (p Plan) Unlimited() bool { return p.TxnLimit < 0 }

// PriceMinor is the monthly price in minor units.
func (p Plan) PriceMinor() (models.Money, error) { return models.FromDecimal(p.Price) }

// Catalog is immutable after construction and safe for concurrent use.
type Catalog struct {
	order []string
	byID  map[string]Plan
}

func Default() *Catalog {
	c, err := Parse(defaultPlans)
	if err != nil {
		panic(fmt.Sprintf("plans: embedded catalog: %v", err))
	}
	return c
}

func Parse(b []byte) (*Catalog, error) {
	var list []Plan
	if err := yaml.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	c := &Catalog{byID: make(map[string]Plan, len(list))}
	for _, p := range list {
		if p.ID == "" {
			return nil, fmt.Errorf("plan without id")
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate plan %s", p.ID)
		}
		if _, err := p.PriceMinor(); err != nil {
			return nil, fmt.Errorf("plan %s: %w", p.ID, err)
		}
		c.byID[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

func (c *Catalog) Get(id string) (Plan, bool) {
	p, ok := c.byID[id]
	return p, ok
}

func (c *Catalog) List() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}
