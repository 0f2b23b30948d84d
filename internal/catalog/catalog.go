// Package catalog holds the read-only merchant, product and staff reference
// data that order creation and merchant login consult.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/giftlink/internal/model"
	"github.com/fairyhunter13/giftlink/pkg/auth"
)

type seedFile struct {
	Merchants     []model.Merchant `yaml:"merchants"`
	Products      []seedProduct    `yaml:"products"`
	MerchantUsers []seedUser       `yaml:"merchant_users"`
}

type seedProduct struct {
	model.GiftProduct `yaml:",inline"`
	Price             string `yaml:"price"`
}

type seedUser struct {
	ID           string             `yaml:"id"`
	MerchantID   string             `yaml:"merchant_id"`
	Role         model.MerchantRole `yaml:"role"`
	Email        string             `yaml:"email"`
	IsActive     bool               `yaml:"is_active"`
	PasswordHash string             `yaml:"password_hash"`
	// Password is hashed at load time; only meant for local demo seeds.
	Password string `yaml:"password"`
}

// Catalog is an immutable in-memory view of the seed data. It is safe for
// concurrent use.
type Catalog struct {
	merchants     map[string]*model.Merchant
	merchantOrder []string
	products      map[string]*model.GiftProduct
	productOrder  []string
	usersByEmail  map[string]*model.MerchantUser
}

// LoadFile reads and parses a YAML seed file.
func LoadFile(path string, params auth.ArgonParams) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	return Parse(data, params)
}

// Parse builds a Catalog from YAML. Plain passwords in the seed are hashed
// with params.
func Parse(data []byte, params auth.ArgonParams) (*Catalog, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	c := &Catalog{
		merchants:    make(map[string]*model.Merchant),
		products:     make(map[string]*model.GiftProduct),
		usersByEmail: make(map[string]*model.MerchantUser),
	}
	for i := range seed.Merchants {
		m := seed.Merchants[i]
		if m.ID == "" {
			return nil, errors.New("merchant id is required")
		}
		if _, dup := c.merchants[m.ID]; dup {
			return nil, fmt.Errorf("duplicate merchant %q", m.ID)
		}
		if m.CreditMinAmount < 0 || m.CreditMaxAmount < 0 ||
			(m.CreditMaxAmount > 0 && m.CreditMinAmount > m.CreditMaxAmount) {
			return nil, fmt.Errorf("merchant %q has invalid credit bounds", m.ID)
		}
		c.merchants[m.ID] = &m
		c.merchantOrder = append(c.merchantOrder, m.ID)
	}

	for _, sp := range seed.Products {
		p := sp.GiftProduct
		if p.ID == "" {
			return nil, errors.New("product id is required")
		}
		if _, dup := c.products[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product %q", p.ID)
		}
		if _, ok := c.merchants[p.MerchantID]; !ok {
			return nil, fmt.Errorf("product %q references unknown merchant %q", p.ID, p.MerchantID)
		}
		price, err := decimal.NewFromString(sp.Price)
		if err != nil || !price.IsPositive() {
			return nil, fmt.Errorf("product %q has invalid price %q", p.ID, sp.Price)
		}
		p.Price = price
		c.products[p.ID] = &p
		c.productOrder = append(c.productOrder, p.ID)
	}

	for _, su := range seed.MerchantUsers {
		user, err := buildUser(su, params)
		if err != nil {
			return nil, err
		}
		if _, ok := c.merchants[user.MerchantID]; !ok {
			return nil, fmt.Errorf("merchant user %q references unknown merchant %q", user.ID, user.MerchantID)
		}
		key := strings.ToLower(user.Email)
		if _, dup := c.usersByEmail[key]; dup {
			return nil, fmt.Errorf("duplicate merchant user email %q", user.Email)
		}
		c.usersByEmail[key] = user
	}
	return c, nil
}

func buildUser(su seedUser, params auth.ArgonParams) (*model.MerchantUser, error) {
	if su.ID == "" || strings.TrimSpace(su.Email) == "" {
		return nil, errors.New("merchant user id and email are required")
	}
	if !su.Role.IsValid() {
		return nil, fmt.Errorf("merchant user %q has invalid role %q", su.ID, su.Role)
	}
	hash := su.PasswordHash
	if hash == "" {
		if su.Password == "" {
			return nil, fmt.Errorf("merchant user %q needs password_hash or password", su.ID)
		}
		var err error
		hash, err = auth.HashPassword(su.Password, params)
		if err != nil {
			return nil, fmt.Errorf("hash password for %q: %w", su.ID, err)
		}
	}
	return &model.MerchantUser{
		ID:           su.ID,
		MerchantID:   su.MerchantID,
		Role:         su.Role,
		Email:        strings.TrimSpace(su.Email),
		IsActive:     su.IsActive,
		PasswordHash: hash,
	}, nil
}

// GetMerchant returns a copy of the merchant, or nil when unknown.
func (c *Catalog) GetMerchant(_ context.Context, id string) (*model.Merchant, error) {
	m, ok := c.merchants[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

// GetProduct returns a copy of the product, or nil when unknown.
func (c *Catalog) GetProduct(_ context.Context, id string) (*model.GiftProduct, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// GetMerchantUserByEmail matches the email case-insensitively.
func (c *Catalog) GetMerchantUserByEmail(_ context.Context, email string) (*model.MerchantUser, error) {
	u, ok := c.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// ListMerchants returns active merchants, optionally filtered by city
// (case-insensitive) and by having an active product in category.
func (c *Catalog) ListMerchants(_ context.Context, city, category string) ([]model.Merchant, error) {
	var withCategory map[string]bool
	if category != "" {
		withCategory = make(map[string]bool)
		for _, p := range c.products {
			if p.IsActive && p.Category == category {
				withCategory[p.MerchantID] = true
			}
		}
	}

	out := []model.Merchant{}
	for _, id := range c.merchantOrder {
		m := c.merchants[id]
		if !m.IsActive {
			continue
		}
		if city != "" && !strings.EqualFold(m.City, city) {
			continue
		}
		if withCategory != nil && !withCategory[m.ID] {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

// ListProducts returns active products. Empty merchantID or category means
// no filter on that field.
func (c *Catalog) ListProducts(_ context.Context, merchantID, category string) ([]model.GiftProduct, error) {
	out := []model.GiftProduct{}
	for _, id := range c.productOrder {
		p := c.products[id]
		if !p.IsActive {
			continue
		}
		if merchantID != "" && p.MerchantID != merchantID {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		if m := c.merchants[p.MerchantID]; m == nil || !m.IsActive {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

// Categories returns the distinct categories of active products, sorted.
func (c *Catalog) Categories() []string {
	set := make(map[string]struct{})
	for _, p := range c.products {
		if p.IsActive && p.Category != "" {
			set[p.Category] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for cat := range set {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}
