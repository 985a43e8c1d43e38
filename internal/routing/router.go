// Package routing maps a calling code to the channel plan used for delivery.
package routing

import (
	"footballhub/internal/models"
	"footballhub/internal/phone"
)

const (
	UnknownCountryDefault = "default"
	UnknownCountryReject  = "reject"
)

type Config struct {
	Default        models.ChannelPlan            `yaml:"default"`
	DualCountries  []string                      `yaml:"dual_countries"`
	Overrides      map[string]models.ChannelPlan `yaml:"overrides"`
	UnknownCountry string                        `yaml:"unknown_country"`
}

// Router is a static lookup built once at startup. Channels without a
// configured provider are demoted when the plan has somewhere else to go.
type Router struct {
	def           models.ChannelPlan
	dual          map[string]struct{}
	overrides     map[string]models.ChannelPlan
	available     map[models.Channel]bool
	rejectUnknown bool
}

func NewRouter(cfg Config, available ...models.Channel) *Router {
	r := &Router{
		def:           cfg.Default,
		dual:          make(map[string]struct{}, len(cfg.DualCountries)),
		overrides:     make(map[string]models.ChannelPlan, len(cfg.Overrides)),
		available:     make(map[models.Channel]bool, len(available)),
		rejectUnknown: cfg.UnknownCountry == UnknownCountryReject,
	}
	if r.def.Primary == models.ChannelNone {
		r.def = models.ChannelPlan{Primary: models.ChannelWhatsApp}
	}
	for _, cc := range cfg.DualCountries {
		r.dual[cc] = struct{}{}
	}
	for cc, p := range cfg.Overrides {
		r.overrides[cc] = p
	}
	for _, ch := range available {
		r.available[ch] = true
	}
	return r
}

// Route returns the effective plan for a calling code.
func (r *Router) Route(countryCode string) models.ChannelPlan {
	return r.degrade(r.base(countryCode))
}

// RouteUnknown handles numbers whose calling code is not in the table.
func (r *Router) RouteUnknown() (models.ChannelPlan, error) {
	if r.rejectUnknown {
		return models.ChannelPlan{}, phone.ErrUnknownCountry
	}
	return r.degrade(r.def), nil
}

func (r *Router) base(countryCode string) models.ChannelPlan {
	if p, ok := r.overrides[countryCode]; ok {
		return p
	}
	if _, ok := r.dual[countryCode]; ok {
		return models.ChannelPlan{Primary: models.ChannelSMS, Fallback: models.ChannelWhatsApp, Dual: true}
	}
	return r.def
}

func (r *Router) degrade(p models.ChannelPlan) models.ChannelPlan {
	if p.Dual {
		primaryOK, secondOK := r.available[p.Primary], r.available[p.Fallback]
		switch {
		case primaryOK && secondOK:
			return p
		case primaryOK:
			return models.ChannelPlan{Primary: p.Primary}
		case secondOK:
			return models.ChannelPlan{Primary: p.Fallback}
		}
		return p
	}

	if !r.available[p.Primary] && p.Fallback != models.ChannelNone && r.available[p.Fallback] {
		return models.ChannelPlan{Primary: p.Fallback}
	}
	if p.Fallback != models.ChannelNone && !r.available[p.Fallback] {
		p.Fallback = models.ChannelNone
	}
	return p
}

// Plans reports the effective plan of every explicitly configured country
// plus the default; used by the config status endpoint.
func (r *Router) Plans() map[string]models.ChannelPlan {
	out := map[string]models.ChannelPlan{"default": r.degrade(r.def)}
	for cc := range r.dual {
		out[cc] = r.Route(cc)
	}
	for cc := range r.overrides {
		out[cc] = r.Route(cc)
	}
	return out
}
