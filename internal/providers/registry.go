package providers

import "footballhub/internal/models"

// Status: диагностика одного адаптера для /otp/config-status.
type Status struct {
	Name       string         `json:"name"`
	Channel    models.Channel `json:"channel"`
	Configured bool           `json:"configured"`
	Error      string         `json:"error,omitempty"`
}

// Registry picks the adapter used for each channel. Adapters are tried in
// registration order; the first one whose Check passes wins.
type Registry struct {
	all []Provider
}

func NewRegistry(ps ...Provider) *Registry {
	r := &Registry{}
	for _, p := range ps {
		if p != nil {
			r.all = append(r.all, p)
		}
	}
	return r
}

// For returns the configured adapter for ch. If none passes Check, the first
// registered one is returned so the caller still gets a configuration_error
// result with the proper provider name.
func (r *Registry) For(ch models.Channel) (Provider, bool) {
	var first Provider
	for _, p := range r.all {
		if p.Channel() != ch {
			continue
		}
		if p.Check() == nil {
			return p, true
		}
		if first == nil {
			first = p
		}
	}
	return first, first != nil
}

func (r *Registry) Status() []Status {
	out := make([]Status, 0, len(r.all))
	for _, p := range r.all {
		st := Status{Name: p.Name(), Channel: p.Channel(), Configured: true}
		if err := p.Check(); err != nil {
			st.Configured = false
			st.Error = err.Error()
		}
		out = append(out, st)
	}
	return out
}

// ConfiguredChannels lists channels that have at least one usable adapter.
func (r *Registry) ConfiguredChannels() []models.Channel {
	var out []models.Channel
	for _, ch := range models.Channels {
		if p, ok := r.For(ch); ok && p.Check() == nil {
			out = append(out, ch)
		}
	}
	return out
}

func (r *Registry) AnyConfigured() bool {
	return len(r.ConfiguredChannels()) > 0
}
