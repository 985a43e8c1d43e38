package routing_test

import (
	"testing"

	"footballhub/internal/models"
	"footballhub/internal/phone"
	"footballhub/internal/routing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig() routing.Config {
	return routing.Config{
		Default:       models.ChannelPlan{Primary: models.ChannelWhatsApp},
		DualCountries: []string{"20"},
		Overrides: map[string]models.ChannelPlan{
			"971": {Primary: models.ChannelWhatsApp, Fallback: models.ChannelSMS},
		},
	}
}

func TestRoute_DefaultWhatsAppOnly(t *testing.T) {
	r := routing.NewRouter(defaultConfig(), models.ChannelSMS, models.ChannelWhatsApp)

	p := r.Route("966")

	assert.Equal(t, models.ChannelPlan{Primary: models.ChannelWhatsApp}, p)
}

func TestRoute_DualCountry(t *testing.T) {
	r := routing.NewRouter(defaultConfig(), models.ChannelSMS, models.ChannelWhatsApp)

	p := r.Route("20")

	assert.True(t, p.Dual)
	assert.ElementsMatch(t, []models.Channel{models.ChannelSMS, models.ChannelWhatsApp}, p.Channels())
}

func TestRoute_DualDegradesToAvailableSide(t *testing.T) {
	r := routing.NewRouter(defaultConfig(), models.ChannelWhatsApp)

	p := r.Route("20")

	assert.Equal(t, models.ChannelPlan{Primary: models.ChannelWhatsApp}, p)
}

func TestRoute_PrimaryDemotedToFallback(t *testing.T) {
	r := routing.NewRouter(defaultConfig(), models.ChannelSMS)

	p := r.Route("971")

	assert.Equal(t, models.ChannelPlan{Primary: models.ChannelSMS}, p)
}

func TestRoute_UnavailableFallbackDropped(t *testing.T) {
	r := routing.NewRouter(defaultConfig(), models.ChannelWhatsApp)

	p := r.Route("971")

	assert.Equal(t, models.ChannelPlan{Primary: models.ChannelWhatsApp}, p)
}

func TestRoute_NothingAvailableKeepsPlan(t *testing.T) {
	r := routing.NewRouter(defaultConfig())

	p := r.Route("966")

	assert.Equal(t, models.ChannelWhatsApp, p.Primary)
}

func TestRouteUnknown(t *testing.T) {
	r := routing.NewRouter(defaultConfig(), models.ChannelWhatsApp)
	p, err := r.RouteUnknown()
	require.NoError(t, err)
	assert.Equal(t, models.ChannelWhatsApp, p.Primary)

	cfg := defaultConfig()
	cfg.UnknownCountry = routing.UnknownCountryReject
	r = routing.NewRouter(cfg, models.ChannelWhatsApp)
	_, err = r.RouteUnknown()
	assert.ErrorIs(t, err, phone.ErrUnknownCountry)
}

func TestPlans(t *testing.T) {
	r := routing.NewRouter(defaultConfig(), models.ChannelSMS, models.ChannelWhatsApp)

	plans := r.Plans()

	assert.Contains(t, plans, "default")
	assert.Contains(t, plans, "20")
	assert.Contains(t, plans, "971")
	assert.True(t, plans["20"].Dual)
}
