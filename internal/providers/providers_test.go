package providers_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"footballhub/internal/models"
	"footballhub/internal/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTexts(t *testing.T) *providers.Texts {
	t.Helper()
	texts, err := providers.NewTexts()
	require.NoError(t, err)
	return texts
}

func testMessage() providers.Message {
	return providers.Message{
		PhoneKey:    "+201001234567",
		Code:        "482913",
		DisplayName: "Omar",
		Lang:        "en",
		TTL:         5 * time.Minute,
	}
}

func TestMobizon_Send(t *testing.T) {
	var path string
	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		path = r.URL.Path
		form = r.PostForm
		_, _ = w.Write([]byte(`{"code":0,"data":{"messageId":12345},"message":""}`))
	}))
	defer srv.Close()

	m := providers.NewMobizon(providers.MobizonConfig{APIKey: "k", SenderID: "FHUB", BaseURL: srv.URL}, testTexts(t), quietLogger())
	res := m.Send(context.Background(), testMessage())

	require.True(t, res.OK, "err: %v", res.Err)
	assert.Equal(t, "12345", res.ProviderMessageID)
	assert.Equal(t, "/service/message/sendsmsmessage", path)
	assert.Equal(t, []string{"201001234567"}, form["recipient"])
	assert.Equal(t, []string{"k"}, form["apiKey"])
	assert.Equal(t, []string{"FHUB"}, form["from"])
	assert.Contains(t, form["text"][0], "482913")
	assert.Contains(t, form["text"][0], "Omar")
}

func TestMobizon_ErrorCodeIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":3,"message":"bad recipient"}`))
	}))
	defer srv.Close()

	m := providers.NewMobizon(providers.MobizonConfig{APIKey: "k", BaseURL: srv.URL}, testTexts(t), quietLogger())
	res := m.Send(context.Background(), testMessage())

	assert.False(t, res.OK)
	assert.Equal(t, providers.ErrorTransient, res.ErrorKind)
}

func TestMobizon_DryRunSkipsHTTP(t *testing.T) {
	m := providers.NewMobizon(providers.MobizonConfig{DryRun: true, BaseURL: "http://127.0.0.1:1"}, testTexts(t), quietLogger())

	require.NoError(t, m.Check())
	res := m.Send(context.Background(), testMessage())

	assert.True(t, res.OK)
	assert.Equal(t, "dry-run", res.ProviderMessageID)
}

func TestMissingCredentialsIsConfigurationError(t *testing.T) {
	texts := testTexts(t)
	cases := []providers.Provider{
		providers.NewMobizon(providers.MobizonConfig{}, texts, quietLogger()),
		providers.NewTemplatedSMS(providers.TemplatedSMSConfig{}, quietLogger()),
		providers.NewOTPSMS(providers.OTPSMSConfig{}, quietLogger()),
		providers.NewWhatsApp(providers.WhatsAppConfig{}, quietLogger()),
		providers.NewGreen(providers.GreenConfig{}, texts, quietLogger()),
	}
	for _, p := range cases {
		t.Run(p.Name(), func(t *testing.T) {
			require.ErrorIs(t, p.Check(), providers.ErrNotConfigured)

			res := p.Send(context.Background(), testMessage())

			assert.False(t, res.OK)
			assert.Equal(t, providers.ErrorConfiguration, res.ErrorKind)
		})
	}
}

func TestTemplatedSMS_Send(t *testing.T) {
	var body map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, "/api/v1/messages/template", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"success":true,"message_id":"tm-1"}`))
	}))
	defer srv.Close()

	p := providers.NewTemplatedSMS(providers.TemplatedSMSConfig{Token: "tok", TemplateID: "otp_v1", BaseURL: srv.URL}, quietLogger())
	res := p.Send(context.Background(), testMessage())

	require.True(t, res.OK, "err: %v", res.Err)
	assert.Equal(t, "tm-1", res.ProviderMessageID)
	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, "+201001234567", body["to"])
	assert.Equal(t, "otp_v1", body["template_id"])
	vars, ok := body["variables"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "482913", vars["code"])
}

func TestTemplatedSMS_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"template not approved"}`))
	}))
	defer srv.Close()

	p := providers.NewTemplatedSMS(providers.TemplatedSMSConfig{Token: "tok", TemplateID: "otp_v1", BaseURL: srv.URL}, quietLogger())
	res := p.Send(context.Background(), testMessage())

	assert.False(t, res.OK)
	assert.Equal(t, providers.ErrorTransient, res.ErrorKind)
	assert.Contains(t, res.Err.Error(), "template not approved")
}

func TestOTPSMS_Send(t *testing.T) {
	fields := map[string]string{}
	var token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = r.Header.Get("X-Api-Token")
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		_, _ = w.Write([]byte(`{"status":200,"message":"ok","data":{"reference":"ref-9"}}`))
	}))
	defer srv.Close()

	p := providers.NewOTPSMS(providers.OTPSMSConfig{Token: "tok", BaseURL: srv.URL}, quietLogger())
	res := p.Send(context.Background(), testMessage())

	require.True(t, res.OK, "err: %v", res.Err)
	assert.Equal(t, "ref-9", res.ProviderMessageID)
	assert.Equal(t, "tok", token)
	assert.Equal(t, "482913", fields["custom_code"])
	assert.Equal(t, "6", fields["otp_length"])
	assert.Equal(t, "sms", fields["type"])
	assert.Equal(t, "+201001234567", fields["phoneNumber"])
}

func TestOTPSMS_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":422,"message":"invalid number"}`))
	}))
	defer srv.Close()

	p := providers.NewOTPSMS(providers.OTPSMSConfig{Token: "tok", BaseURL: srv.URL}, quietLogger())
	res := p.Send(context.Background(), testMessage())

	assert.False(t, res.OK)
	assert.Equal(t, providers.ErrorTransient, res.ErrorKind)
}

func TestWhatsApp_Send(t *testing.T) {
	var body map[string]any
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	p := providers.NewWhatsApp(providers.WhatsAppConfig{
		Token: "tok", PhoneNumberID: "555", Template: "otp_auth", BaseURL: srv.URL, CopyButton: true,
	}, quietLogger())
	res := p.Send(context.Background(), testMessage())

	require.True(t, res.OK, "err: %v", res.Err)
	assert.Equal(t, "wamid.1", res.ProviderMessageID)
	assert.Equal(t, "/v21.0/555/messages", path)
	assert.Equal(t, "201001234567", body["to"])
	tpl := body["template"].(map[string]any)
	assert.Equal(t, "otp_auth", tpl["name"])
	assert.Len(t, tpl["components"], 2)
}

func TestWhatsApp_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Recipient not on WhatsApp","code":131026}}`))
	}))
	defer srv.Close()

	p := providers.NewWhatsApp(providers.WhatsAppConfig{Token: "tok", PhoneNumberID: "555", Template: "otp_auth", BaseURL: srv.URL}, quietLogger())
	res := p.Send(context.Background(), testMessage())

	assert.False(t, res.OK)
	assert.Equal(t, providers.ErrorTransient, res.ErrorKind)
	assert.Contains(t, res.Err.Error(), "131026")
}

func TestGreen_Send(t *testing.T) {
	var body map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"idMessage":"GR-7"}`))
	}))
	defer srv.Close()

	p := providers.NewGreen(providers.GreenConfig{InstanceID: "1101", Token: "secret", BaseURL: srv.URL}, testTexts(t), quietLogger())
	res := p.Send(context.Background(), testMessage())

	require.True(t, res.OK, "err: %v", res.Err)
	assert.Equal(t, "GR-7", res.ProviderMessageID)
	assert.Equal(t, "/waInstance1101/sendMessage/secret", path)
	assert.Equal(t, "201001234567@c.us", body["chatId"])
	assert.Contains(t, body["message"], "482913")
}

func TestGreen_MissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p := providers.NewGreen(providers.GreenConfig{InstanceID: "1101", Token: "secret", BaseURL: srv.URL}, testTexts(t), quietLogger())
	res := p.Send(context.Background(), testMessage())

	assert.False(t, res.OK)
	assert.Equal(t, providers.ErrorTransient, res.ErrorKind)
}

func TestTimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	p := providers.NewGreen(providers.GreenConfig{InstanceID: "1", Token: "t", BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, testTexts(t), quietLogger())
	res := p.Send(context.Background(), testMessage())

	assert.False(t, res.OK)
	assert.Equal(t, providers.ErrorTransient, res.ErrorKind)
}

func TestRegistry(t *testing.T) {
	texts := testTexts(t)
	unconfiguredSMS := providers.NewTemplatedSMS(providers.TemplatedSMSConfig{}, quietLogger())
	mobizon := providers.NewMobizon(providers.MobizonConfig{APIKey: "k"}, texts, quietLogger())
	wa := providers.NewWhatsApp(providers.WhatsAppConfig{}, quietLogger())

	r := providers.NewRegistry(unconfiguredSMS, mobizon, wa)

	p, ok := r.For(models.ChannelSMS)
	require.True(t, ok)
	assert.Equal(t, "mobizon", p.Name())

	p, ok = r.For(models.ChannelWhatsApp)
	require.True(t, ok)
	assert.Equal(t, "whatsapp_cloud", p.Name())
	assert.Error(t, p.Check())

	assert.Equal(t, []models.Channel{models.ChannelSMS}, r.ConfiguredChannels())
	assert.True(t, r.AnyConfigured())

	st := r.Status()
	require.Len(t, st, 3)
	assert.False(t, st[0].Configured)
	assert.NotEmpty(t, st[0].Error)
	assert.True(t, st[1].Configured)
}

func TestRegistry_Empty(t *testing.T) {
	r := providers.NewRegistry()

	_, ok := r.For(models.ChannelSMS)

	assert.False(t, ok)
	assert.False(t, r.AnyConfigured())
}

func TestTexts_Localized(t *testing.T) {
	texts := testTexts(t)

	msg := testMessage()
	msg.Lang = "ar-EG"
	ar := texts.OTP(msg)
	msg.Lang = "fr"
	en := texts.OTP(msg)

	assert.Contains(t, ar, "482913")
	assert.NotEqual(t, ar, en)
	assert.Contains(t, en, "expires in 5 min")
	assert.Equal(t, "ar", providers.ResolveLang("ar-SA"))
	assert.Equal(t, "en", providers.ResolveLang(""))
}
