package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"footballhub/internal/alerts"
	"footballhub/internal/authz"
	"footballhub/internal/models"
	"footballhub/internal/phone"
	"footballhub/internal/providers"
	"footballhub/internal/reports"
	"footballhub/internal/repositories"
)

const (
	defaultReportWindow = 24 * time.Hour
	maxReportWindow     = 90 * 24 * time.Hour
)

type ProviderStatus interface {
	Status() []providers.Status
}

type PlanSource interface {
	Plans() map[string]models.ChannelPlan
}

type ReportBuilder interface {
	Summary(ctx context.Context, since time.Time) (*reports.Summary, error)
	RenderPDF(w io.Writer, sum *reports.Summary) error
}

// AdminHandler — служебный API: диагностика провайдеров, отчёт, ручная инвалидация кодов.
type AdminHandler struct {
	Providers ProviderStatus
	Plans     PlanSource
	Reports   ReportBuilder
	Store     repositories.OTPStore
	Alerts    alerts.Notifier
	DevMode   bool
	Logger    *slog.Logger
	Now       func() time.Time
}

func NewAdminHandler(
	ps ProviderStatus,
	plans PlanSource,
	rb ReportBuilder,
	store repositories.OTPStore,
	notifier alerts.Notifier,
	devMode bool,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		Providers: ps,
		Plans:     plans,
		Reports:   rb,
		Store:     store,
		Alerts:    notifier,
		DevMode:   devMode,
		Logger:    logger.With("component", "otp_admin"),
		Now:       time.Now,
	}
}

type ConfigStatusResponse struct {
	Providers     []providers.Status            `json:"providers"`
	Plans         map[string]models.ChannelPlan `json:"plans"`
	AnyConfigured bool                          `json:"anyConfigured"`
	DevMode       bool                          `json:"devMode"`
}

// @Summary      Статус провайдеров
// @Description  Какие адаптеры настроены и какие планы каналов действуют. Ничего не отправляет.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ConfigStatusResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /otp/config-status [get]
func (h *AdminHandler) ConfigStatus(c *gin.Context) {
	c.JSON(http.StatusOK, BuildConfigStatus(h.Providers, h.Plans, h.DevMode))
}

// BuildConfigStatus используется и хендлером, и CLI-командой config-status.
func BuildConfigStatus(ps ProviderStatus, plans PlanSource, devMode bool) ConfigStatusResponse {
	st := ps.Status()
	out := ConfigStatusResponse{Providers: st, Plans: plans.Plans(), DevMode: devMode}
	for _, s := range st {
		if s.Configured {
			out.AnyConfigured = true
			break
		}
	}
	return out
}

// @Summary      Отчёт о доставке (JSON)
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        window  query     string  false  "Окно, например 24h или 168h"
// @Success      200     {object}  reports.Summary
// @Failure      400     {object}  map[string]string
// @Failure      500     {object}  map[string]string
// @Router       /admin/otp/report [get]
func (h *AdminHandler) Report(c *gin.Context) {
	sum, ok := h.summary(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sum)
}

// @Summary      Отчёт о доставке (PDF)
// @Tags         Admin
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        window  query  string  false  "Окно, например 24h или 168h"
// @Success      200
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /admin/otp/report.pdf [get]
func (h *AdminHandler) ReportPDF(c *gin.Context) {
	sum, ok := h.summary(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.Reports.RenderPDF(&buf, sum); err != nil {
		h.Logger.ErrorContext(c.Request.Context(), "render report pdf", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render report"})
		return
	}
	name := fmt.Sprintf("otp-report-%s.pdf", sum.GeneratedAt.Format("20060102-1504"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *AdminHandler) summary(c *gin.Context) (*reports.Summary, bool) {
	window := defaultReportWindow
	if raw := c.Query("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 || d > maxReportWindow {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window"})
			return nil, false
		}
		window = d
	}
	sum, err := h.Reports.Summary(c.Request.Context(), h.Now().Add(-window))
	if err != nil {
		h.Logger.ErrorContext(c.Request.Context(), "build report", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
		return nil, false
	}
	return sum, true
}

type CodeState struct {
	Source    models.Channel `json:"source"`
	CreatedAt time.Time      `json:"createdAt"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Attempts  int            `json:"attempts"`
	Expired   bool           `json:"expired"`
}

// @Summary      Активные коды по номеру
// @Description  Состояние записей по каналам, без самих кодов
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        phone  path      string  true  "Номер в любом формате"
// @Success      200    {array}   CodeState
// @Failure      400    {object}  map[string]string
// @Failure      404    {object}  map[string]string
// @Router       /admin/otp/codes/{phone} [get]
func (h *AdminHandler) Codes(c *gin.Context) {
	phoneKey, ok := h.phoneParam(c)
	if !ok {
		return
	}
	now := h.Now()
	var out []CodeState
	for _, ch := range models.Channels {
		rec, err := h.Store.GetBySource(c.Request.Context(), phoneKey, ch)
		if err != nil {
			h.Logger.ErrorContext(c.Request.Context(), "read otp record", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read codes"})
			return
		}
		if rec == nil {
			continue
		}
		out = append(out, CodeState{
			Source:    rec.Source,
			CreatedAt: rec.CreatedAt,
			ExpiresAt: rec.ExpiresAt,
			Attempts:  rec.Attempts,
			Expired:   rec.Expired || rec.IsExpiredAt(now),
		})
	}
	if len(out) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no codes for this number"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary      Сбросить коды по номеру
// @Tags         Admin
// @Security     BearerAuth
// @Param        phone  path  string  true  "Номер в любом формате"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /admin/otp/codes/{phone} [delete]
func (h *AdminHandler) InvalidateCodes(c *gin.Context) {
	phoneKey, ok := h.phoneParam(c)
	if !ok {
		return
	}
	for _, ch := range models.Channels {
		if err := h.Store.Delete(c.Request.Context(), phoneKey, ch); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			h.Logger.ErrorContext(c.Request.Context(), "delete otp record", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to invalidate codes"})
			return
		}
	}
	userID, roleID := getUserAndRole(c)
	h.Logger.InfoContext(c.Request.Context(), "otp codes invalidated",
		"phone", phone.Mask(phoneKey), "by_user", userID, "by_role", authz.Name(roleID))
	c.Status(http.StatusNoContent)
}

// @Summary      Тестовый алерт
// @Description  Отправляет тестовое сообщение во все настроенные каналы оповещений
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      502  {object}  map[string]string
// @Router       /admin/otp/alerts/test [post]
func (h *AdminHandler) TestAlert(c *gin.Context) {
	userID, roleID := getUserAndRole(c)
	err := h.Alerts.Notify(c.Request.Context(), alerts.Alert{
		Subject: "OTP alerts test",
		Body:    fmt.Sprintf("test alert requested by user %d (%s)", userID, authz.Name(roleID)),
	})
	if err != nil {
		h.Logger.WarnContext(c.Request.Context(), "test alert failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AdminHandler) phoneParam(c *gin.Context) (string, bool) {
	phoneKey, _, err := phone.Normalize(c.Param("phone"))
	if err != nil && !errors.Is(err, phone.ErrUnknownCountry) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phone number"})
		return "", false
	}
	return phoneKey, true
}
