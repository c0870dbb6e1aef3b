package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mx-space/comments/internal/models"
	"github.com/mx-space/comments/internal/modules/content/comment"
	"github.com/mx-space/comments/internal/pkg/pagination"
	"github.com/mx-space/comments/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNoEvents      = errors.New("webhook: no valid events")
	ErrEventNotFound = errors.New("webhook: event not found")
	ErrHookNotFound  = errors.New("webhook: hook not found")
	ErrHookDisabled  = errors.New("webhook: hook is disabled")
)

// Service handles webhook CRUD and delivery.
type Service struct {
	db     *gorm.DB
	client *http.Client
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.Named("Webhook"),
	}
}

func (s *Service) List(ctx context.Context) ([]models.WebhookModel, error) {
	var items []models.WebhookModel
	return items, s.db.WithContext(ctx).Order("created_at DESC").Find(&items).Error
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.WebhookModel, error) {
	var w models.WebhookModel
	if err := s.db.WithContext(ctx).First(&w, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

// Create stores a webhook. A random secret is generated when none is given.
func (s *Service) Create(ctx context.Context, dto *CreateWebhookDTO) (*models.WebhookModel, error) {
	events := normalizeWebhookEvents(dto.Events)
	if len(events) == 0 {
		return nil, ErrNoEvents
	}

	secret := strings.TrimSpace(dto.Secret)
	if secret == "" {
		secretBytes := make([]byte, 20)
		if _, err := rand.Read(secretBytes); err != nil {
			return nil, err
		}
		secret = hex.EncodeToString(secretBytes)
	}

	w := models.WebhookModel{
		PayloadURL: dto.PayloadURL,
		Events:     events,
		Secret:     secret,
		Enabled:    true,
	}
	if err := s.db.WithContext(ctx).Create(&w).Error; err != nil {
		return nil, err
	}
	// the column default would turn a zero value back into true on insert
	if dto.Enabled != nil && !*dto.Enabled {
		if err := s.db.WithContext(ctx).Model(&w).Update("enabled", false).Error; err != nil {
			return nil, err
		}
	}
	return &w, nil
}

func (s *Service) Update(ctx context.Context, id string, dto *UpdateWebhookDTO) (*models.WebhookModel, error) {
	w, err := s.GetByID(ctx, id)
	if err != nil || w == nil {
		return w, err
	}
	updates := map[string]interface{}{}
	if dto.PayloadURL != nil {
		updates["payload_url"] = *dto.PayloadURL
	}
	if dto.Events != nil {
		events := normalizeWebhookEvents(dto.Events)
		if len(events) == 0 {
			return nil, ErrNoEvents
		}
		updates["events"] = models.StringArray(events)
	}
	if dto.Enabled != nil {
		updates["enabled"] = *dto.Enabled
	}
	if dto.Secret != nil {
		updates["secret"] = strings.TrimSpace(*dto.Secret)
	}
	if len(updates) == 0 {
		return w, nil
	}
	if err := s.db.WithContext(ctx).Model(w).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&models.WebhookModel{}, "id = ?", id).Error
}

// Dispatch sends an event payload to all matching, enabled webhooks. Delivery
// happens in the background; Wait blocks until it is done.
func (s *Service) Dispatch(ctx context.Context, event string, payload interface{}) error {
	var hooks []models.WebhookModel
	if err := s.db.WithContext(ctx).Where("enabled = ?", true).Find(&hooks).Error; err != nil {
		return err
	}

	// the payload is encoded here because callers may mutate it once we return
	var body []byte
	for _, hook := range hooks {
		if !webhookContainsEvent(hook.Events, event) {
			continue
		}
		if body == nil {
			encoded, err := json.Marshal(payload)
			if err != nil {
				return fmt.Errorf("encode webhook payload: %w", err)
			}
			body = encoded
		}
		s.wg.Add(1)
		go func(hook models.WebhookModel) {
			defer s.wg.Done()
			s.deliver(hook, event, body)
		}(hook)
	}
	return nil
}

// Hook returns a comment hook that dispatches event with the comment as payload.
func (s *Service) Hook(event string) comment.Hook {
	return comment.HookFunc(func(ctx context.Context, c *models.CommentModel) error {
		return s.Dispatch(ctx, event, c)
	})
}

// Wait blocks until every pending delivery has finished.
func (s *Service) Wait() { s.wg.Wait() }

func (s *Service) deliver(hook models.WebhookModel, event string, body []byte) {
	payloadString := string(body)

	headers := map[string]string{
		"X-Webhook-Signature":    signWithHash(sha1.New, hook.Secret, payloadString),
		"X-Webhook-Event":        event,
		"X-Webhook-Id":           hook.ID,
		"X-Webhook-Timestamp":    strconv.FormatInt(time.Now().UnixMilli(), 10),
		"X-Webhook-Signature256": signWithHash(sha256.New, hook.Secret, payloadString),
	}

	req, err := http.NewRequest(http.MethodPost, hook.PayloadURL, bytes.NewReader(body))
	if err != nil {
		s.logEvent(hook.ID, event, headers, payloadString, nil, false, 0, err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("webhook delivery failed", zap.String("hook", hook.ID), zap.String("event", event), zap.Error(err))
		s.logEvent(hook.ID, event, headers, payloadString, nil, false, 0, err.Error())
		return
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	s.logEvent(hook.ID, event, headers, payloadString, map[string]interface{}{
		"headers":   resp.Header,
		"data":      parseJSONOrString(bodyBytes),
		"timestamp": time.Now().UnixMilli(),
		"status":    resp.Status,
	}, resp.StatusCode >= 200 && resp.StatusCode < 300, resp.StatusCode, "")
}

func (s *Service) logEvent(hookID, event string, headers map[string]string, payload string, respData interface{}, success bool, status int, errMsg string) {
	log := models.WebhookEventModel{
		HookID:    hookID,
		Event:     event,
		Headers:   toJSONString(headers),
		Payload:   payload,
		Response:  toJSONString(respData),
		Success:   success,
		Status:    status,
		Timestamp: time.Now(),
	}
	if errMsg != "" {
		log.Response = toJSONString(map[string]interface{}{"error": errMsg})
	}
	if err := s.db.Create(&log).Error; err != nil {
		s.logger.Error("failed to record webhook delivery", zap.String("hook", hookID), zap.Error(err))
	}
}

func (s *Service) ListEvents(ctx context.Context, q pagination.Query, hookID *string) ([]models.WebhookEventModel, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.WebhookEventModel{}).Order("timestamp DESC")
	if hookID != nil {
		tx = tx.Where("hook_id = ?", *hookID)
	}
	var items []models.WebhookEventModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

func (s *Service) GetEventByID(ctx context.Context, id string) (*models.WebhookEventModel, error) {
	var item models.WebhookEventModel
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// Redispatch delivers a recorded event again to its hook.
func (s *Service) Redispatch(ctx context.Context, eventID string) error {
	event, err := s.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event == nil {
		return ErrEventNotFound
	}
	hook, err := s.GetByID(ctx, event.HookID)
	if err != nil {
		return err
	}
	if hook == nil {
		return ErrHookNotFound
	}
	if !hook.Enabled {
		return ErrHookDisabled
	}
	body := []byte(event.Payload)
	if !json.Valid(body) {
		if body, err = json.Marshal(event.Payload); err != nil {
			return err
		}
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deliver(*hook, event.Event, body)
	}()
	return nil
}

func (s *Service) ClearEventsByHookID(ctx context.Context, hookID string) error {
	return s.db.WithContext(ctx).Where("hook_id = ?", hookID).Delete(&models.WebhookEventModel{}).Error
}

// normalizeWebhookEvents deduplicates events, uppercases them, and validates
// each against the accepted set. The special value "all" short-circuits.
func normalizeWebhookEvents(events []string) []string {
	if len(events) == 0 {
		return []string{}
	}

	seen := map[string]struct{}{}
	out := make([]string, 0, len(events))
	for _, event := range events {
		next := strings.TrimSpace(event)
		if next == "" {
			continue
		}
		if strings.EqualFold(next, "all") {
			return []string{"all"}
		}
		next = strings.ToUpper(next)
		if _, ok := acceptedWebhookEvents[next]; !ok {
			continue
		}
		if _, ok := seen[next]; ok {
			continue
		}
		seen[next] = struct{}{}
		out = append(out, next)
	}
	return out
}

func webhookContainsEvent(events []string, event string) bool {
	return models.StringArray(events).ContainsFold("all") || models.StringArray(events).ContainsFold(event)
}

func toResponse(w *models.WebhookModel) webhookResponse {
	events := []string(w.Events)
	if events == nil {
		events = []string{}
	}
	return webhookResponse{
		ID: w.ID, PayloadURL: w.PayloadURL, Events: events,
		Enabled: w.Enabled, Created: w.CreatedAt, Modified: w.UpdatedAt,
	}
}

func parseJSONOrString(data []byte) interface{} {
	if len(data) == 0 {
		return ""
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err == nil {
		return out
	}
	return string(data)
}

func toJSONString(v interface{}) string {
	if v == nil {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func signWithHash(newHash func() hash.Hash, secret, payload string) string {
	mac := hmac.New(newHash, []byte(secret))
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign returns the hex HMAC-SHA256 of payload, as sent in X-Webhook-Signature256.
func Sign(secret string, payload []byte) string {
	return signWithHash(sha256.New, secret, string(payload))
}
