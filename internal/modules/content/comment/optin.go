package comment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mx-space/comments/internal/models"
	"github.com/mx-space/comments/internal/pkg/mail"
	"github.com/mx-space/comments/internal/pkg/metrics"
	"github.com/mx-space/comments/internal/pkg/optin"
	"go.uber.org/zap"
)

// SubscriptionTTL is how long a subscription may stay unconfirmed.
const SubscriptionTTL = 24 * time.Hour

// TokenService issues and resolves double opt-in tokens.
type TokenService interface {
	Create(ctx context.Context, prefix, email string, related map[string][]string) (*optin.Token, error)
	Find(ctx context.Context, identifier string) (*optin.Token, error)
}

// OptInWorkflow manages thread subscriptions: the opt-in mail, confirmation
// and removal links, the fan-out to subscribers and the purge of stale
// requests.
type OptInWorkflow struct {
	comments *CommentStore
	subs     *SubscriptionStore
	tokens   TokenService
	mailer   mail.Mailer
	site     Site
	logger   *zap.Logger
}

func NewOptInWorkflow(comments *CommentStore, subs *SubscriptionStore, tokens TokenService, mailer mail.Mailer, site Site, logger *zap.Logger) *OptInWorkflow {
	return &OptInWorkflow{
		comments: comments,
		subs:     subs,
		tokens:   tokens,
		mailer:   mailer,
		site:     site,
		logger:   logger.Named("OptInWorkflow"),
	}
}

// Subscribe records an unconfirmed subscription of the comment author to the
// thread and mails the opt-in link. It does nothing when the address is
// already subscribed.
func (w *OptInWorkflow) Subscribe(ctx context.Context, c *models.CommentModel, pageURL string) error {
	existing, err := w.subs.FindByKey(ctx, c.Source, c.Parent, c.Email)
	if err != nil {
		return fmt.Errorf("find subscription: %w", err)
	}
	if existing != nil {
		return nil
	}

	sub := &models.SubscriptionModel{
		Source: c.Source,
		Parent: c.Parent,
		Name:   c.Name,
		Email:  c.Email,
		URL:    pageURL,
	}
	if err := w.subs.Create(ctx, sub); err != nil {
		if isDuplicateKey(err) {
			return nil
		}
		return fmt.Errorf("create subscription: %w", err)
	}
	metrics.SubscriptionEvents.WithLabelValues("created").Inc()

	token, err := w.tokens.Create(ctx, optInPrefix, c.Email, map[string][]string{relatedTable: {sub.ID}})
	if err != nil {
		return w.discard(ctx, sub, fmt.Errorf("create opt-in token: %w", err))
	}

	text := optInText(c.Name, displayURL(pageURL),
		withToken(pageURL, token.Identifier()),
		withToken(pageURL, sub.TokenRemove))
	if err := token.Send(ctx, optInSubject(displayHost(pageURL, w.site.Name)), text); err != nil {
		metrics.MailErrors.WithLabelValues("optin").Inc()
		return w.discard(ctx, sub, fmt.Errorf("send opt-in mail: %w", err))
	}
	metrics.NotificationsSent.WithLabelValues("optin").Inc()
	return nil
}

// discard removes a subscription whose opt-in mail never went out, so the
// next comment can subscribe the address again.
func (w *OptInWorkflow) discard(ctx context.Context, sub *models.SubscriptionModel, cause error) error {
	if err := w.subs.Delete(context.WithoutCancel(ctx), sub); err != nil {
		return errors.Join(cause, fmt.Errorf("remove subscription: %w", err))
	}
	return cause
}

// ConfirmOrRevoke resolves a token from a mailed link. Problems with the
// token are reported as a result, not an error.
func (w *OptInWorkflow) ConfirmOrRevoke(ctx context.Context, token string) (ConfirmationResult, error) {
	switch {
	case strings.HasPrefix(token, optInPrefix+"-"):
		return w.confirm(ctx, token)
	case strings.HasPrefix(token, removalPrefix):
		return w.revoke(ctx, token)
	default:
		return ConfirmationInvalid, nil
	}
}

func (w *OptInWorkflow) confirm(ctx context.Context, identifier string) (ConfirmationResult, error) {
	token, err := w.tokens.Find(ctx, identifier)
	if err != nil {
		return ConfirmationInvalid, fmt.Errorf("find opt-in token: %w", err)
	}
	if token == nil || !token.IsValid() {
		return ConfirmationInvalid, nil
	}

	related := token.RelatedRecords()
	ids, ok := related[relatedTable]
	if len(related) != 1 || !ok || len(ids) != 1 {
		return ConfirmationInvalid, nil
	}
	sub, err := w.subs.FindByID(ctx, ids[0])
	if err != nil {
		return ConfirmationInvalid, fmt.Errorf("find subscription: %w", err)
	}
	if sub == nil {
		return ConfirmationInvalid, nil
	}

	if token.IsConfirmed() {
		return ConfirmationAlreadyConfirmed, nil
	}
	if token.Email() != sub.Email {
		return ConfirmationEmailMismatch, nil
	}

	if err := token.Confirm(ctx); err != nil {
		switch {
		case errors.Is(err, optin.ErrAlreadyConfirmed):
			return ConfirmationAlreadyConfirmed, nil
		case errors.Is(err, optin.ErrExpired):
			return ConfirmationInvalid, nil
		}
		return ConfirmationInvalid, fmt.Errorf("confirm opt-in token: %w", err)
	}
	sub.Active = true
	if err := w.subs.Save(ctx, sub); err != nil {
		return ConfirmationInvalid, fmt.Errorf("activate subscription: %w", err)
	}

	metrics.SubscriptionEvents.WithLabelValues("confirmed").Inc()
	w.logger.Info("subscription confirmed",
		zap.String("source", sub.Source), zap.Uint("parent", sub.Parent), zap.String("id", sub.ID))
	return ConfirmationConfirmed, nil
}

func (w *OptInWorkflow) revoke(ctx context.Context, token string) (ConfirmationResult, error) {
	sub, err := w.subs.FindByRemovalToken(ctx, token)
	if err != nil {
		return ConfirmationInvalid, fmt.Errorf("find subscription: %w", err)
	}
	if sub == nil {
		return ConfirmationInvalid, nil
	}
	if err := w.subs.Delete(ctx, sub); err != nil {
		return ConfirmationInvalid, fmt.Errorf("delete subscription: %w", err)
	}
	metrics.SubscriptionEvents.WithLabelValues("revoked").Inc()
	return ConfirmationRevoked, nil
}

// NotifySubscribers mails every confirmed subscriber of the thread except the
// comment author, once per comment. Delivery failures do not stop the
// fan-out and are returned together.
func (w *OptInWorkflow) NotifySubscribers(ctx context.Context, c *models.CommentModel) error {
	if c.Notified {
		return nil
	}

	subs, err := w.subs.FindActive(ctx, c.Source, c.Parent)
	if err != nil {
		return fmt.Errorf("find subscribers: %w", err)
	}

	claimed, err := w.comments.MarkNotified(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("mark comment notified: %w", err)
	}
	c.Notified = true
	if !claimed {
		return nil
	}

	var errs []error
	for _, sub := range subs {
		if strings.EqualFold(strings.TrimSpace(sub.Email), strings.TrimSpace(c.Email)) {
			continue
		}
		msg := mail.Message{
			From:     w.site.FromEmail,
			FromName: w.site.FromName,
			To:       []string{sub.Email},
			Subject:  notifySubject(displayHost(sub.URL, w.site.Name)),
			Text:     notifyText(sub.Name, displayURL(withFragment(sub.URL, c.ID)), withToken(sub.URL, sub.TokenRemove)),
		}
		if err := w.mailer.Send(ctx, msg); err != nil {
			metrics.MailErrors.WithLabelValues("subscriber").Inc()
			errs = append(errs, fmt.Errorf("notify %s: %w", sub.Email, err))
			continue
		}
		metrics.NotificationsSent.WithLabelValues("subscriber").Inc()
	}
	return errors.Join(errs...)
}

// PurgeExpired deletes subscriptions that were not confirmed in time.
func (w *OptInWorkflow) PurgeExpired(ctx context.Context) (int, error) {
	subs, err := w.subs.FindExpiredUnconfirmed(ctx, SubscriptionTTL)
	if err != nil {
		return 0, fmt.Errorf("find expired subscriptions: %w", err)
	}
	purged := 0
	for i := range subs {
		if err := w.subs.Delete(ctx, &subs[i]); err != nil {
			return purged, fmt.Errorf("delete subscription %s: %w", subs[i].ID, err)
		}
		purged++
	}
	if purged > 0 {
		metrics.SubscriptionEvents.WithLabelValues("purged").Add(float64(purged))
		w.logger.Info("purged unconfirmed comment subscriptions", zap.Int("count", purged))
	}
	return purged, nil
}
