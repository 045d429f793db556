package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"hosted-checkout/internal/domain"
	"hosted-checkout/internal/domain/model"
	"hosted-checkout/internal/domain/ports/adapter"
	"hosted-checkout/internal/domain/ports/repository"
	"hosted-checkout/internal/infra/metrics"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

const cancelMessage = "User cancelled the payment process."

type CheckoutUseCase interface {
	// Create validates the request and persists a new pending session.
	Create(ctx context.Context, req CreateCheckoutRequest) (*CreateCheckoutResult, error)
	// Get returns the session, or ErrSessionExpired once it has aged out.
	Get(ctx context.Context, id string) (*model.CheckoutSession, error)
	// AttemptPayment adjudicates a payment. A business decline returns the
	// failed session together with a *domain.DeclineError.
	AttemptPayment(ctx context.Context, id string, attempt adapter.PaymentAttempt) (*PaymentResult, error)
	// Cancel aborts a pending session. Repeated calls return the same redirect.
	Cancel(ctx context.Context, id string) (*PaymentResult, error)
	// Invoice renders the invoice document of a paid session.
	Invoice(ctx context.Context, invoiceID string) (*InvoiceDocument, error)
	// CleanupExpired removes sessions past expiry plus retention.
	CleanupExpired(ctx context.Context) (int, error)
}

// IDGenerator is satisfied by *idgen.Generator.
type IDGenerator interface {
	CheckoutID() (string, error)
	TransactionID() (string, error)
	InvoiceID() (string, error)
	InvoiceNumber(at time.Time) (string, error)
}

type CreateCheckoutResult struct {
	CheckoutID  string    `json:"checkout_id"`
	CheckoutURL string    `json:"checkout_url"`
	ExpiresAt   time.Time `json:"expires_at"`
	OrderID     string    `json:"order_id"`
}

type PaymentResult struct {
	RedirectURL string                 `json:"redirect_url"`
	Session     *model.CheckoutSession `json:"session,omitempty"`
}

type InvoiceDocument struct {
	Filename    string
	ContentType string
	Content     []byte
}

// CheckoutDeps are the ports the state machine drives.
type CheckoutDeps struct {
	Sessions repository.CheckoutSessionRepository
	IDs      IDGenerator
	Gateway  adapter.PaymentGateway
	Notifier adapter.WebhookNotifier
	Renderer adapter.InvoiceRenderer
	Mailer   adapter.InvoiceMailer
	Tasks    adapter.TaskRunner
	// Clock defaults to time.Now.
	Clock func() time.Time
}

type CheckoutOptions struct {
	BaseURL    string
	SessionTTL time.Duration
	Retention  time.Duration
	// RejectExpired makes pay and cancel fail on pending sessions past expires_at.
	RejectExpired bool
}

type checkoutUC struct {
	sessions repository.CheckoutSessionRepository
	ids      IDGenerator
	gateway  adapter.PaymentGateway
	notifier adapter.WebhookNotifier
	renderer adapter.InvoiceRenderer
	mailer   adapter.InvoiceMailer
	tasks    adapter.TaskRunner
	now      func() time.Time

	baseURL       string
	ttl           time.Duration
	retention     time.Duration
	rejectExpired bool

	log *zerolog.Logger
}

func NewCheckoutUseCase(deps CheckoutDeps, opts CheckoutOptions, logger *zerolog.Logger) *checkoutUC {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = model.DefaultSessionTTL
	}
	l := logger.With().Str("component", "checkout_uc").Logger()
	return &checkoutUC{
		sessions:      deps.Sessions,
		ids:           deps.IDs,
		gateway:       deps.Gateway,
		notifier:      deps.Notifier,
		renderer:      deps.Renderer,
		mailer:        deps.Mailer,
		tasks:         deps.Tasks,
		now:           deps.Clock,
		baseURL:       opts.BaseURL,
		ttl:           opts.SessionTTL,
		retention:     opts.Retention,
		rejectExpired: opts.RejectExpired,
		log:           &l,
	}
}

func (u *checkoutUC) Create(ctx context.Context, req CreateCheckoutRequest) (*CreateCheckoutResult, error) {
	period, err := req.validate()
	if err != nil {
		return nil, err
	}
	id, err := u.ids.CheckoutID()
	if err != nil {
		return nil, fmt.Errorf("generate checkout id: %w", err)
	}

	now := u.now().UTC()
	s := &model.CheckoutSession{
		CheckoutID:    id,
		OrderID:       req.OrderID,
		Amount:        req.Amount,
		Currency:      strings.ToUpper(req.Currency),
		PlanID:        req.PlanID,
		PlanName:      req.PlanName,
		BillingPeriod: period,
		Customer:      req.Customer,
		RedirectURLs:  req.RedirectURLs,
		WebhookURL:    req.WebhookURL,
		Metadata:      req.Metadata,
		Status:        model.CheckoutStatusPending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(u.ttl),
	}
	if err := u.sessions.Create(ctx, s); err != nil {
		return nil, err
	}
	metrics.IncCheckout("created")
	u.log.Info().Str("checkout_id", id).Str("order_id", s.OrderID).Msg("checkout session created")

	return &CreateCheckoutResult{
		CheckoutID:  id,
		CheckoutURL: u.baseURL + "/checkout/" + id,
		ExpiresAt:   s.ExpiresAt,
		OrderID:     s.OrderID,
	}, nil
}

func (u *checkoutUC) Get(ctx context.Context, id string) (*model.CheckoutSession, error) {
	s, err := u.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.ExpiredAt(u.now()) {
		return nil, domain.ErrSessionExpired
	}
	return s, nil
}

func (u *checkoutUC) AttemptPayment(ctx context.Context, id string, attempt adapter.PaymentAttempt) (*PaymentResult, error) {
	s, err := u.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status != model.CheckoutStatusPending {
		return nil, domain.ErrInvalidStatus
	}
	now := u.now().UTC()
	if u.rejectExpired && s.ExpiredAt(now) {
		return nil, domain.ErrSessionExpired
	}

	auth, err := u.gateway.Authorize(ctx, s.Amount, s.Currency, attempt)
	if err != nil {
		return nil, fmt.Errorf("authorize payment: %w", err)
	}
	if !auth.Approved {
		return u.decline(ctx, s, attempt.Method, auth, now)
	}
	return u.approve(ctx, s, auth, now)
}

func (u *checkoutUC) approve(ctx context.Context, s *model.CheckoutSession, auth adapter.Authorization, now time.Time) (*PaymentResult, error) {
	txnID, err := u.ids.TransactionID()
	if err != nil {
		return nil, fmt.Errorf("generate transaction id: %w", err)
	}
	invID, err := u.ids.InvoiceID()
	if err != nil {
		return nil, fmt.Errorf("generate invoice id: %w", err)
	}
	invNumber, err := u.ids.InvoiceNumber(now)
	if err != nil {
		return nil, fmt.Errorf("generate invoice number: %w", err)
	}

	payment := model.PaymentRecord{TransactionID: txnID, PaymentMethod: auth.PaymentMethod, CompletedAt: now}
	invoice := model.InvoiceRecord{
		InvoiceID:     invID,
		InvoiceNumber: invNumber,
		InvoiceURL:    u.baseURL + "/api/v1/invoices/" + invID,
		IssuedAt:      now,
	}
	updated, err := u.sessions.UpdateIfPending(ctx, s.CheckoutID, model.SuccessPatch(payment, invoice))
	if err != nil {
		return nil, err
	}

	metrics.IncCheckout("paid")
	metrics.AddRevenue(updated.Currency, updated.Amount.InexactFloat64())
	u.log.Info().
		Str("checkout_id", updated.CheckoutID).
		Str("transaction_id", txnID).
		Str("invoice_number", invNumber).
		Msg("payment approved")

	u.issueInvoice(updated)
	u.dispatchWebhook(updated, model.NewSuccessPayload(updated, now))

	return &PaymentResult{RedirectURL: successRedirect(updated), Session: updated}, nil
}

func (u *checkoutUC) decline(ctx context.Context, s *model.CheckoutSession, method string, auth adapter.Authorization, now time.Time) (*PaymentResult, error) {
	f := model.Failure{Code: auth.DeclineCode, Message: auth.DeclineMessage}
	updated, err := u.sessions.UpdateIfPending(ctx, s.CheckoutID, model.FailurePatch(f, now))
	if err != nil {
		return nil, err
	}

	metrics.IncCheckout("declined")
	metrics.IncDecline(method, f.Code)
	u.log.Info().Str("checkout_id", updated.CheckoutID).Str("code", f.Code).Msg("payment declined")

	u.dispatchWebhook(updated, model.NewFailurePayload(updated, f, now))

	redirect := declineRedirect(updated, f.Code)
	return &PaymentResult{RedirectURL: redirect, Session: updated},
		&domain.DeclineError{Code: f.Code, Message: f.Message, RedirectURL: redirect}
}

func (u *checkoutUC) Cancel(ctx context.Context, id string) (*PaymentResult, error) {
	s, err := u.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status.Terminal() {
		return &PaymentResult{RedirectURL: terminalRedirect(s), Session: s}, nil
	}
	now := u.now().UTC()
	if u.rejectExpired && s.ExpiredAt(now) {
		return nil, domain.ErrSessionExpired
	}

	f := model.Failure{Code: model.FailureUserCancelled, Message: cancelMessage}
	updated, err := u.sessions.UpdateIfPending(ctx, id, model.FailurePatch(f, now))
	if errors.Is(err, domain.ErrInvalidStatus) {
		// Lost the race to a concurrent pay or cancel; report what won.
		cur, ferr := u.sessions.FindByID(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		return &PaymentResult{RedirectURL: terminalRedirect(cur), Session: cur}, nil
	}
	if err != nil {
		return nil, err
	}

	metrics.IncCheckout("cancelled")
	u.log.Info().Str("checkout_id", id).Msg("checkout cancelled by payer")

	u.dispatchWebhook(updated, model.NewFailurePayload(updated, f, now))

	return &PaymentResult{RedirectURL: cancelRedirect(updated), Session: updated}, nil
}

func (u *checkoutUC) Invoice(ctx context.Context, invoiceID string) (*InvoiceDocument, error) {
	s, err := u.sessions.FindByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if s.Invoice == nil || s.Payment == nil {
		return nil, domain.ErrNotFound
	}
	content, err := u.renderer.Render(ctx, s)
	if err != nil {
		return nil, err
	}
	return &InvoiceDocument{
		Filename:    u.renderer.Filename(s),
		ContentType: u.renderer.ContentType(),
		Content:     content,
	}, nil
}

func (u *checkoutUC) CleanupExpired(ctx context.Context) (int, error) {
	cutoff := u.now().Add(-u.retention)
	n, err := u.sessions.CleanupExpired(ctx, cutoff)
	if err != nil {
		return n, err
	}
	metrics.AddSessionsSwept(n)
	return n, nil
}

// dispatchWebhook queues delivery of p to the merchant. Delivery outcome never
// reaches the caller.
func (u *checkoutUC) dispatchWebhook(s *model.CheckoutSession, p *model.WebhookPayload) {
	url := s.WebhookURL
	u.submit("webhook", s.CheckoutID, func(ctx context.Context) error {
		u.notifier.Send(ctx, url, p)
		return nil
	})
}

// issueInvoice renders the PDF and emails it to the payer in the background.
func (u *checkoutUC) issueInvoice(s *model.CheckoutSession) {
	snap := s.Clone()
	u.submit("invoice_email", s.CheckoutID, func(ctx context.Context) error {
		pdf, err := u.renderer.Render(ctx, snap)
		if err != nil {
			metrics.IncInvoiceEmail("error")
			return fmt.Errorf("render invoice for %s: %w", snap.CheckoutID, err)
		}
		id, err := u.mailer.SendInvoice(ctx, snap, pdf)
		if err != nil {
			metrics.IncInvoiceEmail("error")
			return fmt.Errorf("send invoice email for %s: %w", snap.CheckoutID, err)
		}
		metrics.IncInvoiceEmail("sent")
		u.log.Info().Str("checkout_id", snap.CheckoutID).Str("email_id", id).Msg("invoice email sent")
		return nil
	})
}

func (u *checkoutUC) submit(kind, checkoutID string, task func(ctx context.Context) error) {
	if err := u.tasks.Submit(task); err != nil {
		u.log.Warn().Err(err).Str("task", kind).Str("checkout_id", checkoutID).Msg("background task not queued")
	}
}
