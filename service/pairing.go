package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pairgate/pairgate/core"
	"github.com/pairgate/pairgate/ports"
)

// Options tune the per-attempt behavior of the pairing service.
type Options struct {
	// WaitBudget bounds how long an attempt may wait for an open or close
	// event before it times out.
	WaitBudget time.Duration
	// CodeAttempts bounds how many pairing-code requests are issued
	// before the attempt fails.
	CodeAttempts int
	// CodeRetryBase is the first delay of the exponential backoff between
	// pairing-code requests.
	CodeRetryBase time.Duration
	// CodeRequestDelay is the settle time before the first pairing-code
	// request.
	CodeRequestDelay time.Duration
	// QRPolicy picks when the QR flow's response fires.
	QRPolicy QRPolicy
	// DeleteOnFailure removes the credential directory when an attempt
	// fails; when false the material is preserved for inspection.
	DeleteOnFailure bool
	// DownloadTokenTTL bounds the validity of minted download tokens.
	DownloadTokenTTL time.Duration
}

// DefaultOptions matches the profile the service has always run with.
func DefaultOptions() Options {
	return Options{
		WaitBudget:       5 * time.Minute,
		CodeAttempts:     3,
		CodeRetryBase:    2 * time.Second,
		CodeRequestDelay: 2 * time.Second,
		QRPolicy:         QRRespondImmediate,
		DeleteOnFailure:  false,
		DownloadTokenTTL: 24 * time.Hour,
	}
}

func (o Options) normalized() Options {
	if o.WaitBudget <= 0 {
		o.WaitBudget = DefaultOptions().WaitBudget
	}
	if o.CodeAttempts < 1 {
		o.CodeAttempts = 1
	}
	if o.CodeRetryBase <= 0 {
		o.CodeRetryBase = DefaultOptions().CodeRetryBase
	}
	if o.QRPolicy != QRRespondOnConnect {
		o.QRPolicy = QRRespondImmediate
	}
	if o.DownloadTokenTTL <= 0 {
		o.DownloadTokenTTL = DefaultOptions().DownloadTokenTTL
	}
	return o
}

// PairingService coordinates pairing attempts: it validates input, arbitrates
// concurrent attempts through the registry and drives each attempt to its
// single terminal outcome.
type PairingService struct {
	transport ports.Transport
	store     ports.CredentialStore
	events    ports.EventPublisher
	qr        ports.QRRenderer
	tokens    ports.Tokenizer
	registry  *Registry
	opts      Options
	log       zerolog.Logger
}

// NewPairingService wires the coordinator with its collaborators. tokens may
// be nil, in which case no download tokens are minted.
func NewPairingService(
	transport ports.Transport,
	store ports.CredentialStore,
	events ports.EventPublisher,
	qr ports.QRRenderer,
	tokens ports.Tokenizer,
	registry *Registry,
	opts Options,
	log zerolog.Logger,
) *PairingService {
	return &PairingService{
		transport: transport,
		store:     store,
		events:    events,
		qr:        qr,
		tokens:    tokens,
		registry:  registry,
		opts:      opts.normalized(),
		log:       log.With().Str("component", "pairing").Logger(),
	}
}

// StartPairing runs a pairing-code attempt and blocks until its terminal
// outcome, or until ctx is done.
func (s *PairingService) StartPairing(ctx context.Context, sessionID, phone string) core.Outcome {
	digits, err := core.NormalizePhone(phone)
	if err != nil {
		return failureOutcome(sessionID, err)
	}

	sessionID, err = s.resolveSessionID(sessionID)
	if err != nil {
		return failureOutcome(sessionID, err)
	}

	return s.start(ctx, sessionID, digits, core.ModePairingCode)
}

// StartQR runs a QR attempt and blocks until its terminal outcome per the
// configured QR policy, or until ctx is done. The phone number is optional
// and only used for the confirmation message.
func (s *PairingService) StartQR(ctx context.Context, sessionID, phone string) core.Outcome {
	var digits string
	if phone != "" {
		var err error
		if digits, err = core.NormalizePhone(phone); err != nil {
			return failureOutcome(sessionID, err)
		}
	}

	sessionID, err := s.resolveSessionID(sessionID)
	if err != nil {
		return failureOutcome(sessionID, err)
	}

	return s.start(ctx, sessionID, digits, core.ModeQR)
}

func (s *PairingService) start(ctx context.Context, sessionID, digits string, mode core.Mode) core.Outcome {
	auth, err := s.store.Load(sessionID)
	if err != nil {
		return failureOutcome(sessionID, fmt.Errorf("loading credentials: %w", err))
	}

	attemptCtx, cancel := context.WithCancelCause(context.Background())

	conn, err := s.transport.Open(attemptCtx, auth)
	if err != nil {
		cancel(err)
		return failureOutcome(sessionID, fmt.Errorf("opening transport connection: %w", err))
	}

	a := &Attempt{
		id:       sessionID,
		mode:     mode,
		target:   digits,
		conn:     conn,
		gate:     NewResponseGate(),
		creds:    auth,
		created:  time.Now(),
		ctx:      attemptCtx,
		cancel:   cancel,
		store:    s.store,
		events:   s.events,
		qr:       s.qr,
		tokens:   s.tokens,
		registry: s.registry,
		cfg: attemptConfig{
			waitBudget:       s.opts.WaitBudget,
			codeAttempts:     uint64(s.opts.CodeAttempts),
			codeRetryBase:    s.opts.CodeRetryBase,
			codeRequestDelay: s.opts.CodeRequestDelay,
			qrPolicy:         s.opts.QRPolicy,
			deleteOnFailure:  s.opts.DeleteOnFailure,
			downloadTokenTTL: s.opts.DownloadTokenTTL,
		},
		log:   s.log,
		state: core.StateInitializing,
	}

	// Busy-number arbitration happens inside Register, under the same lock
	// as the insert.
	if existing, err := s.registry.Register(sessionID, a); err != nil {
		a.shutdown(err)
		out := failureOutcome(sessionID, err)
		out.ExistingSessionID = existing
		return out
	}
	s.log.Info().
		Str("session_id", sessionID).
		Str("mode", mode.String()).
		Msg("pairing attempt started")

	go a.run()

	out, err := a.gate.Wait(ctx)
	if err != nil {
		// The caller went away; the attempt keeps running so a scan or
		// code entry can still complete the session in the background.
		return failureOutcome(sessionID, err)
	}
	return out
}

// Archive streams the session's credential directory as a zip archive.
func (s *PairingService) Archive(sessionID string, w io.Writer) error {
	if err := core.ValidateSessionID(sessionID); err != nil {
		return core.ErrSessionNotFound
	}
	return s.store.Archive(sessionID, w)
}

// ActiveAttempts reports how many attempts are currently live.
func (s *PairingService) ActiveAttempts() int {
	return s.registry.Len()
}

// Shutdown tears down every live attempt, closing their connections.
func (s *PairingService) Shutdown() {
	s.registry.DrainAll()
}

func (s *PairingService) resolveSessionID(id string) (string, error) {
	if id == "" {
		return uuid.NewString(), nil
	}
	if err := core.ValidateSessionID(id); err != nil {
		return id, err
	}
	return id, nil
}

func failureOutcome(sessionID string, err error) core.Outcome {
	return core.Outcome{
		Kind:      core.OutcomeFailure,
		SessionID: sessionID,
		Err:       err,
	}
}
