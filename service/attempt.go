package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/pairgate/pairgate/core"
	"github.com/pairgate/pairgate/ports"
)

// QRPolicy decides when the QR flow's single HTTP response fires.
type QRPolicy string

const (
	// QRRespondImmediate resolves the response as soon as the QR payload
	// is rendered; the attempt keeps waiting for the scan in the
	// background.
	QRRespondImmediate QRPolicy = "immediate"
	// QRRespondOnConnect holds the response until the connection opens,
	// closes or times out.
	QRRespondOnConnect QRPolicy = "confirm"
)

type attemptConfig struct {
	waitBudget       time.Duration
	codeAttempts     uint64
	codeRetryBase    time.Duration
	codeRequestDelay time.Duration
	qrPolicy         QRPolicy
	deleteOnFailure  bool
	downloadTokenTTL time.Duration
}

// Attempt drives one pairing or QR linking attempt from creation to exactly
// one terminal state. All inputs, transport events, the pairing-code result,
// the timeout and external cancellation, funnel through a single select loop
// so transitions never interleave.
type Attempt struct {
	id      string
	mode    core.Mode
	target  string
	conn    ports.Connection
	gate    *ResponseGate
	created time.Time

	ctx    context.Context
	cancel context.CancelCauseFunc

	store    ports.CredentialStore
	events   ports.EventPublisher
	qr       ports.QRRenderer
	tokens   ports.Tokenizer
	registry *Registry
	cfg      attemptConfig
	log      zerolog.Logger

	// Mutated only from the run goroutine.
	state    core.State
	creds    ports.AuthState
	qrShown  bool
	shutOnce sync.Once
}

type codeResult struct {
	code string
	err  error
}

// shutdown cancels the attempt and closes its connection. Safe to call from
// any goroutine, any number of times; the run loop finishes the cleanup.
func (a *Attempt) shutdown(cause error) {
	a.shutOnce.Do(func() {
		a.cancel(cause)
		if err := a.conn.Close(); err != nil {
			a.log.Debug().Err(err).Msg("closing transport connection")
		}
	})
}

// run owns the attempt until a terminal state is reached. Cleanup is
// unconditional on every exit path.
func (a *Attempt) run() {
	defer a.finish()

	timer := time.NewTimer(a.cfg.waitBudget)
	defer timer.Stop()

	codeCh := make(chan codeResult, 1)
	if a.mode == core.ModePairingCode {
		go a.requestCode(codeCh)
	}

	events := a.conn.Events()
	for {
		select {
		case res := <-codeCh:
			if a.onCodeResult(res) {
				return
			}
		case ev, ok := <-events:
			if !ok {
				// The stream ended. A cancelled context means the
				// registry shut us down; report that cause, not a
				// transport close.
				if a.ctx.Err() != nil {
					a.onCancelled(context.Cause(a.ctx))
				} else {
					a.onClose(ports.Event{Kind: ports.EventClose})
				}
				return
			}
			if a.transition(ev) {
				return
			}
		case <-timer.C:
			a.onTimeout()
			return
		case <-a.ctx.Done():
			a.onCancelled(context.Cause(a.ctx))
			return
		}
	}
}

func (a *Attempt) finish() {
	a.shutdown(nil)
	a.registry.Remove(a.id, a)
	a.log.Info().
		Str("session_id", a.id).
		Str("mode", a.mode.String()).
		Str("state", a.state.String()).
		Msg("pairing attempt finished")
}

// transition dispatches one transport event. It returns true when the
// attempt reached a terminal state.
func (a *Attempt) transition(ev ports.Event) bool {
	switch ev.Kind {
	case ports.EventCredsUpdated:
		// Credential rotations may fire any number of times and never
		// cause a transition or a response.
		a.persist(ev.Creds)
		return false
	case ports.EventQR:
		return a.onQR(ev.QR)
	case ports.EventOpen:
		a.onOpen()
		return true
	case ports.EventClose:
		a.onClose(ev)
		return true
	default:
		a.log.Debug().Int("kind", int(ev.Kind)).Msg("ignoring unknown transport event")
		return false
	}
}

// requestCode asks the transport for a pairing code with bounded retry. The
// attempt context aborts both the delays and any not-yet-started retry step,
// so a replaced or swept attempt stops requesting immediately.
func (a *Attempt) requestCode(out chan<- codeResult) {
	if a.cfg.codeRequestDelay > 0 {
		// The link needs a moment of negotiation before it accepts a
		// pairing-code request.
		select {
		case <-time.After(a.cfg.codeRequestDelay):
		case <-a.ctx.Done():
			return
		}
	}

	backoff := retry.WithMaxRetries(a.cfg.codeAttempts-1, retry.NewExponential(a.cfg.codeRetryBase))

	var code string
	err := retry.Do(a.ctx, backoff, func(ctx context.Context) error {
		c, reqErr := a.conn.RequestPairingCode(ctx, a.target)
		if reqErr != nil {
			a.log.Warn().Err(reqErr).Str("session_id", a.id).Msg("pairing code request failed, retrying")
			return retry.RetryableError(reqErr)
		}
		code = c
		return nil
	})

	select {
	case out <- codeResult{code: code, err: err}:
	case <-a.ctx.Done():
	}
}

func (a *Attempt) onCodeResult(res codeResult) (done bool) {
	if a.state != core.StateInitializing {
		return false
	}
	if res.err != nil {
		a.fail(fmt.Errorf("%w: %w", core.ErrCodeRequestFailed, res.err),
			"pairing code could not be requested; try the QR flow instead")
		return true
	}

	a.state = core.StateCodeIssued
	a.gate.Resolve(core.Outcome{
		Kind:        core.OutcomePairingCode,
		SessionID:   a.id,
		PairingCode: core.FormatPairingCode(res.code),
		Message:     "enter the code on your phone, then watch for the connection confirmation",
	})
	a.state = core.StateAwaitingConfirmation
	return false
}

func (a *Attempt) onQR(payload string) (done bool) {
	if a.mode != core.ModeQR || a.qrShown || a.state != core.StateInitializing {
		// Refreshed QR payloads after the first are ignored; the caller
		// already has an image.
		return false
	}

	dataURL, err := a.qr.Render(payload)
	if err != nil {
		a.fail(fmt.Errorf("rendering qr payload: %w", err),
			"QR rendering failed; try the pairing-code flow instead")
		return true
	}

	a.qrShown = true
	a.state = core.StateCodeIssued
	if a.cfg.qrPolicy == QRRespondImmediate {
		a.gate.Resolve(core.Outcome{
			Kind:      core.OutcomeQR,
			SessionID: a.id,
			QRCode:    dataURL,
			Message:   "scan the QR code on your phone, then watch for the connection confirmation",
		})
	}
	a.state = core.StateAwaitingConfirmation
	return false
}

func (a *Attempt) onOpen() {
	a.state = core.StateOpen

	// Persist before responding so a crash right after the response still
	// leaves a resumable session on disk.
	a.persist(a.creds)

	sessionString, err := a.store.SessionString(a.creds)
	if err != nil {
		a.log.Error().Err(err).Str("session_id", a.id).Msg("encoding session string")
	}

	if a.target != "" {
		text := fmt.Sprintf("PAIRGATE CONNECTED\n\nSESSION ID: %s\n\nSESSION STRING:\n%s",
			strings.ToUpper(a.id), sessionString)
		if err := a.conn.SendMessage(a.ctx, a.target, text); err != nil {
			// Delivery is best effort: the session string still reaches
			// the caller through the HTTP response.
			a.log.Warn().Err(err).Str("session_id", a.id).Msg("confirmation message not delivered")
		}
	}

	var downloadToken string
	if a.tokens != nil {
		downloadToken, err = a.tokens.MintDownloadToken(a.id, a.cfg.downloadTokenTTL)
		if err != nil {
			a.log.Error().Err(err).Str("session_id", a.id).Msg("minting download token")
		}
	}

	a.gate.Resolve(core.Outcome{
		Kind:          core.OutcomeConnected,
		SessionID:     a.id,
		SessionString: sessionString,
		DownloadToken: downloadToken,
		Message:       "session connected",
	})

	if err := a.events.PublishPaired(a.ctx, a.id, a.target); err != nil {
		a.log.Warn().Err(err).Msg("publishing paired event")
	}
}

func (a *Attempt) onClose(ev ports.Event) {
	a.state = core.StateClosed

	d := core.MapDisconnect(ev.ReasonCode)
	a.log.Warn().
		Str("session_id", a.id).
		Int("reason_code", ev.ReasonCode).
		Str("category", string(d.Category)).
		Err(ev.Err).
		Msg("connection closed before pairing completed")

	a.gate.Resolve(core.Outcome{
		Kind:       core.OutcomeFailure,
		SessionID:  a.id,
		Err:        core.ErrConnectionClosed,
		Disconnect: &d,
		Suggestion: d.Suggestion,
	})

	if err := a.events.PublishFailed(a.ctx, a.id, string(d.Category), d.Message); err != nil {
		a.log.Warn().Err(err).Msg("publishing failed event")
	}
	a.cleanupCreds()
}

func (a *Attempt) onTimeout() {
	a.state = core.StateTimedOut

	a.gate.Resolve(core.Outcome{
		Kind:      core.OutcomeFailure,
		SessionID: a.id,
		Err:       core.ErrAttemptTimeout,
	})

	if err := a.events.PublishExpired(context.Background(), a.id); err != nil {
		a.log.Warn().Err(err).Msg("publishing expired event")
	}
	a.cleanupCreds()
}

func (a *Attempt) onCancelled(cause error) {
	switch {
	case errors.Is(cause, core.ErrAttemptTimeout):
		// Swept by the cleanup scheduler.
		a.onTimeout()
	case errors.Is(cause, core.ErrAttemptReplaced):
		a.state = core.StateFailed
		a.gate.Resolve(core.Outcome{
			Kind:      core.OutcomeFailure,
			SessionID: a.id,
			Err:       core.ErrAttemptReplaced,
		})
	default:
		a.state = core.StateFailed
		if cause == nil {
			cause = core.ErrShuttingDown
		}
		a.gate.Resolve(core.Outcome{
			Kind:      core.OutcomeFailure,
			SessionID: a.id,
			Err:       cause,
		})
	}
}

// fail short-circuits the attempt into the Failed state with a generic
// 500-class outcome.
func (a *Attempt) fail(err error, suggestion string) {
	a.state = core.StateFailed
	a.log.Error().Err(err).Str("session_id", a.id).Msg("pairing attempt failed")

	a.gate.Resolve(core.Outcome{
		Kind:       core.OutcomeFailure,
		SessionID:  a.id,
		Err:        err,
		Suggestion: suggestion,
	})

	if pubErr := a.events.PublishFailed(a.ctx, a.id, "setup-failure", err.Error()); pubErr != nil {
		a.log.Warn().Err(pubErr).Msg("publishing failed event")
	}
	a.cleanupCreds()
}

func (a *Attempt) persist(creds ports.AuthState) {
	if creds != nil {
		a.creds = creds
	}
	if err := a.store.Save(a.id, a.creds); err != nil {
		a.log.Error().Err(err).Str("session_id", a.id).Msg("persisting credentials")
	}
}

// cleanupCreds applies the configurable delete-on-failure policy.
func (a *Attempt) cleanupCreds() {
	if !a.cfg.deleteOnFailure {
		return
	}
	if err := a.store.Delete(a.id); err != nil {
		a.log.Warn().Err(err).Str("session_id", a.id).Msg("deleting credentials after failure")
	}
}
