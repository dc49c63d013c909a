package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tjfontaine/allmovieshub/internal/mail"
	"github.com/tjfontaine/allmovieshub/internal/server"
	"github.com/tjfontaine/allmovieshub/internal/stats"
	"github.com/tjfontaine/allmovieshub/internal/storage"
	"github.com/tjfontaine/allmovieshub/internal/telemetry"
)

// Outcome is the delivery state of an accepted submission.
type Outcome string

const (
	// OutcomeDelivered means both notifications were handed to the transport.
	OutcomeDelivered Outcome = "delivered"
	// OutcomeReceived means the submission was accepted but at least one
	// notification failed to send.
	OutcomeReceived Outcome = "received"
)

// DelayNote accompanies OutcomeReceived.
const DelayNote = "Email notification may be delayed."

// Stats outcomes for submissions that never reach dispatch.
const (
	statInvalid = "invalid"
	statFailed  = "failed"
)

// Result is the successful result of Submit.
type Result struct {
	Outcome Outcome
	Note    string
}

// Pipeline validates, composes and dispatches submissions.
type Pipeline struct {
	sender   mail.Sender
	composer *Composer
	archive  storage.SubmissionStore
	recorder stats.Recorder
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithArchive stores accepted submissions. Archive failures are logged only.
func WithArchive(store storage.SubmissionStore) Option {
	return func(p *Pipeline) { p.archive = store }
}

// WithRecorder counts outcomes. Recorder failures are logged only.
func WithRecorder(r stats.Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// NewPipeline creates a Pipeline sending through sender.
func NewPipeline(cfg Config, sender mail.Sender, opts ...Option) *Pipeline {
	p := &Pipeline{
		sender:   sender,
		composer: NewComposer(cfg),
		recorder: stats.Nop{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type remoteIPKey struct{}

// WithRemoteIP attaches the client address archived with the submission.
func WithRemoteIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, remoteIPKey{}, ip)
}

func remoteIP(ctx context.Context) string {
	ip, _ := ctx.Value(remoteIPKey{}).(string)
	return ip
}

// Submit runs one submission through the pipeline.
//
// Validation errors are returned as-is. Once validation passes the result is
// always success unless composition fails or something panics, in which
// case a processing-failed error is returned and the cause is only logged.
func (p *Pipeline) Submit(ctx context.Context, s Submission) (res Result, err error) {
	ctx, span := telemetry.StartSpan(ctx, "contact.submit")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := Validate(s); err != nil {
		p.record(ctx, statInvalid)
		return Result{}, err
	}
	s = s.Trimmed()

	defer func() {
		if r := recover(); r != nil {
			cause := fmt.Errorf("panic: %v", r)
			p.fail(ctx, cause)
			res, err = Result{}, ErrProcessing(cause)
		}
	}()

	pair, cerr := p.composer.Compose(s)
	if cerr != nil {
		p.fail(ctx, cerr)
		return Result{}, ErrProcessing(cerr)
	}

	res = p.dispatch(ctx, pair)
	span.SetAttributes(attribute.String("contact.outcome", string(res.Outcome)))

	p.archiveSubmission(ctx, s, res.Outcome)
	p.record(ctx, string(res.Outcome))
	server.AddLogField(ctx, "contact_outcome", string(res.Outcome))

	return res, nil
}

// dispatch sends the operator message, then the acknowledgement. The sends
// are independent: a failed operator send does not suppress the ack.
func (p *Pipeline) dispatch(ctx context.Context, pair NotificationPair) Result {
	var errs []error
	for _, n := range []struct {
		kind string
		msg  Notification
	}{
		{"operator", pair.Operator},
		{"acknowledgement", pair.Ack},
	} {
		if err := p.sender.Send(ctx, n.msg); err != nil {
			p.logger.WarnContext(ctx, "notification send failed",
				slog.String("request_id", server.GetRequestID(ctx)),
				slog.String("kind", n.kind),
				slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		server.AddError(ctx, errors.Join(errs...))
		return Result{Outcome: OutcomeReceived, Note: DelayNote}
	}
	return Result{Outcome: OutcomeDelivered}
}

func (p *Pipeline) archiveSubmission(ctx context.Context, s Submission, outcome Outcome) {
	if p.archive == nil {
		return
	}
	rec := &storage.SubmissionRecord{
		Name:      s.Name,
		Email:     s.Email,
		Subject:   s.Subject,
		Message:   s.Message,
		Outcome:   string(outcome),
		RemoteIP:  remoteIP(ctx),
		CreatedAt: time.Now().UTC(),
	}
	if err := p.archive.SaveSubmission(ctx, rec); err != nil {
		p.logger.WarnContext(ctx, "failed to archive submission",
			slog.String("request_id", server.GetRequestID(ctx)),
			slog.String("error", err.Error()))
	}
}

func (p *Pipeline) record(ctx context.Context, outcome string) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Record(ctx, stats.Event{Outcome: outcome, At: time.Now()}); err != nil {
		p.logger.WarnContext(ctx, "failed to record stats",
			slog.String("outcome", outcome),
			slog.String("error", err.Error()))
	}
}

func (p *Pipeline) fail(ctx context.Context, cause error) {
	p.logger.ErrorContext(ctx, "contact submission processing failed",
		slog.String("request_id", server.GetRequestID(ctx)),
		slog.String("error", cause.Error()))
	p.record(ctx, statFailed)
}
