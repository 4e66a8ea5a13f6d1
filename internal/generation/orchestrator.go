package generation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"backpro/internal/diagnostics"
	"backpro/internal/encoder"
	"backpro/internal/upload"
)

type Selections interface {
	Both() (child, adult upload.Selection, ok bool)
	HoldBoth() (child, adult upload.Selection, done func(), ok bool)
	ClearAll(ctx context.Context) error
}

type Encoder interface {
	Encode(ctx context.Context, f upload.File) (encoder.Payload, error)
}

// Generator is the remote image model.
type Generator interface {
	Call(ctx context.Context, childPayload, childType, adultPayload, adultType string) ([]byte, error)
}

type Deps struct {
	Session   string
	Slots     Selections
	Encoder   Encoder
	Generator Generator
	Recorder  diagnostics.Recorder
	Logger    zerolog.Logger
}

// Orchestrator drives Idle -> Loading -> Succeeded|Failed for one workspace.
type Orchestrator struct {
	mu     sync.Mutex
	status Status
	// epoch changes on every start and reset; a call that settles under an
	// older epoch has been abandoned and its outcome is dropped.
	epoch uint64

	session  string
	slots    Selections
	enc      Encoder
	gen      Generator
	recorder diagnostics.Recorder
	log      zerolog.Logger
	now      func() time.Time
}

func NewOrchestrator(d Deps) *Orchestrator {
	rec := d.Recorder
	if rec == nil {
		rec = diagnostics.NewLogRecorder(d.Logger)
	}
	return &Orchestrator{
		status:   idle(),
		session:  d.Session,
		slots:    d.Slots,
		enc:      d.Encoder,
		gen:      d.Generator,
		recorder: rec,
		log:      d.Logger,
		now:      time.Now,
	}
}

func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// CanGenerate mirrors the generate button: both photos present and nothing
// in flight.
func (o *Orchestrator) CanGenerate() bool {
	_, _, ok := o.slots.Both()
	return ok && o.Status().Phase != PhaseLoading
}

// Generate runs one generation to completion and returns the settled status.
// Missing photos fail immediately without touching the encoder or the remote
// model. ErrBusy is returned while another generation is loading.
func (o *Orchestrator) Generate(ctx context.Context) (Status, error) {
	o.mu.Lock()
	if o.status.Phase == PhaseLoading {
		st := o.status
		o.mu.Unlock()
		return st, ErrBusy
	}

	child, adult, done, ok := o.slots.HoldBoth()
	if !ok {
		o.status = failed(MessageMissingImages, &Error{Kind: ErrorKindValidation, Err: ErrMissingImages})
		st := o.status
		o.mu.Unlock()
		o.log.Debug().Str("session", o.session).Msg("generate rejected: missing photos")
		return st, nil
	}

	o.epoch++
	epoch := o.epoch
	o.status = loading()
	o.mu.Unlock()

	start := o.now()
	data, cause := o.run(ctx, child.File, adult.File)
	done()

	o.mu.Lock()
	if epoch != o.epoch {
		st := o.status
		o.mu.Unlock()
		o.log.Info().Str("session", o.session).Msg("generation settled after reset; outcome dropped")
		return st, nil
	}
	if cause != nil {
		o.status = failed(MessageGenerationFailed, cause)
	} else {
		o.status = succeeded(&Result{Data: data, MediaType: ResultMediaType})
	}
	st := o.status
	o.mu.Unlock()

	if cause != nil {
		o.report(ctx, cause)
	} else {
		o.log.Info().
			Str("session", o.session).
			Dur("latency", o.now().Sub(start)).
			Int("bytes", len(data)).
			Msg("generation succeeded")
	}
	return st, nil
}

// Reset returns to Idle from any phase, dropping both photos, the result and
// the error. An in-flight call is abandoned, not cancelled.
func (o *Orchestrator) Reset(ctx context.Context) error {
	o.mu.Lock()
	o.epoch++
	o.status = idle()
	o.mu.Unlock()

	if err := o.slots.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear selections: %w", err)
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, child, adult upload.File) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = &Error{Kind: ErrorKindRemote, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	var childPayload, adultPayload encoder.Payload
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := o.enc.Encode(gctx, child)
		childPayload = p
		return err
	})
	g.Go(func() error {
		p, err := o.enc.Encode(gctx, adult)
		adultPayload = p
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, &Error{Kind: ErrorKindEncoding, Err: err}
	}

	data, err = o.gen.Call(ctx, childPayload.Base64, childPayload.MediaType, adultPayload.Base64, adultPayload.MediaType)
	if err != nil {
		return nil, &Error{Kind: ErrorKindRemote, Err: err}
	}
	if len(data) == 0 {
		return nil, &Error{Kind: ErrorKindRemote, Err: ErrEmptyResult}
	}
	return data, nil
}

func (o *Orchestrator) report(ctx context.Context, cause error) {
	event := diagnostics.Event{
		Session: o.session,
		Kind:    KindOf(cause).String(),
		Cause:   cause.Error(),
		At:      o.now().UTC(),
	}
	if err := o.recorder.Record(context.WithoutCancel(ctx), event); err != nil {
		o.log.Warn().Err(err).Str("session", o.session).Msg("record diagnostics failed")
	}
}
