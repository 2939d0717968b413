package offload

import (
	"context"

	"zkattest/internal/attestation/models"
	dErrors "zkattest/pkg/domain-errors"
)

// Fault is the only error shape that crosses the pool boundary.
type Fault struct {
	Code    dErrors.Code
	Message string
}

func toFault(err error) *Fault {
	if err == nil {
		return nil
	}
	return &Fault{Code: dErrors.CodeOf(err), Message: dErrors.MessageOf(err)}
}

func (f *Fault) err() error {
	return dErrors.New(f.Code, f.Message)
}

type reply[T any] struct {
	value T
	fault *Fault
}

// request is one unit of work for a worker. Every reply channel has a buffer
// of one so a worker never blocks on a caller that stopped waiting.
type request interface {
	run(ctx context.Context, e Engine)
	fail(f *Fault)
	ctx() context.Context
}

type commitmentRequest struct {
	callCtx context.Context
	fields  models.Fields
	reply   chan reply[string]
}

func (r *commitmentRequest) run(ctx context.Context, e Engine) {
	v, err := e.CalculateCommitment(ctx, r.fields)
	r.reply <- reply[string]{value: v, fault: toFault(err)}
}

func (r *commitmentRequest) fail(f *Fault) { r.reply <- reply[string]{fault: f} }
func (r *commitmentRequest) ctx() context.Context { return r.callCtx }

type proveRequest struct {
	callCtx context.Context
	fields  models.Fields
	reply   chan reply[models.Bundle]
}

func (r *proveRequest) run(ctx context.Context, e Engine) {
	v, err := e.CreateProof(ctx, r.fields)
	r.reply <- reply[models.Bundle]{value: v, fault: toFault(err)}
}

func (r *proveRequest) fail(f *Fault) { r.reply <- reply[models.Bundle]{fault: f} }
func (r *proveRequest) ctx() context.Context { return r.callCtx }

type verifyRequest struct {
	callCtx context.Context
	bundle  models.Bundle
	reply   chan reply[models.VerifyResult]
}

func (r *verifyRequest) run(ctx context.Context, e Engine) {
	v, err := e.VerifyProof(ctx, r.bundle)
	r.reply <- reply[models.VerifyResult]{value: v, fault: toFault(err)}
}

func (r *verifyRequest) fail(f *Fault) { r.reply <- reply[models.VerifyResult]{fault: f} }
func (r *verifyRequest) ctx() context.Context { return r.callCtx }

type pingRequest struct {
	callCtx context.Context
	reply   chan reply[models.Liveness]
}

func (r *pingRequest) run(ctx context.Context, e Engine) {
	r.reply <- reply[models.Liveness]{value: e.Ping(ctx)}
}

func (r *pingRequest) fail(f *Fault) { r.reply <- reply[models.Liveness]{fault: f} }
func (r *pingRequest) ctx() context.Context { return r.callCtx }
