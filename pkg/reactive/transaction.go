package reactive

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/reactor/internal/errors"
)

// Transaction runs fn with notifications deferred until the outermost
// transaction exits. Writes apply immediately, so reads inside fn see
// them. Pending notifications are delivered even when fn fails or panics;
// a panic is re-raised afterwards.
//
// A plain error from fn is returned wrapped as ErrTransaction; errors.Is
// still matches the original.
func (u *Universe) Transaction(fn func() error) error {
	return u.op(func() error {
		return u.transaction(fn)
	})
}

func (u *Universe) transaction(fn func() error) (err error) {
	outer := !u.sched.Batching()
	start := time.Now()
	defer func() {
		if !outer {
			return
		}
		if r := recover(); r != nil {
			u.metrics.RecordTransaction(time.Since(start), fmt.Errorf("panic: %v", r))
			panic(r)
		}
		u.metrics.RecordTransaction(time.Since(start), err)
	}()

	var bodyErr error
	flushErr := u.sched.ExecuteBatch(func() error {
		bodyErr = fn()
		return nil
	})
	if bodyErr != nil {
		var re *errors.Error
		if !stderrors.As(bodyErr, &re) {
			bodyErr = errors.New(errors.CodeTransaction).Wrap(bodyErr)
		}
	}
	return stderrors.Join(bodyErr, flushErr)
}

// TransactionValue runs fn in a transaction and returns its result.
func TransactionValue[T any](u *Universe, fn func() (T, error)) (T, error) {
	var out T
	err := u.Transaction(func() error {
		v, err := fn()
		out = v
		return err
	})
	return out, err
}

// TransactionNamed runs fn in a transaction recorded as a span named
// "reactor.transaction <name>".
func (u *Universe) TransactionNamed(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	depth := u.sched.Depth()
	ctx, span := u.tracer.Start(ctx, "reactor.transaction "+name,
		trace.WithAttributes(
			attribute.String("reactor.transaction.name", name),
			attribute.Int("reactor.transaction.depth", depth),
		),
	)
	defer span.End()

	writes := u.writes
	start := time.Now()
	err := u.Transaction(func() error { return fn(ctx) })

	span.SetAttributes(attribute.Int64("reactor.transaction.writes", int64(u.writes-writes)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	u.logger.Debug("transaction",
		"name", name,
		"depth", depth,
		"writes", u.writes-writes,
		"duration", time.Since(start),
		"error", err,
	)
	return err
}
