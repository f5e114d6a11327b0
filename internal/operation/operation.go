// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package operation defines the lifecycle shared by every mutation and
// authorization check: validate, authorize, then run.
//
// An operation captures its inputs when it is constructed and does no work
// until it is executed. Each stage may reject independently and a rejection
// stops the remaining stages, so an authorization failure never reaches the
// mutation.
package operation

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/teamskills/teamskills/internal/observability/logger"
)

// Checker is the side-effect-free part of an operation.
type Checker interface {
	// Name identifies the operation in spans, metrics and errors.
	Name() string

	// Validate rejects malformed input.
	Validate(ctx context.Context) error

	// Authorize rejects when the acting user may not perform the operation.
	Authorize(ctx context.Context) error
}

// Operation is a Checker that can also perform its side effects.
type Operation[T any] interface {
	Checker

	// Run performs the work. It is only called after Validate and Authorize succeed.
	Run(ctx context.Context) (T, error)
}

// Func adapts plain functions to Operation.
type Func[T any] struct {
	OpName      string
	ValidateFn  func(ctx context.Context) error
	AuthorizeFn func(ctx context.Context) error
	RunFn       func(ctx context.Context) (T, error)
}

func (f Func[T]) Name() string { return f.OpName }

func (f Func[T]) Validate(ctx context.Context) error {
	if f.ValidateFn == nil {
		return nil
	}
	return f.ValidateFn(ctx)
}

func (f Func[T]) Authorize(ctx context.Context) error {
	if f.AuthorizeFn == nil {
		return nil
	}
	return f.AuthorizeFn(ctx)
}

func (f Func[T]) Run(ctx context.Context) (T, error) {
	return f.RunFn(ctx)
}

// Runner executes operations with tracing and outcome metrics.
type Runner struct {
	tracer   trace.Tracer
	outcomes metric.Int64Counter
}

// NewRunner creates a runner. Nil arguments fall back to no-op implementations.
func NewRunner(tracer trace.Tracer, outcomes metric.Int64Counter) *Runner {
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer("operation")
	}
	if outcomes == nil {
		outcomes, _ = metricnoop.NewMeterProvider().Meter("operation").Int64Counter("operations")
	}
	return &Runner{tracer: tracer, outcomes: outcomes}
}

// Execute runs op through validate, authorize and run, in that order.
func Execute[T any](ctx context.Context, r *Runner, op Operation[T]) (T, error) {
	var zero T

	ctx, span := r.tracer.Start(ctx, "operation."+op.Name())
	defer span.End()

	if err := check(ctx, op); err != nil {
		r.finish(ctx, span, op.Name(), err)
		return zero, err
	}

	result, err := op.Run(ctx)
	if err != nil {
		err = annotate(op.Name(), err)
		r.finish(ctx, span, op.Name(), err)
		return zero, err
	}

	r.finish(ctx, span, op.Name(), nil)
	return result, nil
}

// CanExecute runs only the validate and authorize stages of op.
func CanExecute(ctx context.Context, r *Runner, op Checker) error {
	ctx, span := r.tracer.Start(ctx, "check."+op.Name())
	defer span.End()

	err := check(ctx, op)
	r.finish(ctx, span, op.Name(), err)
	return err
}

func check(ctx context.Context, op Checker) error {
	if err := op.Validate(ctx); err != nil {
		return annotate(op.Name(), err)
	}
	if err := op.Authorize(ctx); err != nil {
		return annotate(op.Name(), err)
	}
	return nil
}

func annotate(name string, err error) error {
	var opErr *Error
	if errors.As(err, &opErr) && opErr.Op == "" {
		opErr.Op = name
	}
	return err
}

func (r *Runner) finish(ctx context.Context, span trace.Span, name string, err error) {
	outcome := KindOf(err)
	r.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", name),
		attribute.String("outcome", outcome),
	))
	span.SetAttributes(attribute.String("outcome", outcome))

	switch outcome {
	case "ok":
		return
	case "internal":
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.ErrorContext(ctx, "operation failed",
			logger.Operation(name),
			logger.Error(err),
		)
	default:
		slog.InfoContext(ctx, "operation rejected",
			logger.Operation(name),
			logger.ErrorType(outcome),
			logger.Error(err),
		)
	}
}
