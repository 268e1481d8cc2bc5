package extension

import (
	"context"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Resolver resolves a hook against a package list. It holds no state across
// calls; the only side effects are those of the package loaders themselves.
type Resolver struct {
	tracer trace.Tracer
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithTracer sets the tracer used to instrument resolve passes.
func WithTracer(tracer trace.Tracer) ResolverOption {
	return func(r *Resolver) {
		r.tracer = tracer
	}
}

// NewResolver creates a resolver. Without WithTracer, spans are no-ops.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		tracer: noop.NewTracerProvider().Tracer("hookmux"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the classified extensions implementing hook across pkgs.
//
// Descriptors are matched by exact hook equality and emitted in package
// order, then descriptor order within a package. Loads run strictly
// sequentially in emission order so the result is deterministic. A failing
// load becomes an Errored extension and never aborts resolution of
// siblings or other packages.
func (r *Resolver) Resolve(ctx context.Context, pkgs []Package, hook string) []Extension {
	ctx, span := r.tracer.Start(ctx, "Resolver.Resolve",
		trace.WithAttributes(
			attribute.String("hook", hook),
			attribute.Int("packages", len(pkgs)),
		))
	defer span.End()

	var resolved []Extension
	for _, pkg := range pkgs {
		for _, d := range pkg.Extensions() {
			if d.Hook != hook {
				continue
			}

			value, err := pkg.Load(ctx, d)
			if err != nil {
				span.RecordError(err)
				resolved = append(resolved, NewErrored(d, pkg.ID(),
					oops.Code("EXTENSION_LOAD_FAILED").
						With("package", pkg.ID()).
						With("hook", hook).
						With("extension", d.Name).
						Wrap(err)))
				continue
			}
			resolved = append(resolved, NewLoaded(d, pkg.ID(), value))
		}
	}

	span.SetAttributes(attribute.Int("resolved", len(resolved)))
	return resolved
}
