package postpilot

import (
	"github.com/mechapengu/postpilot/policy"
	"github.com/mechapengu/postpilot/service/approval"
	"github.com/mechapengu/postpilot/service/channel"
	"github.com/mechapengu/postpilot/service/generator"
	"github.com/mechapengu/postpilot/service/history"
	"github.com/mechapengu/postpilot/service/imaging"
	"github.com/mechapengu/postpilot/service/messaging"
	"github.com/mechapengu/postpilot/service/pending"
	"github.com/mechapengu/postpilot/service/publisher"
	"github.com/mechapengu/postpilot/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customizes service assembly.
type Option func(s *Service)

// WithGenerator sets the content generator.
func WithGenerator(svc generator.Service) Option {
	return func(s *Service) { s.generator = svc }
}

// WithSynthesizer sets the image synthesizer.
func WithSynthesizer(svc imaging.Synthesizer) Option {
	return func(s *Service) { s.imaging = svc }
}

// WithPublisher sets the outbound publisher.
func WithPublisher(svc publisher.Service) Option {
	return func(s *Service) { s.publisher = svc }
}

// WithChannel sets the review channel.
func WithChannel(ch channel.Channel) Option {
	return func(s *Service) { s.channel = ch }
}

// WithApproval sets the approval coordinator.
func WithApproval(svc approval.Service) Option {
	return func(s *Service) { s.approval = svc }
}

// WithPendingStore sets the pending draft store.
func WithPendingStore(store pending.Store) Option {
	return func(s *Service) { s.pending = store }
}

// WithHistoryStore sets the posting history store.
func WithHistoryStore(store history.Store) Option {
	return func(s *Service) { s.history = store }
}

// WithEventQueue sets the queue carrying approval lifecycle events.
func WithEventQueue(queue messaging.Queue[approval.Event]) Option {
	return func(s *Service) { s.events = queue }
}

// WithPolicy overrides the approval policy derived from configuration.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path. The function is
// safe to call multiple times – the first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter. This enables
// integrations with exporters other than the built-in stdout exporter, for example OTLP, Jaeger or
// Zipkin. The function is safe to call multiple times – the first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
