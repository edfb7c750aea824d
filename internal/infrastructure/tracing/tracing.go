package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"rapport-backend/internal/domain"
	"rapport-backend/internal/repository"
)

// TracerProvider wraps OpenTelemetry tracer provider
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing initializes distributed tracing
func InitTracing(serviceName, environment, endpoint string, sampleRate float64) (*TracerProvider, error) {
	exporter, err := otlptrace.New(
		context.Background(),
		otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(), // Use TLS in production
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.DeploymentEnvironment(environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(sampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &TracerProvider{
		provider: tp,
		tracer:   tp.Tracer(serviceName),
	}, nil
}

// Shutdown gracefully shuts down the tracer provider
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.provider.Shutdown(ctx)
}

// StartSpan starts a new span
func (tp *TracerProvider) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return tp.tracer.Start(ctx, name, opts...)
}

// TraceRecordStore wraps a record store with tracing
func TraceRecordStore(store repository.RecordStore, tracer trace.Tracer) repository.RecordStore {
	return &tracedRecordStore{
		inner:  store,
		tracer: tracer,
	}
}

type tracedRecordStore struct {
	inner  repository.RecordStore
	tracer trace.Tracer
}

func (s *tracedRecordStore) FindContacts(ctx context.Context, userID string) ([]domain.Contact, error) {
	ctx, span := s.tracer.Start(ctx, "store.FindContacts",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	contacts, err := s.inner.FindContacts(ctx, userID)
	if err != nil {
		span.RecordError(err)
	}
	return contacts, err
}

func (s *tracedRecordStore) FindMeetings(ctx context.Context, userID string) ([]domain.Meeting, error) {
	ctx, span := s.tracer.Start(ctx, "store.FindMeetings",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	meetings, err := s.inner.FindMeetings(ctx, userID)
	if err != nil {
		span.RecordError(err)
	}
	return meetings, err
}

func (s *tracedRecordStore) UpdateMeetingGuide(ctx context.Context, userID, meetingID string, guide *domain.SmallTalkGuide) error {
	ctx, span := s.tracer.Start(ctx, "store.UpdateMeetingGuide",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("meeting.id", meetingID),
			attribute.Bool("cleared", guide == nil),
		),
	)
	defer span.End()

	err := s.inner.UpdateMeetingGuide(ctx, userID, meetingID, guide)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (s *tracedRecordStore) UpdateMeetingNote(ctx context.Context, userID, meetingID, note string) error {
	ctx, span := s.tracer.Start(ctx, "store.UpdateMeetingNote",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("meeting.id", meetingID),
		),
	)
	defer span.End()

	err := s.inner.UpdateMeetingNote(ctx, userID, meetingID, note)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (s *tracedRecordStore) UpdateContactProfile(ctx context.Context, userID, contactID string, interests domain.Interests, personality string) error {
	ctx, span := s.tracer.Start(ctx, "store.UpdateContactProfile",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("contact.id", contactID),
		),
	)
	defer span.End()

	err := s.inner.UpdateContactProfile(ctx, userID, contactID, interests, personality)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (s *tracedRecordStore) InsertContact(ctx context.Context, userID string, contact domain.Contact) error {
	ctx, span := s.tracer.Start(ctx, "store.InsertContact",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	err := s.inner.InsertContact(ctx, userID, contact)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (s *tracedRecordStore) InsertMeeting(ctx context.Context, userID string, meeting domain.Meeting) error {
	ctx, span := s.tracer.Start(ctx, "store.InsertMeeting",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	err := s.inner.InsertMeeting(ctx, userID, meeting)
	if err != nil {
		span.RecordError(err)
	}
	return err
}
