package parking

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedService decorates Service with OpenTelemetry traces and
// metrics. Every operation runs inside a span; occupancy and revenue are
// tracked per category.
type InstrumentedService struct {
	*Service
	telemetry *TelemetryProvider

	checkIns          metric.Int64Counter
	checkOuts         metric.Int64Counter
	occupancyGauge    metric.Int64UpDownCounter
	revenueTotal      metric.Float64Counter
	operationDuration metric.Float64Histogram
}

func NewInstrumentedService(service *Service, telemetry *TelemetryProvider) (*InstrumentedService, error) {
	meter := telemetry.Meter()

	checkIns, err := meter.Int64Counter("parking_check_ins_total",
		metric.WithDescription("Total number of check-in operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	checkOuts, err := meter.Int64Counter("parking_check_outs_total",
		metric.WithDescription("Total number of check-out operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("parking_occupancy",
		metric.WithDescription("Current number of occupied slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	revenueTotal, err := meter.Float64Counter("parking_revenue_total",
		metric.WithDescription("Total billed revenue"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("parking_operation_duration_seconds",
		metric.WithDescription("Duration of parking service operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &InstrumentedService{
		Service:           service,
		telemetry:         telemetry,
		checkIns:          checkIns,
		checkOuts:         checkOuts,
		occupancyGauge:    occupancyGauge,
		revenueTotal:      revenueTotal,
		operationDuration: operationDuration,
	}, nil
}

func (is *InstrumentedService) CheckIn(ctx context.Context, plate string, category Category, plannedHours int) (*CheckInResult, error) {
	tracer := is.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "parking.check_in",
		trace.WithAttributes(
			attribute.String("vehicle.plate", NormalizePlate(plate)),
			attribute.String("vehicle.category", category.String()),
			attribute.Int("planned_hours", plannedHours),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("finding_available_slot")

	result, err := is.Service.CheckIn(plate, category, plannedHours)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "check_in"),
		attribute.String("category", category.String()),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", "failed"))
		is.checkIns.Add(ctx, 1, metric.WithAttributes(labels...))
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(attribute.Int("allocated_slot", result.SlotIndex))
		span.AddEvent("slot_allocated", trace.WithAttributes(
			attribute.Int("slot_index", result.SlotIndex),
		))

		is.checkIns.Add(ctx, 1, metric.WithAttributes(labels...))
		is.occupancyGauge.Add(ctx, 1, metric.WithAttributes(
			attribute.String("category", category.String()),
		))
	}

	is.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return result, err
}

func (is *InstrumentedService) CheckOut(ctx context.Context, plate string) (*CheckOutResult, error) {
	tracer := is.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "parking.check_out",
		trace.WithAttributes(
			attribute.String("vehicle.plate", NormalizePlate(plate)),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("releasing_slot")

	result, err := is.Service.CheckOut(plate)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "check_out"),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", "failed"))
	} else {
		labels = append(labels,
			attribute.String("status", "success"),
			attribute.String("category", result.Category.String()),
		)
		span.SetAttributes(
			attribute.Int("slot_index", result.SlotIndex),
			attribute.Int("billed_minutes", result.Charge.BilledMinutes),
			attribute.Float64("total_cost", result.Charge.Cost),
		)
		span.AddEvent("slot_released")

		is.occupancyGauge.Add(ctx, -1, metric.WithAttributes(
			attribute.String("category", result.Category.String()),
		))
		is.revenueTotal.Add(ctx, result.Charge.Cost, metric.WithAttributes(
			attribute.String("category", result.Category.String()),
		))
	}

	is.checkOuts.Add(ctx, 1, metric.WithAttributes(labels...))
	is.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return result, err
}

func (is *InstrumentedService) Search(ctx context.Context, plate string) (*SearchResult, bool) {
	tracer := is.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "parking.search",
		trace.WithAttributes(
			attribute.String("vehicle.plate", NormalizePlate(plate)),
		))
	defer span.End()

	start := time.Now()

	result, found := is.Service.Search(plate)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "search"),
	}

	if !found {
		span.AddEvent("vehicle_not_found")
		labels = append(labels, attribute.String("status", "not_found"))
	} else {
		span.SetAttributes(
			attribute.Int("slot_index", result.Session.SlotIndex),
			attribute.Float64("current_quote", result.Quote.Cost),
		)
		span.AddEvent("vehicle_found")
		labels = append(labels, attribute.String("status", "found"))
	}

	is.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return result, found
}

// occupancyByCategory snapshots the occupied slot counts, used to keep
// the occupancy gauge honest across bulk state changes.
func occupancyByCategory(s *Service) map[Category]int64 {
	counts := make(map[Category]int64, len(s.pools))
	for _, category := range Categories() {
		if pool, ok := s.pools[category]; ok {
			counts[category] = int64(pool.OccupiedCount())
		}
	}
	return counts
}

// occupancyDeltas returns the per-category gauge adjustments that move a
// reading taken before a bulk operation to the reading taken after it.
func occupancyDeltas(before, after map[Category]int64) map[Category]int64 {
	deltas := make(map[Category]int64)
	for category, count := range after {
		if delta := count - before[category]; delta != 0 {
			deltas[category] = delta
		}
	}
	for category, count := range before {
		if _, ok := after[category]; !ok && count != 0 {
			deltas[category] = -count
		}
	}
	return deltas
}

func (is *InstrumentedService) recordOccupancyDeltas(ctx context.Context, before map[Category]int64) {
	for category, delta := range occupancyDeltas(before, occupancyByCategory(is.Service)) {
		is.occupancyGauge.Add(ctx, delta, metric.WithAttributes(
			attribute.String("category", category.String()),
		))
	}
}

func (is *InstrumentedService) Reset(ctx context.Context) error {
	tracer := is.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "parking.reset")
	defer span.End()

	start := time.Now()

	before := occupancyByCategory(is.Service)
	err := is.Service.Reset()

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "reset"),
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", "failed"))
	} else {
		span.AddEvent("state_cleared")
		labels = append(labels, attribute.String("status", "success"))
	}
	is.recordOccupancyDeltas(ctx, before)

	is.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return err
}

func (is *InstrumentedService) ImportSnapshot(ctx context.Context, snapshot *Snapshot) error {
	tracer := is.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "parking.import_snapshot")
	defer span.End()

	start := time.Now()

	before := occupancyByCategory(is.Service)
	err := is.Service.ImportSnapshot(snapshot)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "import_snapshot"),
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", "failed"))
	} else {
		span.AddEvent("snapshot_imported", trace.WithAttributes(
			attribute.Int("active_sessions", len(snapshot.ActiveSessions)),
		))
		labels = append(labels, attribute.String("status", "success"))
		is.recordOccupancyDeltas(ctx, before)
	}

	is.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return err
}
