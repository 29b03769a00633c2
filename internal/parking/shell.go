package parking

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Shell is the interactive command front end. It is a thin presentation
// layer: every command delegates to the instrumented service and prints
// the result.
type Shell struct {
	service   *InstrumentedService
	scanner   *bufio.Scanner
	telemetry *TelemetryProvider
}

func NewShell(service *InstrumentedService, telemetry *TelemetryProvider) *Shell {
	return &Shell{
		service:   service,
		scanner:   bufio.NewScanner(os.Stdin),
		telemetry: telemetry,
	}
}

func (s *Shell) Run(ctx context.Context) {
	tracer := s.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")

	for {
		if !s.scanner.Scan() {
			break
		}

		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		cmdCtx, cmdSpan := tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))

		s.processCommand(cmdCtx, input)
		cmdSpan.End()
	}

	span.AddEvent("shell_ended")
}

func (s *Shell) processCommand(ctx context.Context, input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	switch parts[0] {
	case "check_in":
		s.handleCheckIn(ctx, parts)
	case "check_out":
		s.handleCheckOut(ctx, parts)
	case "search":
		s.handleSearch(ctx, parts)
	case "quote":
		s.handleQuote(parts)
	case "status":
		s.handleStatus(parts)
	case "report":
		s.handleReport()
	case "history":
		s.handleHistory()
	case "analytics":
		s.handleAnalytics()
	case "reset":
		s.handleReset(ctx)
	case "export":
		s.handleExport(parts)
	case "import":
		s.handleImport(ctx, parts)
	case "help":
		s.printHelp()
	default:
		fmt.Printf("Unknown command: %s (try help)\n", parts[0])
	}
}

func (s *Shell) handleCheckIn(ctx context.Context, parts []string) {
	if len(parts) != 4 {
		fmt.Println("Usage: check_in <plate> <car|bike|truck> <planned_hours>")
		return
	}

	category, err := ParseCategory(parts[2])
	if err != nil {
		fmt.Println(err)
		return
	}

	hours, err := strconv.Atoi(parts[3])
	if err != nil || hours <= 0 {
		fmt.Println("Invalid planned hours")
		return
	}

	result, err := s.service.CheckIn(ctx, parts[1], category, hours)
	if err != nil {
		fmt.Printf("Error: %s\n", err.Error())
		return
	}

	fmt.Printf("Vehicle %s parked in %s slot %d (expected cost %.2f, receipt %s)\n",
		result.Plate, result.Category, result.SlotIndex, result.QuotedCost, result.ReceiptID)
}

func (s *Shell) handleCheckOut(ctx context.Context, parts []string) {
	if len(parts) != 2 {
		fmt.Println("Usage: check_out <plate>")
		return
	}

	result, err := s.service.CheckOut(ctx, parts[1])
	if err != nil {
		fmt.Printf("Error: %s\n", err.Error())
		return
	}

	fmt.Printf("Vehicle %s checked out from %s slot %d: %d minutes (%.2f billed hours), total %.2f\n",
		result.Plate, result.Category, result.SlotIndex,
		result.Charge.BilledMinutes, result.Charge.BilledHours, result.Charge.Cost)
}

func (s *Shell) handleSearch(ctx context.Context, parts []string) {
	if len(parts) != 2 {
		fmt.Println("Usage: search <plate>")
		return
	}

	result, found := s.service.Search(ctx, parts[1])
	if !found {
		fmt.Println("Not found")
		return
	}

	session := result.Session
	fmt.Printf("Vehicle %s: %s slot %d, parked since %s, elapsed %s, current quote %.2f\n",
		session.Plate, session.Category, session.SlotIndex,
		session.CheckInTime.Format(time.RFC3339),
		result.Elapsed.Round(time.Second), result.Quote.Cost)
}

func (s *Shell) handleQuote(parts []string) {
	if len(parts) != 2 {
		fmt.Println("Usage: quote <plate>")
		return
	}

	charge, err := s.service.CurrentQuote(parts[1])
	if err != nil {
		fmt.Printf("Error: %s\n", err.Error())
		return
	}

	fmt.Printf("%d minutes (%.2f billed hours), %.2f\n",
		charge.BilledMinutes, charge.BilledHours, charge.Cost)
}

func (s *Shell) handleStatus(parts []string) {
	if len(parts) > 2 {
		fmt.Println("Usage: status [car|bike|truck]")
		return
	}

	statuses := s.service.StatusAll()
	if len(parts) == 2 {
		category, err := ParseCategory(parts[1])
		if err != nil {
			fmt.Println(err)
			return
		}
		status, err := s.service.Status(category)
		if err != nil {
			fmt.Println(err)
			return
		}
		statuses = []CategoryStatus{status}
	}

	for _, status := range statuses {
		fmt.Printf("%s: %d/%d occupied, %d available\n",
			status.Category, status.Occupied, status.Capacity, status.Available)
	}
}

func (s *Shell) handleReport() {
	report := s.service.Report()
	if report.Occupied == 0 {
		fmt.Println("Parking lot is empty")
		return
	}

	fmt.Println("Slot\tPlate\tCategory\tElapsed\tQuote")
	for _, entry := range report.Entries {
		fmt.Printf("%d\t%s\t%s\t%s\t%.2f\n",
			entry.SlotIndex, entry.Plate, entry.Category,
			entry.Elapsed.Round(time.Second), entry.Quote.Cost)
	}
	fmt.Printf("Projected revenue: %.2f\n", report.ProjectedRevenue)
}

func (s *Shell) handleHistory() {
	records := s.service.History()
	if len(records) == 0 {
		fmt.Println("No parking history available")
		return
	}

	fmt.Println("Plate\tCategory\tCheck-in\tCheck-out\tHours\tCost")
	for _, record := range records {
		fmt.Printf("%s\t%s\t%s\t%s\t%.2f\t%.2f\n",
			record.Plate, record.Category,
			record.CheckInTime.Format(time.RFC3339),
			record.CheckOutTime.Format(time.RFC3339),
			record.BilledHours, record.TotalCost)
	}
}

func (s *Shell) handleAnalytics() {
	analytics := s.service.Analytics()
	fmt.Printf("Completed sessions: %d\n", analytics.CompletedSessions)
	for _, category := range Categories() {
		fmt.Printf("Revenue (%s): %.2f\n", category, analytics.RevenueByCategory[category])
	}
	fmt.Printf("Total revenue: %.2f\n", analytics.TotalRevenue)
	if len(analytics.PeakHours) > 0 {
		fmt.Printf("Peak hours: %s\n", strings.Join(analytics.PeakHours, ", "))
	} else {
		fmt.Println("Peak hours: none")
	}
}

// handleReset owns the confirmation prompt; the service itself never asks.
func (s *Shell) handleReset(ctx context.Context) {
	fmt.Print("This clears all vehicles, history and saved data. Type yes to confirm: ")
	if !s.scanner.Scan() || strings.TrimSpace(s.scanner.Text()) != "yes" {
		fmt.Println("Reset cancelled")
		return
	}

	if err := s.service.Reset(ctx); err != nil {
		fmt.Printf("Reset completed with storage warning: %s\n", err.Error())
		return
	}
	fmt.Println("Parking system has been reset")
}

func (s *Shell) handleExport(parts []string) {
	if len(parts) != 2 {
		fmt.Println("Usage: export <file>")
		return
	}

	data, err := json.MarshalIndent(s.service.ExportSnapshot(), "", "  ")
	if err != nil {
		fmt.Printf("Error: %s\n", err.Error())
		return
	}
	if err := os.WriteFile(parts[1], data, 0o600); err != nil {
		fmt.Printf("Error: %s\n", err.Error())
		return
	}
	fmt.Printf("Exported parking data to %s\n", parts[1])
}

func (s *Shell) handleImport(ctx context.Context, parts []string) {
	if len(parts) != 2 {
		fmt.Println("Usage: import <file>")
		return
	}

	data, err := os.ReadFile(parts[1])
	if err != nil {
		fmt.Printf("Error: %s\n", err.Error())
		return
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		fmt.Println("Error importing parking data: invalid file format")
		return
	}

	if err := s.service.ImportSnapshot(ctx, &snapshot); err != nil {
		if errors.Is(err, ErrInvalidSnapshot) {
			fmt.Println("Error importing parking data: missing active vehicles section")
			return
		}
		fmt.Printf("Error: %s\n", err.Error())
		return
	}
	fmt.Println("Parking data imported successfully")
}

func (s *Shell) printHelp() {
	fmt.Println(`Commands:
  check_in <plate> <car|bike|truck> <planned_hours>
  check_out <plate>
  search <plate>
  quote <plate>
  status [category]
  report
  history
  analytics
  reset
  export <file>
  import <file>
  exit`)
}
