// Package csv loads plan, event, task, order and shipment fixtures from CSV
// files into their domain entities. Legacy quirks of exported data are
// normalized here, at the boundary: part indices arrive 1-based and are
// shifted to 0-based, and the dual task id columns collapse into a single
// task reference.
package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/serpops/plancore/pkg/domain/entities"
)

// Loader handles loading plancore data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadPlans loads schedule plans from a CSV file
func (l *Loader) LoadPlans(filename string) ([]*entities.SchedulePlan, error) {
	records, err := readRecords(filename, []string{
		"id", "tenant_id", "name", "start_date_ms", "end_date_ms", "status",
	})
	if err != nil {
		return nil, fmt.Errorf("plans CSV: %w", err)
	}

	var plans []*entities.SchedulePlan
	for i, record := range records {
		plan, err := parsePlan(record)
		if err != nil {
			return nil, fmt.Errorf("plans CSV row %d: %w", i+2, err)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func parsePlan(record []string) (*entities.SchedulePlan, error) {
	id, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id: %s", record[0])
	}
	tenantID, err := strconv.ParseInt(record[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant_id: %s", record[1])
	}
	startDateMs, err := strconv.ParseInt(record[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid start_date_ms: %s", record[3])
	}
	endDateMs, err := strconv.ParseInt(record[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid end_date_ms: %s", record[4])
	}
	status, err := entities.ParsePlanStatus(record[5])
	if err != nil {
		return nil, err
	}

	plan, err := entities.NewSchedulePlan(id, tenantID, record[2], startDateMs, endDateMs)
	if err != nil {
		return nil, err
	}
	plan.Status = status
	return plan, nil
}

// LoadEvents loads schedule events from a CSV file. part_index is 1-based in
// exports and shifted to 0-based here.
func (l *Loader) LoadEvents(filename string) ([]*entities.ScheduleEvent, error) {
	records, err := readRecords(filename, []string{
		"id", "plan_id", "task_id", "schedule_task_id", "title",
		"date_ms", "start_min", "end_min", "status", "priority",
		"part_index", "total_parts", "linked_event_id", "is_pinned", "is_deep_work",
	})
	if err != nil {
		return nil, fmt.Errorf("events CSV: %w", err)
	}

	var events []*entities.ScheduleEvent
	for i, record := range records {
		event, err := parseEvent(record)
		if err != nil {
			return nil, fmt.Errorf("events CSV row %d: %w", i+2, err)
		}
		events = append(events, event)
	}
	return events, nil
}

func parseEvent(record []string) (*entities.ScheduleEvent, error) {
	id, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id: %s", record[0])
	}
	planID, err := strconv.ParseInt(record[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid plan_id: %s", record[1])
	}
	taskRef, err := parseTaskRef(record[2], record[3])
	if err != nil {
		return nil, err
	}
	dateMs, err := strconv.ParseInt(record[5], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid date_ms: %s", record[5])
	}
	startMin, err := strconv.Atoi(record[6])
	if err != nil {
		return nil, fmt.Errorf("invalid start_min: %s", record[6])
	}
	endMin, err := strconv.Atoi(record[7])
	if err != nil {
		return nil, fmt.Errorf("invalid end_min: %s", record[7])
	}

	event, err := entities.NewScheduleEvent(id, planID, taskRef, record[4], dateMs, startMin, endMin)
	if err != nil {
		return nil, err
	}

	if event.Status, err = entities.ParseEventStatus(record[8]); err != nil {
		return nil, err
	}
	if event.Priority, err = entities.ParsePriority(record[9]); err != nil {
		return nil, err
	}

	partIndex, err := strconv.Atoi(record[10])
	if err != nil {
		return nil, fmt.Errorf("invalid part_index: %s", record[10])
	}
	if partIndex < 1 {
		return nil, fmt.Errorf("part_index must be 1-based in exports, got %d", partIndex)
	}
	event.PartIndex = partIndex - 1

	if event.TotalParts, err = strconv.Atoi(record[11]); err != nil {
		return nil, fmt.Errorf("invalid total_parts: %s", record[11])
	}
	if record[12] != "" {
		linked, err := strconv.ParseInt(record[12], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid linked_event_id: %s", record[12])
		}
		event.LinkedEventID = &linked
	}
	if event.IsPinned, err = parseBool(record[13]); err != nil {
		return nil, fmt.Errorf("invalid is_pinned: %s", record[13])
	}
	if event.IsDeepWork, err = parseBool(record[14]); err != nil {
		return nil, fmt.Errorf("invalid is_deep_work: %s", record[14])
	}

	if !event.IsValid() {
		return nil, fmt.Errorf("event %d fails structural invariants", event.ID)
	}
	return event, nil
}

// LoadTasks loads task snapshots from a CSV file
func (l *Loader) LoadTasks(filename string) ([]*entities.ScheduleTask, error) {
	records, err := readRecords(filename, []string{
		"id", "plan_id", "task_id", "schedule_task_id", "title",
		"duration_min", "priority", "allow_split", "min_split_duration_min", "max_split_count",
	})
	if err != nil {
		return nil, fmt.Errorf("tasks CSV: %w", err)
	}

	var tasks []*entities.ScheduleTask
	for i, record := range records {
		task, err := parseTask(record)
		if err != nil {
			return nil, fmt.Errorf("tasks CSV row %d: %w", i+2, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func parseTask(record []string) (*entities.ScheduleTask, error) {
	id, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id: %s", record[0])
	}
	planID, err := strconv.ParseInt(record[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid plan_id: %s", record[1])
	}
	taskRef, err := parseTaskRef(record[2], record[3])
	if err != nil {
		return nil, err
	}
	durationMin, err := strconv.Atoi(record[5])
	if err != nil {
		return nil, fmt.Errorf("invalid duration_min: %s", record[5])
	}
	priority, err := entities.ParsePriority(record[6])
	if err != nil {
		return nil, err
	}

	task, err := entities.NewScheduleTask(id, planID, taskRef, record[4], durationMin, priority)
	if err != nil {
		return nil, err
	}

	if task.Split.AllowSplit, err = parseBool(record[7]); err != nil {
		return nil, fmt.Errorf("invalid allow_split: %s", record[7])
	}
	if task.Split.MinSplitDurationMin, err = strconv.Atoi(record[8]); err != nil {
		return nil, fmt.Errorf("invalid min_split_duration_min: %s", record[8])
	}
	if task.Split.MaxSplitCount, err = strconv.Atoi(record[9]); err != nil {
		return nil, fmt.Errorf("invalid max_split_count: %s", record[9])
	}
	return task, nil
}

// LoadOrders loads orders from a CSV file carrying one row per order line.
func (l *Loader) LoadOrders(filename string) ([]*entities.Order, error) {
	records, err := readRecords(filename, []string{
		"order_id", "tenant_id", "status", "line_id", "product_id", "ordered", "unit",
	})
	if err != nil {
		return nil, fmt.Errorf("orders CSV: %w", err)
	}

	type orderRows struct {
		tenantID int64
		status   entities.OrderStatus
		lines    []entities.OrderLine
	}
	grouped := make(map[int64]*orderRows)
	var ids []int64

	for i, record := range records {
		orderID, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("orders CSV row %d: invalid order_id: %s", i+2, record[0])
		}
		tenantID, err := strconv.ParseInt(record[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("orders CSV row %d: invalid tenant_id: %s", i+2, record[1])
		}
		status, err := entities.ParseOrderStatus(record[2])
		if err != nil {
			return nil, fmt.Errorf("orders CSV row %d: %w", i+2, err)
		}
		ordered, err := decimal.NewFromString(record[5])
		if err != nil {
			return nil, fmt.Errorf("orders CSV row %d: invalid ordered: %s", i+2, record[5])
		}

		rows, exists := grouped[orderID]
		if !exists {
			rows = &orderRows{tenantID: tenantID, status: status}
			grouped[orderID] = rows
			ids = append(ids, orderID)
		}
		rows.lines = append(rows.lines, entities.OrderLine{
			ID:        record[3],
			ProductID: record[4],
			Ordered:   ordered,
			Unit:      record[6],
		})
	}

	var orders []*entities.Order
	for _, orderID := range ids {
		rows := grouped[orderID]
		order, err := entities.NewOrder(orderID, rows.tenantID, rows.lines)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", orderID, err)
		}
		order.Status = rows.status
		orders = append(orders, order)
	}
	return orders, nil
}

// LoadShipments loads shipments from a CSV file carrying one row per item.
// A row with an empty item_id declares an empty shipment.
func (l *Loader) LoadShipments(filename string) ([]*entities.Shipment, error) {
	records, err := readRecords(filename, []string{
		"shipment_id", "order_id", "code", "item_id", "order_line_id", "quantity", "lot_id", "facility_id",
	})
	if err != nil {
		return nil, fmt.Errorf("shipments CSV: %w", err)
	}

	grouped := make(map[int64]*entities.Shipment)
	var ids []int64

	for i, record := range records {
		shipmentID, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("shipments CSV row %d: invalid shipment_id: %s", i+2, record[0])
		}
		orderID, err := strconv.ParseInt(record[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("shipments CSV row %d: invalid order_id: %s", i+2, record[1])
		}

		shipment, exists := grouped[shipmentID]
		if !exists {
			shipment, err = entities.NewShipment(shipmentID, orderID, record[2])
			if err != nil {
				return nil, fmt.Errorf("shipments CSV row %d: %w", i+2, err)
			}
			grouped[shipmentID] = shipment
			ids = append(ids, shipmentID)
		}

		if record[3] == "" {
			continue
		}
		quantity, err := decimal.NewFromString(record[5])
		if err != nil {
			return nil, fmt.Errorf("shipments CSV row %d: invalid quantity: %s", i+2, record[5])
		}
		err = shipment.UpsertItem(entities.ShipmentItem{
			ID:          record[3],
			OrderLineID: record[4],
			Quantity:    quantity,
			LotID:       record[6],
			FacilityID:  record[7],
		})
		if err != nil {
			return nil, fmt.Errorf("shipments CSV row %d: %w", i+2, err)
		}
	}

	var shipments []*entities.Shipment
	for _, shipmentID := range ids {
		shipments = append(shipments, grouped[shipmentID])
	}
	return shipments, nil
}

// parseTaskRef collapses the dual task id columns into one reference.
func parseTaskRef(taskIDStr, scheduleTaskIDStr string) (entities.TaskRef, error) {
	var taskID, scheduleTaskID int64
	var err error
	if taskIDStr != "" {
		if taskID, err = strconv.ParseInt(taskIDStr, 10, 64); err != nil {
			return "", fmt.Errorf("invalid task_id: %s", taskIDStr)
		}
	}
	if scheduleTaskIDStr != "" {
		if scheduleTaskID, err = strconv.ParseInt(scheduleTaskIDStr, 10, 64); err != nil {
			return "", fmt.Errorf("invalid schedule_task_id: %s", scheduleTaskIDStr)
		}
	}
	return entities.NewTaskRef(taskID, scheduleTaskID)
}

func parseBool(s string) (bool, error) {
	switch s {
	case "true", "1":
		return true, nil
	case "false", "0", "":
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %q", s)
	}
}

// readRecords opens the file, validates the header and returns the data rows.
func readRecords(filename string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s must have header and at least one data row", filename)
	}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}
	}
	return records[1:], nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i := range expected {
		if actual[i] != expected[i] {
			return false
		}
	}
	return true
}
