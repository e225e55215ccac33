package service

import (
	"context"
	"fmt"

	"distribuidora/internal/model"
	"distribuidora/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const daySummarySheet = "Resumen"

type ReportService interface {
	DaySummary(ctx context.Context, date string) (*model.DaySummary, error)
	ExportDaySummary(ctx context.Context, date string) ([]byte, string, error)
}

type reportService struct {
	orders repository.OrderRepository
	clock  Clock
}

func NewReportService(d Dependencies) ReportService {
	return &reportService{orders: d.Orders, clock: d.Clock}
}

// DaySummary groups the orders placed on a local calendar day by customer. An empty date means today.
func (s *reportService) DaySummary(ctx context.Context, date string) (*model.DaySummary, error) {
	day := startOfDay(s.clock.Now())
	if date != "" {
		parsed, err := parseDate(date, s.clock.Location())
		if err != nil {
			return nil, err
		}
		day = parsed
	}

	orders, err := s.orders.ListBetween(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list orders of %s: %w", day.Format(dateLayout), err)
	}

	summary := &model.DaySummary{
		Date:       day,
		Customers:  []model.CustomerDaySummary{},
		Orders:     len(orders),
		GrandTotal: decimal.Zero,
	}
	index := make(map[uint]int)
	for _, order := range orders {
		i, ok := index[order.CustomerID]
		if !ok {
			name := ""
			if order.Customer != nil {
				name = order.Customer.Name
			}
			summary.Customers = append(summary.Customers, model.CustomerDaySummary{
				CustomerID:   order.CustomerID,
				CustomerName: name,
				Items:        []model.DaySummaryItem{},
				Total:        decimal.Zero,
			})
			i = len(summary.Customers) - 1
			index[order.CustomerID] = i
		}

		block := &summary.Customers[i]
		for _, line := range order.Lines {
			item := model.DaySummaryItem{OrderNumber: order.OrderNumber, Quantity: line.Quantity}
			if line.Product != nil {
				item.ProductName = line.Product.Name
				item.Unit = line.Product.Unit
			}
			block.Items = append(block.Items, item)
		}
		block.Total = block.Total.Add(order.Total)
		summary.GrandTotal = summary.GrandTotal.Add(order.Total)
	}

	return summary, nil
}

// ExportDaySummary renders the day summary as an xlsx workbook and returns it with a file name.
func (s *reportService) ExportDaySummary(ctx context.Context, date string) ([]byte, string, error) {
	summary, err := s.DaySummary(ctx, date)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", daySummarySheet); err != nil {
		return nil, "", fmt.Errorf("failed to prepare workbook: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, "", fmt.Errorf("failed to prepare workbook: %w", err)
	}

	w := &sheetWriter{f: f, sheet: daySummarySheet}
	w.row(bold, "Resumen del día", summary.Date.Format(dateLayout))
	w.row(0)
	w.row(bold, "Cliente", "Pedido", "Producto", "Cantidad", "Unidad")
	for _, c := range summary.Customers {
		for _, item := range c.Items {
			w.row(0, c.CustomerName, item.OrderNumber, item.ProductName, item.Quantity.InexactFloat64(), item.Unit)
		}
		w.row(bold, "Total "+c.CustomerName, "", "", c.Total.InexactFloat64())
	}
	w.row(0)
	w.row(bold, "Pedidos", summary.Orders)
	w.row(bold, "Total general", summary.GrandTotal.InexactFloat64())
	if w.err != nil {
		return nil, "", fmt.Errorf("failed to write day summary: %w", w.err)
	}

	if err := f.SetColWidth(daySummarySheet, "A", "C", 28); err != nil {
		return nil, "", fmt.Errorf("failed to write day summary: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), fmt.Sprintf("resumen-%s.xlsx", summary.Date.Format(documentDateLayout)), nil
}

// sheetWriter appends rows to a sheet and keeps the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	next  int
	err   error
}

func (w *sheetWriter) row(style int, values ...interface{}) {
	w.next++
	if w.err != nil || len(values) == 0 {
		return
	}
	start, err := excelize.CoordinatesToCellName(1, w.next)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(w.sheet, start, &values); err != nil {
		w.err = err
		return
	}
	if style != 0 {
		end, _ := excelize.CoordinatesToCellName(len(values), w.next)
		w.err = w.f.SetCellStyle(w.sheet, start, end, style)
	}
}
