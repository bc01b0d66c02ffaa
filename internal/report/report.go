// Package report renders the finance CSV reports.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"coursecart/internal/model"

	"github.com/shopspring/decimal"
)

// Kind names a report.
type Kind string

const (
	ItemizedPurchase       Kind = "itemized_purchase_report"
	UniversityRevenueShare Kind = "university_revenue_share"
	Refunds                Kind = "refund_report"
)

// Available describes the reports a finance admin can request.
var Available = []Description{
	{Kind: ItemizedPurchase, Title: "Itemized Purchase Report"},
	{Kind: UniversityRevenueShare, Title: "University Revenue Share"},
	{Kind: Refunds, Title: "Refund Report"},
}

// Description is one entry of the report listing.
type Description struct {
	Kind  Kind   `json:"kind"`
	Title string `json:"title"`
}

// DateLayout is the accepted report date format.
const DateLayout = "2006-01-02"

const timeLayout = "2006-01-02 15:04:05"

// Window is the half-open time range [Start, End) a report covers.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies in the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// ParseWindow parses YYYY-MM-DD dates. The end date is inclusive.
func ParseWindow(start, end string) (Window, error) {
	s, err := time.Parse(DateLayout, strings.TrimSpace(start))
	if err != nil {
		return Window{}, model.ErrInvalidReportDate
	}
	e, err := time.Parse(DateLayout, strings.TrimSpace(end))
	if err != nil {
		return Window{}, model.ErrInvalidReportDate
	}
	return Window{Start: s, End: e.AddDate(0, 0, 1)}, nil
}

// Params selects and scopes a report.
type Params struct {
	Kind        Kind
	Window      Window
	StartLetter string
	EndLetter   string
}

// ErrUnknownKind is returned for report names that do not exist.
func ErrUnknownKind(kind Kind) *model.DomainError {
	return model.BadRequest(model.ErrCodeUnknownReport, "Unknown report type: %s", kind)
}

// Header returns the CSV header of a report.
func Header(kind Kind) ([]string, error) {
	switch kind {
	case ItemizedPurchase:
		return []string{"Purchase Time", "Order ID", "Status", "Quantity", "Unit Cost",
			"Total Cost", "Currency", "Description", "Comments"}, nil
	case UniversityRevenueShare:
		return []string{"University", "Course", "Total payments collected", "Service Fees (if any)",
			"Number of purchases", "Number of refunds", "Amount refunded"}, nil
	case Refunds:
		return []string{"Order Number", "Customer Name", "Date of Original Transaction",
			"Date of Refund", "Amount of Refund", "Service Fees (if any)"}, nil
	}
	return nil, ErrUnknownKind(kind)
}

// Write renders the report over items as CSV.
func Write(w io.Writer, p Params, items []model.ReportItem) error {
	header, err := Header(p.Kind)
	if err != nil {
		return err
	}

	var rows [][]string
	switch p.Kind {
	case ItemizedPurchase:
		rows = itemizedRows(p.Window, items)
	case UniversityRevenueShare:
		rows = revenueShareRows(p, items)
	case Refunds:
		rows = refundRows(p.Window, items)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write report rows: %w", err)
	}
	return nil
}

func itemizedRows(window Window, items []model.ReportItem) [][]string {
	var rows [][]string
	for i := range items {
		item := &items[i]
		if !window.Contains(item.PurchaseTime) {
			continue
		}
		rows = append(rows, []string{
			item.PurchaseTime.UTC().Format(timeLayout),
			strconv.FormatInt(item.OrderID, 10),
			string(item.Status),
			strconv.Itoa(item.Qty),
			item.UnitCost.String(),
			item.LineCost().String(),
			strings.ToLower(item.Currency),
			item.LineDesc,
			item.ReportComments,
		})
	}
	return rows
}

type courseTotals struct {
	org       string
	collected decimal.Decimal
	fees      decimal.Decimal
	purchases int
	refunds   int
	refunded  decimal.Decimal
}

func revenueShareRows(p Params, items []model.ReportItem) [][]string {
	start := strings.ToUpper(p.StartLetter)
	end := strings.ToUpper(p.EndLetter)

	totals := make(map[string]*courseTotals)
	for i := range items {
		item := &items[i]
		if item.CourseID == "" || !p.Window.Contains(item.PurchaseTime) {
			continue
		}
		key, err := model.ParseCourseKey(item.CourseID)
		if err != nil {
			continue
		}
		if !inLetterRange(key.Org, start, end) {
			continue
		}

		t, ok := totals[item.CourseID]
		if !ok {
			t = &courseTotals{org: key.Org}
			totals[item.CourseID] = t
		}
		switch item.Status {
		case model.StatusPurchased:
			t.collected = t.collected.Add(item.LineCost())
			t.fees = t.fees.Add(item.ServiceFee)
			t.purchases++
		case model.StatusRefunded:
			t.refunds++
			t.refunded = t.refunded.Add(item.LineCost())
		}
	}

	courses := make([]string, 0, len(totals))
	for id := range totals {
		courses = append(courses, id)
	}
	sort.Strings(courses)

	rows := make([][]string, 0, len(courses))
	for _, id := range courses {
		t := totals[id]
		rows = append(rows, []string{
			t.org,
			id,
			t.collected.String(),
			t.fees.String(),
			strconv.Itoa(t.purchases),
			strconv.Itoa(t.refunds),
			t.refunded.String(),
		})
	}
	return rows
}

func inLetterRange(org, start, end string) bool {
	if org == "" {
		return false
	}
	initial := strings.ToUpper(org[:1])
	if start != "" && initial < start[:1] {
		return false
	}
	if end != "" && initial > end[:1] {
		return false
	}
	return true
}

func refundRows(window Window, items []model.ReportItem) [][]string {
	var rows [][]string
	for i := range items {
		item := &items[i]
		if item.Status != model.StatusRefunded || item.RefundRequestedTime == nil {
			continue
		}
		if !window.Contains(*item.RefundRequestedTime) {
			continue
		}
		rows = append(rows, []string{
			strconv.FormatInt(item.OrderID, 10),
			item.CustomerName,
			item.PurchaseTime.UTC().Format(timeLayout),
			item.RefundRequestedTime.UTC().Format(timeLayout),
			item.LineCost().String(),
			item.ServiceFee.String(),
		})
	}
	return rows
}
