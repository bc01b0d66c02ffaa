package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"coursecart/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportItems() []model.ReportItem {
	purchased := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	refundedAt := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)
	return []model.ReportItem{
		{
			OrderID: 1, ItemID: 1, CourseID: "course-v1:MITx+6.002x+2024", Kind: model.KindCourseRegistration,
			Status: model.StatusPurchased, Qty: 1, UnitCost: decimal.NewFromInt(40), Currency: "USD",
			LineDesc: "Registration for Course: Robot Super Course", PurchaseTime: purchased,
		},
		{
			OrderID: 2, ItemID: 2, CourseID: "course-v1:MITx+6.002x+2024", Kind: model.KindCourseRegistration,
			Status: model.StatusRefunded, Qty: 1, UnitCost: decimal.NewFromInt(40), Currency: "usd",
			ServiceFee: decimal.Zero, LineDesc: "Registration for Course: Robot Super Course",
			PurchaseTime: purchased, RefundRequestedTime: &refundedAt, CustomerName: "Jane Doe",
		},
		{
			OrderID: 3, ItemID: 3, CourseID: "course-v1:HarvardX+CS50+2024", Kind: model.KindRegCodeBundle,
			Status: model.StatusPurchased, Qty: 3, UnitCost: decimal.RequireFromString("10.50"),
			ServiceFee: decimal.RequireFromString("1.25"), Currency: "usd", PurchaseTime: purchased,
		},
		{
			OrderID: 4, ItemID: 4, CourseID: "course-v1:MITx+6.002x+2024", Kind: model.KindCourseRegistration,
			Status: model.StatusPurchased, Qty: 1, UnitCost: decimal.NewFromInt(40), Currency: "usd",
			PurchaseTime: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("2024-03-01", "2024-03-31")
	require.NoError(t, err)
	assert.True(t, w.Contains(time.Date(2024, 3, 31, 23, 59, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))

	for _, bad := range [][2]string{{"BAD", "BAD"}, {"2024-03-01", "03/31/2024"}, {"", "2024-03-31"}} {
		_, err := ParseWindow(bad[0], bad[1])
		assert.ErrorIs(t, err, model.ErrInvalidReportDate, bad)
	}
}

func TestWrite_ItemizedPurchase(t *testing.T) {
	window, err := ParseWindow("2024-03-01", "2024-03-31")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Params{Kind: ItemizedPurchase, Window: window}, reportItems()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Purchase Time,Order ID,Status,Quantity,Unit Cost,Total Cost,Currency,Description,Comments", lines[0])
	assert.Contains(t, lines[1], ",1,purchased,1,40,40,usd,Registration for Course: Robot Super Course,")
	assert.True(t, strings.HasPrefix(lines[1], "2024-03-10 09:30:00"))
	assert.Contains(t, lines[3], ",3,purchased,3,10.5,31.5,usd,,")
}

func TestWrite_UniversityRevenueShare(t *testing.T) {
	window, err := ParseWindow("2024-03-01", "2024-03-31")
	require.NoError(t, err)

	tests := []struct {
		name        string
		start, end  string
		wantLines   []string
		absentOrgID string
	}{
		{
			name:  "all letters",
			start: "A", end: "Z",
			wantLines: []string{
				"HarvardX,course-v1:HarvardX+CS50+2024,31.5,1.25,1,0,0",
				"MITx,course-v1:MITx+6.002x+2024,40,0,1,1,40",
			},
		},
		{
			name:  "letter range excludes M",
			start: "a", end: "k",
			wantLines: []string{
				"HarvardX,course-v1:HarvardX+CS50+2024,31.5,1.25,1,0,0",
			},
			absentOrgID: "MITx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, Params{
				Kind: UniversityRevenueShare, Window: window, StartLetter: tt.start, EndLetter: tt.end,
			}, reportItems()))

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			assert.Equal(t, "University,Course,Total payments collected,Service Fees (if any),Number of purchases,Number of refunds,Amount refunded", lines[0])
			assert.Equal(t, tt.wantLines, lines[1:])
			if tt.absentOrgID != "" {
				assert.NotContains(t, buf.String(), tt.absentOrgID)
			}
		})
	}
}

func TestWrite_Refunds(t *testing.T) {
	window, err := ParseWindow("2024-03-12", "2024-03-12")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Params{Kind: Refunds, Window: window}, reportItems()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2,Jane Doe,2024-03-10 09:30:00,2024-03-12 08:00:00,40,0", lines[1])
}

func TestWrite_UnknownKind(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, Params{Kind: "bogus"}, nil)

	var de *model.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, model.ErrCodeUnknownReport, de.Code)
	assert.Empty(t, buf.String())
}
