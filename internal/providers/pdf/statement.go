package pdf

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type StatementData struct {
	OrgName        string
	DocumentNumber string
	PeriodStart    string
	PeriodEnd      string
	StatementDate  string

	RecipientName    string
	RecipientEmail   string
	RecipientAddress string

	Items []StatementItem

	Current     string
	Days31To60  string
	Days61To90  string
	Days91To120 string
	Over120     string

	TotalInterest string
	AmountDue     string
	Notes         string
}

type StatementItem struct {
	Reference string
	DueDate   string
	AgeDays   string
	Amount    string
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(10,
		text.NewCol(12, "Statement of Account", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Statement number: "+data.DocumentNumber, props.Text{Top: 0}),
			text.New("Statement date: "+data.StatementDate, props.Text{Top: 4}),
			text.New("Period: "+data.PeriodStart+" to "+data.PeriodEnd, props.Text{Top: 8}),
		),
		col.New(6),
	)

	m.AddRow(30,
		col.New(6).Add(
			text.New(data.OrgName, props.Text{Style: fontstyle.Bold}),
		),
		col.New(6).Add(
			text.New("Statement for", props.Text{Style: fontstyle.Bold}),
			text.New(data.RecipientName, props.Text{Top: 5}),
			text.New(data.RecipientAddress, props.Text{Top: 9}),
			text.New(data.RecipientEmail, props.Text{Top: 20}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, "Amount due: "+data.AmountDue, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(6, "Reference", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Due date", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Days overdue", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, item := range data.Items {
		m.AddRow(8,
			text.NewCol(6, item.Reference, props.Text{Size: 9}),
			text.NewCol(2, item.DueDate, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.AgeDays, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(10,
		text.NewCol(12, "Aging summary", props.Text{Style: fontstyle.Bold, Size: 10, Top: 4}),
	)
	agingRows := []struct {
		label string
		value string
	}{
		{"Current", data.Current},
		{"31-60 days", data.Days31To60},
		{"61-90 days", data.Days61To90},
		{"91-120 days", data.Days91To120},
		{"Over 120 days", data.Over120},
		{"Interest", data.TotalInterest},
	}
	for _, row := range agingRows {
		m.AddRow(8,
			col.New(8),
			text.NewCol(2, row.label, props.Text{Size: 9}),
			text.NewCol(2, row.value, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Amount due", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, data.AmountDue, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	if data.Notes != "" {
		m.AddRow(15,
			text.NewCol(12, data.Notes, props.Text{Size: 9, Top: 4}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
