package markup

import (
	"fmt"
	"strings"

	"github.com/thereceipt/receipt-renderer/internal/binding"
	"github.com/thereceipt/receipt-renderer/pkg/receiptformat"
)

func (r *renderer) table(c *receiptformat.Component) {
	props := c.Table
	if props == nil || len(props.Columns) == 0 {
		r.warn(c, WarnTableNoColumns, "table has no columns")
		return
	}

	var source any
	switch {
	case c.Binding != "":
		source = binding.Resolve(c.Binding, r.data)
	case props.DataSource != "":
		source = binding.Resolve(props.DataSource, r.data)
	case props.Rows != nil:
		source = props.Rows
	}

	rows, ok := binding.Sequence(source)
	if !ok {
		r.warn(c, WarnTableNotSequence, fmt.Sprintf("table data is not a sequence (got %T)", source))
		return
	}

	widths := columnWidths(props.Columns, r.columns)

	if props.ShowHeader {
		var sb strings.Builder
		for i, col := range props.Columns {
			sb.WriteString(fit(col.Header, widths[i], col.Align))
		}
		r.stream.Tag(TokenBold)
		r.stream.Text(sb.String())
		r.stream.Tag(TokenReset)
		r.stream.Newline()
	}

	for _, row := range rows {
		var sb strings.Builder
		for i, col := range props.Columns {
			cell := binding.String(binding.Resolve(col.Field, row))
			sb.WriteString(fit(cell, widths[i], col.Align))
		}
		r.stream.Text(sb.String())
		r.stream.Newline()
	}
}

// columnWidths keeps explicit widths and shares the remaining paper columns
// equally between columns that have none. Every column gets at least one.
func columnWidths(cols []receiptformat.TableColumn, paper int) []int {
	widths := make([]int, len(cols))
	fixed, unsized := 0, 0
	for i, col := range cols {
		if col.Width > 0 {
			widths[i] = col.Width
			fixed += col.Width
		} else {
			unsized++
		}
	}
	if unsized == 0 {
		return widths
	}

	share := (paper - fixed) / unsized
	if share < 1 {
		share = 1
	}
	for i := range widths {
		if widths[i] == 0 {
			widths[i] = share
		}
	}
	return widths
}
