package markup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereceipt/receipt-renderer/internal/apperr"
	"github.com/thereceipt/receipt-renderer/pkg/receiptformat"
)

func newTemplate(paper string, components ...receiptformat.Component) *receiptformat.Template {
	return &receiptformat.Template{
		Canvas:     &receiptformat.CanvasSettings{PaperWidth: paper},
		Print:      &receiptformat.PrintSettings{},
		Components: components,
	}
}

func nameComponent() receiptformat.Component {
	return receiptformat.Component{
		ID:      "name",
		Rank:    1,
		Kind:    receiptformat.KindText,
		Binding: "customer.name",
		Text:    &receiptformat.TextProps{},
	}
}

func TestRender_BoundTextScenario(t *testing.T) {
	tpl := newTemplate(receiptformat.Paper80mm, nameComponent())

	res, err := Render(tpl, map[string]any{"customer": map[string]any{"name": "Ahmad"}})
	require.NoError(t, err)
	assert.Equal(t, "Ahmad[RESET]\n", res.Markup)
	assert.Empty(t, res.Warnings)

	res, err = Render(tpl, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "[RESET]\n", res.Markup)

	res, err = Render(tpl, nil)
	require.NoError(t, err)
	assert.Equal(t, "[RESET]\n", res.Markup)
}

func TestRender_TextStyles(t *testing.T) {
	tpl := newTemplate(receiptformat.Paper58mm, receiptformat.Component{
		Kind: receiptformat.KindText,
		Text: &receiptformat.TextProps{
			Content:      "TOTAL",
			Align:        "center",
			Bold:         true,
			Underline:    true,
			DoubleWidth:  true,
			DoubleHeight: true,
			Size:         "large",
		},
	})

	res, err := Render(tpl, nil)
	require.NoError(t, err)
	assert.Equal(t, "[ALIGN:center][BOLD][UNDERLINE][DOUBLE_WIDTH][DOUBLE_HEIGHT][SIZE:large]TOTAL[RESET]\n", res.Markup)
}

func TestRender_LeftAlignHasNoToken(t *testing.T) {
	for _, align := range []string{"", "left"} {
		tpl := newTemplate(receiptformat.Paper58mm, receiptformat.Component{
			Kind: receiptformat.KindText,
			Text: &receiptformat.TextProps{Content: "x", Align: align, Size: "normal"},
		})
		res, err := Render(tpl, nil)
		require.NoError(t, err)
		assert.Equal(t, "x[RESET]\n", res.Markup)
	}
}

func TestRender_EscapesLiteralBrackets(t *testing.T) {
	tpl := newTemplate(receiptformat.Paper58mm, receiptformat.Component{
		Kind: receiptformat.KindText,
		Text: &receiptformat.TextProps{Content: `[CUT] a\b`},
	})
	res, err := Render(tpl, nil)
	require.NoError(t, err)
	assert.Equal(t, `\[CUT] a\\b[RESET]`+"\n", res.Markup)
	assert.NotContains(t, strings.ReplaceAll(res.Markup, `\[`, ""), "[CUT]")
}

func TestRender_RankOrder(t *testing.T) {
	tpl := newTemplate(receiptformat.Paper58mm,
		receiptformat.Component{Rank: 3, Kind: receiptformat.KindText, Text: &receiptformat.TextProps{Content: "third"}},
		receiptformat.Component{Rank: 1, Kind: receiptformat.KindText, Text: &receiptformat.TextProps{Content: "first"}},
		receiptformat.Component{Rank: 2, Kind: receiptformat.KindText, Text: &receiptformat.TextProps{Content: "second"}},
	)
	res, err := Render(tpl, nil)
	require.NoError(t, err)
	assert.Equal(t, "first[RESET]\nsecond[RESET]\nthird[RESET]\n", res.Markup)
}

func TestRender_UnknownComponentScenario(t *testing.T) {
	tpl := newTemplate(receiptformat.Paper80mm,
		receiptformat.Component{ID: "mystery", Rank: 1, Kind: "hologram"},
		receiptformat.Component{ID: "title", Rank: 2, Kind: receiptformat.KindText, Text: &receiptformat.TextProps{Content: "Welcome"}},
	)

	res, err := Render(tpl, nil)
	require.NoError(t, err)
	assert.Equal(t, "Welcome[RESET]\n", res.Markup)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnUnknownComponent, res.Warnings[0].Code)
	assert.Equal(t, "mystery", res.Warnings[0].ComponentID)
	assert.Contains(t, res.Warnings[0].String(), "hologram")
}

func TestRender_MissingSettings(t *testing.T) {
	_, err := Render(&receiptformat.Template{Print: &receiptformat.PrintSettings{}}, nil)
	assert.True(t, apperr.IsValidation(err))

	_, err = Render(&receiptformat.Template{Canvas: &receiptformat.CanvasSettings{}}, nil)
	assert.True(t, apperr.IsValidation(err))

	_, err = Render(nil, nil)
	assert.True(t, apperr.IsValidation(err))
}

func TestRender_Deterministic(t *testing.T) {
	tpl := newTemplate(receiptformat.Paper80mm,
		nameComponent(),
		receiptformat.Component{Rank: 2, Kind: receiptformat.KindTable, Binding: "order.items", Table: &receiptformat.TableProps{
			ShowHeader: true,
			Columns: []receiptformat.TableColumn{
				{Header: "Item", Field: "name"},
				{Header: "Qty", Field: "qty", Width: 4, Align: "right"},
			},
		}},
		receiptformat.Component{Rank: 3, Kind: receiptformat.KindQR, Binding: "order.url"},
	)
	tpl.Print.Autocut = true

	data := map[string]any{
		"customer": map[string]any{"name": "Ahmad"},
		"order": map[string]any{
			"url":   "https://example.com/o/1",
			"items": []any{map[string]any{"name": "Falafel", "qty": 3.0}},
		},
	}

	first, err := Render(tpl, data)
	require.NoError(t, err)
	second, err := Render(tpl, data)
	require.NoError(t, err)
	assert.Equal(t, first.Markup, second.Markup)
	assert.Equal(t, first.Tokens, second.Tokens)
}

func TestRender_Table(t *testing.T) {
	tpl := newTemplate(receiptformat.Paper58mm, receiptformat.Component{
		Kind:    receiptformat.KindTable,
		Binding: "order.items",
		Table: &receiptformat.TableProps{
			ShowHeader: true,
			Columns: []receiptformat.TableColumn{
				{Header: "Item", Field: "name", Width: 10},
				{Header: "Qty", Field: "qty", Width: 4, Align: "right"},
				{Header: "Note", Field: "note", Width: 6},
			},
		},
	})

	data := map[string]any{"order": map[string]any{"items": []any{
		map[string]any{"name": "Chicken Shawarma", "qty": 2.0, "note": "spicy"},
		map[string]any{"name": "Tea", "qty": 1.0},
	}}}

	res, err := Render(tpl, data)
	require.NoError(t, err)
	want := "[BOLD]Item       QtyNote  [RESET]\n" +
		"Chicken Sh   2spicy \n" +
		"Tea          1      \n"
	assert.Equal(t, want, res.Markup)
	assert.NotContains(t, res.Markup, "undefined")
	assert.NotContains(t, res.Markup, "<nil>")
	assert.Empty(t, res.Warnings)
}

func TestRender_TableNotSequence(t *testing.T) {
	table := receiptformat.Component{
		ID:      "items",
		Kind:    receiptformat.KindTable,
		Binding: "order.items",
		Table:   &receiptformat.TableProps{Columns: []receiptformat.TableColumn{{Field: "name"}}},
	}
	tpl := newTemplate(receiptformat.Paper58mm, table)

	for _, data := range []any{
		map[string]any{"order": map[string]any{"items": "not a list"}},
		map[string]any{"order": map[string]any{"items": map[string]any{"name": "x"}}},
		map[string]any{},
	} {
		res, err := Render(tpl, data)
		require.NoError(t, err)
		assert.Empty(t, res.Markup)
		require.Len(t, res.Warnings, 1)
		assert.Equal(t, WarnTableNotSequence, res.Warnings[0].Code)
	}
}

func TestRender_TableWithoutColumns(t *testing.T) {
	for _, props := range []*receiptformat.TableProps{nil, {Rows: []map[string]any{{"a": "x"}}}} {
		tpl := newTemplate(receiptformat.Paper58mm, receiptformat.Component{Kind: receiptformat.KindTable, Table: props})
		res, err := Render(tpl, nil)
		require.NoError(t, err)
		assert.Empty(t, res.Markup)
		require.Len(t, res.Warnings, 1)
		assert.Equal(t, WarnTableNoColumns, res.Warnings[0].Code)
	}
}

func TestRender_TableLiteralRowsAndSharedWidths(t *testing.T) {
	tpl := newTemplate(receiptformat.Paper58mm, receiptformat.Component{
		Kind: receiptformat.KindTable,
		Table: &receiptformat.TableProps{
			Columns: []receiptformat.TableColumn{{Field: "a"}, {Field: "b"}},
			Rows:    []map[string]any{{"a": "left", "b": "right"}},
		},
	})
	res, err := Render(tpl, nil)
	require.NoError(t, err)
	assert.Equal(t, "left            right           \n", res.Markup)
}

func TestRender_LineAndSpace(t *testing.T) {
	tests := []struct {
		name  string
		paper string
		c     receiptformat.Component
		want  string
	}{
		{"default line 58mm", receiptformat.Paper58mm, receiptformat.Component{Kind: receiptformat.KindLine}, strings.Repeat("-", 32) + "\n"},
		{"default line 80mm", receiptformat.Paper80mm, receiptformat.Component{Kind: receiptformat.KindLine, Line: &receiptformat.LineProps{Char: "="}}, strings.Repeat("=", 48) + "\n"},
		{"fixed length", receiptformat.Paper80mm, receiptformat.Component{Kind: receiptformat.KindLine, Line: &receiptformat.LineProps{Char: "*", Length: 5}}, "*****\n"},
		{"first rune only", receiptformat.Paper80mm, receiptformat.Component{Kind: receiptformat.KindLine, Line: &receiptformat.LineProps{Char: "~=", Length: 3}}, "~~~\n"},
		{"space default", receiptformat.Paper80mm, receiptformat.Component{Kind: receiptformat.KindSpace}, "\n"},
		{"space three", receiptformat.Paper80mm, receiptformat.Component{Kind: receiptformat.KindSpace, Space: &receiptformat.SpaceProps{Lines: 3}}, "\n\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Render(newTemplate(tt.paper, tt.c), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Markup)
		})
	}
}

func TestRender_PixelWidthColumns(t *testing.T) {
	tpl := &receiptformat.Template{
		Canvas:     &receiptformat.CanvasSettings{PixelWidth: 240},
		Print:      &receiptformat.PrintSettings{},
		Components: []receiptformat.Component{{Kind: receiptformat.KindLine}},
	}
	res, err := Render(tpl, nil)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Columns)
	assert.Equal(t, strings.Repeat("-", 20)+"\n", res.Markup)
}

func TestRender_ImageBarcodeQR(t *testing.T) {
	tpl := newTemplate(receiptformat.Paper80mm,
		receiptformat.Component{Rank: 1, Kind: receiptformat.KindImage, Image: &receiptformat.ImageProps{Source: "logo"}},
		receiptformat.Component{Rank: 2, Kind: receiptformat.KindBarcode, Binding: "order.number", Barcode: &receiptformat.BarcodeProps{Symbology: "ean13", Height: 60}},
		receiptformat.Component{Rank: 3, Kind: receiptformat.KindQR, QR: &receiptformat.QRProps{Data: "https://pay.example/x:1", ErrorCorrection: "q", Size: 4}},
		receiptformat.Component{Rank: 4, Kind: receiptformat.KindBarcode, Barcode: &receiptformat.BarcodeProps{Data: "A-1"}},
	)
	tpl.Print.Autocut = true

	res, err := Render(tpl, map[string]any{"order": map[string]any{"number": "5901234123457"}})
	require.NoError(t, err)

	want := "[IMAGE:logo]\n" +
		"[BARCODE:EAN13:60:5901234123457]\n" +
		`[QR:Q:4:https\://pay.example/x\:1]` + "\n" +
		"[BARCODE:CODE128:80:A-1]\n" +
		"[CUT]\n"
	assert.Equal(t, want, res.Markup)
}

func TestRender_EmptyPayloadWarns(t *testing.T) {
	tpl := newTemplate(receiptformat.Paper80mm,
		receiptformat.Component{Rank: 1, Kind: receiptformat.KindQR, Binding: "order.missing"},
		receiptformat.Component{Rank: 2, Kind: receiptformat.KindImage},
	)
	res, err := Render(tpl, map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, res.Markup)
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, WarnEmptyPayload, res.Warnings[0].Code)
}

func TestRender_MultilineText(t *testing.T) {
	tpl := newTemplate(receiptformat.Paper80mm, receiptformat.Component{
		Kind:    receiptformat.KindText,
		Binding: "branch.address",
		Text:    &receiptformat.TextProps{Align: "center"},
	})
	res, err := Render(tpl, map[string]any{"branch": map[string]any{"address": "Rainbow St\r\nAmman"}})
	require.NoError(t, err)
	assert.Equal(t, "[ALIGN:center]Rainbow St\nAmman[RESET]\n", res.Markup)
}
