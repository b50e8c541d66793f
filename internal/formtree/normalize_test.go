package formtree

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"valuation-form-go/internal/model"
)

func decodeJSON(t *testing.T, src string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(src), &v))
	return v
}

func TestNormalizeOptions(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []model.FieldOption
	}{
		{
			name: "value label pair passes through",
			raw:  `[{"value":"a","label":"A"}]`,
			want: []model.FieldOption{{Value: "a", Label: "A"}},
		},
		{
			name: "bare string list",
			raw:  `["x"]`,
			want: []model.FieldOption{{Value: "x", Label: "x"}},
		},
		{
			name: "single bare string",
			raw:  `"only"`,
			want: []model.FieldOption{{Value: "only", Label: "only"}},
		},
		{
			name: "empty list is null",
			raw:  `[]`,
			want: nil,
		},
		{
			name: "nested parallel arrays",
			raw:  `[[["v"]],[["l"]]]`,
			want: []model.FieldOption{{Value: "v", Label: "l"}},
		},
		{
			name: "deeper nesting",
			raw:  `[[[["v"]]],[[["l"]]]]`,
			want: []model.FieldOption{{Value: "v", Label: "l"}},
		},
		{
			name: "three arrays are three options",
			raw:  `[["a"],["b"],["c"]]`,
			want: []model.FieldOption{
				{Value: "a", Label: "a"},
				{Value: "b", Label: "b"},
				{Value: "c", Label: "c"},
			},
		},
		{
			name: "list of pairs",
			raw:  `[["a","A"],["b","B"],["c","C"]]`,
			want: []model.FieldOption{
				{Value: "a", Label: "A"},
				{Value: "b", Label: "B"},
				{Value: "c", Label: "C"},
			},
		},
		{
			name: "nested with blank label is dropped",
			raw:  `[[["v"]],[[" "]]]`,
			want: nil,
		},
		{
			name: "blank sides are dropped",
			raw:  `[{"value":"a","label":""},{"value":"","label":"B"},{"value":"c","label":"C"}]`,
			want: []model.FieldOption{{Value: "c", Label: "C"}},
		},
		{
			name: "mixed entries keep order",
			raw:  `["x",{"value":"y","label":"Y"},["z","Z"],42]`,
			want: []model.FieldOption{
				{Value: "x", Label: "x"},
				{Value: "y", Label: "Y"},
				{Value: "z", Label: "Z"},
				{Value: "42", Label: "42"},
			},
		},
		{
			name: "nested value inside pair",
			raw:  `[{"value":[["a"]],"label":["A"]}]`,
			want: []model.FieldOption{{Value: "a", Label: "A"}},
		},
		{
			name: "null",
			raw:  `null`,
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeOptions(decodeJSON(t, tt.raw))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("NormalizeOptions(%s) mismatch (-want +got):\n%s", tt.raw, diff)
			}
		})
	}
}

func TestNormalizeOptionsReturnsNilNotEmpty(t *testing.T) {
	require := require.New(t)
	got := NormalizeOptions(decodeJSON(t, `[{"value":"","label":""}]`))
	require.Nil(got)

	out, err := json.Marshal(model.Field{FieldID: "f", Options: got})
	require.NoError(err)
	require.Contains(string(out), `"options":null`)
}

func TestNormalizeTableCell(t *testing.T) {
	require := require.New(t)
	require.Equal("7", NormalizeTableCell(decodeJSON(t, `[["7"]]`)))
	require.Equal("a", NormalizeTableCell(decodeJSON(t, `{"value":"a","label":"A"}`)))
	require.Equal(float64(3), NormalizeTableCell(decodeJSON(t, `3`)))
	require.Equal("x", NormalizeTableCell(" x "))
	require.Nil(NormalizeTableCell(decodeJSON(t, `[]`)))
	require.Nil(NormalizeTableCell(nil))
}

func TestNormalizeTableConfig(t *testing.T) {
	raw := decodeJSON(t, `{"a":[[], "x", [""]], "b":{}, "c":null, "d":" y ", "e":{"f":[[1]]}}`)
	want := map[string]any{
		"a": []any{"x"},
		"d": "y",
		"e": map[string]any{"f": []any{[]any{float64(1)}}},
	}
	if diff := cmp.Diff(want, NormalizeTableConfig(raw)); diff != "" {
		t.Errorf("NormalizeTableConfig mismatch (-want +got):\n%s", diff)
	}

	require.Nil(t, NormalizeTableConfig(decodeJSON(t, `{"a":[]}`)))
	require.Nil(t, NormalizeTableConfig("not an object"))
}

func TestToIntValue(t *testing.T) {
	tests := []struct {
		in     any
		want   int
		wantOK bool
	}{
		{float64(6), 6, true},
		{float64(6.5), 0, false},
		{"12", 12, true},
		{" ", 0, false},
		{json.Number("4"), 4, true},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToIntValue(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ToIntValue(%v) = %d,%v, want %d,%v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
