package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalTimeJSON(t *testing.T) {
	require := require.New(t)

	ts := LocalTime(time.Date(2024, 3, 5, 14, 7, 9, 0, time.Local))
	data, err := json.Marshal(ts)
	require.NoError(err)
	require.Equal(`"2024-03-05 14:07:09"`, string(data))

	var back LocalTime
	require.NoError(json.Unmarshal(data, &back))
	require.True(time.Time(ts).Equal(time.Time(back)))

	data, err = json.Marshal(LocalTime{})
	require.NoError(err)
	require.Equal("null", string(data))

	var zero LocalTime
	require.NoError(json.Unmarshal([]byte("null"), &zero))
	require.True(time.Time(zero).IsZero())

	require.Error(json.Unmarshal([]byte(`"yesterday"`), &back))
}

func TestToListItemCountsFieldValues(t *testing.T) {
	tpl := CustomTemplate{
		ID:          "ct-1",
		BankCode:    "SBI",
		FieldValues: map[string]any{"a": 1, "b": "x"},
		Version:     3,
	}
	item := tpl.ToListItem()
	require.Equal(t, 2, item.FieldCount)
	require.Equal(t, 3, item.Version)
	require.Equal(t, "ct-1", item.ID)
}
