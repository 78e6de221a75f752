package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellState_Resolved(t *testing.T) {
	assert.False(t, Empty.Resolved())
	assert.False(t, ShipPresent.Resolved())
	assert.True(t, Hit.Resolved())
	assert.True(t, Sunk.Resolved())
	assert.True(t, Miss.Resolved())
}

func TestCellJSON(t *testing.T) {
	cell := Cell{Row: 2, Col: 3, State: Hit, ShipID: 4}

	data, err := json.Marshal(cell)
	require.NoError(t, err)
	assert.JSONEq(t, `{"row":2,"col":3,"state":"hit","ship_id":4}`, string(data))

	data, err = json.Marshal(Cell{Row: 0, Col: 1, State: Miss})
	require.NoError(t, err)
	assert.JSONEq(t, `{"row":0,"col":1,"state":"miss"}`, string(data))

	var decoded Cell
	require.Error(t, json.Unmarshal([]byte(`{"state":"burning"}`), &decoded))
}

func TestAttackRecordJSON(t *testing.T) {
	rec := AttackRecord{
		Seq:       7,
		Attacker:  OpponentTurn,
		Position:  Position{Row: 1, Col: 9},
		Outcome:   OutcomeSunk,
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"seq":7,"attacker":"opponent","position":{"row":1,"col":9},"outcome":"sunk","timestamp":"2024-05-01T12:00:00Z"}`,
		string(data))
}

func TestParseShipType(t *testing.T) {
	testCases := []struct {
		Input    string
		Expected ShipType
		Err      bool
	}{
		{"carrier", Carrier, false},
		{"Submarine", Submarine, false},
		{" DESTROYER ", Destroyer, false},
		{"frigate", Frigate, false},
		{"battleship", 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.Input, func(t *testing.T) {
			got, err := ParseShipType(tc.Input)
			if tc.Err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.Expected, got)
		})
	}
}

func TestOrientation(t *testing.T) {
	assert.Equal(t, Vertical, Horizontal.Flip())
	assert.Equal(t, Horizontal, Vertical.Flip())

	var o Orientation
	require.NoError(t, o.UnmarshalText([]byte("v")))
	assert.Equal(t, Vertical, o)
	require.NoError(t, o.UnmarshalText([]byte("Horizontal")))
	assert.Equal(t, Horizontal, o)
	assert.Error(t, o.UnmarshalText([]byte("diagonal")))
}

func TestPositionString(t *testing.T) {
	assert.Equal(t, "(3, 7)", Position{Row: 3, Col: 7}.String())
}
