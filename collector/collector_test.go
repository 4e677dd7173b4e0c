package collector

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricecast/ml"
)

func TestDefaults_MatchForm(t *testing.T) {
	rec := Defaults()
	assert.Equal(t, ml.FeatureRecord{
		Open: 15.73, Low: 15.36, High: 16.25, Volume: 98853000,
		Year: 2015, Month: 8, Day: 21,
		MA7: 16.47, MA30: 17.17, Return: -0.04, RSI: 34.81, Volatility: 0.68,
	}, rec)
}

func TestFields_FollowSchema(t *testing.T) {
	fields := Fields()
	require.Len(t, fields, ml.StockSchema.Len())
	for i, f := range ml.StockSchema.Features() {
		assert.Equal(t, f.Name, fields[i].Name)
		assert.Equal(t, f.Column, fields[i].Column)
		assert.Equal(t, f.Kind.String(), fields[i].Kind)
	}
}

func TestFromForm_BlankFieldsUseDefaults(t *testing.T) {
	rec, adj, err := FromForm(url.Values{"Open": {"20.5"}, "RSI": {" "}})
	require.NoError(t, err)
	assert.Empty(t, adj)

	want := Defaults()
	want.Open = 20.5
	assert.Equal(t, want, rec)
}

func TestFromForm_ClampsOutOfRange(t *testing.T) {
	rec, adj, err := FromForm(url.Values{
		"RSI":    {"150"},
		"Month":  {"0"},
		"Volume": {"-5"},
		"Year":   {"2040"},
	})
	require.NoError(t, err)

	assert.Equal(t, 100.0, rec.RSI)
	assert.Equal(t, int64(1), rec.Month)
	assert.Equal(t, int64(0), rec.Volume)
	assert.Equal(t, int64(2030), rec.Year)
	assert.Equal(t, []Adjustment{
		{Field: "Volume", From: -5, To: 0},
		{Field: "Year", From: 2040, To: 2030},
		{Field: "Month", From: 0, To: 1},
		{Field: "RSI", From: 150, To: 100},
	}, adj)
}

func TestFromForm_IsDeterministic(t *testing.T) {
	form := url.Values{"RSI": {"150"}, "Day": {"40"}}
	first, firstAdj, err := FromForm(form)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		rec, adj, err := FromForm(form)
		require.NoError(t, err)
		assert.Equal(t, first, rec)
		assert.Equal(t, firstAdj, adj)
	}
}

func TestFromForm_AcceptsImpossibleDates(t *testing.T) {
	rec, adj, err := FromForm(url.Values{"Month": {"2"}, "Day": {"31"}})
	require.NoError(t, err)
	assert.Empty(t, adj)
	assert.Equal(t, int64(2), rec.Month)
	assert.Equal(t, int64(31), rec.Day)
}

func TestFromForm_RejectsText(t *testing.T) {
	_, _, err := FromForm(url.Values{"High": {"sixteen"}})

	var invalid *ml.InvalidInputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "High", invalid.Field)
}

func TestFromForm_RejectsFractionalInteger(t *testing.T) {
	_, _, err := FromForm(url.Values{"Day": {"21.5"}})
	assert.ErrorIs(t, err, ml.ErrInvalidInput)
}

func TestFromForm_RejectsNaN(t *testing.T) {
	_, _, err := FromForm(url.Values{"MA7": {"NaN"}})
	assert.ErrorIs(t, err, ml.ErrInvalidInput)
}

func TestFromForm_RejectsOversizedVolume(t *testing.T) {
	for _, raw := range []string{"1e20", "-1e20", "9007199254740994"} {
		rec, adj, err := FromForm(url.Values{"Volume": {raw}})

		var invalid *ml.InvalidInputError
		require.True(t, errors.As(err, &invalid), raw)
		assert.Equal(t, "Volume", invalid.Field)
		assert.Empty(t, adj)
		assert.Zero(t, rec.Volume)
	}

	values := map[string]float64{}
	for _, f := range Fields() {
		values[f.Name] = f.Default
	}
	values["Volume"] = 1e19
	_, _, err := FromMap(values)
	assert.ErrorIs(t, err, ml.ErrInvalidInput)
}

func TestFromForm_LargestExactVolumeIsKept(t *testing.T) {
	rec, adj, err := FromForm(url.Values{"Volume": {"9007199254740992"}})
	require.NoError(t, err)
	assert.Empty(t, adj)
	assert.Equal(t, int64(1<<53), rec.Volume)
}

func TestFromMap(t *testing.T) {
	values := map[string]float64{}
	for _, f := range Fields() {
		values[f.Name] = f.Default
	}

	rec, adj, err := FromMap(values)
	require.NoError(t, err)
	assert.Empty(t, adj)
	assert.Equal(t, Defaults(), rec)

	delete(values, "Volatility")
	_, _, err = FromMap(values)
	assert.ErrorIs(t, err, ml.ErrInvalidInput)

	values["Volatility"] = 0.68
	values["Close"] = 1
	_, _, err = FromMap(values)
	assert.ErrorIs(t, err, ml.ErrInvalidInput)
}

func TestClamp(t *testing.T) {
	rec := Defaults()
	rec.RSI = -3
	rec.Open = -1

	out, adj := Clamp(rec)
	assert.Equal(t, 0.0, out.RSI)
	assert.Equal(t, 0.0, out.Open)
	assert.Len(t, adj, 2)

	same, adj := Clamp(Defaults())
	assert.Equal(t, Defaults(), same)
	assert.Nil(t, adj)
}
