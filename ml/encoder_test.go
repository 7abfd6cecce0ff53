package ml

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accident-analytics/models"
)

func encoderFixture() []*models.Incident {
	return []*models.Incident{
		incident(time.Monday, 8, 10, "Choque", "Tramo de via", models.TargetLow),
		incident(time.Wednesday, 17, 2, "Atropello", "Interseccion", models.TargetHigh),
		incident(time.Sunday, 23, 10, "Choque", "Glorieta", models.TargetLow),
		incident(time.Monday, 9, 2, "", "Tramo de via", models.TargetLow),
		incident(time.Friday, 12, 7, "Volcamiento", "", models.TargetUndefined),
	}
}

func TestFitVocabularyOrdering(t *testing.T) {
	v := FitVocabulary(encoderFixture())

	require.Len(t, v.Columns, 4)
	assert.Equal(t, []string{"Monday", "Wednesday", "Friday", "Sunday"}, v.Columns[0].Categories)
	assert.Equal(t, []string{"2", "7", "10"}, v.Columns[1].Categories, "locality codes sort numerically")
	assert.Equal(t, []string{"Atropello", "Choque", "Volcamiento"}, v.Columns[2].Categories, "unlabelled rows are fitted too")
	assert.Equal(t, []string{"Glorieta", "Interseccion", "Tramo de via"}, v.Columns[3].Categories)

	assert.Equal(t, []string{
		"day_of_week_Wednesday", "day_of_week_Friday", "day_of_week_Sunday",
		"hour_of_day",
		"locality_code_7", "locality_code_10",
		"vehicle_class_Choque", "vehicle_class_Volcamiento",
		"road_design_Interseccion", "road_design_Tramo de via",
	}, v.FeatureNames())
}

func TestFeatureCountFormula(t *testing.T) {
	v := FitVocabulary(encoderFixture())

	want := 1
	for _, col := range v.Columns {
		want += len(col.Categories) - 1
	}
	assert.Len(t, v.FeatureNames(), want)
}

func TestEncodeMatrix(t *testing.T) {
	v := FitVocabulary(encoderFixture())
	d, excluded, err := v.Encode(encoderFixture())
	require.NoError(t, err)

	assert.Equal(t, 1, excluded)
	assert.Equal(t, 4, d.Rows())
	assert.Equal(t, []int{0, 1, 0, 0}, d.Y)

	rows, cols := d.X.Dims()
	assert.Equal(t, 4, rows)
	assert.Equal(t, len(v.FeatureNames()), cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			assert.False(t, math.IsNaN(d.X.At(i, j)), "NaN at %d,%d", i, j)
		}
	}

	// Monday, 8h, locality 10, Choque, Tramo de via
	assert.Equal(t, []float64{0, 0, 0, 8, 0, 1, 1, 0, 0, 1}, d.Row(0))
	// null vehicle class leaves its indicators at zero
	assert.Equal(t, []float64{0, 0, 0, 9, 0, 0, 0, 0, 0, 1}, d.Row(3))
}

func TestEncodeNullTemporal(t *testing.T) {
	incidents := encoderFixture()
	v := FitVocabulary(incidents)

	missing := incident(time.Monday, 0, 2, "Choque", "Glorieta", models.TargetHigh)
	missing.Temporal = nil
	d, _, err := v.Encode([]*models.Incident{missing})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 1, 0, 0, 0}, d.Row(0))
}

func TestEncodeUnseenCategory(t *testing.T) {
	v := FitVocabulary(encoderFixture())

	_, _, err := v.Encode([]*models.Incident{
		incident(time.Monday, 8, 10, "Motocicleta", "Glorieta", models.TargetLow),
	})
	var mismatch *models.EncodingMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, PredictorVehicleClass, mismatch.Column)
	assert.Equal(t, "Motocicleta", mismatch.Value)
}

func TestEncodeFeaturesKeepsUnlabelled(t *testing.T) {
	incidents := encoderFixture()[:4]
	v := FitVocabulary(incidents)

	unlabelled := incident(time.Monday, 3, 2, "Choque", "Glorieta", models.TargetUndefined)
	d, err := v.EncodeFeatures([]*models.Incident{unlabelled})
	require.NoError(t, err)
	assert.Equal(t, []int{int(models.TargetUndefined)}, d.Y)
}

func TestEncodeFeaturesUnlabelledOnlyCategory(t *testing.T) {
	incidents := encoderFixture()
	v := FitVocabulary(incidents)

	// Friday, locality 7 and Volcamiento appear only on the unlabelled row
	d, err := v.EncodeFeatures(incidents[4:])
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0, 12, 1, 0, 0, 1, 0, 0}, d.Row(0))
}

func TestVocabularyVersion(t *testing.T) {
	a := FitVocabulary(encoderFixture())
	b := FitVocabulary(encoderFixture())
	assert.Equal(t, a.Version, b.Version)
	assert.Len(t, a.Version, 12)

	other := append(encoderFixture(), incident(time.Tuesday, 1, 1, "Choque", "Glorieta", models.TargetLow))
	c := FitVocabulary(other)
	assert.NotEqual(t, a.Version, c.Version)
}

func TestCheckFeatures(t *testing.T) {
	v := FitVocabulary(encoderFixture())
	assert.NoError(t, v.CheckFeatures(v.FeatureNames()))

	var mismatch *models.EncodingMismatchError
	err := v.CheckFeatures([]string{"hour_of_day"})
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, v.FeatureNames(), mismatch.Expected)
}
