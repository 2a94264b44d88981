package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tripTemplate = `<query option="DISTINCT">
  <select alias="TRIP_CODE" type="number">T.ID</select>
  <select alias="PROJECT">P.LABEL</select>
  <select alias="LANDING_COUNT" type="number" group="agg">COUNT(L.ID)</select>
  <injection name="injectionTripColumns"/>
  <from alias="T">TRIP</from>
  <from join="true">INNER JOIN PROGRAM P ON P.ID = T.PROGRAM_FK</from>
  <from join="true" group="agg">LEFT OUTER JOIN LANDING L ON L.TRIP_FK = T.ID</from>
  <where>1=1</where>
  <where operator="AND" group="programFilter"><in field="P.LABEL"><![CDATA[&progLabels]]></in></where>
  <where operator="AND" group="startDateFilter">T.RETURN_DATE_TIME &gt;= &amp;startDate</where>
  <where operator="OR" group="tripFilter">
    <in field="T.ID">&tripIds</in>
    <where operator="OR">T.ID IS NULL</where>
  </where>
  <groupby group="agg">T.ID, P.LABEL</groupby>
  <having group="agg">COUNT(L.ID) &gt; 0</having>
  <orderby direction="desc">T.ID</orderby>
</query>`

func TestRender_Full(t *testing.T) {
	doc := MustParse(tripTemplate).BindAll(map[string]Value{
		"progLabels": Strings("SIH-OBSMER", "ADAP"),
		"startDate":  Date(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)),
		"tripIds":    Ints(12, 10),
	})

	sql, err := doc.Render()
	require.NoError(t, err)

	want := `SELECT DISTINCT
  T.ID AS TRIP_CODE,
  P.LABEL AS PROJECT,
  COUNT(L.ID) AS LANDING_COUNT
FROM TRIP T
  INNER JOIN PROGRAM P ON P.ID = T.PROGRAM_FK
  LEFT OUTER JOIN LANDING L ON L.TRIP_FK = T.ID
WHERE 1=1
  AND (P.LABEL IN ('ADAP','SIH-OBSMER'))
  AND (T.RETURN_DATE_TIME >= TIMESTAMP '2020-01-01 00:00:00')
  OR (T.ID IN (10,12) OR (T.ID IS NULL))
GROUP BY T.ID, P.LABEL
HAVING COUNT(L.ID) > 0
ORDER BY T.ID DESC`
	assert.Equal(t, want, sql)
}

func TestRender_DisabledGroups(t *testing.T) {
	doc := MustParse(tripTemplate).WithGroups(map[string]bool{
		"agg":             false,
		"programFilter":   false,
		"startDateFilter": false,
		"tripFilter":      false,
	})

	sql, err := doc.Render()
	require.NoError(t, err)

	want := `SELECT DISTINCT
  T.ID AS TRIP_CODE,
  P.LABEL AS PROJECT
FROM TRIP T
  INNER JOIN PROGRAM P ON P.ID = T.PROGRAM_FK
WHERE 1=1
ORDER BY T.ID DESC`
	assert.Equal(t, want, sql)
}

func TestRender_Lowercase(t *testing.T) {
	doc := MustParse(`<query><select alias="TRIP_CODE">T.ID</select><from alias="T">TRIP</from><from>VESSEL V</from></query>`)

	sql, err := doc.WithLowercase(true).Render()
	require.NoError(t, err)
	assert.Equal(t, "SELECT\n  T.ID AS trip_code\nFROM TRIP T, VESSEL V", sql)
}

func TestRender_ColumnCollision(t *testing.T) {
	doc := MustParse(`<query>
  <select alias="DATE">T.D1</select>
  <select alias="date" group="alt">T.D2</select>
</query>`)

	_, err := doc.Render()
	var collision *ColumnCollisionError
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, "date", collision.Alias)
	require.Len(t, collision.Positions, 2)
	assert.Equal(t, 2, collision.Positions[0].Line)

	// A disabled duplicate is not a collision.
	_, err = doc.WithGroup("alt", false).Render()
	assert.NoError(t, err)
}

func TestRender_InjectedCollision(t *testing.T) {
	doc := MustParse(stationTemplate)
	doc, err := doc.Inject("injectionOperationPmfm", fragment("GEAR_TYPE"), After)
	require.NoError(t, err)

	_, err = doc.Render()
	var collision *ColumnCollisionError
	require.ErrorAs(t, err, &collision)
}

func TestRender_EmptyCondition(t *testing.T) {
	doc := MustParse(`<query>
  <select alias="A">1</select>
  <where><where group="x">A = 1</where></where>
  <where>B = 2</where>
</query>`).WithGroup("x", false)

	sql, err := doc.Render()
	require.NoError(t, err)
	assert.Equal(t, "SELECT\n  1 AS A\nWHERE B = 2", sql)
}
