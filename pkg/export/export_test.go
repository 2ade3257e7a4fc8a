package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kass/track2route/pkg/gpxio"
	"github.com/kass/track2route/pkg/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func route(name string, coords ...[2]float64) models.Route {
	r := models.Route{Name: name}
	for _, c := range coords {
		r.Points = append(r.Points, models.TrackPoint{Location: models.Location{Lat: c[0], Lon: c[1]}})
	}
	return r
}

func TestParseFormat(t *testing.T) {
	testCases := []struct {
		in       string
		expected Format
	}{
		{"gpx", FormatGPX},
		{"KML", FormatKML},
		{"geojson", FormatGeoJSON},
		{"json", FormatGeoJSON},
		{" polyline ", FormatPolyline},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseFormat(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}

	_, err := ParseFormat("shapefile")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestDetectFormat(t *testing.T) {
	testCases := []struct {
		path     string
		expected Format
	}{
		{"output.gpx", FormatGPX},
		{"/tmp/ride.KML", FormatKML},
		{"routes.geojson", FormatGeoJSON},
		{"routes.json", FormatGeoJSON},
		{"route.polyline", FormatPolyline},
		{"route.txt", FormatPolyline},
	}
	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			got, err := DetectFormat(tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}

	_, err := DetectFormat("noextension")
	assert.ErrorIs(t, err, ErrUnknownFormat)
	_, err = DetectFormat("file.csv")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestEncodePolyline(t *testing.T) {
	// reference example from the encoded polyline algorithm description
	points := route("", [2]float64{38.5, -120.2}, [2]float64{40.7, -120.95}, [2]float64{43.252, -126.453}).Points
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC_mqNvxq`@", EncodePolyline(points))
	assert.Equal(t, "", EncodePolyline(nil))
}

func TestWritePolyline(t *testing.T) {
	routes := []models.Route{
		route("a", [2]float64{38.5, -120.2}, [2]float64{40.7, -120.95}),
		route("b", [2]float64{0, 0}, [2]float64{0, 1}),
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatPolyline, routes))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, EncodePolyline(routes[0].Points), lines[0])
	assert.Equal(t, EncodePolyline(routes[1].Points), lines[1])
}

func TestWriteGeoJSON(t *testing.T) {
	r := route("ride", [2]float64{46, 7}, [2]float64{46.5, 7.25})
	r.Description = "lake loop"

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatGeoJSON, []models.Route{r}))

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)

	f := fc.Features[0]
	assert.Equal(t, "ride", f.Properties.MustString("name"))
	assert.Equal(t, "lake loop", f.Properties.MustString("description"))

	ls, ok := f.Geometry.(orb.LineString)
	require.True(t, ok)
	assert.Equal(t, orb.LineString{{7, 46}, {7.25, 46.5}}, ls)
}

func TestWriteKML(t *testing.T) {
	ele := 512.0
	r := route("ride", [2]float64{46, 7}, [2]float64{46.5, 7.25})
	r.Points[0].Elevation = &ele

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatKML, []models.Route{r, route("second", [2]float64{1, 2}, [2]float64{3, 4})}))

	out := buf.String()
	assert.Contains(t, out, "<kml")
	assert.Equal(t, 2, strings.Count(out, "<Placemark>"))
	assert.Contains(t, out, "<name>ride</name>")
	assert.Contains(t, out, "<name>second</name>")
	assert.Equal(t, 2, strings.Count(out, "<LineString>"))
	assert.Contains(t, out, "<coordinates>")
}

func TestWriteGPX(t *testing.T) {
	routes := []models.Route{
		route("one", [2]float64{46, 7}, [2]float64{46.5, 7.25}),
		route("two", [2]float64{1, 2}, [2]float64{3, 4}, [2]float64{5, 6}),
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatGPX, routes))

	doc, err := gpxio.Parse(&buf)
	require.NoError(t, err)
	assert.Empty(t, doc.Tracks())

	got := doc.Routes()
	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].Name)
	assert.Len(t, got[1].Points, 3)
}

func TestWriteUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, Format("svg"), nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLineString(t *testing.T) {
	ls := LineString(route("", [2]float64{10, 20}, [2]float64{11, 21}).Points)
	assert.Equal(t, orb.LineString{{20, 10}, {21, 11}}, ls)
	assert.Empty(t, LineString(nil))
}
