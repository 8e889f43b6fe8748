package render

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/couchcryptid/crime-map-service/internal/mapview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() mapview.SceneState {
	return mapview.SceneState{
		Width:    600,
		Height:   400,
		Selected: "2023-01",
		Shapes: []mapview.Shape{
			{Key: "feature-0", District: 1, Label: "1", Crimes: 10, Fill: "#fddcaf", Stroke: "#333", StrokeWidth: 0.5, Path: "M0,0L10,0L10,10Z"},
			{Key: `odd"key<`, District: 2, Label: "2", Crimes: 50, Fill: "#7f0000", Stroke: "#333", StrokeWidth: 2, Path: "M20,0L30,0L30,10Z"},
		},
	}
}

func TestWrite_Document(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleState()))
	out := buf.String()

	assert.Contains(t, out, `viewBox="0 0 600 400"`)
	assert.Contains(t, out, `data-month="2023-01"`)
	assert.Contains(t, out, `d="M0,0L10,0L10,10Z"`)
	assert.Contains(t, out, `data-key="feature-0"`)
	assert.Contains(t, out, `data-crimes="50"`)
	assert.Contains(t, out, `fill="#7f0000"`)
	assert.Contains(t, out, `stroke-width="0.5"`)
	assert.Contains(t, out, `stroke-width="2"`)
	assert.Contains(t, out, `data-key="odd&#34;key&lt;"`)
	assert.Equal(t, 2, strings.Count(out, `class="district"`))
}

func TestWrite_WellFormedXML(t *testing.T) {
	dec := xml.NewDecoder(bytes.NewReader(Bytes(sampleState())))
	paths := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "path" {
			paths++
		}
	}
	assert.Equal(t, 2, paths)
}

func TestWrite_EmptyScene(t *testing.T) {
	out := string(Bytes(mapview.SceneState{Width: 100, Height: 100}))
	assert.Contains(t, out, "<svg")
	assert.NotContains(t, out, "<path")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWrite_ReportsWriterError(t *testing.T) {
	err := Write(failingWriter{}, sampleState())
	assert.EqualError(t, err, "disk full")
}
