// Package render turns scene snapshots into standalone SVG documents.
package render

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strconv"

	svg "github.com/ajstarks/svgo"

	"github.com/couchcryptid/crime-map-service/internal/mapview"
)

// Background fills the canvas behind the districts.
const Background = "fill:#ffffff"

// errWriter remembers the first write error; svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

// Write renders st as an SVG document. Every district becomes a path carrying
// its key, district number and crime count as data attributes.
func Write(w io.Writer, st mapview.SceneState) error {
	ew := &errWriter{w: w}
	canvas := svg.New(ew)

	canvas.Start(st.Width, st.Height,
		fmt.Sprintf(`viewBox="0 0 %d %d"`, st.Width, st.Height),
		`id="map-chart"`,
		attr("data-month", st.Selected),
	)
	canvas.Rect(0, 0, st.Width, st.Height, Background)
	canvas.Gid("districts")
	for _, sh := range st.Shapes {
		canvas.Path(sh.Path,
			`class="district"`,
			attr("data-key", sh.Key),
			attr("data-district", sh.Label),
			attr("data-crimes", strconv.Itoa(sh.Crimes)),
			attr("fill", sh.Fill),
			attr("stroke", sh.Stroke),
			attr("stroke-width", strconv.FormatFloat(sh.StrokeWidth, 'f', -1, 64)),
		)
	}
	canvas.Gend()
	canvas.End()
	return ew.err
}

// Bytes is Write into a fresh buffer.
func Bytes(st mapview.SceneState) []byte {
	var buf bytes.Buffer
	_ = Write(&buf, st) // bytes.Buffer writes do not fail
	return buf.Bytes()
}

func attr(name, value string) string {
	return name + `="` + html.EscapeString(value) + `"`
}
