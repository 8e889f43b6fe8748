// Command render writes the choropleth for one or every month to standalone
// SVG files, using the same controller and renderer as the service.
//
// Usage:
//
//	go run ./cmd/render \
//	  -dataset data/map_pie_data_monthly.json \
//	  -geojson data/police_districts.geojson \
//	  -all -out-dir out/
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/couchcryptid/crime-map-service/internal/adapter/file"
	"github.com/couchcryptid/crime-map-service/internal/domain"
	"github.com/couchcryptid/crime-map-service/internal/mapview"
	"github.com/couchcryptid/crime-map-service/internal/observability"
	"github.com/couchcryptid/crime-map-service/internal/render"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	datasetPath := flag.String("dataset", "data/map_pie_data_monthly.json", "path to the monthly dataset JSON")
	geojsonPath := flag.String("geojson", "data/police_districts.geojson", "path to the district boundaries")
	month := flag.String("month", "", "month to render (YYYY-MM); defaults to the earliest month")
	all := flag.Bool("all", false, "render every month in the dataset")
	outDir := flag.String("out-dir", ".", "directory for the SVG files")
	size := flag.Int("size", mapview.DefaultCanvasSize, "canvas width and height in pixels")
	logLevel := flag.String("log-level", "warn", "log level: debug, info, warn or error")
	flag.Parse()

	if *all && *month != "" {
		flag.Usage()
		return fmt.Errorf("-month and -all are mutually exclusive")
	}
	if *month != "" && !domain.ValidMonth(*month) {
		return fmt.Errorf("invalid -month %q: want YYYY-MM", *month)
	}

	dataset, err := file.LoadDataset(*datasetPath)
	if err != nil {
		return err
	}
	features, err := file.LoadFeatures(*geojsonPath)
	if err != nil {
		return err
	}

	logger := observability.NewCLILogger(*logLevel)
	scene := mapview.NewScene(*size, *size)
	ctrl := mapview.New(scene, mapview.Options{CanvasSize: *size},
		logger, observability.NewMetricsWithRegistry(prometheus.NewRegistry()))
	if err := ctrl.Initialize(dataset, features); err != nil {
		return err
	}

	months := []string{ctrl.CurrentMonth()}
	switch {
	case *all:
		months = ctrl.Months()
	case *month != "":
		months = []string{*month}
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, m := range months {
		st, ok := ctrl.Preview(m)
		if !ok {
			return fmt.Errorf("month %s is not in the dataset", m)
		}
		path := filepath.Join(*outDir, m+".svg")
		if err := writeSVG(path, st); err != nil {
			return err
		}
		log.Printf("%s: %d districts -> %s", m, len(st.Shapes), path)
	}
	log.Printf("total: %d maps", len(months))
	return nil
}

func writeSVG(path string, st mapview.SceneState) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := render.Write(f, st); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
