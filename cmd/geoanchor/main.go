package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/twpayne/go-geoanchor"
)

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flagSet := newFlagSet()
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(flagSet)
	if err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	points, err := parsePoints(flagSet.Args())
	if err != nil {
		return err
	}

	anchor, err := cfg.anchor()
	if err != nil {
		return err
	}
	resolver, err := geoanchor.NewResolver(
		geoanchor.WithLibrary(cfg.library()),
		geoanchor.WithLogger(logger),
		geoanchor.WithProbeOffset(cfg.ProbeOffset),
		geoanchor.WithResultCacheSize(cfg.CacheSize),
	)
	if err != nil {
		return err
	}

	resolution, err := resolver.ResolveTransform(anchor, cfg.Target)
	if err != nil {
		return err
	}
	inverse, err := resolution.Inverse()
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"target":     cfg.Target,
		"kind":       resolution.Kind,
		"linearUnit": resolution.LinearUnitName,
		"scale":      resolution.Scale,
	}).Info("resolved transform")

	fmt.Fprintln(stdout, "forward:")
	printTransform(stdout, resolution.Forward)
	fmt.Fprintln(stdout, "inverse:")
	printTransform(stdout, inverse)

	if len(points) == 0 {
		return nil
	}

	for i, targetPoint := range resolution.ModelToTarget(points) {
		fmt.Fprintf(stdout, "%s -> %s\n", formatPoint(points[i]), formatPoint(targetPoint))
	}

	if cfg.DEM == "" {
		return nil
	}
	euDEM, err := geoanchor.NewEUDEM(os.DirFS(cfg.DEM))
	if err != nil {
		return err
	}
	defer euDEM.Close()
	terrain, err := geoanchor.NewTerrain(resolver, anchor, euDEM)
	if err != nil {
		return err
	}
	draped, err := terrain.Drape(ctx, points)
	if err != nil {
		return err
	}
	for i, drapedPoint := range draped {
		fmt.Fprintf(stdout, "%s draped %s\n", formatPoint(points[i]), formatPoint(drapedPoint))
	}

	return nil
}

// parsePoints parses arguments of the form x,y,z.
func parsePoints(args []string) ([]geoanchor.Point3, error) {
	points := make([]geoanchor.Point3, 0, len(args))
	for _, arg := range args {
		fields := strings.Split(arg, ",")
		if len(fields) != 3 {
			return nil, fmt.Errorf("%s: syntax: x,y,z", arg)
		}
		var coords [3]float64
		for i, field := range fields {
			coord, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", arg, err)
			}
			coords[i] = coord
		}
		points = append(points, geoanchor.Point3{X: coords[0], Y: coords[1], Z: coords[2]})
	}
	return points, nil
}

func formatPoint(p geoanchor.Point3) string {
	return strconv.FormatFloat(p.X, 'f', -1, 64) + "," +
		strconv.FormatFloat(p.Y, 'f', -1, 64) + "," +
		strconv.FormatFloat(p.Z, 'f', -1, 64)
}

func printTransform(w io.Writer, t geoanchor.AffineTransform) {
	for _, row := range t {
		fmt.Fprintf(w, "  %16.9f %16.9f %16.9f %16.6f\n", row[0], row[1], row[2], row[3])
	}
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
