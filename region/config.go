package region

import (
	"bytes"
	"encoding/json"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
	"os"
	"path"
	"strconv"
	"strings"
)

// Config is the content of an extract config file:
//
//	{
//	  "directory": "out",
//	  "extracts": [
//	    { "output": "a.osm", "bbox": [9.9, 53.5, 10.1, 53.6] },
//	    { "output": "b.osm", "polygon": { "file_name": "b.geojson", "file_type": "geojson" } }
//	  ]
//	}
type Config struct {
	Directory string          `json:"directory"`
	Extracts  []ExtractConfig `json:"extracts"`
}

type ExtractConfig struct {
	Output       string          `json:"output"`
	Description  string          `json:"description"`
	Bbox         json.RawMessage `json:"bbox"`
	Polygon      json.RawMessage `json:"polygon"`
	Multipolygon json.RawMessage `json:"multipolygon"`
}

type bboxObject struct {
	Left   *float64 `json:"left"`
	Bottom *float64 `json:"bottom"`
	Right  *float64 `json:"right"`
	Top    *float64 `json:"top"`
}

type geometryFile struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
}

// ParseConfig parses the given config file content. Geometry files are not read here, see ExtractConfig.ToGeometry.
func ParseConfig(data []byte) (*Config, error) {
	config := &Config{}
	err := json.Unmarshal(data, config)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to parse extract config")
	}

	if len(config.Extracts) == 0 {
		return nil, errors.New("Extract config contains no extracts")
	}

	for i, extract := range config.Extracts {
		if extract.Output == "" {
			return nil, errors.Errorf("Extract %d in config has no output file", i)
		}
	}

	return config, nil
}

// LoadRegions reads the config file and creates one region per extract. The output files are created immediately.
// The output directory overrides the directory within the config file if it's not empty.
func LoadRegions(configFile string, outputDirectory string) ([]*Region, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to read extract config file %s", configFile)
	}

	config, err := ParseConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Invalid extract config file %s", configFile)
	}

	if outputDirectory == "" {
		outputDirectory = config.Directory
	}

	configFolder := path.Dir(configFile)

	var regions []*Region
	for _, extract := range config.Extracts {
		geometry, err := extract.ToGeometry(configFolder)
		if err != nil {
			closeRegions(regions)
			return nil, errors.Wrapf(err, "Unable to determine geometry of extract '%s'", extract.Output)
		}

		sink, err := NewFileSink(path.Join(outputDirectory, extract.Output))
		if err != nil {
			closeRegions(regions)
			return nil, err
		}

		sigolo.Debugf("Loaded extract '%s' (%s) with bounds %v", extract.Output, extract.Description, geometry.Bound())
		regions = append(regions, New(extract.Output, geometry, sink))
	}

	return regions, nil
}

func closeRegions(regions []*Region) {
	for _, r := range regions {
		err := r.Close()
		if err != nil {
			sigolo.Errorf("%+v", err)
		}
	}
}

// ToGeometry returns the geometry of the extract. Exactly one of "bbox", "polygon" and "multipolygon" must be set.
func (e ExtractConfig) ToGeometry(configFolder string) (orb.Geometry, error) {
	geometryDefinitions := 0
	for _, raw := range []json.RawMessage{e.Bbox, e.Polygon, e.Multipolygon} {
		if len(raw) != 0 {
			geometryDefinitions++
		}
	}
	if geometryDefinitions != 1 {
		return nil, errors.Errorf("Exactly one of 'bbox', 'polygon' or 'multipolygon' expected but found %d", geometryDefinitions)
	}

	if len(e.Bbox) != 0 {
		return parseBbox(e.Bbox)
	}
	if len(e.Polygon) != 0 {
		return parsePolygon(e.Polygon, configFolder)
	}
	return parseMultipolygon(e.Multipolygon, configFolder)
}

func parseBbox(raw json.RawMessage) (orb.Geometry, error) {
	if isJsonArray(raw) {
		var values []float64
		err := json.Unmarshal(raw, &values)
		if err != nil {
			return nil, errors.Wrap(err, "Unable to parse bbox array")
		}
		if len(values) != 4 {
			return nil, errors.Errorf("Bbox array must contain four values but has %d", len(values))
		}
		return newBound(values[0], values[1], values[2], values[3])
	}

	var object bboxObject
	err := json.Unmarshal(raw, &object)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to parse bbox object")
	}
	if object.Left == nil || object.Bottom == nil || object.Right == nil || object.Top == nil {
		return nil, errors.New("Bbox object must contain 'left', 'bottom', 'right' and 'top'")
	}
	return newBound(*object.Left, *object.Bottom, *object.Right, *object.Top)
}

// FromBBoxString parses a bbox in the form "minLon,minLat,maxLon,maxLat".
func FromBBoxString(bbox string) (orb.Bound, error) {
	parts := strings.Split(bbox, ",")
	if len(parts) != 4 {
		return orb.Bound{}, errors.Errorf("Bbox '%s' must consist of four comma separated values", bbox)
	}

	var values [4]float64
	for i, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return orb.Bound{}, errors.Wrapf(err, "Unable to parse value '%s' of bbox '%s'", part, bbox)
		}
		values[i] = value
	}

	return newBound(values[0], values[1], values[2], values[3])
}

func newBound(minLon float64, minLat float64, maxLon float64, maxLat float64) (orb.Bound, error) {
	if minLon > maxLon || minLat > maxLat {
		return orb.Bound{}, errors.Errorf("Invalid bbox %f,%f,%f,%f: minimum must not be larger than maximum", minLon, minLat, maxLon, maxLat)
	}
	return orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}, nil
}

func parsePolygon(raw json.RawMessage, configFolder string) (orb.Geometry, error) {
	if !isJsonArray(raw) {
		return readGeometryFile(raw, configFolder)
	}

	var polygon orb.Polygon
	err := json.Unmarshal(raw, &polygon)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to parse polygon coordinates")
	}
	if len(polygon) == 0 {
		return nil, errors.New("Polygon has no rings")
	}
	return polygon, nil
}

func parseMultipolygon(raw json.RawMessage, configFolder string) (orb.Geometry, error) {
	if !isJsonArray(raw) {
		return readGeometryFile(raw, configFolder)
	}

	var multiPolygon orb.MultiPolygon
	err := json.Unmarshal(raw, &multiPolygon)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to parse multipolygon coordinates")
	}
	if len(multiPolygon) == 0 {
		return nil, errors.New("Multipolygon has no polygons")
	}
	return multiPolygon, nil
}

func readGeometryFile(raw json.RawMessage, configFolder string) (orb.Geometry, error) {
	var file geometryFile
	err := json.Unmarshal(raw, &file)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to parse geometry file reference")
	}

	if file.FileType != "" && file.FileType != "geojson" {
		return nil, errors.Errorf("Unsupported geometry file type '%s' of file %s, only 'geojson' is supported", file.FileType, file.FileName)
	}

	filename := file.FileName
	if !path.IsAbs(filename) {
		filename = path.Join(configFolder, filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to read geometry file %s", filename)
	}

	geometry, err := ParseGeoJsonArea(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to read geometry from file %s", filename)
	}
	return geometry, nil
}

// ParseGeoJsonArea reads a GeoJSON feature collection, feature or plain geometry and returns all (multi)polygons in
// it. Several polygons are combined into one multipolygon.
func ParseGeoJsonArea(data []byte) (orb.Geometry, error) {
	var typeHeader struct {
		Type string `json:"type"`
	}
	err := json.Unmarshal(data, &typeHeader)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to parse GeoJSON")
	}

	var geometries []orb.Geometry
	switch typeHeader.Type {
	case "FeatureCollection":
		featureCollection, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, errors.Wrap(err, "Unable to parse GeoJSON feature collection")
		}
		for _, feature := range featureCollection.Features {
			geometries = append(geometries, feature.Geometry)
		}
	case "Feature":
		feature, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, errors.Wrap(err, "Unable to parse GeoJSON feature")
		}
		geometries = append(geometries, feature.Geometry)
	default:
		geometry, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, errors.Wrap(err, "Unable to parse GeoJSON geometry")
		}
		geometries = append(geometries, geometry.Geometry())
	}

	var multiPolygon orb.MultiPolygon
	for _, geometry := range geometries {
		switch g := geometry.(type) {
		case orb.Polygon:
			multiPolygon = append(multiPolygon, g)
		case orb.MultiPolygon:
			multiPolygon = append(multiPolygon, g...)
		default:
			sigolo.Debugf("Ignoring GeoJSON geometry of type %T, only (multi)polygons define an area", geometry)
		}
	}

	if len(multiPolygon) == 0 {
		return nil, errors.New("GeoJSON contains no polygon or multipolygon")
	}
	if len(multiPolygon) == 1 {
		return multiPolygon[0], nil
	}
	return multiPolygon, nil
}

func isJsonArray(raw json.RawMessage) bool {
	return bytes.HasPrefix(bytes.TrimSpace(raw), []byte("["))
}
