package region

import (
	"bufio"
	"encoding/xml"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	"io"
	"os"
	"path"
	"strings"
)

const Generator = "osmextract"

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n" + `<osm version="0.6" generator="` + Generator + `">` + "\n"
const xmlFooter = "</osm>\n"

// XmlSink streams objects as OSM XML. The document header is written together with the first object (or on close,
// if there never was an object), so an empty region still results in a valid document.
type XmlSink struct {
	writer        *bufio.Writer
	closer        io.Closer
	encoder       *xml.Encoder
	headerWritten bool
	closed        bool
}

func NewXmlSink(w io.Writer) *XmlSink {
	bufferedWriter := bufio.NewWriter(w)
	return &XmlSink{
		writer:  bufferedWriter,
		encoder: xml.NewEncoder(bufferedWriter),
	}
}

// NewFileSink creates the given .osm file (and its parent folders) and returns a sink writing into it.
func NewFileSink(filename string) (*XmlSink, error) {
	if !strings.HasSuffix(filename, ".osm") {
		return nil, errors.Errorf("Output file %s must be an .osm file", filename)
	}

	err := os.MkdirAll(path.Dir(filename), os.ModePerm)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to create folder for output file %s", filename)
	}

	file, err := os.Create(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to create output file %s", filename)
	}

	sink := NewXmlSink(file)
	sink.closer = file
	return sink, nil
}

func (s *XmlSink) Write(obj osm.Object) error {
	if s.closed {
		return errors.Errorf("Unable to write %s: sink already closed", obj.ObjectID())
	}

	err := s.writeHeader()
	if err != nil {
		return err
	}

	_, err = s.writer.WriteString("  ")
	if err != nil {
		return errors.Wrapf(err, "Unable to write %s", obj.ObjectID())
	}

	// The encoder flushes into the buffered writer after each object.
	err = s.encoder.Encode(obj)
	if err != nil {
		return errors.Wrapf(err, "Unable to encode %s as XML", obj.ObjectID())
	}

	err = s.writer.WriteByte('\n')
	if err != nil {
		return errors.Wrapf(err, "Unable to write %s", obj.ObjectID())
	}

	return nil
}

func (s *XmlSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.writeHeader()
	if err != nil {
		return err
	}

	_, err = s.writer.WriteString(xmlFooter)
	if err != nil {
		return errors.Wrap(err, "Unable to write end of OSM XML document")
	}

	err = s.writer.Flush()
	if err != nil {
		return errors.Wrap(err, "Unable to flush OSM XML output")
	}

	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func (s *XmlSink) writeHeader() error {
	if s.headerWritten {
		return nil
	}
	s.headerWritten = true

	_, err := s.writer.WriteString(xmlHeader)
	if err != nil {
		return errors.Wrap(err, "Unable to write OSM XML header")
	}
	return nil
}

// MemorySink keeps all written objects in memory.
type MemorySink struct {
	Objects []osm.Object
	Closed  bool
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(obj osm.Object) error {
	if s.Closed {
		return errors.Errorf("Unable to write %s: sink already closed", obj.ObjectID())
	}
	s.Objects = append(s.Objects, obj)
	return nil
}

func (s *MemorySink) Close() error {
	s.Closed = true
	return nil
}

// ObjectIDs returns the IDs of all written objects in the order they were written.
func (s *MemorySink) ObjectIDs() []osm.ObjectID {
	var ids []osm.ObjectID
	for _, obj := range s.Objects {
		ids = append(ids, obj.ObjectID())
	}
	return ids
}
